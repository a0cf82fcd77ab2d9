package handler

import (
	"carforum/internal/domain/news/service"
	"carforum/pkg/response"

	"github.com/gin-gonic/gin"
)

type NewsHandler struct {
	service service.NewsService
}

func NewNewsHandler(s service.NewsService) *NewsHandler {
	return &NewsHandler{service: s}
}

// List 新闻列表，上游不可用时返回空列表
// @Summary 汽车新闻
// @Tags News
// @Produce json
// @Param topic query string false "主题，默认 car"
// @Success 200 {object} response.Response
// @Router /news [get]
func (h *NewsHandler) List(c *gin.Context) {
	response.Success(c, h.service.Fetch(c.Request.Context(), c.Query("topic")))
}
