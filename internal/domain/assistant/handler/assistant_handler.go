package handler

import (
	"net/http"

	"carforum/internal/domain/assistant/service"
	"carforum/internal/pkg/middleware"
	"carforum/pkg/response"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	service service.AssistantService
}

func NewAssistantHandler(s service.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: s}
}

// AskInput 提问
type AskInput struct {
	Question string `json:"question"`
}

// History 当前会话的聊天记录
// @Summary 聊天记录
// @Tags Assistant
// @Produce json
// @Success 200 {object} response.Response
// @Router /chat [get]
func (h *AssistantHandler) History(c *gin.Context) {
	conv, err := h.service.History(c.Request.Context(), middleware.CurrentSessionID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, conv)
}

// Ask 提问
// @Summary 向助手提问
// @Tags Assistant
// @Accept json
// @Produce json
// @Param input body AskInput true "问题"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /chat [post]
func (h *AssistantHandler) Ask(c *gin.Context) {
	var input AskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	conv, err := h.service.Ask(c.Request.Context(), middleware.CurrentSessionID(c), input.Question)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, conv)
}

// Clear 清空聊天记录
func (h *AssistantHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), middleware.CurrentSessionID(c)); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, true)
}
