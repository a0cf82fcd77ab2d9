package handler

import (
	"net/http"
	"strconv"

	"carforum/internal/domain/forum/model"
	"carforum/internal/domain/forum/service"
	"carforum/internal/pkg/middleware"
	"carforum/pkg/response"

	"github.com/gin-gonic/gin"
)

type ForumHandler struct {
	service service.ForumService
}

func NewForumHandler(s service.ForumService) *ForumHandler {
	return &ForumHandler{service: s}
}

// ReplyInput 回复输入
type ReplyInput struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parentId"`
}

func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusNotFound, response.ErrPostNotFound, "post not found")
		return 0, false
	}
	return uint(id), true
}

func pageParam(c *gin.Context) int {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return page
}

// ListPosts 帖子列表
// @Summary 帖子列表
// @Tags Forum
// @Produce json
// @Param tag query string false "分类"
// @Param page query int false "页码"
// @Success 200 {object} response.Response
// @Router /posts [get]
func (h *ForumHandler) ListPosts(c *gin.Context) {
	result, err := h.service.ListPosts(c.Request.Context(), middleware.CurrentUserID(c), c.Query("tag"), pageParam(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// SearchPosts 搜索帖子
// @Summary 搜索帖子
// @Tags Forum
// @Produce json
// @Param q query string true "关键词"
// @Param search_type query string false "Titles / Descriptions / Both"
// @Param page query int false "页码"
// @Success 200 {object} response.Response
// @Router /posts/search [get]
func (h *ForumHandler) SearchPosts(c *gin.Context) {
	mode := model.ParseSearchMode(c.Query("search_type"))
	result, err := h.service.SearchPosts(c.Request.Context(), middleware.CurrentUserID(c), c.Query("q"), mode, pageParam(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// GetPost 帖子详情，每次访问浏览数 +1
// @Summary 帖子详情
// @Tags Forum
// @Produce json
// @Param id path int true "帖子ID"
// @Param page query int false "回复页码"
// @Success 200 {object} response.Response
// @Router /posts/{id} [get]
func (h *ForumHandler) GetPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	detail, err := h.service.GetPostDetail(c.Request.Context(), middleware.CurrentUserID(c), id, pageParam(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, detail)
}

// ReplyTree 帖子的回复树
func (h *ForumHandler) ReplyTree(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	tree, err := h.service.ReplyTree(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, tree)
}

// CreatePost 发帖
// @Summary 发帖
// @Tags Forum
// @Accept json
// @Produce json
// @Param input body service.CreatePostInput true "帖子内容"
// @Success 200 {object} response.Response
// @Router /posts [post]
func (h *ForumHandler) CreatePost(c *gin.Context) {
	var input service.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	result, err := h.service.CreatePost(c.Request.Context(), middleware.CurrentUserID(c), input)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// DeletePost 删除帖子 (仅作者)
func (h *ForumHandler) DeletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.service.DeletePost(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, true)
}

// SubmitReply 回复帖子，parentId 可选
// @Summary 回复
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path int true "帖子ID"
// @Param input body ReplyInput true "回复内容"
// @Success 200 {object} response.Response
// @Router /posts/{id}/replies [post]
func (h *ForumHandler) SubmitReply(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var input ReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	result, err := h.service.SubmitReply(c.Request.Context(), middleware.CurrentUserID(c), id, input.Content, input.ParentID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// Vote 投票
// @Summary 投票
// @Tags Forum
// @Produce json
// @Param type path string true "post / reply"
// @Param id path int true "目标ID"
// @Param action path string true "like / dislike"
// @Success 200 {object} response.Response
// @Router /vote/{type}/{id}/{action} [post]
func (h *ForumHandler) Vote(c *gin.Context) {
	target, err := model.ParseTarget(c.Param("type"), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	result, err := h.service.CastVote(c.Request.Context(), middleware.CurrentUserID(c), target, c.Param("action"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}
