package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carforum/internal/pkg/uploader"
	"carforum/pkg/errs"
	"carforum/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxParallelUploads 单次请求内并发上传的文件数上限
const maxParallelUploads = 5

// CommonHandler 通用接口：健康检查与帖子图片上传
type CommonHandler struct {
	db       *gorm.DB
	uploader uploader.Uploader
}

// NewCommonHandler uploader 为 nil 时上传接口返回 502
func NewCommonHandler(db *gorm.DB, up uploader.Uploader) *CommonHandler {
	return &CommonHandler{db: db, uploader: up}
}

// Health 健康检查，数据库不可达时返回 503
// @Summary 健康检查
// @Tags Common
// @Produce json
// @Success 200 {object} response.Response
// @Router /healthz [get]
func (h *CommonHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.ErrServerInternal, "database unavailable")
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

// UploadFile 上传帖子图片 (支持批量)
// @Summary 上传图片到 OSS (支持批量)
// @Tags Common
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files"
// @Success 200 {object} response.Response{data=[]string} "URLs"
// @Router /upload [post]
func (h *CommonHandler) UploadFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No files uploaded")
		return
	}

	if h.uploader == nil {
		response.HandleError(c, errs.Dependency("oss", errors.New("uploader not configured")))
		return
	}

	// 按索引写入结果，保证返回顺序与上传顺序一致
	urls := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(maxParallelUploads)
	for i, file := range files {
		g.Go(func() error {
			url, err := h.uploader.UploadFile("posts", file)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, uploader.ErrUnsupportedType) {
			response.HandleError(c, errs.Invalid("files", err.Error()))
			return
		}
		response.HandleError(c, errs.Dependency("oss", err))
		return
	}

	response.Success(c, urls)
}
