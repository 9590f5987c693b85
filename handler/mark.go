package handler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/TIANLI0/MarkKit/config"
	"github.com/TIANLI0/MarkKit/model"
	"github.com/TIANLI0/MarkKit/service"
	"github.com/TIANLI0/MarkKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MarkHandler struct {
	cfg   *config.Config
	marks *service.MarkService
}

func NewMarkHandler(cfg *config.Config, marks *service.MarkService) *MarkHandler {
	return &MarkHandler{
		cfg:   cfg,
		marks: marks,
	}
}

// Register 注册 /api/v1 路由
func (h *MarkHandler) Register(api *gin.RouterGroup) {
	api.GET("/marks", h.ListMarks)
	api.POST("/overlay", h.Overlay)
	api.PUT("/subjects/:id/image", h.StageImage)
	api.POST("/subjects/:id/marks", h.PlaceMarks)
	api.POST("/subjects/:id/background", h.ChangeBackground)
}

// ListMarks 列出可用图标
func (h *MarkHandler) ListMarks(c *gin.Context) {
	lib := h.marks.Library()
	if lib == nil {
		c.JSON(http.StatusOK, model.MarksResponse{Success: true, Marks: []string{}})
		return
	}
	c.JSON(http.StatusOK, model.MarksResponse{Success: true, Marks: lib.Names()})
}

// StageImage 暂存主体图片，后续命令都基于该图片
func (h *MarkHandler) StageImage(c *gin.Context) {
	id := c.Param("id")
	if !utils.ValidSubjectID(id) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "主体ID不合法",
		})
		return
	}

	raw, ok := h.readUpload(c)
	if !ok {
		return
	}

	img, err := service.NewAssetLoader().Decode(raw)
	if err != nil {
		h.fail(c, service.WrapError(service.ErrCodeInvalidInput, err, "uploaded file is not a readable image"))
		return
	}

	if err := os.MkdirAll(h.cfg.Upload.StagingDir, 0755); err != nil {
		h.fail(c, service.WrapError(service.ErrCodeInternal, err, "failed to create staging directory"))
		return
	}
	// 同一主体的并发上传会互相覆盖，由调用方保证顺序
	if err := os.WriteFile(h.stagedPath(id), raw, 0644); err != nil {
		utils.Logger.Error("failed to save file", zap.Error(err))
		h.fail(c, service.WrapError(service.ErrCodeInternal, err, "failed to save image"))
		return
	}

	sum := utils.BytesSHA256(raw)
	utils.Logger.Info("subject image staged",
		zap.String("subject", id),
		zap.String("sha256", sum),
		zap.Int("size", len(raw)))

	c.JSON(http.StatusOK, model.StageResponse{
		Success:   true,
		Message:   "图片已保存，可以使用图标或换背景命令",
		SubjectID: id,
		SHA256:    sum,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
	})
}

// PlaceMarks 在暂存图片上放置图标
func (h *MarkHandler) PlaceMarks(c *gin.Context) {
	var req model.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请求格式错误",
			Error:   err.Error(),
		})
		return
	}

	axis, names, err := resolveMarkRequest(req)
	if err != nil {
		h.fail(c, err)
		return
	}

	raw, ok := h.readStaged(c)
	if !ok {
		return
	}

	data, err := h.marks.OverlayMarks(c.Request.Context(), raw, axis, names)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// ChangeBackground 用配置的背景图替换暂存图片的背景
func (h *MarkHandler) ChangeBackground(c *gin.Context) {
	raw, ok := h.readStaged(c)
	if !ok {
		return
	}

	data, err := h.marks.ReplaceBackgroundBytes(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	if h.cfg.Output.CleanupStaging {
		path := h.stagedPath(c.Param("id"))
		if err := os.Remove(path); err != nil {
			utils.Logger.Warn("failed to delete staged file",
				zap.String("file", path),
				zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// Overlay 无状态接口：multipart 上传底图，表单字段 axis 与 marks（逗号分隔）
func (h *MarkHandler) Overlay(c *gin.Context) {
	raw, ok := h.readUpload(c)
	if !ok {
		return
	}

	var names []string
	for _, n := range strings.Split(c.DefaultPostForm("marks", service.AllMarks), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	axis, names, err := resolveMarkRequest(model.MarkRequest{
		Axis:  c.DefaultPostForm("axis", string(model.AxisTop)),
		Marks: names,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	data, err := h.marks.OverlayMarks(c.Request.Context(), raw, axis, names)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

func resolveMarkRequest(req model.MarkRequest) (model.Axis, []string, error) {
	if req.Command != "" {
		cmd, err := service.ParseMarkCommand(req.Command)
		if err != nil {
			return "", nil, err
		}
		return cmd.Axis, cmd.Marks, nil
	}

	axis := model.AxisTop
	if req.Axis != "" {
		a, err := model.ParseAxis(req.Axis)
		if err != nil {
			return "", nil, service.WrapError(service.ErrCodeInvalidAxis, err, "invalid axis")
		}
		axis = a
	}
	return axis, req.Marks, nil
}

func (h *MarkHandler) stagedPath(id string) string {
	return filepath.Join(h.cfg.Upload.StagingDir, id+".jpg")
}

func (h *MarkHandler) readStaged(c *gin.Context) ([]byte, bool) {
	id := c.Param("id")
	if !utils.ValidSubjectID(id) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "主体ID不合法",
		})
		return nil, false
	}

	raw, err := os.ReadFile(h.stagedPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Success: false,
				Message: "请先上传图片",
				Code:    string(service.ErrCodeNotFound),
			})
			return nil, false
		}
		h.fail(c, service.WrapError(service.ErrCodeInternal, err, "failed to read staged image"))
		return nil, false
	}
	return raw, true
}

// readUpload 读取并校验 multipart 字段 image
func (h *MarkHandler) readUpload(c *gin.Context) ([]byte, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return nil, false
	}

	// 验证文件大小
	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return nil, false
	}

	// 验证文件类型
	if !h.isAllowedType(file.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型，仅支持 JPEG/PNG",
		})
		return nil, false
	}

	raw, err := readFileHeader(file)
	if err != nil {
		h.fail(c, service.WrapError(service.ErrCodeInternal, err, "failed to read upload"))
		return nil, false
	}
	return raw, true
}

func readFileHeader(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *MarkHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// fail 按错误码映射 HTTP 状态
func (h *MarkHandler) fail(c *gin.Context, err error) {
	code := service.CodeOf(err)

	status := http.StatusInternalServerError
	message := "图片处理失败"
	switch code {
	case service.ErrCodeInvalidAxis:
		status, message = http.StatusBadRequest, "布局方向只能是 top 或 side"
	case service.ErrCodeInvalidInput:
		status, message = http.StatusBadRequest, "请求参数错误"
	case service.ErrCodeDegenerateGeometry:
		status, message = http.StatusBadRequest, "图片尺寸不足以放置这些图标"
	case service.ErrCodeMissingAsset:
		status, message = http.StatusNotFound, "图片或素材不存在"
	case service.ErrCodeNotFound:
		status, message = http.StatusNotFound, "未找到"
	case service.ErrCodeMattingFailure:
		status, message = http.StatusBadGateway, "抠图失败"
	case service.ErrCodeQueueFull:
		status, message = http.StatusServiceUnavailable, "处理队列已满，请稍后重试"
	}

	if status >= http.StatusInternalServerError {
		utils.Logger.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	} else {
		utils.Logger.Info("request rejected", zap.String("code", string(code)), zap.Error(err))
	}

	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: message,
		Code:    string(code),
		Error:   err.Error(),
	})
}
