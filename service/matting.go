package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/TIANLI0/MarkKit/config"
	"github.com/TIANLI0/MarkKit/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Matter 抠图服务：输入原始图片字节，输出同尺寸、alpha 表示主体置信度的 NRGBA
type Matter interface {
	Matte(ctx context.Context, raw []byte) (*image.NRGBA, error)
}

// MattingService 为任意 Matter 加上并发限制和排队超时
type MattingService struct {
	matter       Matter
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewMattingService(matter Matter, maxConcurrent int, queueTimeout time.Duration) *MattingService {
	return &MattingService{
		matter:       matter,
		semaphore:    make(chan struct{}, max(1, maxConcurrent)),
		queueTimeout: queueTimeout,
	}
}

// NewMatterFromConfig 按配置选择本地 GrabCut 或远程抠图服务
func NewMatterFromConfig(cfg *config.MattingConfig) (*MattingService, error) {
	var matter Matter
	switch cfg.Provider {
	case "grabcut":
		matter = NewGrabCutMatter(cfg.Iterations, cfg.BorderSize)
	case "remote":
		matter = NewRemoteMatter(cfg.Endpoint, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown matting provider %q", cfg.Provider)
	}
	return NewMattingService(matter, cfg.MaxConcurrent, time.Duration(cfg.QueueTimeout)*time.Second), nil
}

func (s *MattingService) Matte(ctx context.Context, raw []byte) (*image.NRGBA, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-s.semaphore }()

	start := time.Now()
	out, err := s.matter.Matte(ctx, raw)
	if err != nil {
		utils.Logger.Error("matting failed",
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		return nil, WrapError(ErrCodeMattingFailure, err, "matting failed")
	}

	utils.Logger.Info("matting finished",
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// acquire 有空位时立即占用，否则最多排队 queueTimeout
func (s *MattingService) acquire(ctx context.Context) error {
	select {
	case s.semaphore <- struct{}{}:
		return nil
	default:
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return WrapError(ErrCodeMattingFailure, ctx.Err(), "matting cancelled")
		}
		return NewError(ErrCodeQueueFull, "matting queue is full, retry later")
	}
}

// RemoteMatter 调用 rembg 兼容的 HTTP 抠图服务（multipart 字段 file）
type RemoteMatter struct {
	endpoint string
	http     *http.Client
}

func NewRemoteMatter(endpoint string, timeout time.Duration) *RemoteMatter {
	return &RemoteMatter{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

func (m *RemoteMatter) Matte(ctx context.Context, raw []byte) (*image.NRGBA, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", "image")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(raw); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matting request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("matting service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode matting response: %w", err)
	}
	out := imaging.Clone(img)
	if out.Bounds().Empty() {
		return nil, errors.New("matting service returned an empty image")
	}
	return out, nil
}
