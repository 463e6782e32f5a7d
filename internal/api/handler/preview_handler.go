package handler

import (
	"Parley/internal/api/dto"
	"Parley/internal/pkg/preview"
	"Parley/internal/pkg/response"
	"Parley/internal/service"
	"context"
	log "log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

// Previewer 链接元数据抓取
type Previewer interface {
	Fetch(ctx context.Context, rawURL string) (*preview.Preview, error)
}

type PreviewHandler struct {
	previewer Previewer
}

func NewPreviewHandler(previewer Previewer) *PreviewHandler {
	return &PreviewHandler{previewer: previewer}
}

// Preview 获取链接预览
func (s *PreviewHandler) Preview(c *gin.Context) {
	var req dto.PreviewReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	p, err := s.previewer.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		log.WarnContext(c.Request.Context(), "link preview failed", "url", req.URL, "err", err)
		response.Error(c, service.ErrPreviewFailed)
		return
	}
	out := &dto.PreviewDTO{}
	_ = copier.Copy(out, p)
	response.Success(c, out)
}
