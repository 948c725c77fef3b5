package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// URLService is the redirect core as seen by the HTTP layer.
type URLService interface {
	Create(ctx context.Context, destination string) (*shortener.ShortURL, error)
	Resolve(ctx context.Context, code shortener.Code, requester shortener.Requester) (string, error)
	Stats(ctx context.Context, code shortener.Code) (*shortener.Stats, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service URLService
	baseURL string
	logger  *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(service URLService, baseURL string, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service: service,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	destination, err := NormalizeDestination(req.Body.OriginalURL)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	shortURL, err := h.service.Create(ctx, destination)
	if err != nil {
		return nil, h.toHTTPError("create short url", "", err)
	}

	fullShortURL := fmt.Sprintf("%s/%s", h.baseURL, shortURL.Code)

	resp := &CreateShortURLResponse{}
	resp.Location = fullShortURL
	resp.Body.ShortCode = string(shortURL.Code)
	resp.Body.ShortURL = fullShortURL
	resp.Body.OriginalURL = shortURL.OriginalURL

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)

	destination, err := h.service.Resolve(ctx, shortener.Code(req.Code), meta.requester())
	if err != nil {
		return nil, h.toHTTPError("resolve short url", req.Code, err)
	}

	return &RedirectResponse{
		Status:   http.StatusTemporaryRedirect,
		Location: withScheme(destination),
	}, nil
}

func (h *URLHandler) GetStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	stats, err := h.service.Stats(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.toHTTPError("get stats", req.Code, err)
	}

	resp := &StatsResponse{}
	resp.Body.ShortCode = req.Code
	resp.Body.VisitCount = stats.VisitCount
	resp.Body.LastVisitedAt = stats.LastVisitedAt

	return resp, nil
}

// toHTTPError maps core errors onto responses. Only unexpected failures are logged.
func (h *URLHandler) toHTTPError(op, code string, err error) error {
	switch {
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("short url not found")
	case errors.Is(err, shortener.ErrAllocationExhausted):
		h.logger.Error("code space exhausted", zap.String("op", op), zap.Error(err))

		return huma.Error503ServiceUnavailable("no short codes left")
	case errors.Is(err, shortener.ErrConflict):
		h.logger.Error("allocated code collides with a stored url", zap.String("op", op), zap.Error(err))

		return huma.Error503ServiceUnavailable("service temporarily unavailable")
	case errors.Is(err, shortener.ErrAllocatorUnavailable),
		errors.Is(err, shortener.ErrServiceUnavailable):
		h.logger.Warn("dependency unavailable",
			zap.String("op", op),
			zap.String("code", code),
			zap.Error(err),
		)

		return huma.Error503ServiceUnavailable("service temporarily unavailable")
	default:
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.String("code", code),
			zap.Error(err),
		)

		return huma.Error500InternalServerError("internal server error")
	}
}
