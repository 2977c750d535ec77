package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/validation"

	"go.uber.org/zap"
)

const (
	proxyUserAgent   = "dify-manga/1.0"
	maxProxiedBytes  = 32 << 20
	defaultImageType = "image/png"
)

// ProxiedImage is an image fetched on behalf of a browser.
type ProxiedImage struct {
	ContentType string
	Body        []byte
}

// ImageProxy fetches remote images that browsers cannot load directly.
type ImageProxy interface {
	Fetch(ctx context.Context, rawURL string) (*ProxiedImage, error)
}

type imageProxy struct {
	client        *http.Client
	allowedPrefix string
	timeout       time.Duration
	maxBytes      int64
	validator     *validation.Validator
}

// NewImageProxy only fetches URLs starting with allowedPrefix.
func NewImageProxy(client *http.Client, allowedPrefix string, timeout time.Duration) ImageProxy {
	if client == nil {
		client = &http.Client{}
	}
	return &imageProxy{client: client, allowedPrefix: allowedPrefix, timeout: timeout, maxBytes: maxProxiedBytes, validator: validation.NewValidator()}
}

func (p *imageProxy) Fetch(ctx context.Context, rawURL string) (*ProxiedImage, error) {
	if errs := p.validator.ValidateProxyURL(rawURL); len(errs) > 0 {
		return nil, errs
	}
	if !strings.HasPrefix(rawURL, p.allowedPrefix) {
		logger.Get().Warn("Rejected image proxy URL", zap.String("url", rawURL))
		return nil, domain.NewForbiddenError("許可されていない画像URLです")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewInvalidInputError("画像URLが不正です")
	}
	req.Header.Set("User-Agent", proxyUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewTimeoutError("画像取得がタイムアウトしました")
		}
		return nil, domain.NewRemoteServiceError("画像の取得中にエラーが発生しました", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Get().Warn("Upstream image fetch failed", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return nil, domain.NewRemoteServiceError(fmt.Sprintf("画像の取得に失敗しました: %d", resp.StatusCode), nil).
			WithContext("upstream_status", resp.StatusCode)
	}

	if resp.ContentLength > p.maxBytes {
		return nil, p.tooLarge(rawURL, resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewTimeoutError("画像取得がタイムアウトしました")
		}
		return nil, domain.NewRemoteServiceError("画像の取得中にエラーが発生しました", err)
	}
	if int64(len(body)) > p.maxBytes {
		return nil, p.tooLarge(rawURL, int64(len(body)))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultImageType
	}
	logger.Get().Debug("Proxied image", zap.String("url", rawURL), zap.Int("size", len(body)))
	return &ProxiedImage{ContentType: contentType, Body: body}, nil
}

func (p *imageProxy) tooLarge(rawURL string, size int64) error {
	logger.Get().Warn("Upstream image too large", zap.String("url", rawURL), zap.Int64("size", size))
	return domain.NewRemoteServiceError("画像サイズが上限を超えています", nil).
		WithContext("max_bytes", p.maxBytes)
}
