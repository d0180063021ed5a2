package service

import (
	"context"
	"fmt"
	"genarchive/internal/utils"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxArtifactBytes 单个生成产物的下载上限
const maxArtifactBytes = 64 << 20

// FetchedArtifact 下载得到的原始字节与推断的扩展名
type FetchedArtifact struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Fetcher retrieves the bytes behind a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (*FetchedArtifact, error)
}

// FetchStatusError 源地址返回了非 2xx 状态
type FetchStatusError struct {
	StatusCode int
	Status     string
}

func (e *FetchStatusError) Error() string {
	return e.Status
}

type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher 使用给定 client 下载产物，client 为空时使用 http.DefaultClient
func NewHTTPFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{client: client}
}

func (f *httpFetcher) Fetch(ctx context.Context, sourceURL string) (*FetchedArtifact, error) {
	// 部分后端直接内联 base64 图片
	if utils.IsDataURL(sourceURL) {
		data, ext, err := utils.DecodeMediaPayload(sourceURL)
		if err != nil {
			return nil, err
		}
		mimeType, _ := utils.SplitDataURL(sourceURL)
		return &FetchedArtifact{Data: data, ContentType: mimeType, Extension: ext}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := strings.TrimSpace(resp.Status)
		if status == "" {
			status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, &FetchStatusError{StatusCode: resp.StatusCode, Status: status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxArtifactBytes {
		return nil, fmt.Errorf("artifact exceeds %d bytes", maxArtifactBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	ext := utils.ExtensionFromMime(contentType)
	if ext == "" && len(data) > 0 {
		contentType = http.DetectContentType(data)
		ext = utils.ExtensionFromMime(contentType)
	}
	if ext == "" {
		ext = "png"
	}

	logrus.WithFields(logrus.Fields{
		"source_url": utils.Snippet(sourceURL, 128),
		"mime":       contentType,
		"size_bytes": len(data),
	}).Debug("artifact downloaded")

	return &FetchedArtifact{Data: data, ContentType: contentType, Extension: ext}, nil
}
