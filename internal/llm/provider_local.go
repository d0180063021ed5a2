package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// maxResponseBytes caps how much of a backend body is read.
const maxResponseBytes = 8 << 20

// LocalBackend calls a self-hosted image generation server over HTTP.
type LocalBackend struct {
	name    string
	baseURL string
	path    string
	client  *http.Client
}

var _ Generator = (*LocalBackend)(nil)

func (l *LocalBackend) endpoint() string {
	return l.baseURL + l.path
}

// Generate posts {prompt, num_images} and returns the absolute image locators in
// backend order.
func (l *LocalBackend) Generate(ctx context.Context, prompt string, imageCount int) ([]string, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if imageCount <= 0 {
		imageCount = 1
	}

	logger := backendLogger(ctx, l.name, l.endpoint())
	start := time.Now()
	logger.WithFields(logrus.Fields{
		"prompt_preview": logSnippet(prompt),
		"num_images":     imageCount,
	}).Info("local_generate_start")

	body, err := json.Marshal(generationRequest{Prompt: prompt, NumImages: imageCount})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("local_generate_request_failed")
		return nil, &UpstreamError{Kind: UpstreamUnreachable, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		logger.WithError(err).Error("local_generate_read_failed")
		return nil, &UpstreamError{Kind: UpstreamUnreachable, StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.WithFields(logrus.Fields{
			"status":       resp.StatusCode,
			"body_preview": logSnippet(string(payload)),
		}).Error("local_generate_bad_status")
		return nil, &UpstreamError{Kind: UpstreamStatus, StatusCode: resp.StatusCode, Status: statusLine(resp)}
	}

	if len(payload) > maxResponseBytes {
		logger.WithField("limit_bytes", maxResponseBytes).Error("local_generate_response_too_large")
		return nil, payloadError(msgResponseTooLarge, nil)
	}

	refs, err := parseImageList(payload)
	if err != nil {
		logger.WithError(err).WithField("body_preview", logSnippet(string(payload))).Error("local_generate_invalid_payload")
		return nil, err
	}

	urls := make([]string, len(refs))
	for i, ref := range refs {
		urls[i] = resolveURL(l.baseURL, ref)
	}

	logger.WithFields(logrus.Fields{
		"image_count": len(urls),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("local_generate_success")
	return urls, nil
}

// statusLine renders "503 Service Unavailable" even when the server omits a
// reason phrase.
func statusLine(resp *http.Response) string {
	status := strings.TrimSpace(resp.Status)
	if status != "" {
		return status
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, text)
	}
	return fmt.Sprintf("%d", resp.StatusCode)
}
