package llm

import (
	"context"
	"net/http"
	"time"
)

// Generator turns a prompt into an ordered list of absolute image locators.
type Generator interface {
	// Generate asks the backend for imageCount images. A blank prompt fails
	// with ErrEmptyPrompt before any request is issued.
	Generate(ctx context.Context, prompt string, imageCount int) ([]string, error)
}

// Endpoint describes one local generation backend route.
type Endpoint struct {
	// Name 用于日志
	Name    string
	BaseURL string
	Path    string
	Timeout time.Duration
	// Client 可选，测试时注入
	Client *http.Client
}

// generationRequest is the body sent to the backend.
type generationRequest struct {
	Prompt    string `json:"prompt"`
	NumImages int    `json:"num_images"`
}
