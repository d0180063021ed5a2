package llm

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// NewGenerator instantiates a Generator for a local backend endpoint.
func NewGenerator(endpoint Endpoint) (Generator, error) {
	base := strings.TrimRight(strings.TrimSpace(endpoint.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("local backend %q: base url is not configured", endpoint.Name)
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("local backend %q: invalid base url %q", endpoint.Name, endpoint.BaseURL)
	}

	path := strings.TrimSpace(endpoint.Path)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	client := endpoint.Client
	if client == nil {
		client = &http.Client{Timeout: endpoint.Timeout}
	}

	name := strings.TrimSpace(endpoint.Name)
	if name == "" {
		name = "local"
	}

	return &LocalBackend{
		name:    name,
		baseURL: base,
		path:    path,
		client:  client,
	}, nil
}
