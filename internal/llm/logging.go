package llm

import (
	"context"
	"strings"

	"genarchive/internal/utils"

	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 120

func backendLogger(ctx context.Context, name, endpoint string) *logrus.Entry {
	fields := logrus.Fields{
		"backend": name,
	}
	if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
		fields["endpoint"] = trimmed
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logSnippet(value string) string {
	return utils.Snippet(strings.TrimSpace(value), logSnippetLimit)
}
