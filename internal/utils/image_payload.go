package utils

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// IsDataURL reports whether value is an inline data: URL.
func IsDataURL(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "data:")
}

// dataURL is the parsed form of "data:<mime>[;param...][;base64],<payload>".
type dataURL struct {
	mimeType string
	base64   bool
	payload  string
}

func parseDataURL(value string) (dataURL, bool) {
	header, payload, found := strings.Cut(strings.TrimPrefix(value, "data:"), ",")
	if !found {
		return dataURL{}, false
	}
	params := strings.Split(header, ";")
	parsed := dataURL{mimeType: strings.TrimSpace(params[0]), payload: payload}
	for _, param := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(param), "base64") {
			parsed.base64 = true
		}
	}
	return parsed, true
}

// SplitDataURL splits "data:<mime>;base64,<payload>" into mime type and payload.
// Values without the data: prefix are returned as payload with an empty mime.
func SplitDataURL(value string) (string, string) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "data:") {
		return "", trimmed
	}
	parsed, ok := parseDataURL(trimmed)
	if !ok {
		return "", ""
	}
	return parsed.mimeType, parsed.payload
}

// DecodeMediaPayload decodes an inline data URL, or a bare base64 string, and
// returns the raw bytes together with a guessed file extension. Data URLs
// without the ;base64 marker carry percent-encoded text.
func DecodeMediaPayload(payload string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, "", fmt.Errorf("empty media payload")
	}

	parsed := dataURL{base64: true, payload: trimmed}
	if IsDataURL(trimmed) {
		var ok bool
		if parsed, ok = parseDataURL(trimmed); !ok {
			return nil, "", fmt.Errorf("malformed data url")
		}
	}

	body := strings.TrimSpace(parsed.payload)
	if body == "" {
		return nil, "", fmt.Errorf("empty data payload")
	}

	var data []byte
	if parsed.base64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, "", fmt.Errorf("decode base64: %w", err)
		}
		data = decoded
	} else {
		text, err := url.PathUnescape(body)
		if err != nil {
			return nil, "", fmt.Errorf("decode data url: %w", err)
		}
		data = []byte(text)
	}

	ext := ExtensionFromMime(parsed.mimeType)
	if ext == "" {
		ext = ExtensionFromMime(http.DetectContentType(data))
	}
	if ext == "" {
		ext = "png"
	}

	return data, ext, nil
}
