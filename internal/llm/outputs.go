package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const (
	msgMissingImageList   = "Invalid response format from local API - missing images or image_urls array"
	msgInvalidImageFormat = "Invalid image format in response"
	msgInvalidJSON        = "Invalid JSON from local API"
	msgResponseTooLarge   = "Response from local API exceeds 8 MiB"
)

// generationEnvelope holds the two list fields the backend may use. Raw
// messages keep "absent", "null" and "wrong type" distinguishable.
type generationEnvelope struct {
	Images    json.RawMessage `json:"images"`
	ImageURLs json.RawMessage `json:"image_urls"`
}

// imageRefKind tags the accepted shapes of one list entry.
type imageRefKind int

const (
	imageRefString imageRefKind = iota + 1
	imageRefObject
)

// imageRef is one decoded list entry: either a bare string or an object
// carrying a url field.
type imageRef struct {
	kind imageRefKind
	url  string
}

func (r *imageRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty image entry")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		r.kind, r.url = imageRefString, s
		return nil
	case '{':
		var obj struct {
			URL *string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		if obj.URL == nil || strings.TrimSpace(*obj.URL) == "" {
			return errors.New("image object without url")
		}
		r.kind, r.url = imageRefObject, *obj.URL
		return nil
	default:
		return errors.New("unsupported image entry")
	}
}

// isAbsent reports whether a list field should fall through to the next
// one: missing, null, false, "" and 0 all count as not provided.
func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return false
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return false
	}
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case float64:
		return v == 0
	default:
		return false
	}
}

// parseImageList extracts the ordered image locators from a backend body.
// One malformed entry rejects the whole list.
func parseImageList(body []byte) ([]string, error) {
	var envelope generationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, payloadError(msgInvalidJSON, err)
	}

	raw := envelope.Images
	if isAbsent(raw) {
		raw = envelope.ImageURLs
	}
	if isAbsent(raw) {
		return nil, payloadError(msgMissingImageList, nil)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, payloadError(msgMissingImageList, nil)
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		var ref imageRef
		if err := json.Unmarshal(item, &ref); err != nil {
			return nil, payloadError(msgInvalidImageFormat, nil)
		}
		urls = append(urls, ref.url)
	}
	return urls, nil
}

// resolveURL makes a backend-relative path absolute against baseURL. Inline
// data: URLs pass through untouched.
func resolveURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	if ref != "" && !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return baseURL + ref
}
