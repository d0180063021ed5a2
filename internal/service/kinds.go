package service

import (
	"fmt"
	"genarchive/internal/config"
	"genarchive/internal/llm"
	"sort"
	"strings"
)

// DefaultGenerationType 请求未指定 generationType 时使用
const DefaultGenerationType = "sticker-generation"

// GenerationKind 描述一种生成类型：后端路由、存储目录、命名规则
type GenerationKind struct {
	Name         string
	BackendPath  string
	Folder       string
	FilePrefix   string
	IDPrefix     string
	PromptLabel  string
	DefaultModel string
	// Noun 用于提示信息，如 "sticker"
	Noun string
}

var kinds = map[string]GenerationKind{
	"sticker-generation": {
		Name:         "sticker-generation",
		BackendPath:  "/generate-sticker",
		Folder:       "generated-stickers",
		FilePrefix:   "sticker",
		IDPrefix:     "local-sticker",
		PromptLabel:  "Sticker",
		DefaultModel: "local-sticker-model",
		Noun:         "sticker",
	},
	"logo-generation": {
		Name:         "logo-generation",
		BackendPath:  "/generate",
		Folder:       "generated-logos",
		FilePrefix:   "logo",
		IDPrefix:     "local-logo",
		PromptLabel:  "Logo",
		DefaultModel: "local-logo-model",
		Noun:         "logo",
	},
	"product-generation": {
		Name:         "product-generation",
		BackendPath:  "/generate-product",
		Folder:       "generated-products",
		FilePrefix:   "product",
		IDPrefix:     "local-product",
		PromptLabel:  "Product",
		DefaultModel: "flux-kontext-dev",
		Noun:         "product",
	},
}

// LookupKind returns the registered kind by name.
func LookupKind(name string) (GenerationKind, bool) {
	kind, ok := kinds[strings.ToLower(strings.TrimSpace(name))]
	return kind, ok
}

// KindNames lists registered kind names in sorted order.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (k GenerationKind) baseURL(cfg config.Config) string {
	switch k.Name {
	case "logo-generation":
		return cfg.LogoGenerationURL
	case "product-generation":
		return cfg.ProductGenerationURL
	default:
		return cfg.StickerGenerationURL
	}
}

// NewGeneratorsFromConfig 为每种生成类型构造本地后端客户端
func NewGeneratorsFromConfig(cfg config.Config) (map[string]llm.Generator, error) {
	generators := make(map[string]llm.Generator, len(kinds))
	for _, name := range KindNames() {
		kind := kinds[name]
		gen, err := llm.NewGenerator(llm.Endpoint{
			Name:    kind.Name,
			BaseURL: kind.baseURL(cfg),
			Path:    kind.BackendPath,
			Timeout: cfg.BackendTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", kind.Name, err)
		}
		generators[kind.Name] = gen
	}
	return generators, nil
}

func (k GenerationKind) storedPrompt(prompt string) string {
	return fmt.Sprintf("%s: %s", k.PromptLabel, prompt)
}

func (k GenerationKind) successMessage(count int) string {
	noun := k.Noun
	if count > 1 {
		noun += "s"
	}
	return fmt.Sprintf("Successfully generated %d %s", count, noun)
}
