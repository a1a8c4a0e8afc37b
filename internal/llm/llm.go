package llm

import (
	"context"
	"fmt"

	"careerVault/internal/config"
)

// Generator 对单个 prompt 返回模型的文本输出。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New 根据 LLM_PROVIDER 构造生成器。
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "googleai":
		return NewLangChainGenerator(ctx, cfg.APIKey, cfg.Model)
	case "genai":
		return NewGenAIGenerator(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
