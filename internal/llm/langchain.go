package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// LangChainGenerator 通过 langchaingo 的 googleai 客户端调用 Gemini。
type LangChainGenerator struct {
	model llms.Model
}

// NewLangChainGenerator 构造基于 langchaingo 的生成器。
func NewLangChainGenerator(ctx context.Context, apiKey, model string) (*LangChainGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("llm api key is required")
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init googleai client: %w", err)
	}
	return &LangChainGenerator{model: client}, nil
}

func (g *LangChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(1024),
	)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return resp, nil
}
