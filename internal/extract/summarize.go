package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	summaryInputChars = 1500
	summaryMinLength  = 30
	summaryMaxLength  = 130
	minSummaryChars   = 40
)

// SummarizeStrategy 调用托管摘要模型（HuggingFace Inference API 协议）生成 description。
// 职位类型与地点无法从摘要中得到，统一为 Unknown。
type SummarizeStrategy struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewSummarizeStrategy 构造 SummarizeStrategy。
func NewSummarizeStrategy(endpoint, token string, timeout time.Duration, logger *slog.Logger) *SummarizeStrategy {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizeStrategy{
		endpoint: strings.TrimSpace(endpoint),
		token:    strings.TrimSpace(token),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (s *SummarizeStrategy) Name() string { return "summarize" }

func (s *SummarizeStrategy) Structure(ctx context.Context, text string, meta Metadata) (Posting, Outcome) {
	posting := Posting{
		Title:    meta.Title,
		Company:  meta.Company,
		Location: Unknown,
		JobType:  Unknown,
	}

	summary, err := s.summarize(ctx, normalizeSpace(truncateRunes(text, summaryInputChars)))
	if err != nil {
		s.logger.Warn("summarizer call failed", slog.Any("error", err))
	}
	if err != nil || len(strings.TrimSpace(summary)) < minSummaryChars {
		posting.Description = truncateRunes(text, rawPrefixChars)
		return posting, OutcomeFallback
	}

	posting.Description = strings.TrimSpace(summary)
	return posting, OutcomeExtracted
}

type summarizeRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters summarizeParameters `json:"parameters"`
}

type summarizeParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type summarizeResponse []struct {
	SummaryText string `json:"summary_text"`
}

func (s *SummarizeStrategy) summarize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(summarizeRequest{
		Inputs: text,
		Parameters: summarizeParameters{
			MaxLength: summaryMaxLength,
			MinLength: summaryMinLength,
			DoSample:  false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request summarizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return "", fmt.Errorf("summarizer status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode summarizer response: %w", err)
	}
	if len(out) == 0 {
		return "", nil
	}
	return out[0].SummaryText, nil
}
