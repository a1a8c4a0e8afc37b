package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"careerVault/internal/llm"
)

const (
	modelInputChars     = 4000
	defaultModelTimeout = 30 * time.Second
)

const extractionPrompt = `You extract structured data from job postings.
Return ONLY a JSON object with exactly these keys: "title", "company", "location", "job_type", "description".
Use null for anything the text does not state. "description" is a 2-4 sentence summary of the role.
"job_type" is one of Full-time, Part-time, Contract, Internship, Temporary when stated.

Example 1
Text: Acme Robotics is hiring a Senior Backend Engineer in Austin, TX. This is a full-time role. You will design APIs in Go and own our order pipeline. Requirements: 5+ years of experience with distributed systems.
JSON: {"title": "Senior Backend Engineer", "company": "Acme Robotics", "location": "Austin, TX", "job_type": "Full-time", "description": "Acme Robotics seeks a senior backend engineer to design Go APIs and own the order pipeline. Candidates need 5+ years of distributed systems experience."}

Example 2
Text: Summer Internship - Data Analyst. Remote. Join the analytics team at Northwind to build dashboards and clean datasets. Students pursuing a degree in statistics are encouraged to apply.
JSON: {"title": "Data Analyst Intern", "company": "Northwind", "location": "Remote", "job_type": "Internship", "description": "Northwind's analytics team offers a remote summer internship building dashboards and cleaning datasets, aimed at statistics students."}

Text: %s
JSON:`

var fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// GenerativeStrategy 让生成式模型直接输出五个字段的 JSON。
type GenerativeStrategy struct {
	model   llm.Generator
	timeout time.Duration
	logger  *slog.Logger
}

// NewGenerativeStrategy 构造 GenerativeStrategy；timeout<=0 时使用 30s。
func NewGenerativeStrategy(model llm.Generator, timeout time.Duration, logger *slog.Logger) *GenerativeStrategy {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerativeStrategy{model: model, timeout: timeout, logger: logger}
}

func (s *GenerativeStrategy) Name() string { return "generative" }

func (s *GenerativeStrategy) Structure(ctx context.Context, text string, _ Metadata) (Posting, Outcome) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(extractionPrompt, truncateRunes(text, modelInputChars))
	raw, err := s.model.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("model call failed", slog.Any("error", err))
		return Posting{}, OutcomeFallback
	}

	posting, err := parseModelResponse(raw)
	if err != nil {
		s.logger.Warn("model response is not json", slog.Any("error", err))
		return Posting{}, OutcomeFallback
	}
	return posting, OutcomeExtracted
}

// parseModelResponse 优先解析 ```json 代码块，否则把整个响应当作 JSON。
// 非字符串的值（null、数字等）按空处理。
func parseModelResponse(raw string) (Posting, error) {
	body := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Posting{}, fmt.Errorf("decode model json: %w", err)
	}

	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	return Posting{
		Title:       str("title"),
		Company:     str("company"),
		Location:    str("location"),
		JobType:     str("job_type"),
		Description: str("description"),
	}, nil
}
