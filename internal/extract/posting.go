// Package extract 把任意职位页面 URL 解析成结构化的投递草稿。
//
// 流程：抓取页面 → 标题/公司元数据 → 关键词打分选出正文 → 交给摘要或生成式策略 → 兜底修复。
// 只要页面抓取成功，Extract 总会返回五个字段都有值的 Posting。
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	TitleNotFound   = "Job Title Not Found"
	CompanyNotFound = "Company Not Found"
	UnknownCompany  = "Unknown Company"
	Unknown         = "Unknown"
	// NotExtracted 是正文过短时返回的 description。
	NotExtracted = "Couldn't extract job description"
)

// Outcome 标记一次解析最终走到了哪条路径，用于指标统计。
type Outcome string

const (
	OutcomeExtracted Outcome = "extracted"
	OutcomeFallback  Outcome = "fallback"
	OutcomeTooShort  Outcome = "too_short"
)

// Posting 是返回给前端的职位草稿。
type Posting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	JobType     string `json:"job_type"`
	Description string `json:"description"`
}

// Result 包含解析结果与其路径。
type Result struct {
	Posting
	Outcome Outcome `json:"-"`
}

// Strategy 把选中的正文转换为结构化字段。实现必须自行吞掉外部调用错误并回退。
type Strategy interface {
	Name() string
	Structure(ctx context.Context, text string, meta Metadata) (Posting, Outcome)
}

// Extractor 串联抓取、正文选择与结构化策略。
type Extractor struct {
	fetcher  Fetcher
	strategy Strategy
	logger   *slog.Logger
}

// NewExtractor 构造 Extractor。logger 为空时使用 slog.Default()。
func NewExtractor(fetcher Fetcher, strategy Strategy, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fetcher: fetcher, strategy: strategy, logger: logger}
}

// Extract 抓取 URL 并解析。只有抓取失败会返回 error（可能是 *StatusError）。
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Result, error) {
	html, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return e.ExtractHTML(ctx, html)
}

// ExtractHTML 对已抓取的 HTML 执行解析流程。
func (e *Extractor) ExtractHTML(ctx context.Context, html string) (Result, error) {
	page, err := parsePage(html)
	if err != nil {
		return Result{}, err
	}

	meta := page.metadata()
	text := page.selectDescription()

	if wordCount(text) < minDescriptionWords {
		e.logger.Info("job description too short",
			slog.Int("words", wordCount(text)),
			slog.String("title", meta.Title),
		)
		return Result{
			Posting: Posting{
				Title:       meta.Title,
				Company:     meta.Company,
				Location:    Unknown,
				JobType:     Unknown,
				Description: NotExtracted,
			},
			Outcome: OutcomeTooShort,
		}, nil
	}

	posting, outcome := e.strategy.Structure(ctx, text, meta)
	posting = repair(posting, meta, text)

	e.logger.Info("job posting extracted",
		slog.String("strategy", e.strategy.Name()),
		slog.String("outcome", string(outcome)),
		slog.Int("words", wordCount(text)),
	)
	return Result{Posting: posting, Outcome: outcome}, nil
}

// repair 保证五个字段都有值。
func repair(p Posting, meta Metadata, text string) Posting {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = meta.Title
	}
	if strings.TrimSpace(p.Company) == "" {
		p.Company = meta.Company
	}
	if strings.TrimSpace(p.JobType) == "" {
		p.JobType = Unknown
	}
	if strings.TrimSpace(p.Location) == "" {
		p.Location = Unknown
	}
	if strings.TrimSpace(p.Description) == "" {
		p.Description = truncateRunes(text, rawPrefixChars)
	}
	return p
}
