package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	minCandidateWords   = 100
	minDescriptionWords = 50
	candidateMaxChars   = 10000
	fallbackBudgetChars = 6000
	rawPrefixChars      = 1000
)

// keywords 是判定"像职位描述"的关键词，按出现的不同关键词个数计分。
var keywords = []string{
	"responsibilities", "requirements", "qualifications", "job", "position",
	"expectations", "experience", "design", "description", "engineer",
	"develop", "skills", "team", "role", "tasks", "opportunity",
}

var containerTags = []string{"section", "article", "div", "main"}

// Metadata 是从页面固定位置读出的标题与公司名。
type Metadata struct {
	Title   string
	Company string
}

type page struct {
	doc *goquery.Document
}

func parsePage(html string) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &page{doc: doc}, nil
}

func (p *page) metadata() Metadata {
	return Metadata{Title: p.title(), Company: p.company()}
}

func (p *page) title() string {
	for _, sel := range []string{"h1", "title"} {
		if text := normalizeSpace(p.doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return TitleNotFound
}

func (p *page) company() string {
	for _, sel := range []string{`meta[property="og:site_name"]`, `meta[name="author"]`} {
		node := p.doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if content, ok := node.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		return UnknownCompany
	}
	if header := p.doc.Find("header").First(); header.Length() > 0 {
		if text := normalizeSpace(header.Text()); text != "" {
			return text
		}
	}
	return CompanyNotFound
}

type candidate struct {
	hits int
	text string
}

// selectDescription 选出最像职位描述的正文；没有合格容器时退回段落拼接。
func (p *page) selectDescription() string {
	var candidates []candidate
	for _, tag := range containerTags {
		p.doc.Find(tag).Each(func(_ int, container *goquery.Selection) {
			text := joinParagraphs(container)
			if wordCount(text) < minCandidateWords {
				return
			}
			candidates = append(candidates, candidate{
				hits: keywordHits(text),
				text: truncateRunes(text, candidateMaxChars),
			})
		})
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].hits > candidates[j].hits
		})
		return candidates[0].text
	}

	return p.paragraphFallback()
}

func (p *page) paragraphFallback() string {
	var paragraphs []candidate
	p.doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if text := normalizeSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, candidate{hits: keywordHits(text), text: text})
		}
	})
	sort.SliceStable(paragraphs, func(i, j int) bool {
		return paragraphs[i].hits > paragraphs[j].hits
	})

	var b strings.Builder
	used := 0
	for _, para := range paragraphs {
		n := utf8.RuneCountInString(para.text)
		sep := 0
		if used > 0 {
			sep = 1
		}
		if used+sep+n > fallbackBudgetChars {
			if used == 0 {
				b.WriteString(truncateRunes(para.text, fallbackBudgetChars))
			}
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(para.text)
		used += sep + n
	}
	return b.String()
}

func joinParagraphs(container *goquery.Selection) string {
	parts := make([]string, 0, 16)
	container.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if text := normalizeSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func keywordHits(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
