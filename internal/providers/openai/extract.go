package openai

import (
	"regexp"
	"strconv"
	"strings"

	"descriptly/internal/domain"
)

var (
	descriptionRe = regexp.MustCompile(`(?ism)^DESCRIPTION:\s*(.*?)(?:\n\s*(?:META DESCRIPTION|TITLE TAG|KEYWORDS|SEO SCORE):|\z)`)
	metaRe        = regexp.MustCompile(`(?im)^META DESCRIPTION:\s*(.+)$`)
	titleTagRe    = regexp.MustCompile(`(?im)^TITLE TAG:\s*(.+)$`)
	keywordsRe    = regexp.MustCompile(`(?im)^KEYWORDS:\s*(.+)$`)
	seoScoreRe    = regexp.MustCompile(`(?im)^SEO SCORE:\s*(\d{1,3})`)
)

// Extract parses labeled sections out of the raw completion text. The model
// is asked for the format but nothing upstream enforces it, so every field
// except Content is best effort: when no section matches, the whole text
// becomes the content and the rest stays empty.
func Extract(raw string) *domain.GeneratedDescription {
	text := strings.TrimSpace(raw)

	content := text
	if m := descriptionRe.FindStringSubmatch(text); m != nil {
		if section := strings.TrimSpace(m[1]); section != "" {
			content = section
		}
	}

	desc := &domain.GeneratedDescription{
		Content:   content,
		WordCount: len(strings.Fields(content)),
	}

	if m := metaRe.FindStringSubmatch(text); m != nil {
		desc.MetaDescription = strings.TrimSpace(m[1])
	}
	if m := titleTagRe.FindStringSubmatch(text); m != nil {
		desc.TitleTag = strings.TrimSpace(m[1])
	}
	if m := keywordsRe.FindStringSubmatch(text); m != nil {
		desc.Keywords = splitKeywords(m[1])
	}
	if m := seoScoreRe.FindStringSubmatch(text); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil && score >= 0 && score <= 100 {
			desc.SEOScore = &score
		}
	}
	return desc
}

func splitKeywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
