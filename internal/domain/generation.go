package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// Tone enumerates supported writing tones.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	TonePlayful      Tone = "playful"
	ToneLuxury       Tone = "luxury"
)

// Valid reports whether the tone is one of the closed set.
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneFriendly, ToneFormal, TonePlayful, ToneLuxury:
		return true
	}
	return false
}

const (
	MinWordCount = 50
	MaxWordCount = 1000
	MaxKeywords  = 20
)

// GenerationOptions are the shared knobs for a generation request. Immutable
// once a request is issued.
type GenerationOptions struct {
	Tone              Tone     `json:"tone" validate:"required,oneof=professional casual friendly formal playful luxury"`
	Language          string   `json:"language" validate:"required,min=2,max=5"`
	Keywords          []string `json:"keywords" validate:"max=20,dive,min=1"`
	WordCount         int      `json:"word_count" validate:"required,gte=50,lte=1000"`
	SEOOptimized      bool     `json:"seo_optimized"`
	IncludeFeatures   bool     `json:"include_features"`
	IncludeBenefits   bool     `json:"include_benefits"`
	CustomInstruction string   `json:"custom_instruction,omitempty"`
	Model             string   `json:"model,omitempty"`
}

// Normalize trims free-text fields and validates the language tag. A language
// that does not parse as a BCP 47 tag is rejected.
func (o *GenerationOptions) Normalize() error {
	if !o.Tone.Valid() {
		return ErrInvalidOptions
	}
	o.Language = strings.TrimSpace(strings.ToLower(o.Language))
	if _, err := language.Parse(o.Language); err != nil {
		return ErrInvalidOptions
	}
	if o.WordCount < MinWordCount || o.WordCount > MaxWordCount {
		return ErrInvalidOptions
	}
	if len(o.Keywords) > MaxKeywords {
		return ErrInvalidOptions
	}
	cleaned := o.Keywords[:0]
	for _, kw := range o.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	o.Keywords = cleaned
	o.CustomInstruction = strings.TrimSpace(o.CustomInstruction)
	return nil
}

// ProductAttributes carries the product fields fed into the prompt.
type ProductAttributes struct {
	Title       string   `json:"title"`
	Vendor      string   `json:"vendor,omitempty"`
	ProductType string   `json:"product_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// GenerationRequest pairs a product with the shared options.
type GenerationRequest struct {
	Product ProductAttributes
	Options GenerationOptions
}

// GeneratedDescription is the parsed result of one completion. Only Content
// is guaranteed; the remaining fields are best-effort extraction and may be
// absent when the model ignores the labeled-section format.
type GeneratedDescription struct {
	Content         string   `json:"content"`
	WordCount       int      `json:"word_count"`
	SEOScore        *int     `json:"seo_score,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	TitleTag        string   `json:"title_tag,omitempty"`
}
