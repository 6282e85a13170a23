package openai

import (
	"fmt"
	"strings"

	"descriptly/internal/domain"
)

const systemPrompt = "You are an expert e-commerce copywriter. Follow the output format exactly."

// BuildPrompt composes the deterministic instruction template for one
// product. The response format instructs the model to answer with labeled
// sections so Extract can pull structured fields back out.
func BuildPrompt(req domain.GenerationRequest) string {
	p := req.Product
	o := req.Options

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write a product description of about %d words in %q with a %s tone.\n", o.WordCount, o.Language, o.Tone)
	fmt.Fprintf(sb, "Product title: %q.\n", p.Title)
	if p.Vendor != "" {
		fmt.Fprintf(sb, "Vendor: %q.\n", p.Vendor)
	}
	if p.ProductType != "" {
		fmt.Fprintf(sb, "Product type: %q.\n", p.ProductType)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(sb, "Tags: %s.\n", strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(sb, "Existing description to improve on: %q.\n", p.Description)
	}
	if len(o.Keywords) > 0 {
		fmt.Fprintf(sb, "Work these keywords in naturally: %s.\n", strings.Join(o.Keywords, ", "))
	}
	if o.SEOOptimized {
		sb.WriteString("Optimize the copy for search engines.\n")
	}
	if o.IncludeFeatures {
		sb.WriteString("Highlight the product's key features.\n")
	}
	if o.IncludeBenefits {
		sb.WriteString("Emphasize customer benefits.\n")
	}
	if o.CustomInstruction != "" {
		fmt.Fprintf(sb, "Additional instruction: %s.\n", o.CustomInstruction)
	}

	sb.WriteString("\nRespond using exactly these labeled sections:\n")
	sb.WriteString("DESCRIPTION:\n<the description>\n")
	sb.WriteString("META DESCRIPTION: <max 160 characters>\n")
	sb.WriteString("TITLE TAG: <max 60 characters>\n")
	sb.WriteString("KEYWORDS: <comma separated>\n")
	if o.SEOOptimized {
		sb.WriteString("SEO SCORE: <0-100>\n")
	}
	return sb.String()
}
