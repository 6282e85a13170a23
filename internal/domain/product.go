package domain

import "time"

// Product is the local mirror of a store product. The authoritative copy
// lives in the merchant's Shopify store; rows here are refreshed by the sync
// endpoint and by store webhooks.
type Product struct {
	ID          string
	MerchantID  string
	Title       string
	Vendor      string
	ProductType string
	Tags        []string
	BodyHTML    string
	SyncedAt    time.Time
}

// Attributes converts the mirror row into prompt input.
func (p *Product) Attributes() ProductAttributes {
	return ProductAttributes{
		Title:       p.Title,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        p.Tags,
		Description: p.BodyHTML,
	}
}
