package models

// CategoriesConfig is loaded from categories.yaml and hot-reloaded when
// the file changes.
type CategoriesConfig struct {
	Categories []Category  `yaml:"categories" json:"categories"`
	Fees       FeeSchedule `yaml:"fees" json:"fees"`
}

// Category is a bounty category a poster can file under.
type Category struct {
	Slug           string `yaml:"slug" json:"slug"`
	Name           string `yaml:"name" json:"name"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
	MinAmountCents int64  `yaml:"min_amount_cents,omitempty" json:"min_amount_cents,omitempty"`
}

// FeeSchedule holds the platform fee applied to paid bounties.
type FeeSchedule struct {
	PlatformFeePercent float64 `yaml:"platform_fee_percent" json:"platform_fee_percent"`
	MinFeeCents        int64   `yaml:"min_fee_cents" json:"min_fee_cents"`
}

// FindCategory returns the category with the given slug, or nil.
func (c *CategoriesConfig) FindCategory(slug string) *Category {
	for i := range c.Categories {
		if c.Categories[i].Slug == slug {
			return &c.Categories[i]
		}
	}
	return nil
}
