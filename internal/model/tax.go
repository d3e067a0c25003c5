package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxCategory enum constants: the closed set of gift/toy categories
const (
	TaxCategoryLuxuryGifts      = "luxury_gifts"
	TaxCategoryStandardGifts    = "standard_gifts"
	TaxCategoryEcoFriendlyGifts = "eco_friendly_gifts"
	TaxCategoryEducationalToys  = "educational_toys"
	TaxCategoryNoveltyToys      = "novelty_toys"
	TaxCategoryEcoFriendlyToys  = "eco_friendly_toys"
	TaxCategoryPremiumToys      = "premium_toys"
)

// TaxCategories lists every valid category in a stable order
var TaxCategories = []string{
	TaxCategoryLuxuryGifts,
	TaxCategoryStandardGifts,
	TaxCategoryEcoFriendlyGifts,
	TaxCategoryEducationalToys,
	TaxCategoryNoveltyToys,
	TaxCategoryEcoFriendlyToys,
	TaxCategoryPremiumToys,
}

// IsValidTaxCategory reports whether category is one of the known categories
func IsValidTaxCategory(category string) bool {
	for _, c := range TaxCategories {
		if c == category {
			return true
		}
	}
	return false
}

// CalculationType enum constants: whether listed prices contain tax
const (
	CalculationInclusive = "inclusive"
	CalculationExclusive = "exclusive"
)

// TaxType enum constants: which GST components apply to a line
const (
	TaxTypeCGSTSGST = "CGST_SGST"
	TaxTypeIGST     = "IGST"
)

// TaxSlab stores the GST rate table for a tax category.
// Exactly one active slab exists per category.
type TaxSlab struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Category    string          `gorm:"type:varchar(50);not null;index" json:"category"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"tax_rate"`   // e.g. 18 = 18%
	CGSTRate    decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"cgst_rate"`  // Intra-state half
	SGSTRate    decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"sgst_rate"`  // Intra-state half
	IGSTRate    decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"igst_rate"`  // Inter-state full rate
	Description string          `gorm:"type:text" json:"description"`
	Active      bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate assigns the ID when the database has no uuid default (e.g. sqlite in tests)
func (s *TaxSlab) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TaxConfiguration stores the admin-editable calculation mode per category.
// Exactly one active configuration exists per category.
type TaxConfiguration struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Category        string     `gorm:"type:varchar(50);not null;index" json:"category"`
	CalculationType string     `gorm:"type:varchar(20);not null" json:"calculation_type"` // inclusive, exclusive
	UpdatedBy       *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	Notes           string     `gorm:"type:text" json:"notes"`
	Active          bool       `gorm:"not null;default:true;index" json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (c *TaxConfiguration) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// DefaultTaxSlabs returns the fixed default rate table seeded at startup.
// Intra-state splits the full rate evenly into CGST+SGST; IGST carries the full rate.
func DefaultTaxSlabs() []TaxSlab {
	rates := map[string]int64{
		TaxCategoryLuxuryGifts:      18,
		TaxCategoryStandardGifts:    12,
		TaxCategoryEcoFriendlyGifts: 5,
		TaxCategoryEducationalToys:  12,
		TaxCategoryNoveltyToys:      18,
		TaxCategoryEcoFriendlyToys:  5,
		TaxCategoryPremiumToys:      28,
	}

	slabs := make([]TaxSlab, 0, len(TaxCategories))
	for _, category := range TaxCategories {
		rate := decimal.NewFromInt(rates[category])
		slabs = append(slabs, TaxSlab{
			Category:    category,
			TaxRate:     rate,
			CGSTRate:    rate.Div(decimal.NewFromInt(2)),
			SGSTRate:    rate.Div(decimal.NewFromInt(2)),
			IGSTRate:    rate,
			Description: "Default GST slab for " + category,
			Active:      true,
		})
	}
	return slabs
}
