package lineitem

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/validation"
)

// Category is the trade a line item is billed under.
type Category string

const (
	CategoryMaterial    Category = "material"
	CategoryLabor       Category = "labor"
	CategoryEquipment   Category = "equipment"
	CategoryElectrical  Category = "electrical"
	CategoryPlumbing    Category = "plumbing"
	CategoryFraming     Category = "framing"
	CategoryLandscaping Category = "landscaping"
	CategoryPermit      Category = "permit"
	CategoryOther       Category = "other"
)

// Bucket is one of the four tax groupings categories roll up into.
type Bucket string

const (
	BucketMaterial  Bucket = "material"
	BucketLabor     Bucket = "labor"
	BucketEquipment Bucket = "equipment"
	BucketOther     Bucket = "other"
)

// Buckets lists every bucket in reporting order.
var Buckets = []Bucket{BucketMaterial, BucketLabor, BucketEquipment, BucketOther}

// Categories lists every category in display order.
var Categories = []Category{
	CategoryMaterial,
	CategoryLabor,
	CategoryEquipment,
	CategoryElectrical,
	CategoryPlumbing,
	CategoryFraming,
	CategoryLandscaping,
	CategoryPermit,
	CategoryOther,
}

// buckets is the single category to tax bucket lookup table.
var buckets = map[Category]Bucket{
	CategoryMaterial:    BucketMaterial,
	CategoryLabor:       BucketLabor,
	CategoryEquipment:   BucketEquipment,
	CategoryElectrical:  BucketOther,
	CategoryPlumbing:    BucketOther,
	CategoryFraming:     BucketOther,
	CategoryLandscaping: BucketOther,
	CategoryPermit:      BucketOther,
	CategoryOther:       BucketOther,
}

// Bucket returns the tax bucket for the category.
func (c Category) Bucket() Bucket {
	if b, ok := buckets[c]; ok {
		return b
	}

	return BucketOther
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	_, ok := buckets[c]
	return ok
}

// ParseCategory normalizes s and checks it against the closed category set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", validation.New(validation.ErrUnknownCategory, "category", "%q", s)
	}

	return c, nil
}

// Defaults carries the per-category configuration applied when an item's
// category changes. It is always passed explicitly.
type Defaults struct {
	MaterialMarkup decimal.Decimal
	LaborMarkup    decimal.Decimal
	TaxRates       map[Bucket]decimal.Decimal
}

// Markup returns the default markup percent for c. Only material and labor
// carry a nonzero default.
func (d Defaults) Markup(c Category) decimal.Decimal {
	switch c {
	case CategoryMaterial:
		return d.MaterialMarkup
	case CategoryLabor:
		return d.LaborMarkup
	default:
		return decimal.Zero
	}
}

// TaxRate returns the configured bucket tax rate for c.
func (d Defaults) TaxRate(c Category) decimal.Decimal {
	if rate, ok := d.TaxRates[c.Bucket()]; ok {
		return rate
	}

	return decimal.Zero
}
