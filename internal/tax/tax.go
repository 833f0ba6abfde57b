// Package tax aggregates line item totals into the four category tax buckets.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/money"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

var maxRate = decimal.NewFromInt(100)

// Rates holds the percent rate applied to each bucket.
type Rates struct {
	Material  decimal.Decimal `json:"material"`
	Labor     decimal.Decimal `json:"labor"`
	Equipment decimal.Decimal `json:"equipment"`
	Other     decimal.Decimal `json:"other"`
}

// RatesFromMap builds Rates from a bucket keyed map. Every bucket must be present.
func RatesFromMap(m map[lineitem.Bucket]decimal.Decimal) (Rates, error) {
	for _, b := range lineitem.Buckets {
		if _, ok := m[b]; !ok {
			return Rates{}, validation.New(validation.ErrMissingBase, "tax_rates", "no rate configured for %s", b)
		}
	}

	r := Rates{
		Material:  m[lineitem.BucketMaterial],
		Labor:     m[lineitem.BucketLabor],
		Equipment: m[lineitem.BucketEquipment],
		Other:     m[lineitem.BucketOther],
	}

	return r, r.Validate()
}

// Rate returns the configured rate for b.
func (r Rates) Rate(b lineitem.Bucket) decimal.Decimal {
	switch b {
	case lineitem.BucketMaterial:
		return r.Material
	case lineitem.BucketLabor:
		return r.Labor
	case lineitem.BucketEquipment:
		return r.Equipment
	default:
		return r.Other
	}
}

// ByBucket returns the rates keyed by bucket, the shape lineitem.Defaults expects.
func (r Rates) ByBucket() map[lineitem.Bucket]decimal.Decimal {
	m := make(map[lineitem.Bucket]decimal.Decimal, len(lineitem.Buckets))
	for _, b := range lineitem.Buckets {
		m[b] = r.Rate(b)
	}

	return m
}

// Validate rejects any rate outside [0,100]. Rates are never clamped.
func (r Rates) Validate() error {
	for _, b := range lineitem.Buckets {
		rate := r.Rate(b)
		if rate.IsNegative() || rate.GreaterThan(maxRate) {
			return validation.New(validation.ErrInvalidRate, "tax_rates."+string(b), "must be within [0,100], got %s", rate)
		}
	}

	return nil
}

// Breakdown is the tax owed per bucket. TotalTax is always the sum of the four.
type Breakdown struct {
	MaterialTax  decimal.Decimal `json:"material_tax"`
	LaborTax     decimal.Decimal `json:"labor_tax"`
	EquipmentTax decimal.Decimal `json:"equipment_tax"`
	OtherTax     decimal.Decimal `json:"other_tax"`
	TotalTax     decimal.Decimal `json:"total_tax"`
}

// Result is the output of Compute.
type Result struct {
	// Subtotal is the rounded sum of every item total.
	Subtotal          decimal.Decimal
	CategorySubtotals map[lineitem.Category]decimal.Decimal
	BucketSubtotals   map[lineitem.Bucket]decimal.Decimal
	Breakdown         Breakdown
}

// Compute sums item totals per bucket and applies the bucket rate. Each bucket
// tax is rounded to two decimals before being added to TotalTax.
func Compute(items []lineitem.Item, rates Rates) (Result, error) {
	if err := rates.Validate(); err != nil {
		return Result{}, err
	}

	var (
		raw        = decimal.Zero
		byCategory = make(map[lineitem.Category]decimal.Decimal)
		byBucket   = make(map[lineitem.Bucket]decimal.Decimal, len(lineitem.Buckets))
	)

	for _, b := range lineitem.Buckets {
		byBucket[b] = decimal.Zero
	}

	for _, it := range items {
		raw = raw.Add(it.Total)
		byCategory[it.Category] = byCategory[it.Category].Add(it.Total)
		b := it.Category.Bucket()
		byBucket[b] = byBucket[b].Add(it.Total)
	}

	bucketTax := func(b lineitem.Bucket) decimal.Decimal {
		return money.Round(money.PercentOf(byBucket[b], rates.Rate(b)))
	}

	bd := Breakdown{
		MaterialTax:  bucketTax(lineitem.BucketMaterial),
		LaborTax:     bucketTax(lineitem.BucketLabor),
		EquipmentTax: bucketTax(lineitem.BucketEquipment),
		OtherTax:     bucketTax(lineitem.BucketOther),
	}
	bd.TotalTax = money.Sum(bd.MaterialTax, bd.LaborTax, bd.EquipmentTax, bd.OtherTax)

	for c, v := range byCategory {
		byCategory[c] = money.Round(v)
	}

	for b, v := range byBucket {
		byBucket[b] = money.Round(v)
	}

	return Result{
		Subtotal:          money.Round(raw),
		CategorySubtotals: byCategory,
		BucketSubtotals:   byBucket,
		Breakdown:         bd,
	}, nil
}
