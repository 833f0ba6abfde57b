// Package discount evaluates independent discount rules. Every rule is
// computed against the original, undiscounted base: rules never compound.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/money"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

// Type is how a rule's value is interpreted.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// Scope is the base a percentage rule is computed against.
type Scope string

const (
	ScopeSubtotal Scope = "subtotal"
	ScopeTotal    Scope = "total"
	ScopeCategory Scope = "category"
)

var maxPercent = decimal.NewFromInt(100)

// Rule is a single discount line.
type Rule struct {
	Type        Type              `json:"type"`
	Value       decimal.Decimal   `json:"value"`
	Description string            `json:"description"`
	AppliesTo   Scope             `json:"applies_to"`
	Category    lineitem.Category `json:"category,omitempty"`
}

// Validate checks the rule in isolation.
func (r Rule) Validate() error {
	switch r.Type {
	case TypePercentage, TypeFixed:
	default:
		return validation.New(validation.ErrInvalidValue, "type", "unknown discount type %q", r.Type)
	}

	switch r.AppliesTo {
	case ScopeSubtotal, ScopeTotal:
	case ScopeCategory:
		if r.Category == "" {
			return validation.New(validation.ErrMissingBase, "category", "category scoped discount %q has no category", r.Description)
		}

		if !r.Category.Valid() {
			return validation.New(validation.ErrUnknownCategory, "category", "%q", r.Category)
		}
	default:
		return validation.New(validation.ErrInvalidValue, "applies_to", "unknown discount scope %q", r.AppliesTo)
	}

	if r.Value.IsNegative() {
		return validation.New(validation.ErrInvalidValue, "value", "must not be negative, got %s", r.Value)
	}

	if r.Type == TypePercentage && r.Value.GreaterThan(maxPercent) {
		return validation.New(validation.ErrInvalidRate, "value", "percentage must be within [0,100], got %s", r.Value)
	}

	return nil
}

// Base holds the undiscounted figures rules are evaluated against.
type Base struct {
	Subtotal          decimal.Decimal
	TotalTax          decimal.Decimal
	CategorySubtotals map[lineitem.Category]decimal.Decimal
}

// Amount returns the rule's discount against base, rounded to two decimals.
//
// A fixed rule is a flat amount even when it is category scoped; only
// percentage rules look at the category subtotal.
func (r Rule) Amount(base Base) decimal.Decimal {
	if r.Type == TypeFixed {
		return money.Round(r.Value)
	}

	var b decimal.Decimal

	switch r.AppliesTo {
	case ScopeTotal:
		b = base.Subtotal.Add(base.TotalTax)
	case ScopeCategory:
		b = base.CategorySubtotals[r.Category]
	default:
		b = base.Subtotal
	}

	return money.Round(money.PercentOf(b, r.Value))
}

// Result is the outcome of Evaluate.
type Result struct {
	// Amounts is aligned with the input rules.
	Amounts []decimal.Decimal
	Total   decimal.Decimal
}

// Evaluate validates and evaluates every rule. The total is a plain sum and so
// does not depend on rule order.
func Evaluate(rules []Rule, base Base) (Result, error) {
	res := Result{
		Amounts: make([]decimal.Decimal, len(rules)),
		Total:   decimal.Zero,
	}

	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return Result{}, err
		}

		res.Amounts[i] = r.Amount(base)
		res.Total = res.Total.Add(res.Amounts[i])
	}

	return res, nil
}

// FinalTotal is subtotal + tax − discount. It is not floored at zero.
func FinalTotal(subtotal, totalTax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(totalTax).Sub(discount)
}
