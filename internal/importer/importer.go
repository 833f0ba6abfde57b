package importer

import (
	"io"

	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

type Format string

const (
	FormatPriceSheet Format = "pricesheet"
)

type Importer interface {
	Parse(r io.Reader) ([]lineitem.Params, error)
}

// Draft is an imported line item awaiting confirmation.
type Draft struct {
	Params lineitem.Params
	// Suggested is set when the category was filled in from learned mappings.
	Suggested bool
}
