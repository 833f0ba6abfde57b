package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrJamesThe3rd/tally/internal/importer/pricesheet"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

// Suggester proposes a category for a line item description. An empty
// category means no suggestion.
type Suggester interface {
	Suggest(ctx context.Context, description string) (lineitem.Category, error)
}

type Service struct {
	importers map[Format]Importer
	suggester Suggester
}

func NewService(suggester Suggester) *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatPriceSheet: pricesheet.NewParser(),
		},
		suggester: suggester,
	}
}

// Import parses r and fills missing categories from the suggester, falling
// back to other.
func (s *Service) Import(ctx context.Context, format Format, r io.Reader) ([]Draft, error) {
	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	params, err := importer.Parse(r)
	if err != nil {
		return nil, err
	}

	drafts := make([]Draft, 0, len(params))

	for _, p := range params {
		d := Draft{Params: p}

		if p.Category == "" {
			d.Params.Category, d.Suggested = s.suggest(ctx, p.Description)
		}

		drafts = append(drafts, d)
	}

	return drafts, nil
}

func (s *Service) suggest(ctx context.Context, description string) (lineitem.Category, bool) {
	if s.suggester == nil {
		return lineitem.CategoryOther, false
	}

	c, err := s.suggester.Suggest(ctx, description)
	if err != nil {
		slog.Warn("category suggestion failed", "description", description, "error", err)
		return lineitem.CategoryOther, false
	}

	if c == "" {
		return lineitem.CategoryOther, false
	}

	return c, true
}
