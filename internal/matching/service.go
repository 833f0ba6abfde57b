package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// FindCategory returns the category of the longest pattern contained in
	// description, or "" when none matches.
	FindCategory(ctx context.Context, description string) (lineitem.Category, error)
	CreateMapping(ctx context.Context, rawPattern string, category lineitem.Category) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns a category for the description. Returns "" if no mapping matches.
func (s *Service) Suggest(ctx context.Context, description string) (lineitem.Category, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", nil
	}

	return s.repo.FindCategory(ctx, description)
}

// Learn remembers that descriptions containing rawPattern belong to category.
func (s *Service) Learn(ctx context.Context, rawPattern string, category lineitem.Category) error {
	rawPattern = strings.TrimSpace(rawPattern)
	if rawPattern == "" {
		return fmt.Errorf("pattern is required")
	}

	c, err := lineitem.ParseCategory(string(category))
	if err != nil {
		return err
	}

	return s.repo.CreateMapping(ctx, rawPattern, c)
}

// LearnItems records a mapping for every item whose description has no
// suggestion yet or a different one.
func (s *Service) LearnItems(ctx context.Context, items []lineitem.Item) (int, error) {
	learned := 0

	for _, it := range items {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			continue
		}

		current, err := s.repo.FindCategory(ctx, desc)
		if err != nil {
			return learned, fmt.Errorf("finding category: %w", err)
		}

		if current == it.Category {
			continue
		}

		if err := s.repo.CreateMapping(ctx, desc, it.Category); err != nil {
			return learned, err
		}

		learned++
	}

	return learned, nil
}
