package importer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

type stubSuggester map[string]lineitem.Category

func (s stubSuggester) Suggest(_ context.Context, description string) (lineitem.Category, error) {
	if description == "broken" {
		return "", errors.New("db down")
	}

	return s[description], nil
}

const sheet = `Description,Qty,Rate,Category
Copper pipe,10,7.5,
Permit fee,1,150,permit
Mystery,1,1,
broken,1,1,
`

func TestService_Import(t *testing.T) {
	svc := importer.NewService(stubSuggester{"Copper pipe": lineitem.CategoryPlumbing})

	got, err := svc.Import(context.Background(), importer.FormatPriceSheet, strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, lineitem.CategoryPlumbing, got[0].Params.Category)
	assert.True(t, got[0].Suggested)

	assert.Equal(t, lineitem.CategoryPermit, got[1].Params.Category)
	assert.False(t, got[1].Suggested)

	assert.Equal(t, lineitem.CategoryOther, got[2].Params.Category)
	assert.False(t, got[2].Suggested)

	assert.Equal(t, lineitem.CategoryOther, got[3].Params.Category)
}

func TestService_ImportWithoutSuggester(t *testing.T) {
	svc := importer.NewService(nil)

	got, err := svc.Import(context.Background(), importer.FormatPriceSheet, strings.NewReader(sheet))
	require.NoError(t, err)

	for _, d := range got {
		assert.True(t, d.Params.Category.Valid())
	}
}

func TestService_ImportUnknownFormat(t *testing.T) {
	_, err := importer.NewService(nil).Import(context.Background(), "xlsx", strings.NewReader(sheet))
	assert.ErrorContains(t, err, "unknown format")
}
