package pricesheet

// numberStyle determines how decimal amounts are written in a sheet.
type numberStyle int

const (
	// stylePlain uses a dot for decimals and optional comma grouping ("1,234.56").
	stylePlain numberStyle = iota
	// styleEuropean uses a comma for decimals and dot grouping ("1.234,56").
	styleEuropean
)

// Profile describes the header layout of a price sheet export. Columns are
// listed by every header spelling accepted for them; matching ignores case.
type Profile struct {
	Name        string
	Style       numberStyle
	Description []string
	Quantity    []string
	Unit        []string
	Rate        []string
	Cost        []string
	Markup      []string
	Category    []string
	Notes       []string
}

// profiles is tried in order during detection.
var profiles = []Profile{
	{
		Name:        "english",
		Style:       stylePlain,
		Description: []string{"description", "item", "desc"},
		Quantity:    []string{"qty", "quantity"},
		Unit:        []string{"unit", "uom"},
		Rate:        []string{"rate", "unit price", "price"},
		Cost:        []string{"cost", "unit cost"},
		Markup:      []string{"markup", "markup %"},
		Category:    []string{"category", "trade"},
		Notes:       []string{"notes", "note"},
	},
	{
		Name:        "european",
		Style:       styleEuropean,
		Description: []string{"descrição", "descricao", "designação"},
		Quantity:    []string{"quantidade", "qtd", "qtd."},
		Unit:        []string{"unidade", "un."},
		Rate:        []string{"preço", "preco", "preço unitário"},
		Cost:        []string{"custo", "custo unitário"},
		Markup:      []string{"margem", "margem %"},
		Category:    []string{"categoria"},
		Notes:       []string{"notas", "observações"},
	},
}
