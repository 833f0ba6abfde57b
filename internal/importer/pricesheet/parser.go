package pricesheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

// sniffLines is how many leading lines are inspected to pick the delimiter.
const sniffLines = 20

// Parser reads supplier and estimating-tool price sheets and produces line
// item drafts. The header layout is detected against known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]lineitem.Params, error) {
	src, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = enc.SniffDelimiter(leadingLines(data, sniffLines))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching price sheet format found: expected description, quantity and rate or cost columns")
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

func leadingLines(data []byte, n int) string {
	var sb strings.Builder

	sc := bufio.NewScanner(bytes.NewReader(data))
	for i := 0; i < n && sc.Scan(); i++ {
		sb.WriteString(sc.Text())
		sb.WriteByte('\n')
	}

	return sb.String()
}

// columns holds the index of each known column, -1 when absent.
type columns struct {
	desc, qty, unit, rate, cost, markup, category, notes int
}

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, its column indices and the header row index.
func detectProfile(rows [][]string) (*Profile, columns, int) {
	for rowIdx, row := range rows {
		header := make(map[string]int, len(row))

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if _, seen := header[name]; name != "" && !seen {
				header[name] = i
			}
		}

		for i := range profiles {
			if cols, ok := resolve(&profiles[i], header); ok {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, columns{}, 0
}

// resolve maps profile columns onto a header row. A header matches when it
// has a description, a quantity and a rate or cost column.
func resolve(p *Profile, header map[string]int) (columns, bool) {
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := header[n]; ok {
				return i
			}
		}

		return -1
	}

	cols := columns{
		desc:     find(p.Description),
		qty:      find(p.Quantity),
		unit:     find(p.Unit),
		rate:     find(p.Rate),
		cost:     find(p.Cost),
		markup:   find(p.Markup),
		category: find(p.Category),
		notes:    find(p.Notes),
	}

	ok := cols.desc >= 0 && cols.qty >= 0 && (cols.rate >= 0 || cols.cost >= 0)

	return cols, ok
}

// parseRows converts data rows into drafts. Rows without a quantity are
// treated as section headings or footers and skipped. Category is left empty
// when the sheet does not name one.
// headerRowNum is the 0-based index of the header in the original file (for error messages).
func parseRows(p *Profile, cols columns, rows [][]string, headerRowNum int) ([]lineitem.Params, error) {
	var drafts []lineitem.Params

	for i, row := range rows {
		rowNum := headerRowNum + i + 1 // 1-based

		qtyStr := cellValue(row, cols.qty)
		if qtyStr == "" {
			continue
		}

		desc := cellValue(row, cols.desc)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		qty, err := parseAmount(qtyStr, p.Style)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid quantity %q", rowNum, qtyStr)
		}

		draft := lineitem.Params{
			Description: desc,
			Quantity:    qty,
			Unit:        cellValue(row, cols.unit),
			Rate:        decimal.Zero,
			Notes:       cellValue(row, cols.notes),
		}

		if err := fillPricing(&draft, p, cols, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if s := cellValue(row, cols.category); s != "" {
			c, err := lineitem.ParseCategory(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowNum, err)
			}

			draft.Category = c
		}

		drafts = append(drafts, draft)
	}

	return drafts, nil
}

// fillPricing reads the rate, cost and markup cells. A cost takes precedence
// over a rate when both are given.
func fillPricing(draft *lineitem.Params, p *Profile, cols columns, row []string) error {
	rateStr := cellValue(row, cols.rate)
	costStr := cellValue(row, cols.cost)

	if rateStr == "" && costStr == "" {
		return fmt.Errorf("missing rate or cost")
	}

	if rateStr != "" {
		rate, err := parseAmount(rateStr, p.Style)
		if err != nil {
			return fmt.Errorf("invalid rate %q", rateStr)
		}

		draft.Rate = rate
	}

	if costStr != "" {
		cost, err := parseAmount(costStr, p.Style)
		if err != nil {
			return fmt.Errorf("invalid cost %q", costStr)
		}

		draft.Cost = decimal.NewNullDecimal(cost)
	}

	if s := cellValue(row, cols.markup); s != "" {
		markup, err := parseAmount(s, p.Style)
		if err != nil {
			return fmt.Errorf("invalid markup %q", s)
		}

		draft.Markup = decimal.NewNullDecimal(markup)
	}

	return nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
