package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/money"
)

// Item represents a single exported document with its local summary file.
type Item struct {
	Snapshot *invoice.Snapshot
	FilePath string
}

// Service renders saved documents as plain text summaries.
type Service struct {
	documents *invoice.Service
}

// NewService creates a new export Service.
func NewService(documents *invoice.Service) *Service {
	return &Service{documents: documents}
}

// Export writes a summary file for every document matching the filter to the
// output directory.
func (s *Service) Export(ctx context.Context, filter invoice.ListFilter, outputDir string) ([]Item, error) {
	snaps, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	items := make([]Item, 0, len(snaps))

	for _, snap := range snaps {
		path := filepath.Join(outputDir, filename(snap))
		if err := os.WriteFile(path, []byte(Summary(snap)), 0o644); err != nil {
			return nil, fmt.Errorf("writing summary for document %s: %w", snap.Document.ID, err)
		}

		items = append(items, Item{Snapshot: snap, FilePath: path})
	}

	return items, nil
}

// filename builds "YYYYMMDD_<kind>_<number>.txt", falling back to the id when
// the document has no number.
func filename(snap *invoice.Snapshot) string {
	doc := snap.Document

	name := doc.Number
	if name == "" {
		name = doc.ID.String()
	}

	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, name)

	return fmt.Sprintf("%s_%s_%s.txt", doc.IssueDate.Format("20060102"), doc.Kind, safe)
}

// GenerateEmailBody creates a one line per document overview of the exported items.
func (s *Service) GenerateEmailBody(items []Item) string {
	var sb strings.Builder

	for _, item := range items {
		doc := item.Snapshot.Document

		sb.WriteString(fmt.Sprintf("* %s | %s %s | %s | total %s | due %s | %s\n",
			doc.IssueDate.Format("2006-01-02"),
			doc.Kind, doc.Number,
			doc.ClientName,
			money.Format(item.Snapshot.ProjectTotal),
			money.Format(item.Snapshot.ProjectBalanceDue),
			filepath.Base(item.FilePath),
		))
	}

	return sb.String()
}

const width = 44

// Summary renders a snapshot as fixed two-decimal plain text.
func Summary(snap *invoice.Snapshot) string {
	var sb strings.Builder

	doc := snap.Document
	t := snap.Totals

	fmt.Fprintf(&sb, "%s %s\n", strings.ToUpper(string(doc.Kind)), doc.Number)

	if doc.Title != "" {
		fmt.Fprintf(&sb, "%s\n", doc.Title)
	}

	if doc.ClientName != "" {
		fmt.Fprintf(&sb, "Client: %s\n", doc.ClientName)
	}

	fmt.Fprintf(&sb, "Issued: %s", doc.IssueDate.Format("2006-01-02"))

	if doc.DueDate != nil {
		fmt.Fprintf(&sb, "  Due: %s", doc.DueDate.Format("2006-01-02"))
	}

	fmt.Fprintf(&sb, "\nStatus: %s\n\n", doc.Status)

	sb.WriteString("Items\n")

	for _, it := range doc.Items {
		fmt.Fprintf(&sb, "  %s [%s]\n", it.Description, it.Category)
		fmt.Fprintf(&sb, "    %s %s x %s = %s\n", it.Quantity.String(), it.Unit, money.Format(it.Rate), money.Format(it.Total))
	}

	sb.WriteString("\n")
	line(&sb, "Subtotal", t.Subtotal)

	for _, b := range lineitem.Buckets {
		line(&sb, titleCase(string(b))+" tax", bucketTax(t, b))
	}

	line(&sb, "Total tax", t.Tax.TotalTax)

	for i, rule := range doc.Discounts {
		label := rule.Description
		if label == "" {
			label = fmt.Sprintf("Discount (%s %s)", rule.Type, rule.AppliesTo)
		}

		line(&sb, label, t.DiscountAmounts[i].Neg())
	}

	line(&sb, "Total", t.Total)

	if doc.DepositPercentage.IsPositive() {
		line(&sb, fmt.Sprintf("Deposit (%s%%)", doc.DepositPercentage), t.DepositAmount)
	}

	line(&sb, "Paid", t.Paid)
	line(&sb, "Balance due", t.BalanceDue)

	if len(doc.ChangeOrders) > 0 {
		sb.WriteString("\nChange orders\n")

		for _, co := range doc.ChangeOrders {
			line(&sb, fmt.Sprintf("  %s %s [%s]", co.Number, co.Description, co.Status), co.Total)
		}

		line(&sb, "Approved changes", snap.ChangeOrderTotal)
		line(&sb, "Project total", snap.ProjectTotal)
		line(&sb, "Project balance due", snap.ProjectBalanceDue)
	}

	if len(doc.Billing.Phases) > 0 {
		sb.WriteString("\nBilling\n")

		for _, p := range doc.Billing.Phases {
			label := fmt.Sprintf("  %s %s%% due %s [%s]",
				p.Name, p.Percentage, p.DueDate.Format("2006-01-02"), p.Status)
			line(&sb, label, p.Amount)
		}
	}

	return sb.String()
}

func line(sb *strings.Builder, label string, amount decimal.Decimal) {
	fmt.Fprintf(sb, "%-*s %12s\n", width, label, money.Format(amount))
}

func bucketTax(t invoice.Totals, b lineitem.Bucket) decimal.Decimal {
	switch b {
	case lineitem.BucketMaterial:
		return t.Tax.MaterialTax
	case lineitem.BucketLabor:
		return t.Tax.LaborTax
	case lineitem.BucketEquipment:
		return t.Tax.EquipmentTax
	default:
		return t.Tax.OtherTax
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
