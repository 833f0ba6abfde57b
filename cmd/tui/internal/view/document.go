package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

type docState int

const (
	docStateBrowse docState = iota
	docStateItemForm
	docStatePaymentForm
	docStateChangeOrderForm
)

// OpenImportMsg asks the root model to import a price sheet into a document.
type OpenImportMsg struct {
	DocumentID uuid.UUID
}

// entryFields backs every form on the screen. Amounts stay strings until submit.
type entryFields struct {
	description string
	category    lineitem.Category
	quantity    string
	cost        string
	rate        string
	amount      string
	method      string
}

type DocumentModel struct {
	docService   *invoice.Service
	matchService *matching.Service

	id     uuid.UUID
	snap   *invoice.Snapshot
	state  docState
	items  table.Model
	form   *huh.Form
	fields *entryFields

	loading bool
	err     error
	status  string
}

func NewDocumentModel(docSvc *invoice.Service, matchSvc *matching.Service, id uuid.UUID) DocumentModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Description", Width: 28},
			{Title: "Category", Width: 12},
			{Title: "Qty", Width: 8},
			{Title: "Rate", Width: 10},
			{Title: "Total", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return DocumentModel{
		docService:   docSvc,
		matchService: matchSvc,
		id:           id,
		items:        t,
		loading:      true,
	}
}

func (m DocumentModel) Title() string { return "Document" }

func (m DocumentModel) ShortHelp() string {
	if m.state != docStateBrowse {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | a: add item | x: remove item | p: payment | c: change order | y: approve change order | i: import | l: learn categories"
}

func (m DocumentModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DocumentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case docLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			if m.snap == nil {
				m.err = msg.err
			}
			return m, nil
		}
		m.snap = msg.snap
		if msg.status != "" {
			m.status = msg.status
		}
		m.refreshItems()
		return m, nil
	}

	if m.state != docStateBrowse {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if ok && m.snap != nil {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "a":
			form := m.itemForm()
			return m.openForm(docStateItemForm, form)
		case "p":
			form := m.paymentForm()
			return m.openForm(docStatePaymentForm, form)
		case "c":
			form := m.itemForm()
			return m.openForm(docStateChangeOrderForm, form)
		case "x":
			idx := m.items.Cursor()
			if idx < 0 || idx >= len(m.snap.Document.Items) {
				return m, nil
			}
			return m, m.removeItemCmd(m.snap.Document.Items[idx].ID)
		case "y":
			return m, m.approveCmd()
		case "l":
			return m, m.learnCmd()
		case "i":
			id := m.id
			return m, func() tea.Msg { return OpenImportMsg{DocumentID: id} }
		}
	} else if ok && keyMsg.String() == "esc" {
		return m, Back
	}

	var cmd tea.Cmd
	m.items, cmd = m.items.Update(msg)
	return m, cmd
}

func (m DocumentModel) openForm(state docState, form *huh.Form) (tea.Model, tea.Cmd) {
	m.form = form
	m.state = state
	m.items.Blur()

	return m, m.form.Init()
}

func (m DocumentModel) closeForm() DocumentModel {
	m.form = nil
	m.state = docStateBrowse
	m.items.Focus()

	return m
}

func (m DocumentModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.closeForm(), nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	state := m.state
	m = m.closeForm()

	switch state {
	case docStateItemForm:
		return m, m.addItemCmd()
	case docStatePaymentForm:
		return m, m.paymentCmd()
	case docStateChangeOrderForm:
		return m, m.changeOrderCmd()
	}

	return m, nil
}

func validDecimal(optional bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" && optional {
			return nil
		}

		if _, err := decimal.NewFromString(s); err != nil {
			return fmt.Errorf("not a number")
		}

		return nil
	}
}

func (m *DocumentModel) itemForm() *huh.Form {
	m.fields = &entryFields{category: lineitem.CategoryMaterial, quantity: "1"}

	options := make([]huh.Option[lineitem.Category], 0, len(lineitem.Categories))
	for _, c := range lineitem.Categories {
		options = append(options, huh.NewOption(filterLabel(string(c)), c))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&m.fields.description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description cannot be empty")
					}
					return nil
				}),

			huh.NewSelect[lineitem.Category]().
				Title("Category").
				Options(options...).
				Value(&m.fields.category),

			huh.NewInput().
				Title("Quantity").
				Value(&m.fields.quantity).
				Validate(validDecimal(false)),

			huh.NewInput().
				Title("Unit cost").
				Description("Leave empty to enter the rate directly").
				Value(&m.fields.cost).
				Validate(validDecimal(true)),

			huh.NewInput().
				Title("Rate").
				Description("Used when no cost is given").
				Value(&m.fields.rate).
				Validate(validDecimal(true)),
		),
	).WithWidth(45).WithShowHelp(false)
}

func (m *DocumentModel) paymentForm() *huh.Form {
	m.fields = &entryFields{method: "transfer"}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount").
				Value(&m.fields.amount).
				Validate(validDecimal(false)),

			huh.NewInput().
				Title("Method").
				Value(&m.fields.method),
		),
	).WithWidth(45).WithShowHelp(false)
}

// itemParams converts the form fields. Inputs were validated by the form.
func (f *entryFields) itemParams() lineitem.Params {
	p := lineitem.Params{
		Description: strings.TrimSpace(f.description),
		Category:    f.category,
	}

	p.Quantity, _ = decimal.NewFromString(strings.TrimSpace(f.quantity))

	if s := strings.TrimSpace(f.cost); s != "" {
		cost, _ := decimal.NewFromString(s)
		p.Cost = decimal.NewNullDecimal(cost)
	} else if s := strings.TrimSpace(f.rate); s != "" {
		p.Rate, _ = decimal.NewFromString(s)
	}

	return p
}

func (m DocumentModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading document...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v\n\n(Esc to back)", m.err))
	}

	doc := m.snap.Document

	header := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("%s %s  %s", strings.ToUpper(string(doc.Kind)), doc.Number, doc.Title),
	)
	sub := lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("%s | issued %s | %s", doc.ClientName, FormatDate(doc.IssueDate), doc.Status),
	)

	itemsView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.items.View())

	left := lipgloss.JoinVertical(lipgloss.Left, header, sub, "", itemsView)

	right := m.viewTotals()
	if m.form != nil {
		right = lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(m.formTitle() + "\n\n" + m.form.View())
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m DocumentModel) formTitle() string {
	switch m.state {
	case docStatePaymentForm:
		return "Record Payment"
	case docStateChangeOrderForm:
		return "New Change Order"
	}

	return "Add Item"
}

func (m DocumentModel) viewTotals() string {
	t := m.snap.Totals

	var sb strings.Builder

	line := func(label string, v decimal.Decimal) {
		fmt.Fprintf(&sb, "%-20s %12s\n", label, FormatMoney(v))
	}

	line("Subtotal", t.Subtotal)
	line("Tax", t.Tax.TotalTax)

	if !t.DiscountAmount.IsZero() {
		line("Discount", t.DiscountAmount.Neg())
	}

	line("Total", t.Total)

	if !t.DepositAmount.IsZero() {
		line("Deposit", t.DepositAmount)
	}

	line("Paid", t.Paid)
	line("Balance due", t.BalanceDue)

	if len(m.snap.Document.ChangeOrders) > 0 {
		sb.WriteString("\nChange orders\n")

		for _, co := range m.snap.Document.ChangeOrders {
			fmt.Fprintf(&sb, "  %-8s %-10s %12s\n", co.Number, co.Status, FormatMoney(co.Total))
		}

		line("Project total", m.snap.ProjectTotal)
		line("Project balance", m.snap.ProjectBalanceDue)
	}

	return lipgloss.NewStyle().
		Padding(0, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(activeStyle("Totals") + "\n\n" + sb.String())
}

func (m *DocumentModel) refreshItems() {
	rows := make([]table.Row, 0, len(m.snap.Document.Items))
	for _, it := range m.snap.Document.Items {
		rows = append(rows, table.Row{
			it.Description,
			string(it.Category),
			it.Quantity.String(),
			FormatMoney(it.Rate),
			FormatMoney(it.Total),
		})
	}
	m.items.SetRows(rows)
}

// Messages

type docLoadedMsg struct {
	snap   *invoice.Snapshot
	status string
	err    error
}

func (m DocumentModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		snap, err := m.docService.Get(ctx, m.id)
		return docLoadedMsg{snap: snap, err: err}
	}
}

// mutateCmd runs fn and reloads the screen from the snapshot it returns.
func (m DocumentModel) mutateCmd(status string, fn func() (*invoice.Snapshot, error)) tea.Cmd {
	return func() tea.Msg {
		snap, err := fn()
		if err != nil {
			return docLoadedMsg{err: err}
		}

		return docLoadedMsg{snap: snap, status: status}
	}
}

func (m DocumentModel) addItemCmd() tea.Cmd {
	params := m.fields.itemParams()

	return m.mutateCmd("Item added.", func() (*invoice.Snapshot, error) {
		ctx, cancel := DbCtx()
		defer cancel()

		return m.docService.AddItem(ctx, m.id, params)
	})
}

func (m DocumentModel) removeItemCmd(itemID uuid.UUID) tea.Cmd {
	return m.mutateCmd("Item removed.", func() (*invoice.Snapshot, error) {
		ctx, cancel := DbCtx()
		defer cancel()

		return m.docService.RemoveItem(ctx, m.id, itemID)
	})
}

func (m DocumentModel) paymentCmd() tea.Cmd {
	amount, _ := decimal.NewFromString(strings.TrimSpace(m.fields.amount))
	params := invoice.PaymentParams{
		Date:   time.Now(),
		Amount: amount,
		Method: m.fields.method,
	}

	return m.mutateCmd("Payment recorded.", func() (*invoice.Snapshot, error) {
		ctx, cancel := DbCtx()
		defer cancel()

		return m.docService.RecordPayment(ctx, m.id, params)
	})
}

func (m DocumentModel) changeOrderCmd() tea.Cmd {
	item := m.fields.itemParams()
	params := invoice.ChangeOrderParams{
		Description: item.Description,
		Date:        time.Now(),
		Items:       []lineitem.Params{item},
	}

	return m.mutateCmd("Change order drafted.", func() (*invoice.Snapshot, error) {
		ctx, cancel := DbCtx()
		defer cancel()

		return m.docService.AddChangeOrder(ctx, m.id, params)
	})
}

// approveCmd approves the oldest change order still in draft.
func (m DocumentModel) approveCmd() tea.Cmd {
	var target *changeorder.ChangeOrder

	for _, co := range m.snap.Document.ChangeOrders {
		if co.Status == changeorder.StatusDraft {
			target = co
			break
		}
	}

	if target == nil {
		return func() tea.Msg { return docLoadedMsg{snap: m.snap, status: "No draft change orders."} }
	}

	coID := target.ID
	status := fmt.Sprintf("%s approved.", target.Number)

	return m.mutateCmd(status, func() (*invoice.Snapshot, error) {
		ctx, cancel := DbCtx()
		defer cancel()

		return m.docService.DecideChangeOrder(ctx, m.id, coID, changeorder.StatusApproved, "tui")
	})
}

func (m DocumentModel) learnCmd() tea.Cmd {
	snap := m.snap

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		n, err := m.matchService.LearnItems(ctx, snap.Document.Items)
		if err != nil {
			return docLoadedMsg{snap: snap, status: errorStyle(fmt.Sprintf("Learning failed: %v", err))}
		}

		return docLoadedMsg{snap: snap, status: fmt.Sprintf("Learned %d category mappings.", n)}
	}
}
