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

	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateCreate
)

// OpenDocumentMsg asks the root model to show a document.
type OpenDocumentMsg struct {
	ID uuid.UUID
}

var (
	kindFilters   = []invoice.Kind{"", invoice.KindInvoice, invoice.KindQuote}
	statusFilters = []invoice.Status{"", invoice.StatusDraft, invoice.StatusSent, invoice.StatusAccepted, invoice.StatusPaid, invoice.StatusVoid}
)

type ListModel struct {
	docService *invoice.Service

	state listState
	table table.Model
	docs  []*invoice.Snapshot
	form  *huh.Form

	kindFilterIdx   int
	statusFilterIdx int

	filter  invoice.ListFilter
	loading bool
	err     error
	status  string

	// fields is shared by every copy of the model; huh writes into it.
	fields *newDocFields
}

type newDocFields struct {
	kind   invoice.Kind
	number string
	title  string
	client string
}

func NewListModel(docSvc *invoice.Service) ListModel {
	columns := []table.Column{
		{Title: "Issued", Width: 12},
		{Title: "Kind", Width: 8},
		{Title: "Number", Width: 12},
		{Title: "Client", Width: 24},
		{Title: "Status", Width: 10},
		{Title: "Project Total", Width: 14},
		{Title: "Balance Due", Width: 14},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ListModel{
		docService: docSvc,
		table:      t,
		loading:    true,
	}
}

func (m ListModel) Title() string { return "Documents" }
func (m ListModel) ShortHelp() string {
	if m.state == listStateCreate {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | Enter: open | n: new | k: kind filter | s: status filter | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadDocsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.docs = msg.docs
		m.err = nil
		m.refreshTable()
		return m, nil

	case createdMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error creating: %v", msg.err)
			return m, nil
		}
		id := msg.id
		return m, func() tea.Msg { return OpenDocumentMsg{ID: id} }

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateCreate:
		return m.updateCreate(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadDocsCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.docs) {
				return m, nil
			}
			id := m.docs[idx].Document.ID
			return m, func() tea.Msg { return OpenDocumentMsg{ID: id} }
		case "n":
			return m.enterCreateMode()
		case "k":
			m.kindFilterIdx = (m.kindFilterIdx + 1) % len(kindFilters)
			m.applyFilter()
			return m, m.loadDocsCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			m.applyFilter()
			return m, m.loadDocsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) enterCreateMode() (tea.Model, tea.Cmd) {
	m.fields = &newDocFields{kind: invoice.KindInvoice}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[invoice.Kind]().
				Title("Kind").
				Options(
					huh.NewOption("Invoice", invoice.KindInvoice),
					huh.NewOption("Quote", invoice.KindQuote),
				).
				Value(&m.fields.kind),

			huh.NewInput().
				Title("Number").
				Placeholder("INV-001").
				Value(&m.fields.number).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("number cannot be empty")
					}
					return nil
				}),

			huh.NewInput().
				Title("Title").
				Value(&m.fields.title),

			huh.NewInput().
				Title("Client").
				Value(&m.fields.client),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateCreate
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = listStateBrowse
			m.form = nil
			m.table.Focus()
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = listStateBrowse
	m.form = nil
	m.table.Focus()

	return m, m.createCmd()
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading documents...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf(
		"Filter: [k] Kind: %s | [s] Status: %s",
		activeStyle(filterLabel(string(kindFilters[m.kindFilterIdx]))),
		activeStyle(filterLabel(string(statusFilters[m.statusFilterIdx]))),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == listStateCreate && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("New Document\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func filterLabel(s string) string {
	if s == "" {
		return "All"
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *ListModel) applyFilter() {
	m.filter = invoice.ListFilter{}

	if k := kindFilters[m.kindFilterIdx]; k != "" {
		m.filter.Kind = &k
	}

	if s := statusFilters[m.statusFilterIdx]; s != "" {
		m.filter.Status = &s
	}
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.docs))
	for _, snap := range m.docs {
		doc := snap.Document
		rows = append(rows, table.Row{
			FormatDate(doc.IssueDate),
			string(doc.Kind),
			doc.Number,
			doc.ClientName,
			string(doc.Status),
			FormatMoney(snap.ProjectTotal),
			FormatMoney(snap.ProjectBalanceDue),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadListMsg struct {
	docs []*invoice.Snapshot
	err  error
}

func (m ListModel) loadDocsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		docs, err := m.docService.List(ctx, filter)
		return loadListMsg{docs: docs, err: err}
	}
}

type createdMsg struct {
	id  uuid.UUID
	err error
}

func (m ListModel) createCmd() tea.Cmd {
	params := invoice.CreateParams{
		Kind:       m.fields.kind,
		Number:     strings.TrimSpace(m.fields.number),
		Title:      m.fields.title,
		ClientName: m.fields.client,
		IssueDate:  time.Now(),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		snap, err := m.docService.Create(ctx, params)
		if err != nil {
			return createdMsg{err: err}
		}

		return createdMsg{id: snap.Document.ID}
	}
}
