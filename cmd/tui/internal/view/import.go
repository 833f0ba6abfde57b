package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFormatSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateReview
	importStateResult
)

type ImportModel struct {
	docService    *invoice.Service
	importService *importer.Service
	documentID    uuid.UUID

	state          importState
	filePicker     filepicker.Model
	selectedFormat importer.Format
	formatOptions  []importer.Format
	formatCursor   int

	drafts    []importer.Draft
	draftList list.Model
	selected  map[int]bool

	status string
	err    error
}

func NewImportModel(docSvc *invoice.Service, impSvc *importer.Service, documentID uuid.UUID) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		docService:    docSvc,
		importService: impSvc,
		documentID:    documentID,
		filePicker:    fp,
		formatOptions: []importer.Format{importer.FormatPriceSheet},
		selected:      make(map[int]bool),
	}
}

func (m ImportModel) Title() string { return "Import Price Sheet" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateReview {
		return "Space: toggle | a: all | n: none | Enter: add to document | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateFormatSelect {
			return m.updateFormatSelect(msg)
		}

		if m.state == importStateReview {
			return m.updateReview(msg)
		}

	case parsedMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		if len(msg.drafts) == 0 {
			m.state = importStateResult
			m.status = "No priced rows found in file."

			return m, nil
		}

		m.drafts = msg.drafts
		m.selected = make(map[int]bool, len(msg.drafts))
		m.state = importStateReview

		items := make([]list.Item, len(m.drafts))
		for i, d := range m.drafts {
			items[i] = draftItem{draft: d, index: i}
			m.selected[i] = true
		}

		delegate := draftDelegate{selected: &m.selected}
		m.draftList = list.New(items, delegate, 80, 20)
		m.draftList.Title = "Imported Items"
		m.draftList.SetShowStatusBar(false)
		m.draftList.SetFilteringEnabled(false)
		m.draftList.SetShowHelp(false)

		return m, nil

	case addedMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Added %d items. Document total is now %s.", msg.count, FormatMoney(msg.total))

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Reading %s...", path)

		return m, m.parseCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateFormatSelect
		return m, nil
	case importStateResult:
		if m.err == nil {
			return m, Back
		}

		m.state = importStateFormatSelect
		m.err = nil
		m.status = ""

		return m, nil
	case importStateReview:
		m.state = importStateFormatSelect
		m.drafts = nil
		m.selected = make(map[int]bool)

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateFormatSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.formatCursor > 0 {
			m.formatCursor--
		}
	case tea.KeyDown:
		if m.formatCursor < len(m.formatOptions)-1 {
			m.formatCursor++
		}
	case tea.KeyEnter:
		m.selectedFormat = m.formatOptions[m.formatCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.draftList.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil
	case "a":
		for i := range m.drafts {
			m.selected[i] = true
		}

		return m, nil
	case "n":
		for i := range m.drafts {
			m.selected[i] = false
		}

		return m, nil
	case "enter":
		return m, m.addCmd()
	}

	var cmd tea.Cmd
	m.draftList, cmd = m.draftList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFormatSelect:
		return m.viewFormatSelect()
	case importStateFilePick:
		return m.viewFilePick()
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateReview:
		return lipgloss.NewStyle().Padding(1).Render(m.draftList.View())
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewFormatSelect() string {
	s := "Select Format:\n\n"

	for i, format := range m.formatOptions {
		cursor := " "
		if i == m.formatCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(format))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewFilePick() string {
	return lipgloss.NewStyle().Padding(1).Render(
		fmt.Sprintf("Select file to import (%s):\n\n%s", m.selectedFormat, m.filePicker.View()),
	)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle(m.status) + "\n\n(Esc to go back)")
	}

	return style.Render(
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) +
			"\n\n(Esc to go back)",
	)
}

// Messages

type parsedMsg struct {
	drafts []importer.Draft
	err    error
}

type addedMsg struct {
	count int
	total decimal.Decimal
	err   error
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	format := m.selectedFormat

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parsedMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		drafts, err := m.importService.Import(ctx, format, f)

		return parsedMsg{drafts: drafts, err: err}
	}
}

func (m ImportModel) addCmd() tea.Cmd {
	drafts := m.drafts
	selected := m.selected

	return func() tea.Msg {
		params := make([]lineitem.Params, 0, len(drafts))

		for i, d := range drafts {
			if selected[i] {
				params = append(params, d.Params)
			}
		}

		if len(params) == 0 {
			return addedMsg{err: fmt.Errorf("no items selected")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		snap, err := m.docService.AddItems(ctx, m.documentID, params)
		if err != nil {
			return addedMsg{err: err}
		}

		return addedMsg{count: len(params), total: snap.Totals.Total}
	}
}

// Draft list item

type draftItem struct {
	draft importer.Draft
	index int
}

func (i draftItem) Title() string       { return "" }
func (i draftItem) Description() string { return "" }
func (i draftItem) FilterValue() string { return i.draft.Params.Description }

// Draft list delegate

type draftDelegate struct {
	selected *map[int]bool
}

func (d draftDelegate) Height() int                             { return 2 }
func (d draftDelegate) Spacing() int                            { return 0 }
func (d draftDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d draftDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(draftItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if (*d.selected)[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	p := item.draft.Params

	price := "rate " + FormatMoney(p.Rate)
	if p.Cost.Valid {
		price = "cost " + FormatMoney(p.Cost.Decimal)
	}

	category := string(p.Category)
	if item.draft.Suggested {
		category += " (suggested)"
	}

	line1 := fmt.Sprintf("%s%s %s", cursor, checkbox, p.Description)
	line2 := fmt.Sprintf("      %s %s  %s  [%s]", p.Quantity.String(), p.Unit, price, category)

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
