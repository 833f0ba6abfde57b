package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/tally/internal/invoice/store"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/tally/internal/matching/store"
)

type model struct {
	docService      *invoice.Service
	matchingService *matching.Service
	importService   *importer.Service
	exportService   *export.Service

	currentView View

	listView     view.ListModel
	documentView view.DocumentModel
	importView   view.ImportModel
	exportView   view.ExportModel
}

type View int

const (
	ViewMenu     View = 0
	ViewList     View = 1
	ViewDocument View = 2
	ViewImport   View = 3
	ViewExport   View = 4
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	settings, err := cfg.Settings()
	if err != nil {
		slog.Error("invalid billing config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	docSvc := invoice.NewService(invoiceStore.New(db), settings)
	matchSvc := matching.NewService(matchingStore.New(db))
	impSvc := importer.NewService(matchSvc)
	expSvc := export.NewService(docSvc)

	return model{
		docService:      docSvc,
		matchingService: matchSvc,
		importService:   impSvc,
		exportService:   expSvc,
		currentView:     ViewMenu,
		listView:        view.NewListModel(docSvc),
		exportView:      view.NewExportModel(expSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.docService)

				return m, m.listView.Init()
			case "2":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.exportService)

				return m, m.exportView.Init()
			}
		}
	case view.OpenDocumentMsg:
		m.currentView = ViewDocument
		m.documentView = view.NewDocumentModel(m.docService, m.matchingService, msg.ID)

		return m, m.documentView.Init()
	case view.OpenImportMsg:
		m.currentView = ViewImport
		m.importView = view.NewImportModel(m.docService, m.importService, msg.DocumentID)

		return m, m.importView.Init()
	case view.BackMsg:
		switch m.currentView {
		case ViewImport:
			// Reload so imported items show up.
			m.currentView = ViewDocument
			return m, m.documentView.Init()
		case ViewDocument:
			m.currentView = ViewList
			return m, m.listView.Init()
		}

		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewDocument:
		var newModel tea.Model
		newModel, cmd = m.documentView.Update(msg)
		m.documentView = newModel.(view.DocumentModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Tally TUI\n\n" +
				"1. Invoices & Quotes\n" +
				"2. Export Documents\n\n" +
				"q. Quit",
		)
	case ViewList:
		return m.listView.View()
	case ViewDocument:
		return m.documentView.View()
	case ViewImport:
		return m.importView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
