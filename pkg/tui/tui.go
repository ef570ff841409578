package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwagner5/vpcplan/pkg/logging"
	"github.com/bwagner5/vpcplan/pkg/plans"
	"github.com/bwagner5/vpcplan/pkg/pretty"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
)

type model struct {
	ctx  context.Context
	plan plans.NetworkPlan
	wide bool
	// window
	height int
	width  int
	// models
	table     table.Model
	resources []plans.PrettyResource
	help      help.Model
}

// Launch shows a network plan as a navigable table until the user quits
func Launch(ctx context.Context, networkPlan plans.NetworkPlan, verbose bool) error {
	// can't log to the terminal, so log to a file
	if verbose {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			return err
		}
		defer f.Close()
		ctx = logging.ToContext(ctx, logging.DefaultFileLogger(verbose, f))
	} else {
		ctx = logging.ToContext(ctx, logging.NoOpLogger())
	}
	p := tea.NewProgram(newModel(ctx, networkPlan), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running plan viewer: %w", err)
	}
	return nil
}

func newModel(ctx context.Context, networkPlan plans.NetworkPlan) model {
	resources := networkPlan.Prettify()
	logging.FromContext(ctx).Debug("Viewing network plan", "resources", len(resources))
	return model{
		ctx:       ctx,
		plan:      networkPlan,
		resources: resources,
		table:     resourcesToTable(resources, false),
		help:      help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		// If we set a width on the help menu it can gracefully truncate
		// its view as needed.
		m.help.Width = msg.Width
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-6, 3))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Wide):
			cursor := m.table.Cursor()
			m.wide = !m.wide
			m.table = resourcesToTable(m.resources, m.wide)
			m.table.SetCursor(cursor)
			if m.height > 0 {
				m.table.SetHeight(max(m.height-6, 3))
			}
			return m, nil

		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.height == 0 {
		return ""
	}
	header := fmt.Sprintf("%s/%s  %s", m.plan.Metadata.Namespace, m.plan.Metadata.Name, m.plan.Spec.Topology)
	tableView := m.table.View()
	detailView := m.detail()
	helpView := m.help.View(keys)

	// height between rendered models to position help at the bottom
	height := m.height - strings.Count(header, "\n") - strings.Count(tableView, "\n") - strings.Count(detailView, "\n") - strings.Count(helpView, "\n") - 3
	return header + "\n" + tableView + "\n" + detailView + strings.Repeat("\n", max(height, 1)) + helpView
}

// detail describes the selected resource
func (m model) detail() string {
	if len(m.resources) == 0 {
		return ""
	}
	r := m.resources[m.table.Cursor()]
	parts := []string{r.ID}
	if r.Addresses != "" {
		parts = append(parts, r.Addresses+" addresses")
	}
	if r.Members != "" {
		parts = append(parts, "members: "+r.Members)
	}
	if r.AWSID != "" {
		parts = append(parts, "aws: "+r.AWSID)
	}
	return strings.Join(parts, "  ")
}

func resourcesToTable(resources []plans.PrettyResource, wide bool) table.Model {
	t := table.New()
	headers, rows := pretty.HeadersAndRows(resources, wide)
	widths := columnWidths(headers, rows)
	t.SetColumns(lo.Map(headers, func(header string, i int) table.Column {
		return table.Column{Title: header, Width: widths[i]}
	}))
	t.SetRows(lo.Map(rows, func(row []string, _ int) table.Row { return row }))
	t.Focus()
	return t
}

// columnWidths fits each column to its longest cell, capped at 40
func columnWidths(headers []string, rows [][]string) []int {
	return lo.Map(headers, func(header string, i int) int {
		width := lo.Max(append(lo.Map(rows, func(row []string, _ int) int { return len(row[i]) }), len(header)))
		return min(width, 40)
	})
}
