package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TaskListView ViewState = iota
	TaskDetailView
)

// refreshEvery is the polling interval for live task updates.
const refreshEvery = 2 * time.Second

// Model represents the monitor TUI state.
type Model struct {
	ctx          context.Context
	view         ViewState
	orchestrator *tasks.Orchestrator
	width        int
	height       int
	taskList     list.Model
	ready        bool
	selected     *models.TaskSnapshot
	err          error
	help         help.Model
	keys         keyMap
}

type tasksFetchedMsg struct {
	result tasks.ListResult
	err    error
}

type taskFetchedMsg struct {
	snapshot models.TaskSnapshot
	err      error
}

type tickMsg time.Time

// NewModel creates a monitor model over the given orchestrator.
func NewModel(ctx context.Context, orchestrator *tasks.Orchestrator) *Model {
	return &Model{
		ctx:          ctx,
		view:         TaskListView,
		orchestrator: orchestrator,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init fetches the first page of tasks and starts the refresh ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchTasks(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ready {
			m.taskList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TaskListView:
			return m.handleListKeys(msg)
		case TaskDetailView:
			return m.handleDetailKeys(msg)
		}

	case tickMsg:
		cmds := []tea.Cmd{m.tick()}
		switch m.view {
		case TaskListView:
			cmds = append(cmds, m.fetchTasks())
		case TaskDetailView:
			if m.selected != nil {
				cmds = append(cmds, m.fetchTask(m.selected.TaskID))
			}
		}
		return m, tea.Batch(cmds...)

	case tasksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.result.Tasks))
		for i, snap := range msg.result.Tasks {
			items[i] = taskItem{snapshot: snap}
		}
		if !m.ready {
			m.taskList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.taskList.Title = "Collection Tasks"
			m.taskList.SetShowHelp(false)
			m.taskList.SetSize(m.width-4, m.height-8)
			m.ready = true
		} else {
			// Keep the cursor in place across refreshes.
			index := m.taskList.Index()
			m.taskList.SetItems(items)
			if index < len(items) {
				m.taskList.Select(index)
			}
		}
		return m, nil

	case taskFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = TaskListView
			return m, nil
		}
		m.err = nil
		m.selected = &msg.snapshot
		m.view = TaskDetailView
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case TaskListView:
		return m.renderTaskList()
	case TaskDetailView:
		return m.renderTaskDetail()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.fetchTasks()
	case "enter":
		if selected := m.taskList.SelectedItem(); selected != nil {
			if item, ok := selected.(taskItem); ok {
				return m, m.fetchTask(item.snapshot.TaskID)
			}
		}
	}

	return m.updateList(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TaskListView
		m.selected = nil
		return m, m.fetchTasks()
	case "r":
		if m.selected != nil {
			return m, m.fetchTask(m.selected.TaskID)
		}
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.ready || m.view != TaskListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) fetchTasks() tea.Cmd {
	return func() tea.Msg {
		result, err := m.orchestrator.List(m.ctx, "", 1, 50)
		return tasksFetchedMsg{result: result, err: err}
	}
}

func (m *Model) fetchTask(taskID string) tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.orchestrator.Status(m.ctx, taskID)
		return taskFetchedMsg{snapshot: snapshot, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) renderTaskList() string {
	if !m.ready {
		return styles.help.Render("Loading tasks...")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.taskList.View(), helpView)
}

func (m *Model) renderTaskDetail() string {
	snap := m.selected
	if snap == nil {
		return ""
	}

	title := styles.title.Render(fmt.Sprintf("Task %s", snap.TaskID))

	var b strings.Builder
	fmt.Fprintf(&b, "Status:    %s\n", renderStatus(snap.Status))
	fmt.Fprintf(&b, "Progress:  %s %d%%\n", progressBar(snap.Progress), snap.Progress)
	fmt.Fprintf(&b, "Collected: %d", snap.CollectedCount)
	if snap.TotalCount > 0 {
		fmt.Fprintf(&b, " / %d", snap.TotalCount)
	}
	b.WriteString("\n")
	if snap.StartTime != "" {
		fmt.Fprintf(&b, "Started:   %s\n", snap.StartTime)
	}
	if snap.EndTime != "" {
		fmt.Fprintf(&b, "Ended:     %s\n", snap.EndTime)
	}
	if snap.ErrorMessage != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(snap.ErrorMessage))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

// renderStatus colors a task status for display.
func renderStatus(status models.Status) string {
	switch status {
	case models.StatusCompleted:
		return styles.ok.Render(string(status))
	case models.StatusFailed:
		return styles.err.Render(string(status))
	case models.StatusRunning:
		return styles.warn.Render(string(status))
	default:
		return styles.help.Render(string(status))
	}
}

// progressBar renders a fixed-width bar for a 0 to 100 percentage.
func progressBar(percent int) string {
	const width = 20
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
