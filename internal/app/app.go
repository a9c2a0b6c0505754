package app

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sif-notify/internal/keys"
	"github.com/nhle/sif-notify/internal/service"
	"github.com/nhle/sif-notify/internal/ui"
	"github.com/nhle/sif-notify/internal/ui/composeform"
	helpview "github.com/nhle/sif-notify/internal/ui/help"
	"github.com/nhle/sif-notify/internal/ui/inbox"

	"github.com/charmbracelet/bubbles/key"
)

// SnapshotMsg carries a settled service snapshot into the UI runtime.
type SnapshotMsg struct {
	Snapshot service.Snapshot
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewHelp
	ViewCompose
)

// Model is the root Bubble Tea model that manages view routing, layout,
// and the subscription to service snapshots.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	svc         *service.Service
	keys        *keys.KeyMap
	inbox       inbox.Model
	helpView    helpview.Model
	composeView composeform.Model
	snapshots   chan service.Snapshot
	badge       int
	userID      string
	ready       bool
}

// New creates the root application model and subscribes to service
// snapshots. The subscription feeds a buffered channel so the engine
// never blocks on a slow UI.
func New(svc *service.Service) Model {
	k := keys.DefaultKeyMap()
	snapshots := make(chan service.Snapshot, 16)
	svc.Subscribe(func(s service.Snapshot) {
		select {
		case snapshots <- s:
		default:
			// Drop if the UI is behind; the next snapshot supersedes it.
		}
	})

	return Model{
		currentView: ViewInbox,
		svc:         svc,
		keys:        k,
		inbox:       inbox.New(svc, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		composeView: composeform.New(80, 24),
		snapshots:   snapshots,
	}
}

// Init loads the inbox and starts listening for snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.inbox.Init(),
		m.waitForSnapshot(),
	)
}

// waitForSnapshot returns a tea.Cmd that blocks on the snapshot channel
// and re-arms itself after each message.
func (m Model) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: s}
	}
}

// Update routes messages to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.inbox.SetSize(msg.Width, m.layout.ContentHeight())
		m.helpView.SetSize(msg.Width, m.layout.ContentHeight())
		m.composeView.SetSize(msg.Width, m.layout.ContentHeight())
		m.ready = true
		return m, nil

	case SnapshotMsg:
		m.badge = msg.Snapshot.Badge
		m.userID = msg.Snapshot.UserID
		return m, tea.Batch(m.inbox.LoadNotifications(), m.waitForSnapshot())

	case composeform.ComposedMsg:
		m.svc.Add(msg.Notification)
		if msg.RemindIn > 0 {
			// A rejected reminder date is not fatal; the composed
			// notification itself is already added.
			_ = m.svc.ScheduleReminder(msg.Notification, time.Now().Add(msg.RemindIn), "")
		}
		m.currentView = ViewInbox
		return m, m.inbox.LoadNotifications()

	case composeform.CancelMsg:
		m.currentView = ViewInbox
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m.updateActiveView(msg)
}

// handleKeys processes global keys, then delegates to the active view.
func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The compose form owns all key input while active.
	if m.currentView == ViewCompose {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = ViewInbox
		} else {
			m.currentView = ViewHelp
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewInbox
		return m, nil

	case key.Matches(msg, m.keys.Compose):
		m.currentView = ViewCompose
		return m, m.composeView.Start()
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards a message to the currently visible view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	default:
		m.inbox, cmd = m.inbox.Update(msg)
	}
	return m, cmd
}

// View renders the full terminal frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var content string
	switch m.currentView {
	case ViewHelp:
		content = m.helpView.View()
	case ViewCompose:
		content = m.composeView.View()
	default:
		content = m.inbox.View()
	}

	header := m.layout.RenderHeader("sifnotify", m.headerStatus())
	statusBar := m.layout.RenderStatusBar(
		"q quit | ? help | n new | f filter | tab sort | enter open",
	)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// headerStatus summarizes the badge, queue, and active filter/sort.
func (m Model) headerStatus() string {
	qs := m.svc.QueueStatus()
	return fmt.Sprintf(
		"unread %d | queue %d | %s/%s",
		m.badge, qs.Pending, m.inbox.Filter(), m.inbox.Sort(),
	)
}
