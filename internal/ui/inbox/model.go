package inbox

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sif-notify/internal/keys"
	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/internal/service"
	"github.com/nhle/sif-notify/internal/theme"
)

// NotificationsLoadedMsg is sent when the visible notification slice
// has been recomputed from the service.
type NotificationsLoadedMsg struct {
	Notifications []model.Notification
}

// filterModes defines the available filters cycled by 'f'.
var filterModes = []service.Filter{
	service.FilterAll,
	service.FilterUnread,
	service.FilterRead,
	service.FilterFailed,
	service.FilterScheduled,
	service.FilterArchived,
}

// sortModes defines the available sort modes cycled by Tab.
var sortModes = []service.SortOrder{
	service.SortNewest,
	service.SortOldest,
	service.SortPriority,
	service.SortType,
}

// Model is the notification inbox view component.
type Model struct {
	list        list.Model
	svc         *service.Service
	keys        *keys.KeyMap
	filterIndex int
	sortIndex   int
	width       int
	height      int
}

// New creates a new inbox model.
func New(svc *service.Service, k *keys.KeyMap, width, height int) Model {
	delegate := ItemDelegate{}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		svc:    svc,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the initial notification list.
func (m Model) Init() tea.Cmd {
	return m.LoadNotifications()
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NotificationsLoadedMsg:
		items := make([]list.Item, len(msg.Notifications))
		for i, n := range msg.Notifications {
			items[i] = NotificationItem{Notification: n}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys processes key input for the inbox.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if n, ok := m.selected(); ok {
			m.svc.HandleTap(n.ID)
			return m, m.LoadNotifications()
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		if n, ok := m.selected(); ok {
			m.svc.MarkAsRead(n.ID)
			return m, m.LoadNotifications()
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkAllRead):
		m.svc.MarkAllAsRead()
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.Archive):
		if n, ok := m.selected(); ok {
			m.svc.Archive(n.ID)
			return m, m.LoadNotifications()
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if n, ok := m.selected(); ok {
			m.svc.Delete(n.ID)
			return m, m.LoadNotifications()
		}
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		m.svc.RetryFailedDeliveries()
		return m, nil

	case key.Matches(msg, m.keys.CycleFilter):
		m.filterIndex = (m.filterIndex + 1) % len(filterModes)
		return m, m.LoadNotifications()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		return m, m.LoadNotifications()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selected returns the currently highlighted notification.
func (m Model) selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return model.Notification{}, false
	}
	return item.Notification, true
}

// Filter returns the active filter name for the header.
func (m Model) Filter() service.Filter {
	return filterModes[m.filterIndex]
}

// Sort returns the active sort order name for the header.
func (m Model) Sort() service.SortOrder {
	return sortModes[m.sortIndex]
}

// View renders the inbox view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when no notifications match.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.Filter() != service.FilterAll {
		return style.Render("No matching notifications.\nPress 'f' to change the filter.")
	}

	return style.Render(
		"No notifications yet.\n\n" +
			"Press 'n' to compose one.",
	)
}

// LoadNotifications returns a tea.Cmd that recomputes the visible slice
// from the service with the current filter and sort.
func (m Model) LoadNotifications() tea.Cmd {
	svc := m.svc
	filter := filterModes[m.filterIndex]
	order := sortModes[m.sortIndex]
	return func() tea.Msg {
		notifications := service.Sorted(svc.Filtered(filter, nil), order)
		return NotificationsLoadedMsg{Notifications: notifications}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
