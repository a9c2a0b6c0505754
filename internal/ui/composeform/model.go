package composeform

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/internal/theme"
)

// ComposedMsg is dispatched when a notification is composed via the form.
type ComposedMsg struct {
	Notification model.Notification

	// RemindIn is non-zero when the user also asked for a reminder.
	RemindIn time.Duration
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	body     string
	typ      model.NotificationType
	priority model.Priority
	deepLink string
	remindIn time.Duration
}

// Model is the Bubble Tea model for the compose form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new compose form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{typ: model.TypeSIFReceived, priority: model.PriorityNormal},
		width:  width,
		height: height,
	}
}

// Start initializes the form for composing a new notification.
func (m *Model) Start() tea.Cmd {
	m.fb.title = ""
	m.fb.body = ""
	m.fb.typ = model.TypeSIFReceived
	m.fb.priority = model.PriorityNormal
	m.fb.deepLink = ""
	m.fb.remindIn = 0
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the compose form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// handleSubmit builds the notification from the form bindings.
func (m Model) handleSubmit() tea.Cmd {
	fb := m.fb
	return func() tea.Msg {
		n := model.New(fb.typ, fb.priority, fb.title, fb.body)
		if fb.deepLink != "" {
			n.Payload = map[string]string{model.PayloadDeepLink: fb.deepLink}
		}
		return ComposedMsg{Notification: n, RemindIn: fb.remindIn}
	}
}

// View renders the compose form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Notification") + "\n" + m.form.View()

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// buildForm assembles the huh form fields.
func (m *Model) buildForm() *huh.Form {
	typeOpts := make([]huh.Option[model.NotificationType], 0, len(model.Types()))
	for _, t := range model.Types() {
		typeOpts = append(typeOpts, huh.NewOption(string(t), t))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.fb.title),
			huh.NewText().
				Title("Body").
				Value(&m.fb.body),
			huh.NewSelect[model.NotificationType]().
				Title("Type").
				Options(typeOpts...).
				Value(&m.fb.typ),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("Urgent", model.PriorityUrgent),
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Normal", model.PriorityNormal),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewInput().
				Title("Deep link (optional)").
				Value(&m.fb.deepLink),
			huh.NewSelect[time.Duration]().
				Title("Remind me").
				Options(
					huh.NewOption("No reminder", time.Duration(0)),
					huh.NewOption("In 10 minutes", 10*time.Minute),
					huh.NewOption("In 1 hour", time.Hour),
					huh.NewOption("Tomorrow", 24*time.Hour),
				).
				Value(&m.fb.remindIn),
		),
	)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
