package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/faizmokh/nibab/internal/plan"
	"github.com/faizmokh/nibab/internal/schedule"
)

const (
	stampLayout    = "2006-01-02 15:04"
	defaultRows    = 15
	reservedLines  = 12
	minVisibleRows = 3
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	readStyle      = lipgloss.NewStyle().Faint(true)
	deliveredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

// Model owns Bubble Tea state for the plan view.
type Model struct {
	ctx           context.Context
	store         *plan.Store
	id            string
	extensionDays int

	doc      plan.Document
	selected int
	rows     int

	mode       mode
	loading    bool
	spinner    spinner.Model
	statusLine string
	errorLine  string
}

type mode uint8

const (
	modeNormal mode = iota
	modeConfirmExtend
)

type planLoadedMsg struct {
	doc plan.Document
	err error
}

type markResultMsg struct {
	verb string
	mark plan.Mark
	err  error
}

type extendResultMsg struct {
	result schedule.ExtendResult
	err    error
}

// NewModel seeds a Bubble Tea model for the plan with the given id.
func NewModel(ctx context.Context, store *plan.Store, id string, extensionDays int) Model {
	if extensionDays <= 0 {
		extensionDays = schedule.DefaultExtensionDays
	}
	return Model{
		ctx:           ctx,
		store:         store,
		id:            id,
		extensionDays: extensionDays,
		rows:          defaultRows,
		mode:          modeNormal,
		loading:       true,
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		statusLine:    "Loading plan...",
	}
}

// Init loads the plan.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadPlanCmd())
}

// Update wires TUI state transitions from user input and async commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.rows = max(minVisibleRows, msg.Height-reservedLines)
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case planLoadedMsg:
		return m.handlePlanLoaded(msg)
	case markResultMsg:
		return m.handleMarkResult(msg)
	case extendResultMsg:
		return m.handleExtendResult(msg)
	default:
		return m, nil
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirmExtend {
		switch msg.String() {
		case "y", "Y":
			m.mode = modeNormal
			m.statusLine = fmt.Sprintf("Extending by %d days...", m.extensionDays)
			m.errorLine = ""
			return m, m.extendCmd()
		case "n", "N", "esc":
			m.mode = modeNormal
			m.statusLine = "Extension cancelled."
			m.errorLine = ""
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "down", "j":
		if m.selected < len(m.doc.Units)-1 {
			m.selected++
			m.errorLine = ""
		}
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.errorLine = ""
		}
	case "g":
		m.selected = 0
	case "G":
		m.selected = max(0, len(m.doc.Units)-1)
	case "n":
		if next, ok := schedule.NextUnit(m.doc.Units); ok {
			m.selected = m.position(next.Index)
		}
	case "r":
		return m.reload()
	case "x", " ":
		return m.markSelected("read")
	case "d":
		return m.markSelected("delivered")
	case "E":
		if m.loading || m.doc.Plan.State == schedule.PlanCompleted {
			return m, nil
		}
		m.mode = modeConfirmExtend
		m.statusLine = ""
		m.errorLine = ""
	}

	return m, nil
}

func (m Model) markSelected(verb string) (tea.Model, tea.Cmd) {
	if m.loading || len(m.doc.Units) == 0 {
		return m, nil
	}
	unit := m.doc.Units[m.selected]
	m.statusLine = fmt.Sprintf("Marking #%d %s...", unit.Index, verb)
	m.errorLine = ""
	return m, m.markCmd(verb, unit.Index)
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	m.statusLine = "Refreshing..."
	m.errorLine = ""
	return m, tea.Batch(m.spinner.Tick, m.loadPlanCmd())
}

func (m Model) handlePlanLoaded(msg planLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.errorLine = fmt.Sprintf("Failed to load %s: %v", m.id, msg.err)
		m.statusLine = ""
		return m, nil
	}

	m.doc = msg.doc
	if m.selected >= len(m.doc.Units) {
		m.selected = max(0, len(m.doc.Units)-1)
	}
	if m.statusLine == "Loading plan..." {
		if next, ok := schedule.NextUnit(m.doc.Units); ok {
			m.selected = m.position(next.Index)
		}
		m.statusLine = fmt.Sprintf("Loaded %d units.", len(m.doc.Units))
	}
	return m, nil
}

func (m Model) handleMarkResult(msg markResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errorLine = fmt.Sprintf("Mark %s failed: %v", msg.verb, msg.err)
		m.statusLine = ""
		return m, nil
	}

	m.doc = msg.mark.Document
	m.errorLine = ""
	switch {
	case msg.mark.Completed:
		m.statusLine = "Plan completed."
	case !msg.mark.Changed:
		m.statusLine = fmt.Sprintf("#%d was already %s.", msg.mark.Unit.Index, msg.verb)
	default:
		m.statusLine = fmt.Sprintf("Marked #%d %s.", msg.mark.Unit.Index, msg.verb)
	}
	return m, nil
}

func (m Model) handleExtendResult(msg extendResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errorLine = fmt.Sprintf("Extend failed: %v", msg.err)
		m.statusLine = ""
		return m, nil
	}

	switch msg.result.Outcome {
	case schedule.Extended:
		m.statusLine = fmt.Sprintf("Target moved to %s; %d units resized.",
			msg.result.Plan.TargetDate.Format("2006-01-02"), len(msg.result.Replacement))
	default:
		m.statusLine = "Plan " + msg.result.Outcome.String() + "."
	}
	m.errorLine = ""
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.loadPlanCmd())
}

// position maps a unit index to its row in the unit list.
func (m Model) position(index int) int {
	for i, u := range m.doc.Units {
		if u.Index == index {
			return i
		}
	}
	return 0
}

func (m Model) loadPlanCmd() tea.Cmd {
	store, ctx, id := m.store, m.ctx, m.id
	return func() tea.Msg {
		doc, err := store.Load(ctx, id)
		return planLoadedMsg{doc: doc, err: err}
	}
}

func (m Model) markCmd(verb string, index int) tea.Cmd {
	store, ctx, id := m.store, m.ctx, m.id
	return func() tea.Msg {
		var (
			mark plan.Mark
			err  error
		)
		if verb == "read" {
			mark, err = store.MarkRead(ctx, id, index)
		} else {
			mark, err = store.MarkDelivered(ctx, id, index)
		}
		return markResultMsg{verb: verb, mark: mark, err: err}
	}
}

func (m Model) extendCmd() tea.Cmd {
	store, ctx, id, days := m.store, m.ctx, m.id, m.extensionDays
	return func() tea.Msg {
		res, err := store.Extend(ctx, id, days)
		return extendResultMsg{result: res, err: err}
	}
}

// View renders the frame.
func (m Model) View() string {
	var b strings.Builder

	title := "Reading plan " + m.id
	if m.doc.Plan.ID != "" {
		title = fmt.Sprintf("%s (%s)", strings.Join(m.doc.Plan.Books, ", "), m.doc.Plan.State)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", lipgloss.Width(title)))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.doc.Units) == 0:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading...\n")
	case len(m.doc.Units) == 0:
		b.WriteString("(no units)\n")
	default:
		first, last := visibleRange(m.selected, len(m.doc.Units), m.rows)
		for i := first; i < last; i++ {
			b.WriteString(m.renderUnit(i))
			b.WriteByte('\n')
		}
		if last-first < len(m.doc.Units) {
			b.WriteString(helpStyle.Render(fmt.Sprintf("  %d-%d of %d", first+1, last, len(m.doc.Units))))
			b.WriteByte('\n')
		}
	}

	if summary, hint := m.summary(); summary != "" {
		b.WriteString("\n")
		b.WriteString(summary)
		b.WriteByte('\n')
		if hint != "" {
			b.WriteString(hintStyle.Render(hint))
			b.WriteByte('\n')
		}
	}

	if m.errorLine != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("! " + m.errorLine))
		b.WriteByte('\n')
	} else if m.statusLine != "" {
		b.WriteString("\n")
		b.WriteString(m.statusLine)
		b.WriteByte('\n')
	}

	if m.mode == modeConfirmExtend {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Extend the target date by %d days? (y/n, Esc to cancel)", m.extensionDays))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Navigation: j/k select  g/G first/last  n next pending  r reload"))
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render("Actions: space/x read  d delivered  E extend  q quit"))
	b.WriteByte('\n')
	return b.String()
}

func (m Model) renderUnit(row int) string {
	u := m.doc.Units[row]
	line := fmt.Sprintf("%s #%d %s", stateMark(u.State), u.Index, u.Reference())
	switch {
	case u.ReadAt != nil:
		line += "  read " + u.ReadAt.Format(stampLayout)
	case u.DeliveredAt != nil:
		line += "  delivered " + u.DeliveredAt.Format(stampLayout)
	}

	if row == m.selected {
		return cursorStyle.Render("> " + line)
	}
	switch u.State {
	case schedule.UnitRead:
		return readStyle.Render("  " + line)
	case schedule.UnitDelivered:
		return deliveredStyle.Render("  " + line)
	default:
		return "  " + line
	}
}

// summary is the status block under the unit list, plus an extension hint
// when the deadline would push units past the plan's cap.
func (m Model) summary() (string, string) {
	if m.doc.Plan.ID == "" {
		return "", ""
	}
	if m.doc.Plan.State == schedule.PlanCompleted {
		return "All units read.", ""
	}

	est := schedule.Calculate(m.doc.Plan, m.doc.Units, m.store.Now())
	summary := fmt.Sprintf("Remaining %d verses over %d days; %d per unit; next delivery %s",
		est.RemainingVerses,
		est.RemainingDays,
		est.AdjustedVersesPerUnit,
		est.NextDelivery.Format(stampLayout),
	)
	var hint string
	if schedule.OfferExtension(m.doc.Plan, est.AdjustedVersesPerUnit) {
		hint = fmt.Sprintf("Behind schedule: press E to extend by %d days.", m.extensionDays)
	}
	return summary, hint
}

func stateMark(state schedule.UnitState) string {
	switch state {
	case schedule.UnitDelivered:
		return "[>]"
	case schedule.UnitRead:
		return "[x]"
	default:
		return "[ ]"
	}
}

// visibleRange returns the window of rows to draw so the cursor stays on screen.
func visibleRange(selected, total, rows int) (int, int) {
	if rows <= 0 || total <= rows {
		return 0, total
	}
	first := max(0, selected-rows/2)
	last := first + rows
	if last > total {
		last = total
		first = total - rows
	}
	return first, last
}
