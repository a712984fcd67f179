// internal/tui/app.go
//
// The match view. It uses bubbletea, which follows The Elm Architecture:
// state lives in the model, messages mutate it through Update, and View
// renders it. The keyboard doubles as the human player's input device —
// each slot key goes straight into Player.Submit, which applies its own
// admission, freeze, and capacity gating.

package tui

import (
	"fmt"
	"strings"
	"time"

	btable "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gridmatch/gridmatch/internal/feed"
	"github.com/gridmatch/gridmatch/internal/player"
	gametable "github.com/gridmatch/gridmatch/internal/table"
)

const (
	refreshInterval = 200 * time.Millisecond
	gridColumns     = 4
)

// slotKeys maps keyboard keys to slot indices, laid out in rows that mirror
// the rendered grid.
var slotKeys = []string{
	"1", "2", "3", "4",
	"q", "w", "e", "r",
	"a", "s", "d", "f",
	"z", "x", "c", "v",
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	emptyCardStyle = cardStyle.
			Foreground(lipgloss.Color("#555555"))
	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type tickMsg time.Time

type eventMsg feed.Event

type feedClosedMsg struct{}

// App is the bubbletea model for a running match.
type App struct {
	players []*player.Player
	human   *player.Player // nil when every player is automated
	tab     *gametable.Table
	events  <-chan feed.Event

	board    btable.Model
	now      time.Time
	lastNote string
	width    int
	height   int
}

// NewApp builds the match view. human may be nil.
func NewApp(players []*player.Player, human *player.Player, tab *gametable.Table, events <-chan feed.Event) *App {
	columns := []btable.Column{
		{Title: "Player", Width: 8},
		{Title: "Kind", Width: 6},
		{Title: "Score", Width: 6},
		{Title: "Frozen", Width: 8},
	}
	board := btable.New(
		btable.WithColumns(columns),
		btable.WithHeight(len(players)),
	)
	a := &App{
		players: players,
		human:   human,
		tab:     tab,
		events:  events,
		board:   board,
		now:     time.Now(),
	}
	a.refreshBoard()
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.scheduleTick(), a.waitForEvent())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		a.now = time.Time(msg)
		a.refreshBoard()
		return a, a.scheduleTick()

	case eventMsg:
		a.lastNote = describeEvent(feed.Event(msg))
		a.refreshBoard()
		return a, a.waitForEvent()

	case feedClosedMsg:
		return a, tea.Quit

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "esc":
			return a, tea.Quit
		}
		if a.human != nil {
			if slot, ok := slotForKey(key); ok && slot < a.tab.SlotCount() {
				a.human.Submit(slot)
			}
		}
		return a, nil
	}

	return a, nil
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gridmatch"))
	b.WriteString("\n\n")
	b.WriteString(a.renderGrid())
	b.WriteString("\n")
	b.WriteString(a.board.View())
	b.WriteString("\n")
	if a.lastNote != "" {
		b.WriteString(noteStyle.Render(a.lastNote))
		b.WriteString("\n")
	}
	if a.human != nil {
		b.WriteString(helpStyle.Render("slot keys: 1234 / qwer / asdf / zxcv · esc quits"))
	} else {
		b.WriteString(helpStyle.Render("spectating automated players · esc quits"))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) scheduleTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the feed subscription; bubbletea runs the command
// in its own goroutine, so the model never blocks.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-a.events
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg(event)
	}
}

func (a *App) refreshBoard() {
	rows := make([]btable.Row, 0, len(a.players))
	for _, p := range a.players {
		kind := "human"
		if p.Automated() {
			kind = "bot"
		}
		rows = append(rows, btable.Row{
			fmt.Sprintf("#%d", p.ID()),
			kind,
			fmt.Sprintf("%d", p.Score()),
			freezeLabel(p.FreezeDeadline(), a.now),
		})
	}
	a.board.SetRows(rows)
}

func (a *App) renderGrid() string {
	snapshot := a.tab.Snapshot()
	var rows []string
	for start := 0; start < len(snapshot); start += gridColumns {
		end := start + gridColumns
		if end > len(snapshot) {
			end = len(snapshot)
		}
		cells := make([]string, 0, gridColumns)
		for slot := start; slot < end; slot++ {
			card := snapshot[slot]
			if card == gametable.Empty {
				cells = append(cells, emptyCardStyle.Render(" · "))
				continue
			}
			cells = append(cells, cardStyle.Render(fmt.Sprintf("%3d", card)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func slotForKey(key string) (int, bool) {
	for i, k := range slotKeys {
		if k == key {
			return i, true
		}
	}
	return 0, false
}

func freezeLabel(deadline time.Time, now time.Time) string {
	if deadline.IsZero() || !deadline.After(now) {
		return "-"
	}
	return deadline.Sub(now).Round(100 * time.Millisecond).String()
}

func describeEvent(event feed.Event) string {
	switch event.Type {
	case feed.EventScore:
		return fmt.Sprintf("player %d scored (now %d)", event.PlayerID, event.Score)
	case feed.EventPenalty:
		return fmt.Sprintf("player %d submitted an invalid group", event.PlayerID)
	case feed.EventRedeal:
		return fmt.Sprintf("matched cards replaced after player %d's group", event.PlayerID)
	case feed.EventToken:
		return fmt.Sprintf("player %d toggled slot %d", event.PlayerID, event.Slot)
	default:
		return string(event.Type)
	}
}
