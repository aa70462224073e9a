package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/tuner/internal/transport"
	"github.com/rivo/tview"
)

const volumeStep = 0.05

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to redraw and animate the display
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 120 * time.Millisecond,
	}
}

// Controls is the subset of the transport the UI drives.
// *transport.Controller satisfies it.
type Controls interface {
	TogglePlay()
	NextStation()
	PrevStation()
	ToggleMute()
	SetVolume(v float64)
	AdjustVolume(delta float64)
	CycleTheme()
}

// App is the radio's terminal UI
type App struct {
	app         *tview.Application
	root        *tview.Flex
	header      *tview.TextView
	display     *tview.TextView
	visual      *tview.TextView
	leftSpeaker *tview.TextView
	rightSpeak  *tview.TextView
	controls    *tview.TextView
	help        *tview.TextView

	config Config
	radio  Controls

	// Guards current, which the snapshot consumer writes and the ticker reads
	mu      sync.Mutex
	current *transport.Snapshot

	// Owned by the draw callback
	viz       *visualizer
	noise     *rand.Rand
	lastTheme string

	// Last-rendered content for change detection
	lastHeader   string
	lastDisplay  string
	lastVisual   string
	lastControls string

	cancelFunc context.CancelFunc
}

// New creates a TUI driving radio with the given config
func New(radio Controls, cfg Config) *App {
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = DefaultConfig().RefreshRate
	}
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
		radio:  radio,
		viz:    newVisualizer(time.Now().UnixNano()),
		noise:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	a.display = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.visual = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.leftSpeaker = tview.NewTextView()
	a.rightSpeak = tview.NewTextView()

	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.controls.SetBorder(true)

	a.help = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("space:play/pause  n/→:next  p/←:prev  m:mute  +/-:volume  0-9:level  t:theme  q:quit")

	// Display screen: header, station info, visualizer
	screen := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.display, 0, 1, false).
		AddItem(a.visual, 4, 0, false)
	screen.SetBorder(true)

	// Speakers either side of the screen
	face := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.leftSpeaker, 10, 0, false).
		AddItem(screen, 0, 1, false).
		AddItem(a.rightSpeak, 10, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(face, 0, 1, false).
		AddItem(a.controls, 3, 0, false).
		AddItem(a.help, 1, 0, false)
	a.root.SetBorder(true).
		SetTitle(" tuner ").
		SetTitleAlign(tview.AlignLeft)

	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(a.root, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		a.Stop()
		return nil
	case tcell.KeyRight:
		a.radio.NextStation()
		return nil
	case tcell.KeyLeft:
		a.radio.PrevStation()
		return nil
	case tcell.KeyUp:
		a.radio.AdjustVolume(volumeStep)
		return nil
	case tcell.KeyDown:
		a.radio.AdjustVolume(-volumeStep)
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch r := event.Rune(); r {
	case 'q', 'Q':
		a.Stop()
	case ' ':
		a.radio.TogglePlay()
	case 'n', 'N':
		a.radio.NextStation()
	case 'p', 'P':
		a.radio.PrevStation()
	case 'm', 'M':
		a.radio.ToggleMute()
	case '+', '=':
		a.radio.AdjustVolume(volumeStep)
	case '-', '_':
		a.radio.AdjustVolume(-volumeStep)
	case 't', 'T':
		a.radio.CycleTheme()
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		a.radio.SetVolume(float64(r-'0') / 9)
	default:
		return event
	}
	return nil
}

// Run starts the TUI, rendering every snapshot received until ctx is
// cancelled or the user quits
func (a *App) Run(ctx context.Context, snapshots <-chan transport.Snapshot) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)
	defer a.cancelFunc()

	go a.handleUpdates(ctx, snapshots)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates stores incoming snapshots and drives redraws from a single
// ticker, so bursts of snapshots never queue up redraws.
func (a *App) handleUpdates(ctx context.Context, snapshots <-chan transport.Snapshot) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-snapshots:
				a.setSnapshot(s)
			}
		}
	}()

	ticker := time.NewTicker(a.config.RefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.draw)
		}
	}
}

func (a *App) setSnapshot(s transport.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = &s
}

func (a *App) snapshot() *transport.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// draw updates every panel from the latest snapshot. It must run on the
// tview event goroutine.
func (a *App) draw() {
	s := a.snapshot()
	if s == nil {
		return
	}

	pal := newPalette(s.Theme)
	if s.ThemeID() != a.lastTheme {
		a.lastTheme = s.ThemeID()
		a.applyTheme(pal)
	}

	a.viz.step(s.OnAir())

	a.updateHeader(s, pal)
	a.updateDisplay(s)
	a.updateVisualizer(pal)
	a.updateControls(s, pal)
}

// applyTheme recolours every panel
func (a *App) applyTheme(p palette) {
	a.root.SetBackgroundColor(p.caseColor)
	a.root.SetBorderColor(p.border)
	a.root.SetTitleColor(p.accent)

	for _, tv := range []*tview.TextView{a.header, a.display, a.visual} {
		tv.SetBackgroundColor(p.display)
		tv.SetTextColor(p.displayText)
	}
	for _, tv := range []*tview.TextView{a.leftSpeaker, a.rightSpeak} {
		tv.SetBackgroundColor(p.speaker)
		tv.SetTextColor(p.face)
		tv.SetText(speakerGrille(10, 40))
	}

	a.controls.SetBackgroundColor(p.face)
	a.controls.SetBorderColor(p.border)
	a.controls.SetTextColor(p.accent)

	a.help.SetBackgroundColor(p.background)
	a.help.SetTextColor(p.border)
}

func (a *App) updateHeader(s *transport.Snapshot, p palette) {
	_, _, width, _ := a.header.GetInnerRect()
	if width <= 0 {
		width = 40
	}

	line := tview.Escape(headerLine(*s, width))
	if s.OnAir() {
		// Highlight the status label
		label := statusLabel(*s)
		line = strings.TrimSuffix(line, label) + colorTag(p.accent) + label + "[-]"
	}

	if line != a.lastHeader {
		a.lastHeader = line
		a.header.SetText(line)
	}
}

func (a *App) updateDisplay(s *transport.Snapshot) {
	_, _, width, height := a.display.GetInnerRect()
	if width <= 0 {
		width = 40
	}
	if height <= 0 {
		height = 4
	}

	var text string
	if s.Tuning {
		text = staticNoise(a.noise, width, height)
	} else {
		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[::b]%s[::-]\n", tview.Escape(truncate(s.Station.Name, width))))
		sb.WriteString(tview.Escape(truncate(s.Station.Genre, width)))
		if s.LastError != nil {
			sb.WriteString("\n\n")
			sb.WriteString(fmt.Sprintf("[red]⚠ %s[-]", tview.Escape(s.LastError.Error())))
		}
		text = sb.String()
	}

	if text != a.lastDisplay {
		a.lastDisplay = text
		a.display.SetText(text)
	}
}

func (a *App) updateVisualizer(p palette) {
	text := colorTag(p.displayText) + a.viz.render(4) + "[-]"
	if text != a.lastVisual {
		a.lastVisual = text
		a.visual.SetText(text)
	}
}

func (a *App) updateControls(s *transport.Snapshot, p palette) {
	play := "▶ PLAY"
	if s.Playing {
		play = "❚❚ PAUSE"
	}

	text := fmt.Sprintf("◀◀   %s%s[-]   ▶▶     VOL %s     %s  %d/%d",
		colorTag(p.accent), play,
		volumeBar(s.Volume, s.Muted, 12),
		tview.Escape(s.Theme.Name),
		s.StationIndex+1, s.StationCount,
	)

	if text != a.lastControls {
		a.lastControls = text
		a.controls.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}
