package tui

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/jfmyers9/tuner/internal/transport"
	"github.com/mattn/go-runewidth"
)

const visualizerBars = 16

// palette is a theme resolved to terminal colours
type palette struct {
	background  tcell.Color
	caseColor   tcell.Color
	border      tcell.Color
	face        tcell.Color
	accent      tcell.Color
	display     tcell.Color
	displayText tcell.Color
	speaker     tcell.Color
}

// newPalette resolves every palette role of theme. Roles that are missing or
// not understood by the terminal fall back to plain colours.
func newPalette(theme catalog.Theme) palette {
	return palette{
		background:  resolveColor(theme.Token(catalog.RoleBackground), tcell.ColorBlack),
		caseColor:   resolveColor(theme.Token(catalog.RoleCase), tcell.ColorDarkSlateGray),
		border:      resolveColor(theme.Token(catalog.RoleCaseBorder), tcell.ColorGray),
		face:        resolveColor(theme.Token(catalog.RoleFace), tcell.ColorBlack),
		accent:      resolveColor(theme.Token(catalog.RoleAccent), tcell.ColorYellow),
		display:     resolveColor(theme.Token(catalog.RoleDisplay), tcell.ColorBlack),
		displayText: resolveColor(theme.Token(catalog.RoleDisplayText), tcell.ColorGreen),
		speaker:     resolveColor(theme.Token(catalog.RoleSpeaker), tcell.ColorDarkGray),
	}
}

// resolveColor turns a palette token ("#rrggbb" or a colour name) into a
// tcell colour
func resolveColor(token string, fallback tcell.Color) tcell.Color {
	token = strings.TrimSpace(token)
	if token == "" {
		return fallback
	}
	c := tcell.GetColor(strings.ToLower(token))
	if c == tcell.ColorDefault {
		return fallback
	}
	return c
}

// colorTag returns a tview foreground colour tag for c
func colorTag(c tcell.Color) string {
	hex := c.Hex()
	if hex < 0 {
		return "[-]"
	}
	return fmt.Sprintf("[#%06x]", hex)
}

// statusLabel is the on-air indicator text
func statusLabel(s transport.Snapshot) string {
	if s.OnAir() {
		return "ON AIR"
	}
	return "STANDBY"
}

// headerLine lays out frequency on the left and the status on the right,
// padded to width display cells
func headerLine(s transport.Snapshot, width int) string {
	left := "📻 " + s.Station.Frequency
	right := statusLabel(s)
	gap := width - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// volumeBar draws the volume as a bar of width cells followed by a percentage.
// Muted output is shown as such while the stored level stays visible.
func volumeBar(volume float64, muted bool, width int) string {
	if width <= 0 {
		width = 10
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	filled := int(volume*float64(width) + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	label := fmt.Sprintf("%3d%%", int(volume*100+0.5))
	if muted {
		label = "MUTE"
	}
	return bar + " " + label
}

// truncate shortens s to at most width display cells
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// visualizer animates the level bars shown under the display
type visualizer struct {
	rng    *rand.Rand
	levels [visualizerBars]float64
}

func newVisualizer(seed int64) *visualizer {
	v := &visualizer{rng: rand.New(rand.NewSource(seed))}
	v.step(false)
	return v
}

// step advances the animation by one frame. Bars only move while on air;
// otherwise they rest at a low idle level.
func (v *visualizer) step(onAir bool) {
	for i := range v.levels {
		if !onAir {
			v.levels[i] = 0.05
			continue
		}
		target := 0.15 + v.rng.Float64()*0.85
		v.levels[i] += (target - v.levels[i]) * 0.6
	}
}

var partialBlocks = []rune(" ▁▂▃▄▅▆▇█")

// render draws the bars height rows tall, bottom aligned
func (v *visualizer) render(height int) string {
	if height <= 0 {
		return ""
	}

	var sb strings.Builder
	for row := height - 1; row >= 0; row-- {
		for i, level := range v.levels {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fill := level*float64(height) - float64(row)
			switch {
			case fill >= 1:
				sb.WriteRune('█')
			case fill <= 0:
				sb.WriteRune(' ')
			default:
				sb.WriteRune(partialBlocks[int(fill*8)])
			}
		}
		if row > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// staticNoise renders the tuning static shown while a station change is in
// progress
func staticNoise(rng *rand.Rand, width, lines int) string {
	const glyphs = "░▒▓ ·.:"
	runes := []rune(glyphs)

	var sb strings.Builder
	for l := 0; l < lines; l++ {
		if l > 0 {
			sb.WriteByte('\n')
		}
		for i := 0; i < width; i++ {
			sb.WriteRune(runes[rng.Intn(len(runes))])
		}
	}
	return sb.String()
}

// speakerGrille renders a dotted speaker cover
func speakerGrille(width, lines int) string {
	if width <= 0 || lines <= 0 {
		return ""
	}
	row := strings.Repeat("· ", (width+1)/2)
	row = string([]rune(row)[:width])

	rows := make([]string, lines)
	for i := range rows {
		if i%2 == 1 {
			rows[i] = " " + string([]rune(row)[:width-1])
		} else {
			rows[i] = row
		}
	}
	return strings.Join(rows, "\n")
}
