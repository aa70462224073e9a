package catalog

import (
	"errors"
	"fmt"
)

// Palette roles understood by the presentation layer.
const (
	RoleBackground  = "bg"
	RoleCase        = "case"
	RoleCaseBorder  = "case_border"
	RoleFace        = "face"
	RoleAccent      = "accent"
	RoleDisplay     = "display"
	RoleDisplayText = "display_text"
	RoleSpeaker     = "speaker"
)

// Roles lists every palette role in display order
var Roles = []string{
	RoleBackground,
	RoleCase,
	RoleCaseBorder,
	RoleFace,
	RoleAccent,
	RoleDisplay,
	RoleDisplayText,
	RoleSpeaker,
}

var (
	// ErrEmptyCatalog is returned when a catalog has no stations or no themes
	ErrEmptyCatalog = errors.New("catalog must contain at least one station and one theme")

	// ErrDuplicateID is returned when two stations or two themes share an ID
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidStation is returned when a station is missing required fields
	ErrInvalidStation = errors.New("invalid station")

	// ErrInvalidTheme is returned when a theme has no id
	ErrInvalidTheme = errors.New("invalid theme")
)

// Station is a named streaming audio source
type Station struct {
	ID        string // Unique identifier
	Name      string // Display name
	Genre     string // Genre label
	StreamURL string // Playback URL handed to the audio output
	Frequency string // Cosmetic dial frequency, e.g. "88.5 FM"
}

// Theme is a named set of presentation style tokens.
// The core never interprets the tokens; renderers resolve them.
type Theme struct {
	ID          string
	Name        string
	Palette     map[string]string // semantic role -> style token
	DisplayFont string
	Texture     string // optional
}

// Token returns the style token for a palette role, or "" when unset.
func (t Theme) Token(role string) string {
	return t.Palette[role]
}

func (t Theme) clone() Theme {
	palette := make(map[string]string, len(t.Palette))
	for k, v := range t.Palette {
		palette[k] = v
	}
	t.Palette = palette
	return t
}

// Catalog is the immutable list of stations and themes loaded at startup
type Catalog struct {
	stations []Station
	themes   []Theme
}

// New validates the given stations and themes and returns a catalog holding
// private copies of them.
func New(stations []Station, themes []Theme) (*Catalog, error) {
	if len(stations) == 0 || len(themes) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(stations))
	for i, s := range stations {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: station %d has no id", ErrInvalidStation, i)
		}
		if s.StreamURL == "" {
			return nil, fmt.Errorf("%w: station %q has no stream url", ErrInvalidStation, s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: station %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = true
	}

	seen = make(map[string]bool, len(themes))
	for i, t := range themes {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: theme %d has no id", ErrInvalidTheme, i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: theme %q", ErrDuplicateID, t.ID)
		}
		seen[t.ID] = true
	}

	c := &Catalog{
		stations: make([]Station, len(stations)),
		themes:   make([]Theme, len(themes)),
	}
	copy(c.stations, stations)
	for i, t := range themes {
		c.themes[i] = t.clone()
	}
	return c, nil
}

// ListStations returns the stations in catalog order.
// The returned slice is a copy; the catalog itself never changes.
func (c *Catalog) ListStations() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// ListThemes returns the themes in catalog order
func (c *Catalog) ListThemes() []Theme {
	out := make([]Theme, len(c.themes))
	for i, t := range c.themes {
		out[i] = t.clone()
	}
	return out
}

// StationCount returns the number of stations
func (c *Catalog) StationCount() int {
	return len(c.stations)
}

// ThemeCount returns the number of themes
func (c *Catalog) ThemeCount() int {
	return len(c.themes)
}

// Station returns the station at index i. i must be in [0, StationCount).
func (c *Catalog) Station(i int) Station {
	return c.stations[i]
}

// Theme returns a copy of the theme at index i. i must be in [0, ThemeCount).
func (c *Catalog) Theme(i int) Theme {
	return c.themes[i].clone()
}

// ThemeIndex returns the index of the theme with the given id, or -1
func (c *Catalog) ThemeIndex(id string) int {
	for i, t := range c.themes {
		if t.ID == id {
			return i
		}
	}
	return -1
}
