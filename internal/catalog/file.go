package catalog

import (
	"fmt"

	"github.com/spf13/viper"
)

// stationEntry and themeEntry are the on-disk representation of a catalog file
type stationEntry struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	Genre     string `mapstructure:"genre"`
	StreamURL string `mapstructure:"stream_url"`
	Frequency string `mapstructure:"frequency"`
}

type themeEntry struct {
	ID          string            `mapstructure:"id"`
	Name        string            `mapstructure:"name"`
	Palette     map[string]string `mapstructure:"palette"`
	DisplayFont string            `mapstructure:"display_font"`
	Texture     string            `mapstructure:"texture"`
}

// Load reads a catalog file (YAML, or any format viper understands by extension).
//
// Example:
//
//	stations:
//	  - id: lofi
//	    name: Lofi Hip Hop
//	    genre: Chill / Study
//	    stream_url: https://streams.ilovemusic.de/iloveradio17.mp3
//	    frequency: 88.5 FM
//	themes:
//	  - id: cyberpunk
//	    name: Night City
//	    palette:
//	      display: "#000000"
//	      display_text: "#22d3ee"
//	    display_font: Orbitron
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var stations []stationEntry
	if err := v.UnmarshalKey("stations", &stations); err != nil {
		return nil, fmt.Errorf("failed to decode stations: %w", err)
	}

	var themes []themeEntry
	if err := v.UnmarshalKey("themes", &themes); err != nil {
		return nil, fmt.Errorf("failed to decode themes: %w", err)
	}

	cat, err := New(toStations(stations), toThemes(themes))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return cat, nil
}

// Export writes the catalog to path. The format follows the file extension.
func Export(c *Catalog, path string) error {
	v := viper.New()

	stations := make([]map[string]any, 0, len(c.stations))
	for _, s := range c.stations {
		stations = append(stations, map[string]any{
			"id":         s.ID,
			"name":       s.Name,
			"genre":      s.Genre,
			"stream_url": s.StreamURL,
			"frequency":  s.Frequency,
		})
	}

	themes := make([]map[string]any, 0, len(c.themes))
	for _, t := range c.themes {
		entry := map[string]any{
			"id":           t.ID,
			"name":         t.Name,
			"palette":      t.clone().Palette,
			"display_font": t.DisplayFont,
		}
		if t.Texture != "" {
			entry["texture"] = t.Texture
		}
		themes = append(themes, entry)
	}

	v.Set("stations", stations)
	v.Set("themes", themes)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return nil
}

func toStations(entries []stationEntry) []Station {
	out := make([]Station, 0, len(entries))
	for _, e := range entries {
		out = append(out, Station(e))
	}
	return out
}

func toThemes(entries []themeEntry) []Theme {
	out := make([]Theme, 0, len(entries))
	for _, e := range entries {
		out = append(out, Theme(e))
	}
	return out
}
