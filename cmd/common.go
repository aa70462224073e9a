package cmd

import (
	"fmt"
	"strings"

	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/jfmyers9/tuner/internal/config"
	"github.com/mattn/go-runewidth"
)

// loadConfig reads the configuration and applies command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if catalogFile != "" {
		cfg.CatalogFile = catalogFile
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

// loadCatalog returns the catalog named by cfg, or the built-in one
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	switch {
	case currentWidth > width:
		const ellipsis = "..."
		if width <= len(ellipsis) {
			return ellipsis[:width]
		}
		truncated := runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
		// Wide runes can leave the result a column short
		return runewidth.FillRight(truncated, width)
	case currentWidth < width:
		return text + strings.Repeat(" ", width-currentWidth)
	default:
		return text
	}
}

// table renders rows as space-separated columns sized to their widest cell.
// The last column is never padded.
func table(rows [][]string, maxWidths ...int) string {
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i, limit := range maxWidths {
		if i < len(widths) && limit > 0 && widths[i] > limit {
			widths[i] = limit
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(padToWidth(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
