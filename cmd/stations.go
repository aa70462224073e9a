package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/spf13/cobra"
)

var showURLs bool

// stationsCmd represents the stations command
var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List the stations in the catalog",
	Long: `List the stations in the active catalog, in dial order.

The catalog is the built-in one unless --catalog or the catalog_file
config option names a YAML file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		writeStations(cmd.OutOrStdout(), cat, showURLs)
		return nil
	},
}

// themesCmd represents the themes command
var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the themes in the catalog",
	Long: `List the themes in the active catalog with their palettes.
Press 't' in the radio to cycle through them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		writeThemes(cmd.OutOrStdout(), cat)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stationsCmd)
	rootCmd.AddCommand(themesCmd)

	stationsCmd.Flags().BoolVar(&showURLs, "urls", false, "Include stream URLs")
}

func writeStations(w io.Writer, cat *catalog.Catalog, urls bool) {
	header := []string{"#", "ID", "NAME", "GENRE", "FREQ"}
	if urls {
		header = append(header, "STREAM")
	}

	rows := [][]string{header}
	for i, s := range cat.ListStations() {
		row := []string{strconv.Itoa(i + 1), s.ID, s.Name, s.Genre, s.Frequency}
		if urls {
			row = append(row, s.StreamURL)
		}
		rows = append(rows, row)
	}

	fmt.Fprint(w, table(rows, 0, 12, 28, 20))
}

func writeThemes(w io.Writer, cat *catalog.Catalog) {
	rows := [][]string{{"ID", "NAME", "FONT"}}
	for _, t := range cat.ListThemes() {
		rows = append(rows, []string{t.ID, t.Name, t.DisplayFont})
	}
	fmt.Fprint(w, table(rows, 16, 24))

	for _, t := range cat.ListThemes() {
		fmt.Fprintf(w, "\n%s\n", t.ID)
		var parts []string
		for _, role := range catalog.Roles {
			if token := t.Token(role); token != "" {
				parts = append(parts, swatch(token)+" "+role+"="+token)
			}
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))
		if t.Texture != "" {
			fmt.Fprintf(w, "  texture=%s\n", t.Texture)
		}
	}
}

// swatch renders a small block in the token's colour. Terminals without
// colour support get blank space.
func swatch(token string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(token)).Render("  ")
}
