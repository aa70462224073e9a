package cmd

import (
	"fmt"

	"github.com/jfmyers9/tuner/internal/catalog"
	"github.com/spf13/cobra"
)

// catalogCmd groups catalog maintenance commands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the station and theme catalog",
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the active catalog to a YAML file",
	Long: `Write the active catalog (built-in unless --catalog is given) to a
YAML file. Edit the file and point catalog_file at it to use your own
stations and themes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		if err := catalog.Export(cat, args[0]); err != nil {
			return fmt.Errorf("failed to export catalog: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d stations and %d themes to %s\n",
			cat.StationCount(), cat.ThemeCount(), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogExportCmd)
}
