package cli

import (
	"github.com/BartekS5/archimport/internal/sector"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "archimport",
		Short: "archimport - data migration into AtoM-style archival descriptions",
		Long: `archimport reads CSV, TXT, XLSX, JSON, XML, OPEX and PAX sources, maps their
columns through stored mapping profiles or sector presets, and imports the
records into the configured store, a CSV file or a preview.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewImportCmd(), NewListMappingsCmd(), NewAddMappingCmd(), NewListSectorsCmd(), NewWorkerCmd())
	for _, code := range sector.Codes() {
		rootCmd.AddCommand(NewSectorImportCmd(code))
	}

	return rootCmd
}
