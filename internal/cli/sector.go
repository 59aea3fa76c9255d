package cli

import (
	"fmt"
	"strings"

	"github.com/BartekS5/archimport/internal/etl"
	"github.com/BartekS5/archimport/internal/sector"
	"github.com/spf13/cobra"
)

// NewSectorImportCmd builds <code>-csv-import, which maps columns through the
// sector's aliases with an optional stored profile on top.
func NewSectorImportCmd(code string) *cobra.Command {
	req := &ImportRequest{Sector: code, Output: OutputImport, SkipHeader: true, Delimiter: "auto"}
	var updateField string

	label := code
	if sp, err := sector.Lookup(code); err == nil {
		label = sp.Label
	}

	cmd := &cobra.Command{
		Use:   code + "-csv-import <filename>",
		Short: fmt.Sprintf("Import a file using the %s column presets", label),
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			req.File = args[0]
			req.Update = updateField != ""
			req.MatchField = updateField

			a, err := newApp(c.OutOrStdout(), c.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.runImport(c.Context(), *req, c.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVar(&req.ValidateOnly, "validate-only", false, "Check required columns and values without importing")
	f.StringVarP(&req.Mapping, "mapping", "m", "", "Mapping profile id or name applied over the sector presets")
	f.StringVar(&req.Repository, "repository", "", "Repository slug set on created records")
	f.StringVar(&updateField, "update", "", "Match existing records on FIELD (legacyId or identifier) and update them")
	f.StringVar(&req.UpdateMode, "update-mode", string(etl.UpdateOverwrite), "What to do with matched records: skip, update or merge")
	f.StringVar(&req.Culture, "culture", "", "Culture for records without one (default en)")
	f.IntVar(&req.Limit, "limit", 0, "Stop after N records (0 for all)")
	f.IntVar(&req.Skip, "skip", 0, "Skip the first N data rows")
	f.BoolVar(&req.DryRun, "dry-run", false, "Parse and map without writing anything")

	return cmd
}

func NewListSectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-sectors",
		Short: "List the sector presets and their required columns",
		RunE: func(c *cobra.Command, args []string) error {
			out := c.OutOrStdout()
			for _, sp := range sector.List() {
				fmt.Fprintf(out, "%-10s %s\n", sp.Code, sp.Label)
				fmt.Fprintf(out, "  required: %s\n", strings.Join(sp.RequiredColumns, ", "))
				if sp.ExtraMetadataShape != "" {
					fmt.Fprintf(out, "  %s: %s\n", sp.ExtraMetadataShape, strings.Join(sp.ExtraFields, ", "))
				}
			}
			return nil
		},
	}
}
