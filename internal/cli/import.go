package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func NewImportCmd() *cobra.Command {
	req := &ImportRequest{}

	cmd := &cobra.Command{
		Use:   "import <source_file>",
		Short: "Import a source file through a stored mapping profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			req.File = args[0]

			// CSV on stdout keeps that stream for data; logs and the summary go to stderr
			var out io.Writer = c.OutOrStdout()
			if req.Output == OutputCSV && (req.OutputFile == "" || req.OutputFile == "-") {
				out = c.ErrOrStderr()
			}
			a, err := newApp(c.OutOrStdout(), out)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.runImport(c.Context(), *req, out)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Mapping, "mapping", "m", "", "Mapping profile id or name")
	f.StringVar(&req.Repository, "repository", "", "Repository id or slug set on created records")
	f.Int64Var(&req.Parent, "parent", 0, "Default parent entity id")
	f.StringVar(&req.Culture, "culture", "", "Culture for records without one (default en)")
	f.BoolVar(&req.Update, "update", false, "Update entities matched by --match-field instead of creating duplicates")
	f.StringVar(&req.MatchField, "match-field", "legacyId", "Field used to match existing records: legacyId or identifier")
	f.StringVar(&req.UpdateMode, "update-mode", "update", "What to do with matched records: skip, update or merge")
	f.StringVarP(&req.Output, "output", "o", OutputImport, "Output: import, csv or preview")
	f.StringVar(&req.OutputFile, "output-file", "", "CSV output path, - for stdout, or s3://bucket/key")
	f.IntVar(&req.Sheet, "sheet", 0, "Zero-based worksheet index for Excel sources")
	f.BoolVar(&req.SkipHeader, "skip-header", true, "Treat the first row as column names")
	f.StringVar(&req.Delimiter, "delimiter", "auto", "CSV delimiter: auto, tab, or a single character")
	f.BoolVar(&req.DryRun, "dry-run", false, "Parse and map without writing anything")
	f.BoolVar(&req.ValidateOnly, "validate-only", false, "Validate the mapped rows and stop")
	f.IntVar(&req.Limit, "limit", 0, "Stop after N records (0 for all)")
	f.IntVar(&req.Skip, "skip", 0, "Skip the first N data rows")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}
