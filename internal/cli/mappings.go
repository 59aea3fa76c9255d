package cli

import (
	"context"
	"fmt"

	"github.com/BartekS5/archimport/internal/config"
	"github.com/BartekS5/archimport/pkg/models"
	"github.com/spf13/cobra"
)

func NewListMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-mappings",
		Short: "List stored mapping profiles grouped by target type",
		RunE: func(c *cobra.Command, args []string) error {
			a, err := newApp(c.OutOrStdout(), c.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			mappings, err := a.mappingStore()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context(), a.cfg.Database.Timeout)
			defer cancel()
			profiles, err := mappings.List(ctx)
			if err != nil {
				return err
			}

			out := c.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintln(out, "No mapping profiles found.")
				return nil
			}
			keys, groups := models.GroupByTarget(profiles)
			for _, target := range keys {
				fmt.Fprintf(out, "%s:\n", target)
				for _, p := range groups[target] {
					fmt.Fprintf(out, "  [%d] %-32s %d rules\n", p.ID, p.Name, len(p.ActiveRules()))
				}
			}
			return nil
		},
	}
}

func NewAddMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-mapping <file>",
		Short: "Store the mapping profiles defined in a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			profiles, err := config.LoadMapping(args[0])
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				return fmt.Errorf("%s defines no mapping profiles", args[0])
			}

			a, err := newApp(c.OutOrStdout(), c.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			mappings, err := a.mappingStore()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context(), a.cfg.Database.Timeout)
			defer cancel()
			if err := mappings.Save(ctx, profiles...); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Stored %d mapping profile(s) from %s\n", len(profiles), args[0])
			return nil
		},
	}
}
