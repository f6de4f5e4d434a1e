package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/sdui/internal/domain/template"
)

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse the template catalog",
	}
	cmd.AddCommand(newTemplatesListCmd(), newTemplatesShowCmd())
	return cmd
}

func newTemplatesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			c, err := e.catalog(cmd)
			if err != nil {
				return err
			}

			raw, _ := cmd.Flags().GetString("category")
			category := template.Category(raw)
			if category != "" && !category.Valid() {
				return fmt.Errorf("unknown category %q (want one of %v)", raw, template.Categories())
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNODES\tDEPTH\tNAME")
			for _, t := range c.List(category) {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", t.ID, t.Category, t.NodeCount, t.Depth, t.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("category", "", "Only list this category")
	return cmd
}

func newTemplatesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a template's payload, or its rendering with --render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			c, err := e.catalog(cmd)
			if err != nil {
				return err
			}

			if rendered, _ := cmd.Flags().GetBool("render"); rendered {
				t, err := c.Tree(args[0])
				if err != nil {
					return err
				}
				return printElements(cmd, e, t)
			}

			t, err := c.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s)\n# %s\n%s", t.Name, t.Category, t.Description, t.Payload)
			return nil
		},
	}
	cmd.Flags().Bool("render", false, "Render instead of printing the payload")
	cmd.Flags().Bool("dev", false, "Render unknown types as placeholders")
	cmd.Flags().Bool("yaml", false, "Print YAML instead of JSON")
	return cmd
}
