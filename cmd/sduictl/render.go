package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a payload to the element tree",
		Long:  `Validates a payload and prints the rendered element tree as JSON or YAML. Use - to read stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0], e.validator.Limits().MaxPayloadBytes)
			if err != nil {
				return err
			}
			t, err := e.validator.Load(data)
			if err != nil {
				return fmt.Errorf("%s: %w", tree.Reason(err), err)
			}
			return printElements(cmd, e, t)
		},
	}
	cmd.Flags().Bool("dev", false, "Render unknown types as placeholders")
	cmd.Flags().Bool("yaml", false, "Print YAML instead of JSON")
	return cmd
}

// printElements renders t with the mode and format from cmd's flags
func printElements(cmd *cobra.Command, e *env, t *tree.Tree) error {
	mode := render.ModeProduction
	if dev, _ := cmd.Flags().GetBool("dev"); dev || e.cfg.Render.DevPlaceholders {
		mode = render.ModeDevelopment
	}
	reg := render.NewRegistry(
		render.WithMode(mode),
		render.WithLimits(e.validator.Limits()),
		render.WithLogger(e.logger),
	)
	elements := reg.Render(t, action.NewNoopHandler(e.logger))

	out, err := sonic.ConfigStd.MarshalIndent(elements, "", "  ")
	if err != nil {
		return err
	}
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		if out, err = yaml.JSONToYAML(out); err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
