package main

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var errInvalid = errors.New("payload is invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a payload against the tree limits",
		Long:  `Reports payload size, node count, depth and the first failing check. Use - to read stdin. Exits non-zero when the payload is rejected.`,
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

			report := e.validator.Inspect(data)
			out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !report.Valid {
				return fmt.Errorf("%w: %s", errInvalid, report.Reason)
			}
			return nil
		},
	}
}
