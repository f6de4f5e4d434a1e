package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/template"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/config"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/logging"
)

// Version is printed by the version command
const Version = "1.0.0"

// newRootCmd builds the command tree. Each call returns fresh flags.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sduictl",
		Short:         "Validate and render server-driven UI payloads",
		Long:          `sduictl checks SDUI payloads against the tree limits, renders them to the element tree, and browses the template catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("templates", "", "Extra template directory")
	root.PersistentFlags().Bool("verbose", false, "Log to stderr")

	root.AddCommand(newValidateCmd(), newRenderCmd(), newTemplatesCmd(), newVersionCmd())
	return root
}

// Execute runs the CLI
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sduictl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sduictl version %s\n", Version)
		},
	}
}

// env bundles what every command needs, built from SDUI_* variables
type env struct {
	cfg       *config.Config
	validator *tree.Validator
	logger    *zap.Logger
}

func newEnv(cmd *cobra.Command) (*env, error) {
	cfg := config.LoadOrDefault()

	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		l, err := logging.New(logging.Config{
			Level:       "debug",
			Development: true,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return nil, err
		}
		logger = l.Component("cli")
	}

	return &env{
		cfg:       cfg,
		validator: tree.NewValidator(cfg.Limits.Tree()),
		logger:    logger,
	}, nil
}

func (e *env) catalog(cmd *cobra.Command) (*template.Catalog, error) {
	c, err := template.NewCatalog(e.validator, e.logger)
	if err != nil {
		return nil, err
	}
	dir, _ := cmd.Flags().GetString("templates")
	if dir == "" {
		dir = e.cfg.Templates.Dir
	}
	if dir != "" {
		if err := c.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// readInput reads a file, or stdin for "-", stopping one byte past limit
func readInput(cmd *cobra.Command, path string, limit int) ([]byte, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return io.ReadAll(io.LimitReader(r, int64(limit)+1))
}
