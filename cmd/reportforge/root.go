package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/reportforge/reportforge/pkg/cli"
	"github.com/reportforge/reportforge/pkg/config"
	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/pdfrender"
	"github.com/reportforge/reportforge/pkg/ui"
)

// deps are the process collaborators commands use. Tests swap the
// renderer and output streams.
type deps struct {
	stdout io.Writer
	stderr io.Writer

	newRenderer func(cfg *config.Config, logger *slog.Logger) pdfrender.Renderer
}

func defaultDeps() *deps {
	return &deps{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newRenderer: func(cfg *config.Config, logger *slog.Logger) pdfrender.Renderer {
			return pdfrender.NewChromeRenderer(pdfrender.Config{
				ExecPath:        cfg.Browser.ExecPath,
				IdleTimeout:     cfg.Browser.IdleTimeout.Std(),
				TeardownTimeout: cfg.Browser.TeardownTimeout.Std(),
				NoSandbox:       cfg.Browser.NoSandbox,
				Logger:          logger,
			})
		},
	}
}

type globalFlags struct {
	configPath string
	noColor    bool
}

func newRootCmd(d *deps) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           defaults.ToolName,
		Short:         "Render penetration-test reports to PDF",
		Long:          "reportforge turns stored reports and engagements into full PDF reports and executive briefings using headless Chrome.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			ui.SetNoColor(g.noColor || !ui.IsTerminal(d.stderr))
		},
	}
	root.SetOut(d.stdout)
	root.SetErr(d.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cli.UsageError{Err: err}
	})

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colorized output")

	root.AddCommand(
		newServeCmd(d, &g),
		newRenderCmd(d, &g),
		newVersionCmd(d),
	)
	return root
}

// run executes the CLI and returns the process exit code.
func run(args []string, d *deps) int {
	root := newRootCmd(d)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err != nil {
		ui.PrintError(d.stderr, err)
	}
	return cli.ExitCode(err)
}

// loadConfig loads the configuration and builds the process logger.
func loadConfig(d *deps, g *globalFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Log.Logger(d.stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newVersionCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			ui.PrintVersion(d.stdout)
		},
	}
}
