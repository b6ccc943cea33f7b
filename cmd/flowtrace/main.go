package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/luxas/flowtrace"
	"github.com/luxas/flowtrace/internal/config"
	"github.com/luxas/flowtrace/zaplog"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// rootOptions are the flags shared by all commands, and what they resolve to.
type rootOptions struct {
	configPath string
	envFile    string
	logDir     string
	logLevel   int
	logFormat  string

	cfg *config.Config
	log logr.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "flowtrace",
		Short:         "Inspect and produce call-flow traces",
		Long:          "flowtrace lists and renders the JSON call-flow traces written by instrumented programs, and can run a traced sample pipeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a flowtrace YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file with FLOWTRACE_* variables")
	cmd.PersistentFlags().StringVarP(&opts.logDir, "dir", "d", "", "directory traces are stored in (overrides the config)")
	cmd.PersistentFlags().IntVarP(&opts.logLevel, "log-level", "v", -1, "log verbosity (overrides the config)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: console, json or std (overrides the config)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLsCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newDemoCmd(opts))
	return cmd
}

// complete loads the configuration, applies the flags on top of it, and
// sets up logging.
func (o *rootOptions) complete(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return err
	}
	if o.logDir != "" {
		cfg.LogDir = o.logDir
	}
	if o.logLevel >= 0 {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	o.cfg = cfg

	o.log, err = newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	flowtrace.SetGlobalLogger(o.log)
	flowtrace.SetGlobalEnabled(cfg.IsEnabled())
	return nil
}

func newLogger(w io.Writer, format string, level int) (logr.Logger, error) {
	if format == "std" {
		stdr.SetVerbosity(level)
		return stdr.New(stdlog.New(w, "", stdlog.LstdFlags)), nil
	}
	f, err := zaplog.ParseFormat(format)
	if err != nil {
		return logr.Logger{}, err
	}
	return zaplog.NewZap().
		WithFormat(f).
		LogTo(w).
		LogUpto(int8(level)). //nolint:gosec
		NoStacktraceOnError().
		Build(), nil
}

func (o *rootOptions) persister() *flowtrace.FilePersister {
	return flowtrace.NewFilePersister(o.cfg.LogDir)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flowtrace %s (commit: %s)\n", Version, Commit)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
