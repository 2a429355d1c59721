package internal

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type logOptions struct {
	debug          bool
	timestamps     bool
	forceColors    bool
	sourceLocation bool
}

var rootFlags struct {
	configFile string
	builder    string
	buildDir   string
	log        logOptions
}

var rootCmd = &cobra.Command{
	Use:   "appimagecraft",
	Short: "appimagecraft builds AppImages from a declarative project description",
	Long: `appimagecraft generates shell scripts that build a project with its build system,
install it into an AppDir and package the AppDir as an AppImage with linuxdeploy.

Without a command, appimagecraft runs build.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	RunE:              runBuild,
}

// logger is replaced by setupLogging once the flags are parsed.
var logger = newLogger(os.Stderr, logOptions{})

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootFlags.configFile, "config-file", "f", "appimagecraft.yml", "Path to appimagecraft config")
	flags.StringVarP(&rootFlags.builder, "builder", "b", "", "Name of builder to use (default: first listed)")
	flags.StringVarP(&rootFlags.buildDir, "build-dir", "d", "", "Path to build directory (default: auto-generated)")
	flags.BoolVar(&rootFlags.log.debug, "debug", false, "Display debug messages")
	flags.BoolVar(&rootFlags.log.timestamps, "log-timestamps", false, "Log timestamps")
	flags.BoolVar(&rootFlags.log.forceColors, "force-colors", false, "Force colored output")
	flags.BoolVar(&rootFlags.log.sourceLocation, "log-source-location", false, "Print source locations of log messages")
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	logger = newLogger(os.Stderr, rootFlags.log)
	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}

func newLogger(out *os.File, opts logOptions) zerolog.Logger {
	return newLoggerTo(out, opts.forceColors || isatty.IsTerminal(out.Fd()), opts)
}

func newLoggerTo(out io.Writer, colors bool, opts logOptions) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !colors,
		TimeFormat: time.TimeOnly,
	}
	if !opts.timestamps {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	ctx := zerolog.New(writer).With()
	if opts.timestamps {
		ctx = ctx.Timestamp()
	}
	if opts.sourceLocation {
		ctx = ctx.Caller()
	}

	level := zerolog.InfoLevel
	if opts.debug {
		level = zerolog.DebugLevel
	}
	return ctx.Logger().Level(level)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		return eris.ToString(err, true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		event := logger.Error()
		if rootFlags.log.debug {
			event = event.Stack()
		}
		event.Err(err).Msg("appimagecraft failed")
		os.Exit(1)
	}
}
