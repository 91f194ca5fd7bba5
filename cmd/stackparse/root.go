package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/config"
	"github.com/yousuf/jsstack/internal/logs"
	"github.com/yousuf/jsstack/internal/render"
	"github.com/yousuf/jsstack/internal/session"
	"github.com/yousuf/jsstack/internal/sourcemap"
	"github.com/yousuf/jsstack/internal/stack"
)

const (
	formatTable = "table"
	formatText  = "text"

	sourceMapID = "cli"
)

type options struct {
	clean     bool
	guess     bool
	sourceMap string
	sources   []string
	format    string
	logLevel  string
}

func RootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "stackparse [file]",
		Short: "Parse a JavaScript stack trace",
		Long: `Parse a stack trace in name(args)@file:line form, read from file or stdin.

Scripts given with --source are used to recognize debugger-internal frames
(--clean) and to guess names of anonymous functions (--guess).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatTable && opts.format != formatText {
				return errors.Errorf("unknown format %q, want %s or %s", opts.format, formatTable, formatText)
			}
			logger, err := logs.New(opts.logLevel)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return run(cmd.OutOrStdout(), input, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.clean, "clean", false, "Strip trailing debugger-internal frames")
	flags.BoolVar(&opts.guess, "guess", false, "Guess names of anonymous functions from --source scripts")
	flags.StringVar(&opts.sourceMap, "sourcemap", "", "Source map file to map frames through")
	flags.StringArrayVar(&opts.sources, "source", nil, "Script text as url=path, repeatable")
	flags.StringVar(&opts.format, "format", formatTable, "Output format: table or text")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	return rootCmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", args[0])
	}
	return string(data), nil
}

func run(out io.Writer, input string, opts *options) error {
	grips, err := session.NewGripCache(0)
	if err != nil {
		return err
	}
	sessionCtx := session.NewContext("stackparse", grips)
	defer sessionCtx.Close()

	for _, arg := range opts.sources {
		url, path, ok := strings.Cut(arg, "=")
		if !ok || url == "" || path == "" {
			return errors.Errorf("invalid --source %q, want url=path", arg)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read source %s", path)
		}
		sessionCtx.RegisterSource(url, string(content))
	}

	var mapper *sourcemap.Mapper
	if opts.sourceMap != "" {
		raw, err := os.ReadFile(opts.sourceMap)
		if err != nil {
			return errors.Wrapf(err, "failed to read source map %s", opts.sourceMap)
		}
		cfg := config.Default()
		mapper = sourcemap.NewMapper(cfg.Sourcemap.CacheExpiration.Duration, cfg.Sourcemap.CleanupInterval.Duration)
		if _, err := mapper.Register(sourceMapID, raw); err != nil {
			return err
		}
		if _, err := mapper.RegisterSources(sessionCtx, sourceMapID); err != nil {
			return err
		}
	}

	trace := stack.ParseToStackTrace(sourcemap.NormalizeStack(input), sessionCtx)
	if opts.clean {
		trace = stack.CleanStackTraceOfFirebug(trace)
		if trace == nil {
			_, err := fmt.Fprintln(out, "(no frames)")
			return err
		}
	}
	if opts.guess {
		stack.GuessMissingNames(trace)
	}

	if mapper == nil {
		return write(out, opts.format, trace.Frames, trace.String())
	}

	mapped, err := mapper.MapTrace(sourceMapID, trace)
	if err != nil {
		return err
	}
	frames := make([]*stack.StackFrame, 0, len(mapped))
	for _, mf := range mapped {
		frames = append(frames, mf.Frame())
	}
	return write(out, opts.format, frames, sourcemap.FormatWithMetadata(mapped))
}

func write(out io.Writer, format string, frames []*stack.StackFrame, text string) error {
	if format == formatTable {
		return render.Table(out, frames)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
