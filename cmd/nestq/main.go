package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casualjim/nestq/internal/config"
	"github.com/casualjim/nestq/pkg/slogx"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

var (
	log       zerolog.Logger
	logOutput io.Writer = os.Stderr
	osExit              = os.Exit
)

func init() {
	setupLogging(slog.LevelInfo)
}

func setupLogging(level slog.Level) {
	output := zerolog.ConsoleWriter{Out: logOutput, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

const usage = `usage: nestq <command> [flags]

commands:
  nearest      find the closest candidate for every coordinate task
  graphs       keep the graphs that are valid dependency graphs
  gen-coords   write a random coordinates file
  gen-graphs   write a random graphs file

Settings also come from NESTQ_* environment variables and a .env file.
Run "nestq <command> -h" for the flags of a command.
`

var errUsage = errors.New("usage")

type command func(ctx context.Context, cfg config.Config, stdout io.Writer) error

var commands = map[string]command{
	"nearest":    runNearest,
	"graphs":     runGraphs,
	"gen-coords": runGenCoords,
	"gen-graphs": runGenGraphs,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			slog.Error("nestq failed", slogx.Error(err))
		}
		stop()
		osExit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(logOutput, usage)
		return errUsage
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(logOutput, "unknown command %q\n\n%s", name, usage)
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(logOutput)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	setupLogging(level)

	slog.Debug("running command", slogx.LoggerName("nestq"), slog.String("command", name))
	return cmd(ctx, cfg, stdout)
}
