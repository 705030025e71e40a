package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Radbuglet/cfgenius"
)

func main() {
	app := &cli.App{
		Name:      "cfgenius",
		Usage:     "expand cond!/cond_expr!/define! conditional-compilation directives",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML compilation configuration `FILE`",
			},
			&cli.BoolFlag{
				Name:  "host",
				Usage: "start from the host toolchain's configuration",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "add a `KEY=VALUE` pair to the configuration (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "flag",
				Usage: "add a bare `NAME` flag to the configuration (repeatable)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write output to `FILE` instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail on unrecognized name!{...} directives instead of passing them through",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "log format: text or json",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := newLogger(c.String("log-level"), c.String("log-format"), os.Stderr)

	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	policy := cfgenius.UnknownPassthrough
	if c.Bool("strict") {
		policy = cfgenius.UnknownError
	}
	engine := cfgenius.NewEngine(cfg, cfgenius.NewRegistry())
	proc := cfgenius.NewProcessor(engine,
		cfgenius.WithUnknownPolicy(policy),
		cfgenius.WithSink(cfgenius.EventSinkFunc(func(ev cfgenius.Event) {
			switch ev := ev.(type) {
			case cfgenius.ExpandEvent:
				logger.Debug("expanded directive", "form", ev.Directive, "pos", ev.Pos.String())
			case cfgenius.DefineEvent:
				logger.Debug("defined variables", "names", ev.Names, "pos", ev.Pos.String())
			case cfgenius.UnknownDirectiveEvent:
				logger.Warn("unknown directive passed through", "name", ev.Name, "pos", ev.Pos.String())
			}
		})))

	out := io.Writer(os.Stdout)
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if c.NArg() == 0 {
		logger.Debug("processing stdin")
		return proc.Process(os.Stdin, out)
	}
	for _, path := range c.Args().Slice() {
		logger.Debug("processing file", "path", path)
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if err := proc.Process(f, out); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
		f.Close()
	}
	return nil
}

// buildConfig assembles the compilation configuration from the config file,
// the host defaults, and the --flag/--set overrides, in that order.
func buildConfig(c *cli.Context) (*cfgenius.Config, error) {
	var cfg *cfgenius.Config
	switch {
	case c.String("config") != "":
		loaded, err := cfgenius.LoadConfig(c.String("config"))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case c.Bool("host"):
		cfg = cfgenius.HostConfig()
	default:
		cfg = cfgenius.NewConfig()
	}

	for _, name := range c.StringSlice("flag") {
		cfg.Set(name)
	}
	for _, pair := range c.StringSlice("set") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected KEY=VALUE", pair)
		}
		cfg.SetValue(key, strings.Trim(value, `"`))
	}
	return cfg, nil
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}
