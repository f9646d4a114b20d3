// Package main is the entry point for the vizview command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dshills/vizview/internal/config"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/view"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	SpecPath   string
	ConfigPath string
	Renderer   string
	Out        string
	LogLevel   string
	Addr       string
	Serve      bool
	Watch      bool
	Terminal   bool
	Dump       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	// A missing .env is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: reading .env: %v\n", err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}
	if opts.Renderer != "" {
		cfg.Renderer = opts.Renderer
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Addr != "" {
		cfg.Live.Addr = opts.Addr
	}
	if opts.Terminal {
		cfg.Renderer = "terminal"
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Level(),
		Output: os.Stderr,
		Prefix: "vizview",
	})

	viewOpts, err := view.OptionsFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	viewOpts = append(viewOpts, view.WithLogger(logger))

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := &session{
		path:   opts.SpecPath,
		opts:   viewOpts,
		logger: logger.WithComponent("cmd"),
	}

	switch {
	case opts.Terminal:
		err = runTerminal(ctx, sess, cfg, opts.Watch)
	case opts.Serve:
		err = runServer(ctx, sess, cfg, opts.Watch)
	default:
		err = runOnce(ctx, sess, opts)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runOnce builds the view, runs it and writes one export.
func runOnce(ctx context.Context, sess *session, opts options) error {
	v, err := sess.build(nil)
	if err != nil {
		return err
	}
	defer v.Finalize()

	if opts.Dump {
		if err := v.Run(ctx); err != nil {
			return err
		}
		return v.Scenegraph().Dump(os.Stdout)
	}

	switch ext := strings.ToLower(filepath.Ext(opts.Out)); ext {
	case "", ".svg":
		markup, err := v.ToSVG(ctx)
		if err != nil {
			return err
		}
		if opts.Out == "" || opts.Out == "-" {
			_, err = fmt.Fprintln(os.Stdout, markup)
			return err
		}
		return os.WriteFile(opts.Out, []byte(markup), 0o644)
	case ".png":
		img, err := v.ToCanvas(ctx)
		if err != nil {
			return err
		}
		f, err := os.Create(opts.Out)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case ".url":
		uri, err := v.ToImageURL(ctx, view.ImagePNG)
		if err != nil {
			return err
		}
		return os.WriteFile(opts.Out, []byte(uri+"\n"), 0o644)
	default:
		return fmt.Errorf("unsupported output type %q", ext)
	}
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.Renderer, "renderer", "", "Renderer type (canvas, svg, terminal, none)")
	flag.StringVar(&opts.Renderer, "r", "", "Renderer type (shorthand)")
	flag.StringVar(&opts.Out, "out", "", "Output file (.svg, .png or .url); SVG to stdout when empty")
	flag.StringVar(&opts.Out, "o", "", "Output file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.Addr, "addr", "", "Live preview address")
	flag.BoolVar(&opts.Serve, "serve", false, "Serve a live preview over HTTP")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload the spec when it changes")
	flag.BoolVar(&opts.Watch, "w", false, "Reload the spec when it changes (shorthand)")
	flag.BoolVar(&opts.Terminal, "term", false, "Draw the view in the terminal")
	flag.BoolVar(&opts.Dump, "dump", false, "Print the scene graph and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "vizview - reactive view runtime\n\n")
		fmt.Fprintf(os.Stderr, "Usage: vizview [options] spec-file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  vizview bars.json                 Print SVG to stdout\n")
		fmt.Fprintf(os.Stderr, "  vizview -o bars.png bars.yaml     Rasterise to PNG\n")
		fmt.Fprintf(os.Stderr, "  vizview -serve -w bars.toml       Live preview with reload\n")
		fmt.Fprintf(os.Stderr, "  vizview -term bars.json           Interactive terminal view\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("vizview %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error", "none":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, error or none)\n", opts.LogLevel)
		os.Exit(1)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.SpecPath = flag.Arg(0)

	return opts
}
