package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/xbview/config"
	"github.com/sambeau/xbview/server"
)

// Version is set at build time via -ldflags
var Version = "0.4.0"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("xbview", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		devMode     = flags.Bool("dev", false, "Development mode (live reload, request log)")
		port        = flags.Int("port", 0, "Override listen port")
		sourceDir   = flags.String("source", "", "Override the listing directory")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "xbview version %s\n", Version)
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configFile, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	if *devMode {
		cfg.Server.Dev = true
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *sourceDir != "" {
		cfg.Source.Dir = *sourceDir
	}

	// Full validation after CLI overrides applied
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	for _, w := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "[WARN] %s\n", w)
	}

	logOut, closeLog, err := logWriter(cfg.Logging.Output, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	srv, err := server.New(cfg, configFile, logOut, stderr)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

// logWriter opens the destination for the request log.
func logWriter(output string, stdout, stderr io.Writer) (io.Writer, func(), error) {
	switch output {
	case "", "stderr":
		return stderr, func() {}, nil
	case "stdout":
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `xbview - A listing browser for TI Extended BASIC

Usage:
  xbview [options]

Options:
  --config PATH    Path to config file (default: auto-detect)
  --dev            Development mode (live reload, request log)
  --port PORT      Override listen port
  --source DIR     Override the listing directory
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. XBVIEW_CONFIG environment variable
  3. ./xbview.yaml
  4. ~/.config/xbview/xbview.yaml
  5. Built-in defaults (listings from the current directory)

Examples:
  xbview                        Browse listings in the current directory
  xbview --dev                  Reload pages when listings change
  xbview --source ~/basic       Browse another directory
  xbview --config site.yaml     Use a specific config file

`)
}
