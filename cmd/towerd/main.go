// Command towerd runs the tower order daemon and its operator subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/exchangetower/tower/internal/config"
	"github.com/exchangetower/tower/internal/daemon"
	"github.com/exchangetower/tower/internal/logging"
	"github.com/exchangetower/tower/internal/setup"
	"github.com/exchangetower/tower/internal/status"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemon(os.Args[2:])
	case "scan":
		runScan(os.Args[2:])
	case "init":
		runInit(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "version":
		fmt.Printf("towerd %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: towerd <command> [options]

Commands:
  daemon    watch the intake directory and process orders continuously
  scan      process the current intake backlog once and exit
  init      create the tower directory layout and default config
  status    show daemon state and queue depths
  version   print the version
  help      show this help

Common options:
  -dir      tower base directory (default ".")
`)
}

func baseDirFlag(fs *flag.FlagSet) *string {
	return fs.String("dir", ".", "tower base directory")
}

// buildDaemon loads config and credentials and assembles the daemon.
func buildDaemon(baseDir string) (*daemon.Daemon, error) {
	layout := daemon.Layout{Base: baseDir}
	cfg, err := config.Load(layout.ConfigPath())
	if err != nil {
		return nil, err
	}
	creds, err := config.LoadCredentials(layout.EnvPath())
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if len(creds) == 0 {
		logger.Warn("no_credentials_configured",
			"hint", "set ALPACA_PAPER_API_KEY / ALPACA_PAPER_API_SECRET or the live pair")
	}
	return daemon.New(baseDir, cfg, creds, logger)
}

func runDaemon(args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	dir := baseDirFlag(fs)
	fs.Parse(args)

	d, err := buildDaemon(*dir)
	if err != nil {
		fatal(err)
	}
	if err := d.Run(); err != nil {
		fatal(err)
	}
}

func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	dir := baseDirFlag(fs)
	fs.Parse(args)

	d, err := buildDaemon(*dir)
	if err != nil {
		fatal(err)
	}
	if err := d.RunOnce(context.Background()); err != nil {
		fatal(err)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dir := baseDirFlag(fs)
	fs.Parse(args)

	if err := setup.Run(*dir); err != nil {
		fatal(err)
	}
	fmt.Printf("initialized tower directory at %s\n", *dir)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dir := baseDirFlag(fs)
	jsonOut := fs.Bool("json", false, "output JSON")
	fs.Parse(args)

	if err := status.Run(*dir, *jsonOut); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "towerd: %v\n", err)
	os.Exit(1)
}
