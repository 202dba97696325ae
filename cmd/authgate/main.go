package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/sessionforge/authgate/internal/app"
	"github.com/sessionforge/authgate/internal/config"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	if errRun := run(os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server.
func run(args []string) error {
	fs := flag.NewFlagSet("authgate", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port override")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	path := strings.TrimSpace(*cfgPath)
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, errLoad := config.Load(config.ResolveConfigPath(path))
	if errLoad != nil {
		return errLoad
	}
	if *port != 0 {
		if errValidate := validatePort(*port); errValidate != nil {
			return errValidate
		}
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.RunServer(ctx, cfg)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
