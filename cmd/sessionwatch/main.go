package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/sessionforge/authgate/internal/config"
	"github.com/sessionforge/authgate/internal/identity"
	"github.com/sessionforge/authgate/internal/monitor"
)

// main runs the client-side session watcher: it signs in against the identity
// provider, keeps the token fresh, and mirrors the session into the server.
func main() {
	if errRun := run(os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("sessionwatch failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("sessionwatch", flag.ContinueOnError)
	serverURL := fs.String("server", "http://127.0.0.1:8318", "authgate server base URL")
	identityURL := fs.String("identity", os.Getenv(config.EnvIdentityURL), "identity provider base URL")
	identityKey := fs.String("identity-key", os.Getenv(config.EnvIdentityAPIKey), "identity provider API key")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("SESSIONWATCH_PASSWORD"), "account password (or env SESSIONWATCH_PASSWORD)")
	deviceID := fs.String("device", "", "device id (generated when empty)")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if *identityURL == "" {
		return errors.New("missing identity provider url")
	}
	if *email == "" || *password == "" {
		return errors.New("missing email or password")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := identity.NewSessionClient(identity.NewClient(*identityURL, *identityKey))
	watcher := monitor.New(provider, monitor.NewAPIClient(*serverURL), monitor.Options{DeviceID: *deviceID})

	// Start first so the signed-in event reaches the monitor's subscription.
	watcher.Start()
	defer watcher.Stop()

	if _, errSignIn := provider.SignIn(ctx, *email, *password); errSignIn != nil {
		return errSignIn
	}
	log.WithField("device", watcher.DeviceID()).Info("session watcher running")

	<-ctx.Done()

	signOutCtx := context.Background()
	if errSignOut := provider.SignOut(signOutCtx); errSignOut != nil {
		log.WithError(errSignOut).Warn("provider sign-out failed")
	}
	return nil
}
