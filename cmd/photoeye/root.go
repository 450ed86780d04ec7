package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/photoeye/internal/client"
)

// Exit codes let scripts tell the error classes apart.
const (
	exitFailure       = 1
	exitInvalid       = 2
	exitNoImagery     = 3
	exitTransient     = 4
	exitNotConfigured = 5
)

type rootOptions struct {
	server  string
	user    string
	timeout time.Duration
	legacy  bool
}

func (o *rootOptions) client() *client.Client {
	opts := client.Options{
		BaseURL: o.server,
		UserID:  o.user,
		Timeout: o.timeout,
	}
	if o.legacy {
		opts.CapturePath = client.LegacyCapturePath
	}
	return client.New(opts)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "photoeye",
		Short:         "Capture Street View images and look up places through a PhotoEye server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("PHOTOEYE_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "PhotoEye server base URL (env PHOTOEYE_SERVER)")
	root.PersistentFlags().StringVar(&opts.user, "user", os.Getenv("PHOTOEYE_USER"), "User id sent as X-User-ID (env PHOTOEYE_USER)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&opts.legacy, "legacy", false, "Use the /api/streetview-preview capture path")

	root.AddCommand(
		NewCaptureCommand(opts),
		NewRandomCommand(opts),
		NewPlaceCommand(opts),
		NewGeocodeCommand(opts),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, client.ErrInvalidRequest):
		return exitInvalid
	case errors.Is(err, client.ErrNoImagery), errors.Is(err, client.ErrNotFound):
		return exitNoImagery
	case errors.Is(err, client.ErrTransient):
		return exitTransient
	case errors.Is(err, client.ErrNotConfigured):
		return exitNotConfigured
	default:
		return exitFailure
	}
}
