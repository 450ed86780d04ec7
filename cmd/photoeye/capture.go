package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samirrijal/photoeye/internal/client"
	"github.com/samirrijal/photoeye/internal/core/domain"
)

type captureOptions struct {
	view    domain.ViewParameters
	size    string
	format  string
	output  string
	dataURL bool
}

// NewCaptureCommand captures one view and writes it to a file.
func NewCaptureCommand(root *rootOptions) *cobra.Command {
	opts := &captureOptions{}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the view at a position and save the image",
		Example: `  photoeye capture --lat 48.8584 --lng 2.2945 --heading 152 --zoom 1
  photoeye capture --lat 40.6892 --lng -74.0445 -o liberty.jpg`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCapture(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.view.Lat, "lat", 0, "Latitude")
	f.Float64Var(&opts.view.Lng, "lng", 0, "Longitude")
	f.Float64Var(&opts.view.Heading, "heading", 0, "Heading in degrees")
	f.Float64Var(&opts.view.Pitch, "pitch", 0, "Pitch in degrees")
	f.Float64Var(&opts.view.Zoom, "zoom", 0, "Viewer zoom level")
	f.StringVar(&opts.size, "size", "", "Image size WxH (default 640x640)")
	f.StringVar(&opts.format, "format", "", "Image format: jpg or png")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default streetview-<timestamp>.<ext>)")
	f.BoolVar(&opts.dataURL, "data-url", false, "Use the base64 data-url endpoint")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

func runCapture(cmd *cobra.Command, root *rootOptions, opts *captureOptions) error {
	c := root.client()
	defer c.Close()

	captureOpts := domain.CaptureOptions{Size: opts.size, Format: domain.ImageFormat(opts.format)}
	if err := (domain.CaptureRequest{ViewParameters: opts.view, CaptureOptions: captureOpts}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", client.ErrInvalidRequest, err)
	}

	var (
		capture *client.Capture
		err     error
	)
	if opts.dataURL {
		capture, err = c.CaptureDataURL(cmd.Context(), opts.view, captureOpts)
	} else {
		capture, err = c.Capture(cmd.Context(), opts.view, captureOpts)
	}
	if err != nil {
		return err
	}
	defer capture.Release()

	path := opts.output
	if path == "" {
		path = fmt.Sprintf("streetview-%d.%s", capture.Metadata.CapturedAt.UnixMilli(), capture.Extension())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, capture.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "saved", path)
	return printJSON(cmd.OutOrStdout(), capture.Metadata)
}
