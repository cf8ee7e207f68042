package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/imageinfo"
)

// probeTimeout bounds how long a single image may take to load.
const probeTimeout = 30 * time.Second

func init() {
	RegisterCommand(&Command{
		Name:  "info",
		Short: "Print image metadata",
		Long: `Print the metadata of one or more images.

Each image is opened as an entity, probed on the background executor and
described by the status model, exactly as the viewer does. File sizes use
the unit configured under image_viewer.unit in the settings files.`,
		Usage: "modelkit info <image> [image...]",
		Run:   runInfo,
	})
}

func runInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("info requires at least one image path")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := imageinfo.NewInfo(s.app)
	if err != nil {
		return err
	}
	defer info.Release()

	// Failures are returned together and printed once by Execute.
	var failed []error
	for _, path := range args {
		text, err := s.describe(info, path)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(stdout, "%s: %s\n", path, text)
	}
	return stderrors.Join(failed...)
}

// describe opens path, drives the main lane until the probe reports back
// and renders the status text.
func (s *session) describe(info *core.Model[imageinfo.Info], path string) (string, error) {
	item, err := imageinfo.OpenImage(s.app, path)
	if err != nil {
		return "", err
	}
	defer item.Release()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var result imageinfo.Loaded
	loaded := core.Subscribe(s.app, item, func(_ *core.Model[imageinfo.ImageItem], ev imageinfo.Loaded, _ *core.App) {
		result = ev
		cancel()
	})
	defer loaded.Unsubscribe()

	if err := imageinfo.SetActiveItem(s.app, info, item); err != nil {
		return "", err
	}

	if err := s.dispatcher.RunMain(ctx); stderrors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("timed out after %s", probeTimeout)
	}
	if result.Err != nil {
		return "", result.Err
	}
	return imageinfo.Text(s.app, info)
}
