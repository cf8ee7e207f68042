package cmd

import (
	"github.com/go-drift/modelkit/cmd/modelkit/internal/config"
	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/imageinfo"
	"github.com/go-drift/modelkit/pkg/logging"
	"github.com/go-drift/modelkit/pkg/settings"
)

// defaultSettings is the lowest precedence settings source.
const defaultSettings = `
image_viewer:
  unit: binary
`

// session is an App on a real dispatcher, configured from modelkit.yaml.
type session struct {
	cfg        *config.Resolved
	dispatcher *dispatch.PlatformDispatcher
	app        *core.App
}

func loadConfig() (*config.Resolved, error) {
	root, err := config.FindProjectRoot()
	if err != nil {
		return nil, err
	}
	return config.Resolve(root)
}

func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logLevelOverride == "" {
		logging.SetLevel(cfg.LogLevel)
	}

	var opts []dispatch.Option
	if cfg.Workers > 0 {
		opts = append(opts, dispatch.WithWorkers(cfg.Workers))
	}
	d := dispatch.NewPlatformDispatcher(opts...)
	app := core.NewApp(core.WithDispatcher(d))

	s := &session{cfg: cfg, dispatcher: d, app: app}
	if err := s.loadSettings(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) loadSettings() error {
	if err := settings.SetDefaultSettings(s.app, []byte(defaultSettings)); err != nil {
		return err
	}
	for _, path := range s.cfg.SettingsFiles {
		if err := settings.AddFile(s.app, path); err != nil {
			return err
		}
	}
	imageinfo.RegisterSettings(s.app)
	return nil
}

// Close quits the app and stops the worker pool.
func (s *session) Close() {
	s.app.Quit()
	s.dispatcher.Close()
}
