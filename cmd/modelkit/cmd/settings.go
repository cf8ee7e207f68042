package cmd

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/imageinfo"
	"github.com/go-drift/modelkit/pkg/settings"
)

func init() {
	RegisterCommand(&Command{
		Name:  "settings",
		Short: "Print resolved settings",
		Long: `Print the project configuration and the settings resolved from the
built-in defaults and every file listed under settings.files in
modelkit.yaml, in precedence order.`,
		Usage: "modelkit settings",
		Run:   runSettings,
	})
}

func runSettings(args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(stdout, "Project: %s\n", s.cfg.AppName)
	if s.cfg.ModulePath != "" {
		fmt.Fprintf(stdout, "Module:  %s\n", s.cfg.ModulePath)
	}
	fmt.Fprintf(stdout, "Root:    %s\n", s.cfg.Root)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Sources:")
	for _, src := range settings.Sources(s.app) {
		fmt.Fprintf(stdout, "  %s\n", src.Name)
	}
	fmt.Fprintln(stdout)

	resolved := map[string]any{
		imageinfo.SettingsKey: core.Global[imageinfo.ViewerSettings](s.app),
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(resolved); err != nil {
		return err
	}
	return enc.Close()
}
