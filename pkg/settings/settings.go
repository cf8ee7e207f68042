// Package settings loads typed settings from layered yaml sources and
// stores them in global slots.
//
// Each settings type is registered under a key. Loading takes the value
// under that key from every source, in order, and merges them: later
// sources win and mappings merge key by key. The merged value is decoded
// into the type and written to the app's global slot for it, so any entity
// can read it with core.Global. Reloading overwrites the global without
// notifying anyone.
//
//	settings.SetDefaultSettings(app, defaultsYAML)
//	settings.Register[imageinfo.ViewerSettings](app, "image_viewer")
//	unit := core.Global[imageinfo.ViewerSettings](app).Unit
package settings

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/errors"
	"github.com/go-drift/modelkit/pkg/logging"
)

const (
	defaultSource = "default"
	userSource    = "user"
)

// Source is one yaml document of settings.
type Source struct {
	Name string
	Data map[string]any
}

// registry is kept as a global so it lives and dies with its App.
type registry struct {
	defaults *Source
	extra    []Source
	user     *Source
	loaders  []loader
}

type loader struct {
	key  string
	load func(a *core.App) error
}

func (r *registry) sources() []Source {
	var out []Source
	if r.defaults != nil {
		out = append(out, *r.defaults)
	}
	out = append(out, r.extra...)
	if r.user != nil {
		out = append(out, *r.user)
	}
	return out
}

func parse(op, name string, data []byte) (Source, error) {
	src := Source{Name: name, Data: map[string]any{}}
	if err := yaml.Unmarshal(data, &src.Data); err != nil {
		return Source{}, errors.New(op, errors.KindSettings, name, err)
	}
	if src.Data == nil {
		src.Data = map[string]any{}
	}
	return src, nil
}

// SetDefaultSettings replaces the lowest precedence source and reloads
// every registered type.
func SetDefaultSettings(a *core.App, data []byte) error {
	src, err := parse("settings.SetDefaultSettings", defaultSource, data)
	if err != nil {
		return err
	}
	r := core.DefaultGlobal[registry](a)
	r.defaults = &src
	return reload(a)
}

// SetUserSettings replaces the highest precedence source and reloads every
// registered type. Invalid yaml leaves the previous user settings in place.
func SetUserSettings(a *core.App, data []byte) error {
	src, err := parse("settings.SetUserSettings", userSource, data)
	if err != nil {
		return err
	}
	r := core.DefaultGlobal[registry](a)
	r.user = &src
	return reload(a)
}

// AddSource adds a source between the defaults and the user settings.
// Sources added later take precedence over earlier ones.
func AddSource(a *core.App, name string, data []byte) error {
	src, err := parse("settings.AddSource", name, data)
	if err != nil {
		return err
	}
	r := core.DefaultGlobal[registry](a)
	r.extra = append(r.extra, src)
	return reload(a)
}

// AddFile reads a yaml file and adds it with AddSource.
func AddFile(a *core.App, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("settings.AddFile", errors.KindSettings, path, err)
	}
	return AddSource(a, filepath.Base(path), data)
}

// Sources returns the current sources in precedence order, lowest first.
func Sources(a *core.App) []Source {
	r, ok := core.TryGlobal[registry](a)
	if !ok {
		return nil
	}
	return r.sources()
}

// Register loads S from the value under key and stores it as a global.
// The type is reloaded whenever a source changes.
func Register[S any](a *core.App, key string) error {
	return register(a, key, func(a *core.App) error {
		v, err := Load[S](a, key)
		if err != nil {
			return err
		}
		core.SetGlobal(a, v)
		return nil
	})
}

// RegisterWithFallback is Register for types that must always be present:
// when the sources cannot be decoded into S, fallback is stored instead
// and the error is reported to the error handler.
func RegisterWithFallback[S any](a *core.App, key string, fallback S) {
	_ = register(a, key, func(a *core.App) error {
		v, err := Load[S](a, key)
		if err != nil {
			var e *errors.Error
			if !stderrors.As(err, &e) {
				e = errors.New("settings.Load", errors.KindSettings, key, err)
			}
			errors.Report(e)
			v = fallback
		}
		core.SetGlobal(a, v)
		return nil
	})
}

func register(a *core.App, key string, load func(a *core.App) error) error {
	r := core.DefaultGlobal[registry](a)
	r.loaders = append(r.loaders, loader{key: key, load: load})
	return load(a)
}

func reload(a *core.App) error {
	r := core.DefaultGlobal[registry](a)
	loaders := append([]loader(nil), r.loaders...)
	var errs []error
	for _, l := range loaders {
		if err := l.load(a); err != nil {
			errs = append(errs, err)
		}
	}
	log := logging.For("settings")
	log.Debug().Int("types", len(loaders)).Int("failed", len(errs)).Msg("reloaded")
	return stderrors.Join(errs...)
}

// Load merges the value under key across all sources and decodes it into
// S. Keys absent from every source leave S's zero value in place.
func Load[S any](a *core.App, key string) (S, error) {
	var out S
	var merged any
	for _, src := range Sources(a) {
		v, ok := src.Data[key]
		if !ok {
			continue
		}
		merged = Merge(merged, v)
	}
	if merged == nil {
		return out, nil
	}
	data, err := yaml.Marshal(merged)
	if err != nil {
		return out, errors.New("settings.Load", errors.KindSettings, key, err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, errors.New("settings.Load", errors.KindSettings, key, fmt.Errorf("decode %T: %w", out, err))
	}
	return out, nil
}

// Merge overlays over onto base. Mappings are merged recursively; any
// other value in over replaces the one in base.
func Merge(base, over any) any {
	bm, ok := base.(map[string]any)
	if !ok {
		return clone(over)
	}
	om, ok := over.(map[string]any)
	if !ok {
		return clone(over)
	}
	out := make(map[string]any, len(bm)+len(om))
	for k, v := range bm {
		out[k] = v
	}
	for k, v := range om {
		out[k] = Merge(out[k], v)
	}
	return out
}

func clone(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}
