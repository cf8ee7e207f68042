package settings

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
	"github.com/go-drift/modelkit/pkg/logging"
)

type editorSettings struct {
	TabSize int            `yaml:"tab_size"`
	Theme   string         `yaml:"theme"`
	Fonts   map[string]int `yaml:"fonts"`
}

func newApp(t *testing.T) *core.App {
	t.Helper()
	a := core.NewApp(core.WithDispatcher(dispatch.NewTestDispatcher(0)))
	t.Cleanup(a.Quit)
	return a
}

const defaults = `
editor:
  tab_size: 4
  theme: light
  fonts:
    ui: 12
    buffer: 14
other:
  ignored: true
`

func TestRegister_MergesSourcesInOrder(t *testing.T) {
	a := newApp(t)
	require.NoError(t, SetDefaultSettings(a, []byte(defaults)))
	require.NoError(t, AddSource(a, "project", []byte("editor:\n  theme: dark\n  fonts:\n    buffer: 16\n")))
	require.NoError(t, SetUserSettings(a, []byte("editor:\n  tab_size: 2\n")))

	require.NoError(t, Register[editorSettings](a, "editor"))
	got := core.Global[editorSettings](a)
	assert.Equal(t, editorSettings{
		TabSize: 2,
		Theme:   "dark",
		Fonts:   map[string]int{"ui": 12, "buffer": 16},
	}, *got)

	names := make([]string, 0, 3)
	for _, src := range Sources(a) {
		names = append(names, src.Name)
	}
	assert.Equal(t, []string{"default", "project", "user"}, names)
}

func TestSetUserSettings_ReloadsWithoutNotifying(t *testing.T) {
	a := newApp(t)
	require.NoError(t, SetDefaultSettings(a, []byte(defaults)))
	require.NoError(t, Register[editorSettings](a, "editor"))
	assert.Equal(t, 4, core.Global[editorSettings](a).TabSize)

	require.NoError(t, SetUserSettings(a, []byte("editor:\n  tab_size: 8\n")))
	assert.Equal(t, 8, core.Global[editorSettings](a).TabSize)

	err := SetUserSettings(a, []byte("editor: [unclosed"))
	assert.Equal(t, errors.KindSettings, errors.KindOf(err))
	assert.Equal(t, 8, core.Global[editorSettings](a).TabSize)
}

func TestSetUserSettings_LogsReload(t *testing.T) {
	var buf bytes.Buffer
	logging.Apply(logging.Config{Level: zerolog.DebugLevel, Output: &buf, NoColor: true})
	t.Cleanup(func() { logging.Apply(logging.Config{Level: zerolog.Disabled, Output: io.Discard}) })

	a := newApp(t)
	require.NoError(t, SetDefaultSettings(a, []byte(defaults)))
	require.NoError(t, Register[editorSettings](a, "editor"))
	require.NoError(t, SetUserSettings(a, []byte("editor:\n  tab_size: 2\n")))

	assert.Contains(t, buf.String(), "reloaded")
	assert.Contains(t, buf.String(), "component=settings")
}

func TestRegister_MissingKeyGivesZeroValue(t *testing.T) {
	a := newApp(t)
	require.NoError(t, Register[editorSettings](a, "editor"))
	assert.Equal(t, editorSettings{}, *core.Global[editorSettings](a))
}

func TestRegister_DecodeError(t *testing.T) {
	a := newApp(t)
	require.NoError(t, SetDefaultSettings(a, []byte("editor:\n  tab_size: many\n")))
	err := Register[editorSettings](a, "editor")
	assert.Equal(t, errors.KindSettings, errors.KindOf(err))
	assert.False(t, core.HasGlobal[editorSettings](a))
}

func TestRegisterWithFallback(t *testing.T) {
	var reported []*errors.Error
	errors.SetHandler(recordingHandler{errs: &reported})
	t.Cleanup(func() { errors.SetHandler(nil) })

	a := newApp(t)
	require.NoError(t, SetDefaultSettings(a, []byte("editor:\n  tab_size: many\n")))
	RegisterWithFallback(a, "editor", editorSettings{TabSize: 4})

	assert.Equal(t, 4, core.Global[editorSettings](a).TabSize)
	require.Len(t, reported, 1)
	assert.Equal(t, "editor", reported[0].Entity)

	require.NoError(t, SetUserSettings(a, []byte("editor:\n  tab_size: 3\n")))
	assert.Equal(t, 3, core.Global[editorSettings](a).TabSize)
}

func TestAddFile(t *testing.T) {
	a := newApp(t)
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor:\n  theme: solarized\n"), 0o644))

	require.NoError(t, Register[editorSettings](a, "editor"))
	require.NoError(t, AddFile(a, path))
	assert.Equal(t, "solarized", core.Global[editorSettings](a).Theme)

	err := AddFile(a, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMerge(t *testing.T) {
	base := map[string]any{"a": 1, "nested": map[string]any{"x": 1, "y": 2}}
	over := map[string]any{"b": 2, "nested": map[string]any{"y": 3}}

	got := Merge(base, over)
	assert.Equal(t, map[string]any{
		"a":      1,
		"b":      2,
		"nested": map[string]any{"x": 1, "y": 3},
	}, got)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, base["nested"], "inputs are not modified")

	assert.Equal(t, "scalar", Merge(base, "scalar"))
	assert.Equal(t, over, Merge(nil, over))
}

type recordingHandler struct {
	errs *[]*errors.Error
}

func (h recordingHandler) HandleError(err *errors.Error) { *h.errs = append(*h.errs, err) }

func (recordingHandler) HandlePanic(*errors.PanicError) {}
