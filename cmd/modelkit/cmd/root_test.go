package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func projectDir(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modelkit.yaml"), []byte(config), 0o644))
	t.Chdir(dir)
	return dir
}

func TestExecuteArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no args prints help", nil, false},
		{"help flag", []string{"--help"}, false},
		{"version", []string{"version"}, false},
		{"command help", []string{"info", "--help"}, false},
		{"unknown command", []string{"frobnicate"}, true},
		{"bad log level", []string{"--log-level", "loud", "settings"}, true},
		{"missing log level", []string{"--log-level"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExecuteArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInfoCommand(t *testing.T) {
	dir := projectDir(t, "runtime:\n  workers: 2\n")
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 4, 3)

	t.Run("requires a path", func(t *testing.T) {
		assert.Error(t, ExecuteArgs([]string{"info"}))
	})

	t.Run("probes an image", func(t *testing.T) {
		assert.NoError(t, ExecuteArgs([]string{"info", good}))
	})

	t.Run("reports unreadable images once", func(t *testing.T) {
		out := captureStdout(t)
		err := ExecuteArgs([]string{"info", good, filepath.Join(dir, "missing.png")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing.png")
		assert.Contains(t, out.String(), "good.png: 4x3")
		assert.NotContains(t, out.String(), "missing.png")
	})
}

func TestSettingsCommand(t *testing.T) {
	dir := projectDir(t, "settings:\n  files: [viewer.yaml]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "viewer.yaml"), []byte("image_viewer:\n  unit: decimal\n"), 0o644))

	out := captureStdout(t)
	assert.NoError(t, ExecuteArgs([]string{"--log-level=error", "settings"}))
	assert.Contains(t, out.String(), "viewer.yaml")
	assert.Contains(t, out.String(), "unit: decimal")
}

func TestSettingsCommandRejectsBrokenConfig(t *testing.T) {
	projectDir(t, "runtime:\n  workers: -1\n")
	assert.Error(t, ExecuteArgs([]string{"settings"}))
}
