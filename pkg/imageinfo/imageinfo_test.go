package imageinfo

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/settings"
	modeltest "github.com/go-drift/modelkit/pkg/testing"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		size uint64
		unit FileSizeUnit
		want string
	}{
		{0, Binary, "0B"},
		{1023, Binary, "1023B"},
		{1024, Binary, "1.0KB"},
		{1536, Binary, "1.5KB"},
		{1024 * 1024, Binary, "1.0MB"},
		{999, Decimal, "999B"},
		{1000, Decimal, "1.0KB"},
		{1024, Decimal, "1.0KB"},
		{2_500_000, Decimal, "2.5MB"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatFileSize(c.size, c.unit), "%d %s", c.size, c.unit)
	}
}

func TestFileSizeUnit_YAML(t *testing.T) {
	var s ViewerSettings
	require.NoError(t, yaml.Unmarshal([]byte("unit: decimal\n"), &s))
	assert.Equal(t, Decimal, s.Unit)

	assert.Error(t, yaml.Unmarshal([]byte("unit: nibbles\n"), &s))

	out, err := yaml.Marshal(ViewerSettings{Unit: Binary})
	require.NoError(t, err)
	assert.Equal(t, "unit: binary\n", string(out))

	var zero ViewerSettings
	assert.Equal(t, Binary, zero.Unit)
}

func TestProbe(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewPaletted(image.Rect(0, 0, 3, 2), color.Palette{color.Black, color.White})
	require.NoError(t, gif.Encode(&buf, img, nil))

	meta, err := Probe(bytes.NewReader(buf.Bytes()), uint64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, Metadata{Width: 3, Height: 2, FileSize: uint64(buf.Len()), Format: "gif", ColorType: "Paletted"}, meta)

	_, err = Probe(bytes.NewReader([]byte("not an image")), 12)
	assert.Error(t, err)
}

func TestProbeFile(t *testing.T) {
	path := writePNG(t, 4, 5)
	meta, err := ProbeFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), meta.Width)
	assert.Equal(t, uint32(5), meta.Height)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, "NRGBA8", meta.ColorType)
	assert.NotZero(t, meta.FileSize)
}

func TestInfo_FollowsActiveItem(t *testing.T) {
	app := modeltest.NewTestAppWithT(t)
	RegisterSettings(app.App)

	item, err := OpenImage(app, writePNG(t, 16, 9))
	require.NoError(t, err)
	loaded := modeltest.RecordEvents[ImageItem, Loaded](app, item)

	info, err := NewInfo(app)
	require.NoError(t, err)
	changes := modeltest.CountNotifications(app, info)
	require.NoError(t, SetActiveItem(app, info, item))

	text, err := Text(app, info)
	require.NoError(t, err)
	assert.Empty(t, text, "nothing is known before the probe finishes")

	app.RunUntilParked()
	require.Len(t, loaded.Events(), 1)
	require.NoError(t, loaded.Events()[0].Err)

	text, err = Text(app, info)
	require.NoError(t, err)
	meta, err := core.ReadModel(app, item, func(it *ImageItem, _ *core.App) Metadata { return *it.Meta })
	require.NoError(t, err)
	assert.Equal(t, "16x9 • "+FormatFileSize(meta.FileSize, Binary)+" • NRGBA8 • png", text)
	assert.GreaterOrEqual(t, changes.Count(), 2)

	require.NoError(t, SetActiveItem(app, info, nil))
	text, err = Text(app, info)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestInfo_UsesConfiguredUnit(t *testing.T) {
	app := modeltest.NewTestAppWithT(t)
	RegisterSettings(app.App)
	require.NoError(t, settings.SetUserSettings(app.App, []byte("image_viewer:\n  unit: decimal\n")))
	assert.Equal(t, Decimal, UnitFor(app.App))

	v := &Info{meta: &Metadata{Width: 2, Height: 2, FileSize: 1_500_000, Format: "png"}}
	assert.Equal(t, "2x2 • 1.5MB • png", v.Text(UnitFor(app.App)))
	assert.Equal(t, "2x2 • 1.4MB • png", v.Text(Binary))
}

func TestOpenImage_MissingFile(t *testing.T) {
	app := modeltest.NewTestAppWithT(t)
	item, err := OpenImage(app, filepath.Join(t.TempDir(), "missing.png"))
	require.NoError(t, err)

	app.RunUntilParked()
	failed, err := core.ReadModel(app, item, func(it *ImageItem, _ *core.App) bool {
		return !it.Loading() && it.Err != nil && it.Meta == nil
	})
	require.NoError(t, err)
	assert.True(t, failed)
}

func TestOpenImage_ReleaseCancelsProbe(t *testing.T) {
	app := modeltest.NewTestAppWithT(t)
	item, err := OpenImage(app, writePNG(t, 1, 1))
	require.NoError(t, err)
	var task interface{ Cancelled() bool }
	require.NoError(t, item.Read(app, func(it *ImageItem) { task = it.load }))

	item.Release()
	app.RunUntilParked()

	assert.True(t, task.Cancelled())
	assert.Zero(t, app.EntityCount())
}
