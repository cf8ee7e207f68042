package imageinfo

import (
	"context"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/executor"
)

// Loaded is emitted by an ImageItem when its metadata has been probed.
type Loaded struct {
	Meta *Metadata
	Err  error
}

// ImageItem is an image opened in the viewer. Its metadata is probed in
// the background after the item is created.
type ImageItem struct {
	Path string
	Meta *Metadata
	Err  error

	loading bool
	load    *executor.Task[struct{}]
}

// Loading reports whether the metadata is still being probed.
func (i *ImageItem) Loading() bool {
	return i.loading
}

// OpenImage creates an ImageItem for path and starts probing it. The item
// notifies its observers and emits Loaded once the probe finishes.
// Releasing the item cancels a probe still in flight.
func OpenImage(cx core.Context, path string) (*core.Model[ImageItem], error) {
	return core.BuildModel(cx, func(mc *core.ModelContext[ImageItem]) ImageItem {
		item := ImageItem{Path: path, loading: true}
		item.load = core.SpawnModel(mc, func(ctx context.Context, this *core.WeakModel[ImageItem], async *core.AsyncApp) (struct{}, error) {
			probe := executor.Spawn(async.Background(), func(ctx context.Context) (Metadata, error) {
				return ProbeFile(path)
			})
			meta, err := executor.Await(ctx, probe)
			if ctx.Err() != nil {
				return struct{}{}, ctx.Err()
			}
			return struct{}{}, this.Update(async.Bind(ctx), func(item *ImageItem, cx *core.ModelContext[ImageItem]) {
				item.loading = false
				item.load = nil
				if err != nil {
					item.Meta, item.Err = nil, err
				} else {
					item.Meta, item.Err = &meta, nil
				}
				cx.Emit(Loaded{Meta: item.Meta, Err: item.Err})
			})
		})
		mc.OnRelease(func(item *ImageItem, _ *core.App) {
			if item.load != nil {
				item.load.Cancel()
			}
		})
		return item
	})
}
