package imageinfo

import (
	"strings"

	"github.com/go-drift/modelkit/pkg/core"
	"github.com/go-drift/modelkit/pkg/settings"
)

// RegisterSettings registers ViewerSettings. Settings that cannot be
// decoded fall back to binary units.
func RegisterSettings(a *core.App) {
	settings.RegisterWithFallback(a, SettingsKey, ViewerSettings{Unit: Binary})
}

// UnitFor returns the configured file size unit, Binary when unset.
func UnitFor(a *core.App) FileSizeUnit {
	if s, ok := core.TryGlobal[ViewerSettings](a); ok {
		return s.Unit
	}
	return Binary
}

// Info is a status item describing the active image.
type Info struct {
	meta    *Metadata
	active  core.EntityID
	observe *core.Subscription
}

// NewInfo creates an Info with no active image.
func NewInfo(cx core.Context) (*core.Model[Info], error) {
	return core.BuildModel(cx, func(mc *core.ModelContext[Info]) Info {
		mc.OnRelease(func(v *Info, _ *core.App) {
			v.observe.Unsubscribe()
		})
		return Info{}
	})
}

// SetActiveItem makes item the image described by info and follows its
// changes. A nil item clears the description.
func SetActiveItem(cx core.Context, info *core.Model[Info], item *core.Model[ImageItem]) error {
	return info.Update(cx, func(v *Info, mc *core.ModelContext[Info]) {
		v.observe.Unsubscribe()
		v.observe = nil
		v.active = 0
		if item == nil {
			v.meta = nil
			return
		}
		v.active = item.EntityID()
		v.updateMetadata(mc, item)
		v.observe = core.ObserveModel(mc, item, func(this *Info, item *core.Model[ImageItem], mc *core.ModelContext[Info]) {
			this.updateMetadata(mc, item)
		})
	})
}

func (v *Info) updateMetadata(mc *core.ModelContext[Info], item *core.Model[ImageItem]) {
	meta, err := core.ReadModel(mc, item, func(it *ImageItem, _ *core.App) *Metadata {
		if it.Meta == nil {
			return nil
		}
		m := *it.Meta
		return &m
	})
	if err != nil {
		meta = nil
	}
	v.meta = meta
	mc.Notify()
}

// Metadata returns the metadata of the active image, if known.
func (v *Info) Metadata() (Metadata, bool) {
	if v.meta == nil {
		return Metadata{}, false
	}
	return *v.meta, true
}

// ActiveItem returns the id of the active image, or zero.
func (v *Info) ActiveItem() core.EntityID {
	return v.active
}

// Text renders the description as "WxH • size • color • format",
// skipping unknown parts. It is empty when there is no metadata.
func (v *Info) Text(unit FileSizeUnit) string {
	if v.meta == nil {
		return ""
	}
	var parts []string
	if v.meta.Width > 0 && v.meta.Height > 0 {
		parts = append(parts, formatDimensions(v.meta.Width, v.meta.Height))
	}
	parts = append(parts, FormatFileSize(v.meta.FileSize, unit))
	if v.meta.ColorType != "" {
		parts = append(parts, v.meta.ColorType)
	}
	if v.meta.Format != "" {
		parts = append(parts, v.meta.Format)
	}
	return strings.Join(parts, " • ")
}

// Text renders info using the unit from the app's settings.
func Text(cx core.Context, info *core.Model[Info]) (string, error) {
	return core.ReadModel(cx, info, func(v *Info, a *core.App) string {
		return v.Text(UnitFor(a))
	})
}
