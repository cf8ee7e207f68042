package imageinfo

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SettingsKey is the settings key of ViewerSettings.
const SettingsKey = "image_viewer"

// FileSizeUnit selects how file sizes are displayed.
type FileSizeUnit int

const (
	// Binary uses powers of 1024.
	Binary FileSizeUnit = iota
	// Decimal uses powers of 1000.
	Decimal
)

func (u FileSizeUnit) String() string {
	switch u {
	case Decimal:
		return "decimal"
	default:
		return "binary"
	}
}

// ParseFileSizeUnit parses "binary" or "decimal".
func ParseFileSizeUnit(s string) (FileSizeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary":
		return Binary, nil
	case "decimal":
		return Decimal, nil
	default:
		return Binary, fmt.Errorf("unknown file size unit %q", s)
	}
}

// MarshalYAML encodes the unit as its name.
func (u FileSizeUnit) MarshalYAML() (any, error) {
	return u.String(), nil
}

// UnmarshalYAML decodes a unit name.
func (u *FileSizeUnit) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFileSizeUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ViewerSettings are the image viewer's settings, stored as a global.
type ViewerSettings struct {
	Unit FileSizeUnit `yaml:"unit"`
}

// FormatFileSize renders size in bytes using unit.
func FormatFileSize(size uint64, unit FileSizeUnit) string {
	base := 1024.0
	if unit == Decimal {
		base = 1000.0
	}
	switch s := float64(size); {
	case s < base:
		return fmt.Sprintf("%dB", size)
	case s < base*base:
		return fmt.Sprintf("%.1fKB", s/base)
	default:
		return fmt.Sprintf("%.1fMB", s/(base*base))
	}
}

func formatDimensions(width, height uint32) string {
	return fmt.Sprintf("%dx%d", width, height)
}
