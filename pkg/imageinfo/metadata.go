package imageinfo

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	// Decoders registered with image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Metadata describes an image file without decoding its pixels.
type Metadata struct {
	Width     uint32
	Height    uint32
	FileSize  uint64
	Format    string
	ColorType string
}

// Probe reads the image header from r. size is the file size in bytes.
func Probe(r io.Reader, size uint64) (Metadata, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("probe image: %w", err)
	}
	return Metadata{
		Width:     uint32(cfg.Width),
		Height:    uint32(cfg.Height),
		FileSize:  size,
		Format:    format,
		ColorType: colorType(cfg.ColorModel),
	}, nil
}

// ProbeFile reads the metadata of the image at path.
func ProbeFile(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Metadata{}, err
	}
	return Probe(f, uint64(info.Size()))
}

func colorType(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "Paletted"
	}
	switch m {
	case color.RGBAModel:
		return "RGBA8"
	case color.RGBA64Model:
		return "RGBA16"
	case color.NRGBAModel:
		return "NRGBA8"
	case color.NRGBA64Model:
		return "NRGBA16"
	case color.GrayModel:
		return "Gray8"
	case color.Gray16Model:
		return "Gray16"
	case color.AlphaModel:
		return "Alpha8"
	case color.Alpha16Model:
		return "Alpha16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "NYCbCrA"
	case color.CMYKModel:
		return "CMYK"
	}
	return ""
}
