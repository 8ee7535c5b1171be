package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const (
	// maxPixels rejects decompression bombs before the pixel data is decoded.
	maxPixels = 50_000_000
	// sampleGrid is the number of samples per axis used for the lightness estimate.
	sampleGrid = 64
)

// Preprocessor validates image payloads and prepares them for recognition.
type Preprocessor struct {
	// Enabled turns on normalisation. When false, payloads are only validated.
	Enabled bool
	// MinWidth is the width small images are upscaled to.
	MinWidth int
	// Contrast is the bild contrast change applied after grayscale, in [-1, 1].
	Contrast float64
	// Binarize applies a fixed threshold after contrast.
	Binarize bool
}

func NewPreprocessor(enabled, binarize bool) *Preprocessor {
	return &Preprocessor{
		Enabled:  enabled,
		MinWidth: 1200,
		Contrast: 0.25,
		Binarize: binarize,
	}
}

// Decode checks the payload's dimensions and decodes it. Empty, unknown or
// truncated payloads fail with MalformedInput.
func (p *Preprocessor) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", domain.NewMalformedInputError("empty payload", nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", domain.NewMalformedInputError("unrecognised image format", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", domain.NewMalformedInputError("image has no pixels", nil)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, "", domain.NewMalformedInputError(
			fmt.Sprintf("image is %dx%d, larger than %d pixels", cfg.Width, cfg.Height, maxPixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, domain.NewMalformedInputError("corrupt "+format+" data", err)
	}
	return img, format, nil
}

// Prepare validates data and returns the bytes to hand to Tesseract. With
// normalisation disabled the original payload is returned unchanged.
func (p *Preprocessor) Prepare(data []byte) ([]byte, error) {
	img, _, err := p.Decode(data)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return data, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, p.Normalize(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode normalised image: %w", err)
	}
	return buf.Bytes(), nil
}

// Normalize converts img to dark text on a light background at a size
// Tesseract reads well.
func (p *Preprocessor) Normalize(img image.Image) image.Image {
	var out image.Image = imaging.Grayscale(img)

	if w := out.Bounds().Dx(); p.MinWidth > 0 && w < p.MinWidth {
		out = imaging.Resize(out, p.MinWidth, 0, imaging.Lanczos)
	}

	if meanLightness(out) < 0.5 {
		out = effect.Invert(out)
	}

	if p.Contrast != 0 {
		out = adjust.Contrast(out, p.Contrast)
	}

	if p.Binarize {
		out = segment.Threshold(out, 128)
	}
	return out
}

// meanLightness estimates the average CIE L* of img in [0, 1] from a grid of samples.
func meanLightness(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 1
	}

	stepX := max(b.Dx()/sampleGrid, 1)
	stepY := max(b.Dy()/sampleGrid, 1)

	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			sum += lightness(img.At(x, y))
			n++
		}
	}
	return sum / float64(n)
}

func lightness(c color.Color) float64 {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		// fully transparent pixels read as background
		return 1
	}
	l, _, _ := cf.Lab()
	return l
}
