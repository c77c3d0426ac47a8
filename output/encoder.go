package output

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Encoder turns an RGB buffer into an image file.
type Encoder interface {
	// Name returns the format name, e.g. "png".
	Name() string

	// Encode encodes width*height*3 row-major RGB bytes.
	Encode(pixels []byte, width, height int) ([]byte, error)
}

// Format names accepted by EncoderByName.
const (
	FormatPNG  = "png"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

type pngEncoder struct{}

func (pngEncoder) Name() string { return FormatPNG }

func (pngEncoder) Encode(pixels []byte, width, height int) ([]byte, error) {
	return encodeWith(pixels, width, height, func(buf *bytes.Buffer, img image.Image) error {
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(buf, img)
	})
}

type bmpEncoder struct{}

func (bmpEncoder) Name() string { return FormatBMP }

func (bmpEncoder) Encode(pixels []byte, width, height int) ([]byte, error) {
	return encodeWith(pixels, width, height, func(buf *bytes.Buffer, img image.Image) error {
		return bmp.Encode(buf, img)
	})
}

type tiffEncoder struct{}

func (tiffEncoder) Name() string { return FormatTIFF }

func (tiffEncoder) Encode(pixels []byte, width, height int) ([]byte, error) {
	return encodeWith(pixels, width, height, func(buf *bytes.Buffer, img image.Image) error {
		return tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	})
}

// PNG returns the PNG encoder.
func PNG() Encoder { return pngEncoder{} }

// BMP returns the BMP encoder.
func BMP() Encoder { return bmpEncoder{} }

// TIFF returns the TIFF encoder.
func TIFF() Encoder { return tiffEncoder{} }

// EncoderByName returns the encoder for a format name. The empty name selects PNG.
func EncoderByName(name string) (Encoder, error) {
	switch strings.ToLower(name) {
	case "", FormatPNG:
		return PNG(), nil
	case FormatBMP:
		return BMP(), nil
	case FormatTIFF, "tif":
		return TIFF(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// EncoderForPath selects an encoder from the file extension of path. A path
// without extension is written as PNG.
func EncoderForPath(path string) (Encoder, error) {
	return EncoderByName(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ToImage wraps an RGB buffer as an opaque image.RGBA.
func ToImage(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*3 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrPixelCount, len(pixels), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pixels); i, j = i+3, j+4 {
		img.Pix[j] = pixels[i]
		img.Pix[j+1] = pixels[i+1]
		img.Pix[j+2] = pixels[i+2]
		img.Pix[j+3] = 0xff
	}

	return img, nil
}

func encodeWith(pixels []byte, width, height int, enc func(*bytes.Buffer, image.Image) error) ([]byte, error) {
	img, err := ToImage(pixels, width, height)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}
