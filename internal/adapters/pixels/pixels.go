// Package pixels decodes raw image bytes into the grayscale grid the
// fingerprint engine consumes.
package pixels

import (
	"bytes"
	"fmt"
	"image"

	// Registered decoders. The fingerprint engine itself never touches
	// image bytes; everything decodable here is fingerprintable.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/okian/wallarena/internal/domain/fingerprint"
)

// Option applies a configuration option to the Decoder.
type Option func(*Decoder)

// WithScaler overrides the downsampling kernel.
func WithScaler(scaler draw.Scaler) Option {
	return func(d *Decoder) {
		if scaler != nil {
			d.scaler = scaler
		}
	}
}

// Decoder turns image bytes into 9x8 grayscale grids. It is stateless and
// safe for concurrent use across backfill workers.
type Decoder struct {
	scaler draw.Scaler
}

// New creates a Decoder with configuration options.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		scaler: draw.CatmullRom,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Grid decodes data and downsamples it to the fingerprint grid. Corrupt or
// unsupported input yields ErrUnsupportedFormat so batch callers can skip
// the item and continue.
func (d *Decoder) Grid(data []byte) (fingerprint.Gray, error) {
	var g fingerprint.Gray

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return g, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	if img.Bounds().Empty() {
		return g, fmt.Errorf("%w: empty image", ErrUnsupportedFormat)
	}

	dst := image.NewGray(image.Rect(0, 0, fingerprint.GridWidth, fingerprint.GridHeight))
	d.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	for y := 0; y < fingerprint.GridHeight; y++ {
		for x := 0; x < fingerprint.GridWidth; x++ {
			g[y][x] = dst.GrayAt(x, y).Y
		}
	}
	return g, nil
}
