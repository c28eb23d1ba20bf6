package pixels_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/okian/wallarena/internal/adapters/pixels"
	"github.com/okian/wallarena/internal/domain/fingerprint"
	. "github.com/smartystreets/goconvey/convey"
)

// gradientPNG renders a horizontal gradient, bright on the left.
func gradientPNG(w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(255 - x*255/w)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestGrid(t *testing.T) {
	Convey("Given a pixel decoder", t, func() {
		decoder := pixels.New()

		Convey("When decoding a valid PNG", func() {
			g, err := decoder.Grid(gradientPNG(512, 384))

			Convey("Then it should produce a fingerprintable grid", func() {
				So(err, ShouldBeNil)
				hash := fingerprint.FromGray(g)
				So(len(hash), ShouldEqual, fingerprint.HexLen)
				// Bright-left gradient: every left pixel beats its neighbor.
				So(hash, ShouldEqual, "ffffffffffffffff")
			})
		})

		Convey("When decoding the same bytes twice", func() {
			data := gradientPNG(640, 480)
			g1, err1 := decoder.Grid(data)
			g2, err2 := decoder.Grid(data)

			Convey("Then the result should be deterministic", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(fingerprint.FromGray(g1), ShouldEqual, fingerprint.FromGray(g2))
			})
		})

		Convey("When the image is recompressed at a different size", func() {
			small, err1 := decoder.Grid(gradientPNG(256, 192))
			large, err2 := decoder.Grid(gradientPNG(1024, 768))

			Convey("Then the fingerprints should stay close", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				d := fingerprint.Distance(fingerprint.FromGray(small), fingerprint.FromGray(large))
				So(d, ShouldBeLessThanOrEqualTo, 10)
			})
		})

		Convey("When decoding garbage bytes", func() {
			_, err := decoder.Grid([]byte("not an image at all"))

			Convey("Then it should signal an unsupported format", func() {
				So(errors.Is(err, pixels.ErrUnsupportedFormat), ShouldBeTrue)
			})
		})

		Convey("When decoding empty input", func() {
			_, err := decoder.Grid(nil)

			Convey("Then it should signal an unsupported format", func() {
				So(errors.Is(err, pixels.ErrUnsupportedFormat), ShouldBeTrue)
			})
		})
	})
}
