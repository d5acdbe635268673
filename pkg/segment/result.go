// Package segment adapts body segmentation backends and holds the latest
// result for the render loop.
package segment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/teslashibe/body-echo/pkg/gesture"
)

// Result is one segmentation output. Mask and Landmarks may each be nil.
type Result struct {
	// Mask is the body opacity, 255 = body. Any resolution.
	Mask *image.Alpha

	// Landmarks are normalized pose points, nil when no person was found.
	Landmarks gesture.Landmarks

	// Seq is the provider's sequence number for the frame.
	Seq uint64

	// At is when the result arrived.
	At time.Time
}

// HasMask reports whether the result carries a mask.
func (r *Result) HasMask() bool {
	return r != nil && r.Mask != nil
}

// MaskFromImage converts any image into an opacity mask: luminance times alpha.
func MaskFromImage(img image.Image) *image.Alpha {
	if a, ok := img.(*image.Alpha); ok {
		return a
	}

	b := img.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			lum := color.GrayModel.Convert(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}).(color.Gray).Y
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = uint8(uint16(lum) * uint16(c.A) / 255)
		}
	}

	return out
}

// DecodeMask decodes a base64 PNG into an opacity mask.
func DecodeMask(b64 string) (*image.Alpha, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode mask base64: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mask png: %w", err)
	}

	return MaskFromImage(img), nil
}

// EncodeMask encodes a mask as base64 PNG.
func EncodeMask(mask *image.Alpha) (string, error) {
	b := mask.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		copy(gray.Pix[gray.PixOffset(b.Min.X, y):], mask.Pix[mask.PixOffset(b.Min.X, y):mask.PixOffset(b.Max.X, y)])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
