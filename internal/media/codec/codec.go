// Package codec transcodes arbitrary uploaded images to lossy WebP. It is
// pure: no I/O, no shared state, safe for concurrent use.
package codec

import (
	"bytes"
	"image"
	"image/draw"

	"github.com/chai2010/webp"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TargetMIME is the content type of every successful transcode, regardless
// of the input format.
const TargetMIME = "image/webp"

// quality is fixed; the target codec is not client-configurable.
const quality = 80

// Transcode decodes raw as an image, normalizes its color mode and
// re-encodes it as lossy WebP. Inputs with transparency keep their alpha
// channel; opaque inputs are encoded as three-channel RGB so they never
// gain a spurious alpha channel.
func Transcode(raw []byte) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", &Error{Op: "decode", Err: err}
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	var encoded []byte
	if hasAlpha(src) {
		encoded, err = webp.EncodeRGBA(rgba, quality)
	} else {
		encoded, err = webp.EncodeRGB(rgba, quality)
	}
	if err != nil {
		return nil, "", &Error{Op: "encode", Err: err}
	}

	return encoded, TargetMIME, nil
}

// hasAlpha reports whether the decoded image can carry transparency.
// Paletted images count as transparent when any palette entry is, matching
// how indexed formats like GIF express it.
func hasAlpha(m image.Image) bool {
	if o, ok := m.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// Error is the single classified failure of this package. The underlying
// decoder or encoder error is wrapped, never surfaced as-is.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "transcode " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
