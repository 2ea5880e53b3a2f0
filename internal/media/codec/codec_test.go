package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func pngWithAlpha(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
			} else {
				img.Set(x, y, color.RGBA{})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func opaqueImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func opaqueJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, opaqueImage(width, height, color.RGBA{R: 40, G: 120, B: 200, A: 255}), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func opaqueBMP(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, opaqueImage(width, height, color.RGBA{R: 10, G: 200, B: 10, A: 255})))
	return buf.Bytes()
}

func transparentGIF(t *testing.T, width, height int) []byte {
	t.Helper()

	palette := color.Palette{
		color.RGBA{},
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
	}
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetColorIndex(x, y, uint8((x+y)%3))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func decodeWebP(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "webp", format)
	return img
}

func isOpaque(t *testing.T, img image.Image) bool {
	t.Helper()

	o, ok := img.(interface{ Opaque() bool })
	require.True(t, ok, "decoded image should report opacity")
	return o.Opaque()
}

func TestTranscodePreservesTransparency(t *testing.T) {
	encoded, mime, err := Transcode(pngWithAlpha(t, 100, 100))
	require.NoError(t, err)
	require.Equal(t, TargetMIME, mime)

	decoded := decodeWebP(t, encoded)
	require.Equal(t, 100, decoded.Bounds().Dx())
	require.Equal(t, 100, decoded.Bounds().Dy())
	require.False(t, isOpaque(t, decoded), "alpha channel should survive transcoding")
}

func TestTranscodeOpaqueStaysOpaque(t *testing.T) {
	for name, input := range map[string][]byte{
		"jpeg": opaqueJPEG(t, 64, 48),
		"bmp":  opaqueBMP(t, 32, 32),
	} {
		t.Run(name, func(t *testing.T) {
			encoded, mime, err := Transcode(input)
			require.NoError(t, err)
			require.Equal(t, TargetMIME, mime)

			decoded := decodeWebP(t, encoded)
			require.True(t, isOpaque(t, decoded), "opaque input must not gain an alpha channel")
		})
	}
}

func TestTranscodeIndexedTransparency(t *testing.T) {
	encoded, _, err := Transcode(transparentGIF(t, 20, 20))
	require.NoError(t, err)

	decoded := decodeWebP(t, encoded)
	require.False(t, isOpaque(t, decoded))
}

func TestTranscodeOutputIsRedecodable(t *testing.T) {
	encoded, _, err := Transcode(opaqueJPEG(t, 16, 16))
	require.NoError(t, err)

	// The fixed target format is itself a supported input.
	again, mime, err := Transcode(encoded)
	require.NoError(t, err)
	require.Equal(t, TargetMIME, mime)

	require.True(t, isOpaque(t, decodeWebP(t, again)))
}

func TestTranscodeAlphaStableAcrossPasses(t *testing.T) {
	first, _, err := Transcode(pngWithAlpha(t, 40, 40))
	require.NoError(t, err)

	second, _, err := Transcode(first)
	require.NoError(t, err)

	require.Equal(t, isOpaque(t, decodeWebP(t, first)), isOpaque(t, decodeWebP(t, second)))
}

func TestTranscodeRejectsUndecodableInput(t *testing.T) {
	valid := pngWithAlpha(t, 10, 10)

	for name, input := range map[string][]byte{
		"garbage":   []byte("this is definitely not an image"),
		"empty":     {},
		"truncated": valid[:20],
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := Transcode(input)
			require.Error(t, err)

			var codecErr *Error
			require.ErrorAs(t, err, &codecErr)
			require.Equal(t, "decode", codecErr.Op)
		})
	}
}

func TestTranscodeConcurrentUse(t *testing.T) {
	inputs := [][]byte{
		pngWithAlpha(t, 30, 30),
		opaqueJPEG(t, 30, 30),
		opaqueBMP(t, 30, 30),
		transparentGIF(t, 30, 30),
	}

	done := make(chan error, len(inputs)*4)
	for i := 0; i < len(inputs)*4; i++ {
		go func(input []byte) {
			_, _, err := Transcode(input)
			done <- err
		}(inputs[i%len(inputs)])
	}

	for i := 0; i < len(inputs)*4; i++ {
		require.NoError(t, <-done)
	}
}
