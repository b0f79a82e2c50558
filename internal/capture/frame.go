package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/facegate/internal/constants"
)

// ErrEmptyFrame is returned for a zero-length frame.
var ErrEmptyFrame = errors.New("empty frame")

// Frame is a single camera image, JPEG encoded, ready for detection.
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
}

// NormalizeFrame decodes a JPEG, PNG, BMP or WebP image, downsizes it to fit
// within maxSize (width or height) keeping aspect ratio, and re-encodes it as JPEG.
// A maxSize of zero or less keeps the original size.
func NormalizeFrame(data []byte, maxSize int) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrEmptyFrame
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if maxSize > 0 && (width > maxSize || height > maxSize) {
		if width > height {
			height = max(1, int(float64(height)*float64(maxSize)/float64(width)))
			width = maxSize
		} else {
			width = max(1, int(float64(width)*float64(maxSize)/float64(height)))
			height = maxSize
		}
		resized := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.FrameJPEGQuality}); err != nil {
		return Frame{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	return Frame{JPEG: buf.Bytes(), Width: width, Height: height}, nil
}
