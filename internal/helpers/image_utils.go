package helpers

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const (
	// JPEG quality settings
	HighQuality    = 95
	DefaultQuality = 85
	LowQuality     = 50
)

// isJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func isJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// EncodeJPEG encodes img and returns a copy of the bytes that outlives the
// native buffer. Out of range qualities fall back to DefaultQuality.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	if !isJPEGData(out) {
		return nil, fmt.Errorf("encoder returned %d bytes without a JPEG header", len(out))
	}
	return out, nil
}

// ResizeInto writes src into dst at width x height. A non-positive size, or
// one equal to the source, copies src unchanged.
func ResizeInto(src gocv.Mat, dst *gocv.Mat, width, height int) {
	if width > 0 && height > 0 && (src.Cols() != width || src.Rows() != height) {
		gocv.Resize(src, dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		return
	}
	src.CopyTo(dst)
}
