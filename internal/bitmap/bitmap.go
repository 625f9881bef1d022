// Package bitmap compresses and validates the icon and preview images carried
// by resource records.
package bitmap

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Quality is the nominal compression quality of exported images. PNG is
// lossless, so it only selects the encoder's effort.
const Quality = 75

var encoder = png.Encoder{CompressionLevel: compressionLevel(Quality)}

func compressionLevel(quality int) png.CompressionLevel {
	switch {
	case quality >= 90:
		return png.BestCompression
	case quality <= 10:
		return png.BestSpeed
	default:
		return png.DefaultCompression
	}
}

// Compress encodes img as PNG.
func Compress(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("compress: nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("compress: empty image %v", b)
	}

	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses compressed image bytes.
func Decode(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode bitmap: %w", err)
	}
	return img, nil
}

// Valid reports whether data decodes as an image.
func Valid(data []byte) bool {
	_, err := Decode(data)
	return err == nil
}
