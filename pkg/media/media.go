// Package media prepares photos for upload.
//
// Instagram only accepts JPEG photos whose aspect ratio lies between 4:5 and
// 1.91:1. Normalize decodes JPEG, PNG or WebP input, centre-crops it into that
// range, scales it down to fit a square box and re-encodes it as JPEG.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	DefaultMaxSize = 1080
	Quality        = 90

	MinAspectRatio = 4.0 / 5.0
	MaxAspectRatio = 1.91
)

// DetectType detects the image type from magic bytes, falling back to the
// file extension
func DetectType(filename string, data []byte) string {
	if len(data) >= 12 {
		switch {
		case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
			return "image/jpeg"
		case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
			return "image/png"
		case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
			return "image/webp"
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func decode(data []byte, mimeType string) (image.Image, error) {
	switch mimeType {
	case "image/png":
		return png.Decode(bytes.NewReader(data))
	case "image/webp":
		return webp.Decode(bytes.NewReader(data))
	default:
		return jpeg.Decode(bytes.NewReader(data))
	}
}

// cropRect returns the centred sub-rectangle of b whose aspect ratio is
// clamped into [MinAspectRatio, MaxAspectRatio]
func cropRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return b
	}
	ratio := float64(w) / float64(h)

	switch {
	case ratio > MaxAspectRatio:
		nw := int(float64(h) * MaxAspectRatio)
		x0 := b.Min.X + (w-nw)/2
		return image.Rect(x0, b.Min.Y, x0+nw, b.Max.Y)
	case ratio < MinAspectRatio:
		nh := int(float64(w) / MinAspectRatio)
		y0 := b.Min.Y + (h-nh)/2
		return image.Rect(b.Min.X, y0, b.Max.X, y0+nh)
	}
	return b
}

// fit returns the size of src scaled down to fit within maxSize x maxSize
func fit(src image.Rectangle, maxSize int) image.Rectangle {
	w, h := src.Dx(), src.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return image.Rect(0, 0, w, h)
	}
	scale := float64(maxSize) / float64(w)
	if s := float64(maxSize) / float64(h); s < scale {
		scale = s
	}
	return image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale))
}

// Normalize returns data as an upload-ready JPEG
func Normalize(data []byte, filename string, maxSize int) ([]byte, error) {
	img, err := decode(data, DetectType(filename, data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	src := cropRect(img.Bounds())
	dst := image.NewRGBA(fit(src, maxSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeFile normalises the photo at path and returns the path of the
// upload-ready copy, written next to it with an .upload.jpg suffix
func NormalizeFile(path string, maxSize int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	out, err := Normalize(data, path, maxSize)
	if err != nil {
		return "", err
	}

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".upload.jpg"
	if err := os.WriteFile(target, out, 0644); err != nil {
		return "", fmt.Errorf("failed to save normalized image: %w", err)
	}
	return target, nil
}
