package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/nfnt/resize"
)

const (
	previewMaxWidth  = 1200
	previewMaxHeight = 1600
	previewQuality   = 85
)

// GeneratePreview rasterizes the first page of a PDF and encodes it as a
// bounded JPEG. Used for free-tier jobs only; callers treat any error here
// as non-fatal.
func GeneratePreview(pdfPath string) ([]byte, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf for preview: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize first page: %w", err)
	}

	scaled := boundImage(img, previewMaxWidth, previewMaxHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// boundImage downscales img to fit within maxW x maxH, preserving aspect
// ratio. Images already inside the box pass through untouched.
func boundImage(img image.Image, maxW, maxH uint) image.Image {
	bounds := img.Bounds()
	w, h := uint(bounds.Dx()), uint(bounds.Dy())
	if w <= maxW && h <= maxH {
		return img
	}
	return resize.Thumbnail(maxW, maxH, img, resize.Lanczos3)
}
