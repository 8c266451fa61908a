package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// ImageService downscales downloaded photos.
//
// Example usage:
//
//	svc := NewImageService()
//	resized, err := svc.ResizeFile(ctx, "/photos/Sunset.jpg", 2048)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// ResizeFile shrinks the JPEG or PNG image at path so that neither side
// exceeds maxSide pixels, rewriting the file in its original format.
//
// It returns false without touching the file when the image already fits,
// when maxSide is not positive, or when the file is not a JPEG or PNG.
// Re-encoding drops any embedded metadata, so resize before tagging.
func (s *ImageService) ResizeFile(ctx context.Context, path string, maxSide int) (bool, error) {
	if maxSide <= 0 {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (format != "jpeg" && format != "png") {
		return false, nil
	}
	if cfg.Width <= maxSide && cfg.Height <= maxSide {
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	resized, err := s.ResizeImage(ctx, data, maxSide, maxSide, format)
	if err != nil {
		return false, fmt.Errorf("resize %s: %w", path, err)
	}

	if err := WriteFileAtomic(path, resized, 0644); err != nil {
		return false, err
	}
	return true, nil
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. The result is encoded as format ("jpeg" or
// "png"). The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// A 3000x2000 image becomes 1500x1000
//	resized, err := svc.ResizeImage(ctx, imageData, 1500, 1500, "jpeg")
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int, format string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
