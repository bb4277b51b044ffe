package output

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

const ppmExt = ".ppm"

// SaveImage writes img to path, choosing the encoding from the file extension.
// Parent directories are created as needed.
func SaveImage(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Encode(file, img, path); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

// Encode writes img to w in the format implied by filename's extension
func Encode(w io.Writer, img image.Image, filename string) error {
	if strings.EqualFold(filepath.Ext(filename), ppmExt) {
		return WritePPM(w, img)
	}

	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// ContentType returns the MIME type for filename's extension
func ContentType(filename string) (string, error) {
	if strings.EqualFold(filepath.Ext(filename), ppmExt) {
		return "image/x-portable-pixmap", nil
	}

	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	switch format {
	case imaging.JPEG:
		return "image/jpeg", nil
	case imaging.PNG:
		return "image/png", nil
	case imaging.GIF:
		return "image/gif", nil
	case imaging.TIFF:
		return "image/tiff", nil
	case imaging.BMP:
		return "image/bmp", nil
	}
	return "application/octet-stream", nil
}

// WritePPM writes img as a binary (P6) PPM. Alpha is dropped.
func WritePPM(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return fmt.Errorf("failed to write PPM header: %w", err)
	}

	row := make([]byte, 3*bounds.Dx())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			i := 3 * (x - bounds.Min.X)
			row[i], row[i+1], row[i+2] = c.R, c.G, c.B
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("failed to write PPM pixels: %w", err)
		}
	}

	return bw.Flush()
}

// Thumbnail scales img down to the given width, preserving aspect ratio
func Thumbnail(img image.Image, width int) (image.Image, error) {
	if width <= 0 {
		return nil, fmt.Errorf("thumbnail width must be positive, got %d", width)
	}
	return resize.Resize(uint(width), 0, img, resize.Lanczos3), nil
}

// ThumbnailPath derives the thumbnail file name, e.g. "out/render.png" -> "out/render_thumb.png"
func ThumbnailPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_thumb" + ext
}
