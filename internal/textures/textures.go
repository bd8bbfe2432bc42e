// Package textures loads the PNG masks that shape and color fur, resampled
// to the size the shell material samples at.
package textures

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// MaskSize is the edge length every loaded texture is resampled to.
const MaskSize = 256

var ErrEmptyImage = errors.New("empty image")

func OpenPNG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return png.Decode(file)
}

// Resample scales img to size×size with bilinear filtering.
func Resample(img image.Image, size int) (*image.RGBA, error) {
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if img.Bounds().Dx() == size && img.Bounds().Dy() == size {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst, nil
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// Load decodes the PNG at path and resamples it to MaskSize.
func Load(path string) (*image.RGBA, error) {
	img, err := OpenPNG(path)
	if err != nil {
		return nil, err
	}
	return Resample(img, MaskSize)
}

// Patches is a procedural mask of round tufts on a size×size grid of cells,
// white inside the tufts and black between them.
func Patches(size, cells int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	if cells < 1 {
		cells = 1
	}
	cell := float64(size) / float64(cells)
	r2 := (cell * 0.4) * (cell * 0.4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			cx := (float64(int(float64(x)/cell)) + 0.5) * cell
			cy := (float64(int(float64(y)/cell)) + 0.5) * cell
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			c := color.RGBA{A: 255}
			if dx*dx+dy*dy <= r2 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
