// Package assets loads user-supplied indicator icons from disk.
package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
)

// File names looked up in the icon directory, in priority order.
const (
	SingleName = "capslock.png"
	LightName  = "capslock_light.png"
	DarkName   = "capslock_dark.png"
	SVGName    = "capslock.svg"
)

// ErrSizeMismatch implies the light and dark icons have different dimensions.
var ErrSizeMismatch = errors.New("light and dark icons differ in size")

// Icon is a decoded custom glyph. Exactly one of Single, the Light/Dark pair
// or SVG is set.
type Icon struct {
	Single image.Image
	Light  image.Image
	Dark   image.Image
	SVG    string
}

// Raster reports whether the icon is a bitmap drawn at its natural size.
func (i *Icon) Raster() bool {
	return i.Single != nil || (i.Light != nil && i.Dark != nil)
}

// Pick returns the bitmap for a dark (true) or light background.
func (i *Icon) Pick(dark bool) image.Image {
	if i.Single != nil {
		return i.Single
	}
	if dark {
		return i.Dark
	}
	return i.Light
}

// Size returns the natural pixel size of a raster icon, or zero for SVG.
func (i *Icon) Size() image.Point {
	if img := i.Pick(false); img != nil {
		return img.Bounds().Size()
	}
	return image.Point{}
}

// Load looks for a custom icon in dir. It returns (nil, nil) when dir holds
// no icon files, and an error when files exist but cannot be used.
func Load(dir string) (*Icon, error) {
	single := filepath.Join(dir, SingleName)
	light := filepath.Join(dir, LightName)
	dark := filepath.Join(dir, DarkName)
	svg := filepath.Join(dir, SVGName)

	switch {
	case isFile(single):
		img, err := decodeFile(single)
		if err != nil {
			return nil, err
		}
		log.Printf("Using custom icon %s (%dx%d)", single, img.Bounds().Dx(), img.Bounds().Dy())
		return &Icon{Single: img}, nil

	case isFile(light) && isFile(dark):
		li, err := decodeFile(light)
		if err != nil {
			return nil, err
		}
		di, err := decodeFile(dark)
		if err != nil {
			return nil, err
		}
		if li.Bounds().Size() != di.Bounds().Size() {
			return nil, fmt.Errorf("%w: %v vs %v", ErrSizeMismatch, li.Bounds().Size(), di.Bounds().Size())
		}
		log.Printf("Using custom themed icons from %s", dir)
		return &Icon{Light: li, Dark: di}, nil

	case isFile(svg):
		data, err := os.ReadFile(svg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", svg, err)
		}
		log.Printf("Using custom SVG icon %s", svg)
		return &Icon{SVG: string(data)}, nil
	}

	return nil, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("%s has no pixels", path)
	}
	return img, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
