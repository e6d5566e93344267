// Command capsglow-preview renders the indicator over a set of backgrounds
// to PNG files, using the same theme decision as a live show cycle.
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"

	"github.com/phinze/capsglow/internal/assets"
	"github.com/phinze/capsglow/internal/render"
	"github.com/phinze/capsglow/internal/theme"
)

var backgrounds = []struct {
	name  string
	color color.RGBA
}{
	{"white", colornames.White},
	{"whitesmoke", colornames.Whitesmoke},
	{"lightsteelblue", colornames.Lightsteelblue},
	{"gray", colornames.Gray},
	{"darkslategray", colornames.Darkslategray},
	{"navy", colornames.Navy},
	{"black", colornames.Black},
}

// padding around the indicator so its edges are visible in the preview.
const padding = 16

func main() {
	var (
		outDir  string
		iconDir string
		size    int
	)

	cmd := &cobra.Command{
		Use:          "capsglow-preview",
		Short:        "Render the Caps Lock indicator over sample backgrounds",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var icon *assets.Icon
			if iconDir != "" {
				var err error
				if icon, err = assets.Load(iconDir); err != nil {
					return errors.Wrap(err, "failed to load custom icon")
				}
			}
			return renderAll(outDir, icon, size)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "preview", "output directory")
	cmd.Flags().StringVar(&iconDir, "icons", "", "directory holding custom capslock icons")
	cmd.Flags().IntVar(&size, "size", 64, "indicator size in pixels")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func renderAll(outDir string, icon *assets.Icon, size int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	r := render.New(icon)
	defer r.Release()

	dim := image.Pt(size, size)
	if natural, ok := r.NaturalSize(); ok {
		dim = natural
	}

	for _, bg := range backgrounds {
		canvas := image.NewRGBA(image.Rect(0, 0, dim.X+2*padding, dim.Y+2*padding))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg.color), image.Point{}, draw.Src)

		// The same decision FollowIndicatorArea makes on a live screen.
		area := canvas.SubImage(image.Rectangle{Min: image.Pt(padding, padding), Max: image.Pt(padding, padding).Add(dim)})
		variant := theme.VariantForLuminance(theme.Luminance(area))

		frame, err := r.Render(variant, dim)
		if err != nil {
			return errors.Wrapf(err, "failed to render over %s", bg.name)
		}
		draw.Draw(canvas, area.Bounds(), frame.Image(), image.Point{}, draw.Over)

		path := filepath.Join(outDir, fmt.Sprintf("capslock_%s.png", bg.name))
		if err := writePNG(path, canvas); err != nil {
			return err
		}
		log.Printf("Wrote %s (%s)", path, variant)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return nil
}
