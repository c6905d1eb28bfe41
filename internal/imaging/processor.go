// Package imaging holds the image transformations applied to attachment
// versions, plus the helpers that decode and encode them.
package imaging

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/dmitrijs2005/vstore/internal/version"
)

// Processor transforms a decoded source image according to version options.
type Processor interface {
	Process(ctx context.Context, img image.Image, opts version.Options) (image.Image, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, img image.Image, opts version.Options) (image.Image, error)

func (f ProcessorFunc) Process(ctx context.Context, img image.Image, opts version.Options) (image.Image, error) {
	return f(ctx, img, opts)
}

// ResizeProcessor implements the resize family of version options with
// Lanczos resampling.
type ResizeProcessor struct{}

func (ResizeProcessor) Process(ctx context.Context, img image.Image, opts version.Options) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case opts[version.OptResizeToFill] != "":
		g, err := version.ParseGeometry(opts[version.OptResizeToFill])
		if err != nil {
			return nil, err
		}
		w, h := fillBox(img.Bounds(), g)
		return imaging.Fill(img, w, h, anchor(opts[version.OptGravity]), imaging.Lanczos), nil

	case opts[version.OptResizeToLimit] != "":
		g, err := version.ParseGeometry(opts[version.OptResizeToLimit])
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if (g.Width == 0 || b.Dx() <= g.Width) && (g.Height == 0 || b.Dy() <= g.Height) {
			return img, nil
		}
		return fit(img, g), nil

	case opts[version.OptResizeToFit] != "":
		g, err := version.ParseGeometry(opts[version.OptResizeToFit])
		if err != nil {
			return nil, err
		}
		return fit(img, g), nil

	case opts[version.OptResize] != "":
		g, err := version.ParseGeometry(opts[version.OptResize])
		if err != nil {
			return nil, err
		}
		return fit(img, g), nil
	}

	return img, nil
}

// fit scales img to fit inside g, preserving the aspect ratio. Enlarges
// when the image is smaller than the box.
func fit(img image.Image, g version.Geometry) image.Image {
	b := img.Bounds()
	w, h := g.Width, g.Height
	switch {
	case w == 0:
		return imaging.Resize(img, 0, h, imaging.Lanczos)
	case h == 0:
		return imaging.Resize(img, w, 0, imaging.Lanczos)
	}

	scaleX := float64(w) / float64(b.Dx())
	scaleY := float64(h) / float64(b.Dy())
	if scaleX <= scaleY {
		return imaging.Resize(img, w, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, h, imaging.Lanczos)
}

// fillBox substitutes the source's own side for an unset box side.
func fillBox(b image.Rectangle, g version.Geometry) (int, int) {
	w, h := g.Width, g.Height
	if w == 0 {
		w = b.Dx()
	}
	if h == 0 {
		h = b.Dy()
	}
	return w, h
}

func anchor(gravity string) imaging.Anchor {
	switch strings.ToLower(gravity) {
	case "north":
		return imaging.Top
	case "south":
		return imaging.Bottom
	case "east":
		return imaging.Right
	case "west":
		return imaging.Left
	case "northeast":
		return imaging.TopRight
	case "northwest":
		return imaging.TopLeft
	case "southeast":
		return imaging.BottomRight
	case "southwest":
		return imaging.BottomLeft
	default:
		return imaging.Center
	}
}

// Decode reads an image, applying EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Encode writes img in the format implied by filename's extension, JPEG
// when the extension is unknown. The quality option applies to JPEG output.
func Encode(w io.Writer, img image.Image, filename string, opts version.Options) error {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
	}

	var encOpts []imaging.EncodeOption
	if q, err := strconv.Atoi(opts[version.OptQuality]); err == nil {
		encOpts = append(encOpts, imaging.JPEGQuality(q))
	}

	if err := imaging.Encode(w, img, format, encOpts...); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}
