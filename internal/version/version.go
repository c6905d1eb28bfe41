// Package version declares the named renditions an attachment type keeps
// for every stored file, together with their transformation options.
package version

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/vstore/internal/common"
)

// Supported option keys.
const (
	OptResize        = "resize"          // WxH, fit inside the box
	OptResizeToFill  = "resize_to_fill"  // WxH, scale and crop to exactly fill the box
	OptResizeToLimit = "resize_to_limit" // WxH, shrink to fit, never enlarge
	OptResizeToFit   = "resize_to_fit"   // WxH, fit inside the box, may enlarge
	OptGravity       = "gravity"         // crop anchor for resize_to_fill
	OptQuality       = "quality"         // JPEG quality, 1-100
)

var allowedKeys = []string{OptResize, OptResizeToFill, OptResizeToLimit, OptResizeToFit, OptGravity, OptQuality}

var resizeKeys = []string{OptResize, OptResizeToFill, OptResizeToLimit, OptResizeToFit}

var gravities = []string{"center", "north", "south", "east", "west", "northeast", "northwest", "southeast", "southwest"}

// Options are the transformation parameters of a version.
type Options map[string]string

// Empty reports whether the version carries no transformation.
func (o Options) Empty() bool {
	return len(o) == 0
}

// Validate checks every key against the allow-list and every value against
// its expected format. Failures match common.ErrBadOption.
func (o Options) Validate() error {
	resizes := 0
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		val := o[key]
		switch {
		case !slices.Contains(allowedKeys, key):
			return fmt.Errorf("%w: option %q is not supported, supported options: %s",
				common.ErrBadOption, key, strings.Join(allowedKeys, ", "))
		case slices.Contains(resizeKeys, key):
			resizes++
			if _, err := ParseGeometry(val); err != nil {
				return err
			}
		case key == OptGravity:
			if !slices.Contains(gravities, strings.ToLower(val)) {
				return fmt.Errorf("%w: unknown gravity %q", common.ErrBadOption, val)
			}
		case key == OptQuality:
			q, err := strconv.Atoi(val)
			if err != nil || q < 1 || q > 100 {
				return fmt.Errorf("%w: quality must be 1-100, got %q", common.ErrBadOption, val)
			}
		}
	}
	if resizes > 1 {
		return fmt.Errorf("%w: at most one resize operation per version", common.ErrBadOption)
	}
	return nil
}

// Geometry is a parsed "WxH" box. A zero side keeps the aspect ratio.
type Geometry struct {
	Width  int
	Height int
}

// ParseGeometry parses "200x300", "200x" or "x300".
func ParseGeometry(s string) (Geometry, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Geometry{}, fmt.Errorf("%w: bad geometry %q, want WxH", common.ErrBadOption, s)
	}

	var g Geometry
	var err error
	if w != "" {
		if g.Width, err = strconv.Atoi(w); err != nil || g.Width < 0 {
			return Geometry{}, fmt.Errorf("%w: bad width in %q", common.ErrBadOption, s)
		}
	}
	if h != "" {
		if g.Height, err = strconv.Atoi(h); err != nil || g.Height < 0 {
			return Geometry{}, fmt.Errorf("%w: bad height in %q", common.ErrBadOption, s)
		}
	}
	if g.Width == 0 && g.Height == 0 {
		return Geometry{}, fmt.Errorf("%w: empty geometry %q", common.ErrBadOption, s)
	}
	return g, nil
}

// Version is an immutable rendition descriptor shared by every attachment
// of a type.
type Version struct {
	name    string
	options Options
}

// New declares a version. Options are validated here, not at use time.
func New(name string, opts Options) (Version, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Version{}, fmt.Errorf("%w: empty version name", common.ErrInvalidInput)
	}
	if err := opts.Validate(); err != nil {
		return Version{}, fmt.Errorf("version %s: %w", name, err)
	}
	return Version{name: name, options: maps.Clone(opts)}, nil
}

// MustNew is New for static declarations; it panics on invalid input.
func MustNew(name string, opts Options) Version {
	v, err := New(name, opts)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Name() string {
	return v.name
}

// Options returns a copy of the version's options.
func (v Version) Options() Options {
	return maps.Clone(v.options)
}

// HasOptions reports whether the version transforms its source.
func (v Version) HasOptions() bool {
	return !v.options.Empty()
}

// Option returns a single option value.
func (v Version) Option(key string) (string, bool) {
	val, ok := v.options[key]
	return val, ok
}
