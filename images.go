package fbin

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bodgit/fbin/format"
	"github.com/bodgit/fbin/quant"
	"github.com/maruel/natural"
	"github.com/nfnt/resize"
	pkgerrors "github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".webp": {},
}

// FindImages returns the images in dir sorted by name, ignoring case. Hidden
// files and subdirectories are skipped.
func FindImages(dir string, naturalOrder bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		// Ignore any hidden files, otherwise we end up fighting with things like Spotlight, etc.
		if entry.Name()[0] == '.' || entry.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		names = append(names, entry.Name())
	}

	less := func(a, b string) bool { return a < b }
	if naturalOrder {
		less = natural.Less
	}
	sort.SliceStable(names, func(i, j int) bool {
		return less(strings.ToLower(names[i]), strings.ToLower(names[j]))
	})

	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return files, nil
}

// fingerprint identifies everything other than the source image that affects
// the unit produced.
func (c *Converter) fingerprint(q quant.Quantizer) string {
	return fmt.Sprintf("%dx%d resize=%t %T%+v", c.opts.Width, c.opts.Height, c.opts.Resize, q, q)
}

// loadUnit decodes, checks and quantizes a single image. Any error returned
// is an *InputError.
func (c *Converter) loadUnit(file string, q quant.Quantizer) (*format.Unit, error) {
	name := filepath.Base(file)

	b, err := os.ReadFile(file)
	if err != nil {
		return nil, &InputError{name, err}
	}

	var sha, options string
	if c.cache != nil {
		sha, options = fmt.Sprintf("%X", sha1.Sum(b)), c.fingerprint(q)
		u, err := c.cache.Find(sha, options, c.opts.Width, c.opts.Height)
		if err != nil {
			c.logger.Printf("Cache lookup for \"%s\" failed: %v\n", name, err)
		}
		if u != nil {
			return u, nil
		}
	}

	m, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, &InputError{name, err}
	}

	if bounds := m.Bounds(); bounds.Dx() != c.opts.Width || bounds.Dy() != c.opts.Height {
		if !c.opts.Resize {
			return nil, &InputError{name, fmt.Errorf("wrong image dimensions, expected %dx%d, got %dx%d", c.opts.Width, c.opts.Height, bounds.Dx(), bounds.Dy())}
		}
		m = resize.Resize(uint(c.opts.Width), uint(c.opts.Height), m, resize.Lanczos3)
	}

	u, err := q.Quantize(m)
	if err != nil {
		return nil, &InputError{name, err}
	}

	if c.cache != nil {
		if err := c.cache.Add(sha, options, u); err != nil {
			c.logger.Printf("Unable to cache \"%s\": %v\n", name, err)
		}
	}

	return u, nil
}

// ConvertImages converts each file in turn and writes the units to w. Files
// that cannot be converted are skipped; any other error stops the
// conversion.
func (c *Converter) ConvertImages(ctx context.Context, files []string, w io.Writer) (Summary, error) {
	var summary Summary

	q := quant.Engine{Mode: c.opts.Dither}

	c.progress(0, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		u, err := c.loadUnit(file, q)
		if err != nil {
			var ie *InputError
			if !errors.As(err, &ie) {
				return summary, err
			}
			c.logger.Printf("Error processing image: %v\n", err)
			summary.fail(err)
		} else {
			if err := format.Encode(w, u); err != nil {
				return summary, pkgerrors.Wrap(err, "unable to write unit")
			}
			c.logger.Printf("Added image %d/%d: %s\n", i+1, len(files), filepath.Base(file))
			summary.Processed++
		}

		c.progress(i+1, len(files))
	}

	return summary, nil
}
