package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"path"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
)

const (
	// Obscured previews are first crushed down to this many pixels per
	// side, then blown back up, leaving only large blocks of color.
	obscureSide = 30

	cellWidth  = 256
	cellHeight = 256
)

var jpegOptions = &jpeg.Options{Quality: 90}

// Library is the reveal pipeline over a filesystem-like object store:
// full-resolution prize images live under imageDir, their obscured
// previews under hiddenDir. Image keys are plain file names.
type Library struct {
	fs        afero.Fs
	imageDir  string
	hiddenDir string
}

// NewLibrary builds a Library on fs. hiddenDir is created if missing.
func NewLibrary(fs afero.Fs, imageDir, hiddenDir string) (*Library, error) {
	if err := fs.MkdirAll(hiddenDir, 0o755); err != nil {
		return nil, err
	}
	return &Library{fs: fs, imageDir: imageDir, hiddenDir: hiddenDir}, nil
}

// Reveal returns the untouched source bytes of an image.
func (l *Library) Reveal(name string) ([]byte, error) {
	return afero.ReadFile(l.fs, path.Join(l.imageDir, name))
}

// ObscuredBytes returns the stored obscured preview of an image. Call
// Obscure first; there is no preview until one has been produced.
func (l *Library) ObscuredBytes(name string) ([]byte, error) {
	return afero.ReadFile(l.fs, path.Join(l.hiddenDir, name))
}

// Obscure produces the blocky preview of the named source image and
// writes it to the hidden directory, overwriting any previous preview.
// The transform is deterministic, so re-running it yields identical
// bytes. Missing, unreadable and zero-dimension sources fail with an
// error the caller is expected to log and skip.
func (l *Library) Obscure(name string) error {
	src, err := afero.ReadFile(l.fs, path.Join(l.imageDir, name))
	if err != nil {
		return fmt.Errorf("obscure %s: %w", name, err)
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("obscure %s: decode: %w", name, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return fmt.Errorf("obscure %s: image has a zero dimension", name)
	}

	small := image.NewRGBA(image.Rect(0, 0, obscureSide, obscureSide))
	draw.NearestNeighbor.Scale(small, small.Bounds(), img, bounds, draw.Src, nil)
	blocky := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.NearestNeighbor.Scale(blocky, blocky.Bounds(), small, small.Bounds(), draw.Src, nil)

	out, err := encodeByExtension(name, blocky)
	if err != nil {
		return fmt.Errorf("obscure %s: encode: %w", name, err)
	}
	if err := afero.WriteFile(l.fs, path.Join(l.hiddenDir, name), out, 0o644); err != nil {
		return fmt.Errorf("obscure %s: write: %w", name, err)
	}
	return nil
}

// Collage arranges the whole catalog into a near-square grid: owned
// images full resolution, the rest obscured, a black placeholder for
// anything that fails to load. Returns the grid as PNG bytes, or nil
// when the catalog is empty.
func (l *Library) Collage(owned map[string]bool, all []string) ([]byte, error) {
	if len(all) == 0 {
		return nil, errors.New("collage: empty catalog")
	}

	cells := make([]image.Image, 0, len(all))
	for _, name := range all {
		cells = append(cells, l.collageCell(name, owned[name]))
	}

	cols := int(math.Floor(math.Sqrt(float64(len(cells)))))
	if cols == 0 {
		cols = 1
	}
	rows := (len(cells) + cols - 1) / cols

	canvas := image.NewRGBA(image.Rect(0, 0, cols*cellWidth, rows*cellHeight))
	for i, cell := range cells {
		x := (i % cols) * cellWidth
		y := (i / cols) * cellHeight
		rect := image.Rect(x, y, x+cellWidth, y+cellHeight)
		draw.ApproxBiLinear.Scale(canvas, rect, cell, cell.Bounds(), draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// collageCell loads one catalog entry for the collage, degrading to a
// black placeholder on any failure rather than aborting the whole grid.
func (l *Library) collageCell(name string, isOwned bool) image.Image {
	var raw []byte
	var err error
	if isOwned {
		raw, err = l.Reveal(name)
	} else {
		if err = l.Obscure(name); err == nil {
			raw, err = l.ObscuredBytes(name)
		}
	}
	if err != nil {
		return placeholder()
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return placeholder()
	}
	return img
}

func placeholder() image.Image {
	return image.NewRGBA(image.Rect(0, 0, cellWidth, cellHeight))
}

func encodeByExtension(name string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, jpegOptions); err != nil {
			return nil, err
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
