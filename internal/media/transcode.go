package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// DefaultMaxPixels bounds the decoded canvas to keep a single upload from
// allocating gigabytes before resizing.
const DefaultMaxPixels = 40_000_000

// Transcoder turns arbitrary image bytes into the canonical JPEG form: fitted
// inside a bounding box without upscaling, alpha flattened, no metadata.
type Transcoder struct {
	maxWidth  int
	maxHeight int
	quality   int
	maxPixels int
}

// NewTranscoder builds a transcoder for the given bounding box and JPEG quality.
func NewTranscoder(maxWidth, maxHeight, quality int) *Transcoder {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Transcoder{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		quality:   quality,
		maxPixels: DefaultMaxPixels,
	}
}

// Transcode decodes data, fits it into the bounding box and re-encodes it.
// It performs no I/O beyond the in-memory buffers.
func (t *Transcoder) Transcode(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyAsset
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("%w: empty canvas", ErrUndecodable)
	}
	if cfg.Width*cfg.Height > t.maxPixels {
		return Image{}, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	w, h := FitDimensions(srcW, srcH, t.maxWidth, t.maxHeight)
	var out image.Image = src
	if w != srcW || h != srcH {
		out = imaging.Resize(src, w, h, imaging.Lanczos)
	}
	out = flatten(out)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(t.quality)); err != nil {
		return Image{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Image{
		Data:         buf.Bytes(),
		Width:        w,
		Height:       h,
		SourceWidth:  srcW,
		SourceHeight: srcH,
		SourceFormat: format,
		ContentType:  CanonicalContentType,
	}, nil
}

// flatten composites img over an opaque black canvas so the JPEG encoder never
// sees partially transparent pixels.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.Black)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// FitDimensions returns the largest size that fits inside maxW x maxH while
// keeping the aspect ratio. Sources already inside the box are returned as-is.
func FitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}
	var w, h int
	if srcW*maxH >= srcH*maxW {
		w = maxW
		h = roundDiv(srcH*maxW, srcW)
	} else {
		h = maxH
		w = roundDiv(srcW*maxH, srcH)
	}
	return clamp(w, 1, maxW), clamp(h, 1, maxH)
}

func roundDiv(num, den int) int {
	return (2*num + den) / (2 * den)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
