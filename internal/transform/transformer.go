package transform

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bep/gowebp/libwebp"
	"github.com/bep/gowebp/libwebp/webpoptions"
	"github.com/disintegration/imaging"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/items"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// Transformer renders raw downloads into WebP derivatives in the
// processed directory.
type Transformer struct {
	processedDir string
	defaults     map[string]any
	logger       *slog.Logger
}

// NewTransformer builds a transformer using the configured processing
// defaults.
func NewTransformer(cfg *config.Config, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transformer{
		processedDir: cfg.Paths.ProcessedDir,
		defaults:     cfg.Processing,
		logger:       logging.NewComponentLogger(logger, "transform"),
	}
}

// Transform processes the raw artifact at srcPath according to the
// item's merged settings and returns the path of the WebP derivative.
func (t *Transformer) Transform(item items.Spec, srcPath string) (string, error) {
	merged := items.MergeSettings(t.defaults, item.Settings)
	settings := ParseSettings(merged)

	src, err := imaging.Open(srcPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "transform", "decode",
			fmt.Sprintf("decode %s", filepath.Base(srcPath)), err)
	}

	img := flattenToWhite(src)
	t.logger.Info("processing image",
		logging.String(logging.FieldItem, item.Name),
		logging.Int("width", img.Bounds().Dx()),
		logging.Int("height", img.Bounds().Dy()))

	img = t.applyCrop(item, img, settings)
	img = scaleUp(img, settings.MaxProcessingDimension)
	img = t.applyEnhancements(item, img, settings.Enhancements)
	if settings.Unsharp != nil {
		img = applyUnsharpMask(img, *settings.Unsharp)
	}
	img = scaleDown(img, settings.ResizeTo)

	outPath := filepath.Join(t.processedDir, item.BaseName()+".webp")
	if err := t.encode(img, outPath, settings.Quality); err != nil {
		return "", err
	}

	t.logger.Info("saved processed image",
		logging.String(logging.FieldItem, item.Name),
		logging.String("path", outPath),
		logging.Int("width", img.Bounds().Dx()),
		logging.Int("height", img.Bounds().Dy()))

	return outPath, nil
}

// flattenToWhite composites the source onto an opaque white canvas so
// transparent regions encode predictably.
func flattenToWhite(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

func (t *Transformer) applyCrop(item items.Spec, img *image.NRGBA, s Settings) *image.NRGBA {
	if s.CropBox == nil {
		return img
	}
	rect := image.Rect(s.CropBox[0], s.CropBox[1], s.CropBox[2], s.CropBox[3])
	if rect.Intersect(img.Bounds()).Empty() {
		t.logger.Warn("crop box outside image bounds, skipping crop",
			logging.String(logging.FieldItem, item.Name),
			logging.String("crop_box", fmt.Sprint(s.CropBox)))
		return img
	}
	cropped := imaging.Crop(img, rect)
	t.logger.Debug("cropped image",
		logging.String(logging.FieldItem, item.Name),
		logging.Int("width", cropped.Bounds().Dx()),
		logging.Int("height", cropped.Bounds().Dy()))
	return cropped
}

// scaleUp enlarges the image so its largest dimension reaches maxDim,
// giving the enhancement steps more pixels to work with. Images already
// at or above maxDim pass through.
func scaleUp(img *image.NRGBA, maxDim int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest == 0 || longest >= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(longest)
	return imaging.Resize(img, int(float64(w)*scale), int(float64(h)*scale), imaging.Lanczos)
}

// scaleDown fits the image within the target dimensions, never
// enlarging it.
func scaleDown(img *image.NRGBA, target [2]int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return img
	}
	scaleW := float64(target[0]) / float64(w)
	scaleH := float64(target[1]) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	if scale >= 1.0 {
		return img
	}
	return imaging.Resize(img, int(float64(w)*scale), int(float64(h)*scale), imaging.Lanczos)
}

func (t *Transformer) applyEnhancements(item items.Spec, img *image.NRGBA, e Enhancements) *image.NRGBA {
	if e.AutoContrast {
		img = autoContrast(img)
		t.logger.Debug("applied auto contrast", logging.String(logging.FieldItem, item.Name))
	}
	if f := e.Sharpness; f != 1.0 {
		if f > 1.0 {
			img = imaging.Sharpen(img, f-1.0)
		} else {
			img = imaging.Blur(img, 1.0-f)
		}
		t.logger.Debug("applied sharpness", logging.String(logging.FieldItem, item.Name), logging.Float64("factor", f))
	}
	if f := e.Contrast; f != 1.0 {
		img = imaging.AdjustContrast(img, (f-1.0)*100)
		t.logger.Debug("applied contrast", logging.String(logging.FieldItem, item.Name), logging.Float64("factor", f))
	}
	if f := e.Brightness; f != 1.0 {
		img = imaging.AdjustBrightness(img, (f-1.0)*100)
		t.logger.Debug("applied brightness", logging.String(logging.FieldItem, item.Name), logging.Float64("factor", f))
	}
	if f := e.Color; f != 1.0 {
		img = imaging.AdjustSaturation(img, (f-1.0)*100)
		t.logger.Debug("applied color", logging.String(logging.FieldItem, item.Name), logging.Float64("factor", f))
	}
	return img
}

// autoContrast stretches each channel so its darkest value maps to 0
// and its brightest to 255.
func autoContrast(img *image.NRGBA) *image.NRGBA {
	var lo, hi [3]uint8
	for ch := range lo {
		lo[ch], hi[ch] = 255, 0
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			v := pix[i+ch]
			if v < lo[ch] {
				lo[ch] = v
			}
			if v > hi[ch] {
				hi[ch] = v
			}
		}
	}

	var lut [3][256]uint8
	for ch := 0; ch < 3; ch++ {
		span := int(hi[ch]) - int(lo[ch])
		for v := 0; v < 256; v++ {
			if span <= 0 {
				lut[ch][v] = uint8(v)
				continue
			}
			scaled := (v - int(lo[ch])) * 255 / span
			if scaled < 0 {
				scaled = 0
			}
			if scaled > 255 {
				scaled = 255
			}
			lut[ch][v] = uint8(scaled)
		}
	}

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = lut[0][c.R]
		c.G = lut[1][c.G]
		c.B = lut[2][c.B]
		return c
	})
}

// applyUnsharpMask blends the image against a gaussian-blurred copy,
// weighting the original by percent/100. Values above 100 push past the
// original and sharpen edges.
func applyUnsharpMask(img *image.NRGBA, m UnsharpMask) *image.NRGBA {
	if m.Radius <= 0 {
		return img
	}
	blurred := imaging.Blur(img, m.Radius)
	p := m.Percent / 100.0

	out := imaging.Clone(img)
	for i := range out.Pix {
		if i%4 == 3 {
			continue // alpha
		}
		v := p*float64(img.Pix[i]) + (1.0-p)*float64(blurred.Pix[i])
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v + 0.5)
	}
	return out
}

func (t *Transformer) encode(img image.Image, path string, quality int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "transform", "encode", "create processed directory", err)
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transform", "encode", "create output file", err)
	}

	opts := webpoptions.EncodingOptions{
		Quality:        quality,
		EncodingPreset: webpoptions.EncodingPresetPhoto,
		UseSharpYuv:    true,
	}
	if err := libwebp.Encode(out, img, opts); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrValidation, "transform", "encode", "encode webp", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrTransient, "transform", "encode", "close output file", err)
	}

	if err := fileutil.AtomicReplace(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrTransient, "transform", "encode", "promote output file", err)
	}
	return nil
}
