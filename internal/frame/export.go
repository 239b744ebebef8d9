package frame

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// Waveform renders this frame's audio buffer to an RGBA waveform image
// of the given size, drawing each channel's samples stacked vertically
// in the given color. With no audio samples, it returns a solid black
// image of the requested size.
func (f *Frame) Waveform(width, height int, c color.RGBA) *image.RGBA {
	f.waveform = nil

	channels := f.audio.NumChannels()
	samples := f.audio.NumSamples()
	if samples == 0 || channels == 0 {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		fillRGBA(img, color.RGBA{A: 255})
		f.waveform = img
		return img
	}

	heightPadding := 20 * (channels - 1)
	channelHeight := 200
	totalHeight := channelHeight*channels + heightPadding
	totalWidth := samples

	raw := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))

	y0 := channelHeight / 2
	for ch := 0; ch < channels; ch++ {
		center := y0 + ch*(channelHeight+20)
		row := f.audio.Channel(ch)
		for x := 0; x < samples; x++ {
			value := int(row[x] * 100)
			drawVerticalLine(raw, x, center, center-value, c)
		}
	}

	if width != totalWidth || height != totalHeight {
		scaled := nearestNeighborScale(raw, width, height)
		f.waveform = scaled
		return scaled
	}

	f.waveform = raw
	return raw
}

// ClearWaveform discards any previously-rendered waveform image.
func (f *Frame) ClearWaveform() {
	f.waveform = nil
}

func fillRGBA(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawVerticalLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	bounds := img.Bounds()
	for y := y0; y <= y1; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y || x < bounds.Min.X || x >= bounds.Max.X {
			continue
		}
		img.SetRGBA(x, y, c)
	}
}

// nearestNeighborScale returns src resized to width x height by nearest-
// neighbor sampling. This is the one resampling quality the standard
// library doesn't hand you directly (image/draw has no scaler), so it's
// implemented as the thinnest possible leaf rather than pulled from a
// dependency: no corpus repo imports an image-scaling library.
func nearestNeighborScale(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if width <= 0 || height <= 0 || srcW == 0 || srcH == 0 {
		return dst
	}
	for y := 0; y < height; y++ {
		sy := srcBounds.Min.Y + y*srcH/height
		for x := 0; x < width; x++ {
			sx := srcBounds.Min.X + x*srcW/width
			dst.SetRGBA(x, y, src.RGBAAt(sx, sy))
		}
	}
	return dst
}

// SaveImage writes this frame's image to path as a PNG. When scale
// differs from 1, it first applies the pixel-aspect-ratio correction for
// non-square pixels and then scales by scale; with a scale of 1 the
// image is written as is, with no pixel-aspect-ratio correction.
func (f *Frame) SaveImage(path string, scale float64) error {
	preview := f.GetImage()

	if abs(scale-1) > 0.001 {
		newWidth := f.width
		newHeight := f.height

		ratio := f.pixelRatio
		if ratio.Num != 1 || ratio.Den != 1 {
			newWidth = preview.Bounds().Dx()
			newHeight = int(float64(preview.Bounds().Dy()) * ratio.Reciprocal().ToFloat64())
			preview = nearestNeighborScale(preview, newWidth, newHeight)
		}

		finalWidth := int(float64(newWidth) * scale)
		finalHeight := int(float64(newHeight) * scale)
		preview = nearestNeighborScale(preview, finalWidth, finalHeight)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, preview)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
