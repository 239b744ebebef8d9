// Package frame implements the unified video+audio frame type returned
// by the reader: one RGBA8888 image and one planar float32 sample
// buffer, addressed by a 1-based frame number on the nominal frame grid.
package frame

import (
	"image"
	"image/color"
	"math"

	"github.com/e1z0/mediareader/internal/fraction"
	"github.com/e1z0/mediareader/internal/samplebuffer"
)

// ChannelLayout names the speaker arrangement of a Frame's audio.
type ChannelLayout int

const (
	LayoutMono ChannelLayout = iota
	LayoutStereo
	Layout2Point1
	Layout5Point1
	Layout7Point1
)

const defaultSampleRate = 44100

// Frame carries one video frame's image and the audio samples that land
// in its slot on the nominal frame grid. A Frame is built incrementally
// by the reader's packet processors and becomes safe to share freely
// once it has been promoted to the final cache.
type Frame struct {
	Number int

	image       *image.RGBA
	waveform    *image.RGBA
	pixelRatio  fraction.Fraction
	pictureType int

	audio          *samplebuffer.Buffer[float32]
	channels       int
	channelLayout  ChannelLayout
	width, height  int
	sampleRate     int
	HasImageData   bool
	HasAudioData   bool
}

// New returns a blank frame: a 1x1 placeholder image and an empty,
// stereo-at-44100 audio buffer.
func New(number int) *Frame {
	return newFrame(number, 1, 1, 2)
}

// NewWithImage returns a frame pre-filled with a solid-color image of
// the given size. color is an HTML-style "#rrggbb" string; color names
// are not recognized, and any other string falls back to black.
func NewWithImage(number, width, height int, c string) *Frame {
	f := newFrame(number, width, height, 2)
	f.AddColor(width, height, c)
	return f
}

// NewWithAudio returns a frame pre-sized to hold the given number of
// audio samples per channel, with a 1x1 placeholder image.
func NewWithAudio(number, samples, channels int) *Frame {
	f := newFrame(number, 1, 1, channels)
	f.audio.SetSize(channels, samples, false, true, false)
	return f
}

// NewWithImageAndAudio combines NewWithImage and NewWithAudio.
func NewWithImageAndAudio(number, width, height int, c string, samples, channels int) *Frame {
	f := newFrame(number, width, height, channels)
	f.AddColor(width, height, c)
	f.audio.SetSize(channels, samples, false, true, false)
	return f
}

func newFrame(number, width, height, channels int) *Frame {
	return &Frame{
		Number:        number,
		pixelRatio:    fraction.New(1, 1),
		channels:      channels,
		channelLayout: LayoutStereo,
		width:         width,
		height:        height,
		sampleRate:    defaultSampleRate,
		audio:         samplebuffer.New[float32](channels, 0),
	}
}

// DeepCopy returns an independent copy of this frame: a new backing
// image, a new backing audio buffer, and the same scalar fields.
func (f *Frame) DeepCopy() *Frame {
	cp := &Frame{
		Number:        f.Number,
		pixelRatio:    f.pixelRatio,
		pictureType:   f.pictureType,
		channels:      f.channels,
		channelLayout: f.channelLayout,
		width:         f.width,
		height:        f.height,
		sampleRate:    f.sampleRate,
		HasImageData:  f.HasImageData,
		HasAudioData:  f.HasAudioData,
	}
	if f.image != nil {
		img := *f.image
		img.Pix = append([]byte(nil), f.image.Pix...)
		cp.image = &img
	}
	cp.audio = samplebuffer.New[float32](f.audio.NumChannels(), f.audio.NumSamples())
	for ch := 0; ch < f.audio.NumChannels(); ch++ {
		cp.audio.CopyFrom(ch, 0, f.audio.Channel(ch), f.audio.NumSamples())
	}
	return cp
}

// ChannelsLayout returns the channel layout of this frame's audio.
func (f *Frame) ChannelsLayout() ChannelLayout { return f.channelLayout }

// SetChannelsLayout sets the channel layout of this frame's audio.
func (f *Frame) SetChannelsLayout(l ChannelLayout) { f.channelLayout = l }

// SampleRate returns the original sample rate of this frame's audio.
func (f *Frame) SampleRate() int { return f.sampleRate }

// SetSampleRate sets the original sample rate of this frame's audio.
func (f *Frame) SetSampleRate(rate int) { f.sampleRate = rate }

// GetPixelRatio returns the pixel aspect ratio of this frame's image.
func (f *Frame) GetPixelRatio() fraction.Fraction { return f.pixelRatio }

// SetPixelRatio sets the pixel aspect ratio of this frame's image.
func (f *Frame) SetPixelRatio(num, den int) { f.pixelRatio = fraction.New(num, den) }

// GetPictureType returns the codec-reported picture type (I/P/B frame).
func (f *Frame) GetPictureType() int { return f.pictureType }

// SetPictureType records the codec-reported picture type.
func (f *Frame) SetPictureType(t int) { f.pictureType = t }

// SetFrameNumber reassigns this frame's index.
func (f *Frame) SetFrameNumber(number int) { f.Number = number }

// GetWidth returns the width of this frame's image.
func (f *Frame) GetWidth() int { return f.width }

// GetHeight returns the height of this frame's image.
func (f *Frame) GetHeight() int { return f.height }

// AddColor replaces this frame's image with a solid fill of the given
// size and HTML color string.
func (f *Frame) AddColor(width, height int, c string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillColor := parseHTMLColor(c)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fillColor)
		}
	}
	f.image = img
	f.width = width
	f.height = height
	f.HasImageData = true
}

// AddImage copies raw pixel bytes into this frame's image, converting to
// RGBA8888 if the source isn't already in that layout. Only 4-byte RGBA
// and 4-byte BGRA source layouts are recognized; any other
// bytesPerPixel is treated as already-RGBA and copied verbatim.
func (f *Frame) AddImage(width, height, bytesPerPixel int, bgra bool, pixels []byte) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if bytesPerPixel == 4 && bgra {
		for i := 0; i+3 < len(pixels) && i+3 < len(img.Pix); i += 4 {
			img.Pix[i+0] = pixels[i+2]
			img.Pix[i+1] = pixels[i+1]
			img.Pix[i+2] = pixels[i+0]
			img.Pix[i+3] = pixels[i+3]
		}
	} else {
		copy(img.Pix, pixels)
	}
	f.image = img
	f.width = width
	f.height = height
	f.HasImageData = true
}

// AddImageRGBA installs an already-decoded RGBA8888 image directly,
// skipping the copy AddImage performs. A nil image is ignored.
func (f *Frame) AddImageRGBA(img *image.RGBA) {
	if img == nil {
		return
	}
	f.image = img
	f.width = img.Bounds().Dx()
	f.height = img.Bounds().Dy()
	f.HasImageData = true
}

// GetImage returns this frame's image, lazily filling it with black if
// no image has been added yet.
func (f *Frame) GetImage() *image.RGBA {
	if f.image == nil {
		f.AddColor(f.width, f.height, "#000000")
	}
	return f.image
}

// GetPixels returns the raw RGBA8888 byte buffer of this frame's image,
// lazily filling it with black if needed.
func (f *Frame) GetPixels() []byte {
	return f.GetImage().Pix
}

// GetBytes estimates this frame's memory footprint, used only as the
// cache's size metric.
func (f *Frame) GetBytes() int64 {
	var total int64
	if f.image != nil {
		total += int64(f.width) * int64(f.height) * 4
	}
	if f.audio != nil {
		total += int64(float64(f.sampleRate)/24.0) * 4
	}
	return total
}

// GetAudioChannelsCount returns the number of audio channels held by
// this frame.
func (f *Frame) GetAudioChannelsCount() int {
	if f.audio == nil {
		return 0
	}
	return f.audio.NumChannels()
}

// GetAudioSamplesCount returns the number of audio samples per channel
// held by this frame.
func (f *Frame) GetAudioSamplesCount() int {
	if f.audio == nil {
		return 0
	}
	return f.audio.NumSamples()
}

// GetAudioBuffer returns the underlying sample buffer.
func (f *Frame) GetAudioBuffer() *samplebuffer.Buffer[float32] { return f.audio }

// GetAudioSamples returns the raw sample slice for one channel.
func (f *Frame) GetAudioSamples(channel int) []float32 { return f.audio.Channel(channel) }

// GetPlanarAudioSamples returns every channel's samples concatenated
// channel-by-channel (all of channel 0, then all of channel 1, ...).
func (f *Frame) GetPlanarAudioSamples() []float32 {
	channels := f.audio.NumChannels()
	samples := f.audio.NumSamples()
	out := make([]float32, 0, channels*samples)
	for ch := 0; ch < channels; ch++ {
		out = append(out, f.audio.Channel(ch)...)
	}
	return out
}

// GetInterleavedAudioSamples returns every channel's samples interleaved
// sample-by-sample (ch0[0], ch1[0], ..., ch0[1], ch1[1], ...).
func (f *Frame) GetInterleavedAudioSamples() []float32 {
	channels := f.audio.NumChannels()
	samples := f.audio.NumSamples()
	out := make([]float32, 0, channels*samples)
	for s := 0; s < samples; s++ {
		for ch := 0; ch < channels; ch++ {
			out = append(out, f.audio.Channel(ch)[s])
		}
	}
	return out
}

// ResizeAudio resizes the audio buffer to the given channel count and
// sample length, preserving existing content, and records the new
// sample rate and channel layout.
func (f *Frame) ResizeAudio(channels, length, rate int, layout ChannelLayout) {
	f.audio.SetSize(channels, length, true, true, false)
	f.channels = channels
	f.channelLayout = layout
	f.sampleRate = rate
}

// AddAudio grows the buffer as needed to cover [0, destStart+n) samples
// across max(destChannel+1, current channels) channels, optionally
// clears the destination window, then mixes source in with gain.
func (f *Frame) AddAudio(replace bool, destChannel, destStart int, source []float32, n int, gain float32) {
	newLength := destStart + n
	newChannels := f.audio.NumChannels()
	if destChannel >= newChannels {
		newChannels = destChannel + 1
	}
	if newLength > f.audio.NumSamples() || newChannels > f.audio.NumChannels() {
		f.audio.SetSize(newChannels, newLength, true, true, false)
	}
	if replace {
		f.audio.ClearChannelRange(destChannel, destStart, n)
	}
	f.audio.AddFrom(destChannel, destStart, source, n, gain)
	f.HasAudioData = true
}

// AddAudioSilence resizes the buffer to hold numSamples samples per
// channel (discarding existing content) and clears it.
func (f *Frame) AddAudioSilence(numSamples int) {
	f.audio.SetSize(f.channels, numSamples, false, true, false)
	f.audio.Clear()
	f.HasAudioData = true
}

// GetAudioSample returns the magnitude of a range of samples. A
// non-negative channel returns that channel's magnitude; a negative
// channel averages the magnitude across every channel.
func (f *Frame) GetAudioSample(channel, sample, magnitudeRange int) float32 {
	if channel >= 0 {
		return f.audio.GetMagnitude(channel, sample, magnitudeRange)
	}
	var sum float32
	channels := f.audio.NumChannels()
	for ch := 0; ch < channels; ch++ {
		sum += f.audio.GetMagnitude(ch, sample, magnitudeRange)
	}
	if channels == 0 {
		return 0
	}
	return sum / float32(channels)
}

// GetSamplesPerFrame returns the number of audio samples belonging to
// this frame's number, at the given frame rate, sample rate, and
// channel count.
func (f *Frame) GetSamplesPerFrame(fps fraction.Fraction, sampleRate, channels int) int {
	return GetSamplesPerFrame(f.Number, fps, sampleRate, channels)
}

// GetSamplesPerFrame distributes a (possibly irrational) samples-per-
// frame ratio across frames so that cumulative per-frame counts track
// the stream's true cumulative sample count to within fewer than
// channels samples, and every per-frame count is a multiple of channels.
func GetSamplesPerFrame(number int, fps fraction.Fraction, sampleRate, channels int) int {
	fpsRate := fps.Reciprocal().ToFloat64()

	previousSamples := float64(sampleRate) * fpsRate * float64(number-1)
	previousSamples -= math.Mod(previousSamples, float64(channels))

	totalSamples := float64(sampleRate) * fpsRate * float64(number)
	totalSamples -= math.Mod(totalSamples, float64(channels))

	return int(math.Round(totalSamples - previousSamples))
}

func parseHTMLColor(c string) color.RGBA {
	if len(c) == 7 && c[0] == '#' {
		r, ok1 := hexByte(c[1:3])
		g, ok2 := hexByte(c[3:5])
		b, ok3 := hexByte(c[5:7])
		if ok1 && ok2 && ok3 {
			return color.RGBA{R: r, G: g, B: b, A: 255}
		}
	}
	return color.RGBA{A: 255}
}

func hexByte(s string) (byte, bool) {
	var v int
	for _, r := range s {
		v <<= 4
		switch {
		case r >= '0' && r <= '9':
			v |= int(r - '0')
		case r >= 'a' && r <= 'f':
			v |= int(r-'a') + 10
		case r >= 'A' && r <= 'F':
			v |= int(r-'A') + 10
		default:
			return 0, false
		}
	}
	return byte(v), true
}
