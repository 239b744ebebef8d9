package reader

import (
	"github.com/e1z0/mediareader/internal/fraction"
	"github.com/e1z0/mediareader/internal/frame"
)

// MediaInfo describes the streams found in an opened media file.
type MediaInfo struct {
	HasVideo       bool
	HasAudio       bool
	HasSingleImage bool
	Duration       float64
	FileSize       int64

	Width           int
	Height          int
	PixelFormat     int
	FPS             fraction.Fraction
	VideoBitRate    int
	PixelRatio      fraction.Fraction
	DisplayRatio    fraction.Fraction
	VCodec          string
	VideoLength     int
	VideoStreamIdx  int
	VideoTimeBase   fraction.Fraction
	InterlacedFrame bool
	TopFieldFirst   bool

	ACodec         string
	AudioBitRate   int
	SampleRate     int
	Channels       int
	ChannelLayout  frame.ChannelLayout
	AudioStreamIdx int
	AudioTimeBase  fraction.Fraction
}

// newMediaInfo returns a MediaInfo with the same zero values the original
// reader initializes before any stream has been inspected.
func newMediaInfo() MediaInfo {
	return MediaInfo{
		PixelFormat:    -1,
		VideoStreamIdx: -1,
		AudioStreamIdx: -1,
		TopFieldFirst:  true,
	}
}

// audioLocation pairs a video frame number with the sample offset an
// audio packet's first sample lands on within that frame.
type audioLocation struct {
	frame       int
	sampleStart int
}

// isNear reports whether other is within amount samples of l, measured in
// total samples using samplesPerFrame as the frame-to-sample conversion.
// samplesPerFrame can vary slightly frame to frame when the audio sample
// rate isn't an integer multiple of the video fps.
func (l audioLocation) isNear(other audioLocation, samplesPerFrame int, amount int) bool {
	if abs(other.frame-l.frame) >= 2 {
		return false
	}
	diff := samplesPerFrame*(other.frame-l.frame) + other.sampleStart - l.sampleStart
	return abs(diff) <= amount
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
