// Package mediareader is the public face of the random-access media
// reader: a thin re-export over internal/reader and internal/frame so
// callers get a stable API surface while the decode pipeline stays free
// to change underneath it.
package mediareader

import (
	"github.com/e1z0/mediareader/internal/frame"
	"github.com/e1z0/mediareader/internal/reader"
)

// Types
type Reader = reader.Reader
type MediaInfo = reader.MediaInfo
type Frame = frame.Frame
type ChannelLayout = frame.ChannelLayout

// Channel layout constants
const (
	LayoutMono    = frame.LayoutMono
	LayoutStereo  = frame.LayoutStereo
	Layout2Point1 = frame.Layout2Point1
	Layout5Point1 = frame.Layout5Point1
	Layout7Point1 = frame.Layout7Point1
)

// Errors
type InvalidFile = reader.InvalidFile
type NoStreamsFound = reader.NoStreamsFound
type InvalidCodec = reader.InvalidCodec
type ReaderClosed = reader.ReaderClosed
type OutOfBoundsFrame = reader.OutOfBoundsFrame

// New returns a Reader for the media file at path. Call Open before
// requesting frames.
func New(path string) *Reader {
	return reader.New(path)
}

// Open opens path, probes its streams, and readies the reader to serve
// frames. It's a convenience wrapper around New followed by r.Open().
func Open(path string) (*Reader, error) {
	r := reader.New(path)
	if err := r.Open(); err != nil {
		return nil, err
	}
	return r, nil
}
