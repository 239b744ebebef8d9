package reader

import "fmt"

// InvalidFile is returned when the requested path could not be opened or
// demuxed at all.
type InvalidFile struct {
	Message  string
	FilePath string
}

func (e *InvalidFile) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FilePath)
}

// NoStreamsFound is returned when a file opens but carries no usable
// video or audio stream.
type NoStreamsFound struct {
	Message  string
	FilePath string
}

func (e *NoStreamsFound) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FilePath)
}

// InvalidCodec is returned when a stream's codec can't be found or opened.
type InvalidCodec struct {
	Message  string
	FilePath string
}

func (e *InvalidCodec) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FilePath)
}

// ReaderClosed is returned when GetFrame is called before Open or after
// Close.
type ReaderClosed struct {
	Message  string
	FilePath string
}

func (e *ReaderClosed) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.FilePath)
}

// OutOfBoundsFrame is returned when a frame conversion fails for a frame
// number outside the stream's known length.
type OutOfBoundsFrame struct {
	Message      string
	CurrentFrame int
	VideoLength  int
}

func (e *OutOfBoundsFrame) Error() string {
	return fmt.Sprintf("%s: frame %d, video length %d", e.Message, e.CurrentFrame, e.VideoLength)
}
