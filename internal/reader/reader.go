// Package reader implements random-access playback of an audio/video
// file: GetFrame(n) decodes (or replays from cache) the image and audio
// samples that land in frame n's slot on the file's nominal frame rate
// grid, walking or seeking through the container as needed.
package reader

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/e1z0/mediareader/internal/cache"
	"github.com/e1z0/mediareader/internal/fraction"
	"github.com/e1z0/mediareader/internal/frame"
)

const (
	maxPacketsPerRead  = 4096
	maxCheckedCount    = 80
	seekBufferAmount   = 6
	drainPollInterval  = 2500 * time.Millisecond
	forwardWalkHorizon = 20
)

// Reader opens a media file and serves random-access Frame lookups,
// decoding and caching packets only as far ahead as needed to satisfy
// GetFrame.
type Reader struct {
	mu sync.Mutex

	path string

	// MaxWidth and MaxHeight, if both set, downscale decoded video while
	// preserving aspect ratio. Zero means decode at native size.
	MaxWidth  int
	MaxHeight int

	// EnableSeek allows Seek to jump to nearby keyframes instead of
	// always closing and reopening the file for backward access.
	EnableSeek bool

	Info MediaInfo

	isOpen           bool
	isDurationKnown  bool
	checkFPS         bool
	hasMissingFrames bool

	numThreads int

	formatCtx      *astiav.FormatContext
	videoStream    int
	audioStream    int
	videoStreamObj *astiav.Stream
	audioStreamObj *astiav.Stream
	videoCodecCtx  *astiav.CodecContext
	audioCodecCtx  *astiav.CodecContext

	packet            *astiav.Packet
	decodedVideoFrame *astiav.Frame
	decodedAudioFrame *astiav.Frame
	resampledFrame    *astiav.Frame
	resampler         *astiav.SoftwareResampleContext

	scaleCtx    *astiav.SoftwareScaleContext
	scaledFrame *astiav.Frame
	scaleSrcW, scaleSrcH int
	scaleSrcFmt          astiav.PixelFormat
	scaleDstW, scaleDstH int

	pictureType int

	workingCache  *cache.FrameCache
	missingFrames *cache.FrameCache
	finalCache    *cache.FrameCache

	previousPacketLocation audioLocation

	processingVideoFrames    map[int]int
	processingAudioFrames    map[int]int
	processedVideoFrames     map[int]bool
	processedAudioFrames     map[int]bool
	missingVideoFrames       map[int]int
	missingVideoFramesSource map[int][]int
	missingAudioFrames       map[int]int
	checkedFrames            map[int]int

	audioPTSOffset int64
	videoPTSOffset int64

	lastFrame             int
	largestFrameProcessed int
	currentVideoFrame     int

	isSeeking           bool
	seekingPTS          int64
	seekingFrame        int
	isVideoSeek         bool
	seekCount           int
	seekAudioFrameFound int
	seekVideoFrameFound int

	lastVideoFrame *frame.Frame
}

// New returns a Reader for the media file at path. Call Open before
// requesting frames.
func New(path string) *Reader {
	return &Reader{
		path:           path,
		EnableSeek:     true,
		Info:           newMediaInfo(),
		audioPTSOffset: ptsSentinel,
		videoPTSOffset: ptsSentinel,
	}
}

// IsOpen reports whether the reader currently has the file open.
func (r *Reader) IsOpen() bool {
	return r.isOpen
}

// GetCache returns the cache of finished frames backing this reader.
func (r *Reader) GetCache() *cache.FrameCache {
	return r.finalCache
}

// Open opens the underlying file, probes its streams, and prepares the
// reader to serve frames. Calling Open on an already-open reader is a
// no-op.
func (r *Reader) Open() error {
	if r.isOpen {
		return nil
	}
	if r.path == "" {
		return &InvalidFile{Message: "file could not be opened", FilePath: r.path}
	}

	r.numThreads = runtime.NumCPU()

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return &InvalidFile{Message: "file could not be opened", FilePath: r.path}
	}

	if err := fc.OpenInput(r.path, nil, nil); err != nil {
		fc.Free()
		return &InvalidFile{Message: "file could not be opened", FilePath: r.path}
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return &NoStreamsFound{Message: "no streams found in file", FilePath: r.path}
	}

	r.formatCtx = fc
	r.videoStream = -1
	r.audioStream = -1

	for _, s := range fc.Streams() {
		switch s.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if r.videoStream < 0 {
				r.videoStream = s.Index()
			}
		case astiav.MediaTypeAudio:
			if r.audioStream < 0 {
				r.audioStream = s.Index()
			}
		}
	}

	if r.videoStream == -1 && r.audioStream == -1 {
		r.closeFormat()
		return &NoStreamsFound{Message: "no video or audio streams found in this file", FilePath: r.path}
	}

	if st, err := os.Stat(r.path); err == nil {
		r.Info.FileSize = st.Size()
	} else {
		r.Info.FileSize = -1
	}

	if r.videoStream != -1 {
		r.Info.VideoStreamIdx = r.videoStream
		r.videoStreamObj = fc.Streams()[r.videoStream]

		if err := r.openVideoCodec(); err != nil {
			r.closeFormat()
			return err
		}
		r.updateVideoInfo()
	}

	if r.audioStream != -1 {
		r.Info.AudioStreamIdx = r.audioStream
		r.audioStreamObj = fc.Streams()[r.audioStream]

		if err := r.openAudioCodec(); err != nil {
			r.closeFormat()
			return err
		}
		r.updateAudioInfo()
	}

	r.previousPacketLocation = audioLocation{frame: -1, sampleStart: 0}

	r.workingCache = cache.New()
	r.missingFrames = cache.New()
	r.finalCache = cache.New()
	r.workingCache.SetMaxBytesFromInfo(r.numThreads*30, r.Info.Width, r.Info.Height, r.Info.SampleRate, r.Info.Channels)
	r.missingFrames.SetMaxBytesFromInfo(r.numThreads*2, r.Info.Width, r.Info.Height, r.Info.SampleRate, r.Info.Channels)
	r.finalCache.SetMaxBytesFromInfo(r.numThreads*2, r.Info.Width, r.Info.Height, r.Info.SampleRate, r.Info.Channels)

	r.packet = astiav.AllocPacket()
	if r.Info.HasVideo {
		r.decodedVideoFrame = astiav.AllocFrame()
	}
	if r.Info.HasAudio {
		r.decodedAudioFrame = astiav.AllocFrame()
		r.resampledFrame = astiav.AllocFrame()
		r.resampler = astiav.AllocSoftwareResampleContext()
	}

	r.resetBookkeeping()
	r.isOpen = true
	return nil
}

func (r *Reader) openVideoCodec() error {
	params := r.videoStreamObj.CodecParameters()
	decoder := astiav.FindDecoder(params.CodecID())
	if decoder == nil {
		return &InvalidCodec{Message: "a valid video codec could not be found for this file", FilePath: r.path}
	}
	ctx := astiav.AllocCodecContext(decoder)
	if ctx == nil {
		return &InvalidCodec{Message: "a valid video codec could not be found for this file", FilePath: r.path}
	}
	if err := params.ToCodecContext(ctx); err != nil {
		ctx.Free()
		return &InvalidCodec{Message: "a valid video codec could not be found for this file", FilePath: r.path}
	}
	ctx.SetThreadCount(r.numThreads)
	if err := ctx.Open(decoder, nil); err != nil {
		ctx.Free()
		return &InvalidCodec{Message: "a video codec was found, but could not be opened", FilePath: r.path}
	}
	r.videoCodecCtx = ctx
	return nil
}

func (r *Reader) openAudioCodec() error {
	params := r.audioStreamObj.CodecParameters()
	decoder := astiav.FindDecoder(params.CodecID())
	if decoder == nil {
		return &InvalidCodec{Message: "a valid audio codec could not be found for this file", FilePath: r.path}
	}
	ctx := astiav.AllocCodecContext(decoder)
	if ctx == nil {
		return &InvalidCodec{Message: "a valid audio codec could not be found for this file", FilePath: r.path}
	}
	if err := params.ToCodecContext(ctx); err != nil {
		ctx.Free()
		return &InvalidCodec{Message: "a valid audio codec could not be found for this file", FilePath: r.path}
	}
	ctx.SetThreadCount(r.numThreads)
	if err := ctx.Open(decoder, nil); err != nil {
		ctx.Free()
		return &InvalidCodec{Message: "an audio codec was found, but could not be opened", FilePath: r.path}
	}
	r.audioCodecCtx = ctx
	return nil
}

func (r *Reader) closeFormat() {
	if r.formatCtx != nil {
		r.formatCtx.CloseInput()
		r.formatCtx.Free()
		r.formatCtx = nil
	}
}

func (r *Reader) resetBookkeeping() {
	r.processingVideoFrames = make(map[int]int)
	r.processingAudioFrames = make(map[int]int)
	r.processedVideoFrames = make(map[int]bool)
	r.processedAudioFrames = make(map[int]bool)
	r.missingVideoFrames = make(map[int]int)
	r.missingVideoFramesSource = make(map[int][]int)
	r.missingAudioFrames = make(map[int]int)
	r.checkedFrames = make(map[int]int)
}

// Close releases every resource acquired by Open. Calling Close on an
// already-closed reader is a no-op.
func (r *Reader) Close() {
	if !r.isOpen {
		return
	}
	r.isOpen = false

	if r.Info.HasVideo && r.videoCodecCtx != nil {
		r.videoCodecCtx.Free()
		r.videoCodecCtx = nil
	}
	if r.Info.HasAudio && r.audioCodecCtx != nil {
		r.audioCodecCtx.Free()
		r.audioCodecCtx = nil
	}
	if r.packet != nil {
		r.packet.Free()
		r.packet = nil
	}
	if r.decodedVideoFrame != nil {
		r.decodedVideoFrame.Free()
		r.decodedVideoFrame = nil
	}
	if r.decodedAudioFrame != nil {
		r.decodedAudioFrame.Free()
		r.decodedAudioFrame = nil
	}
	if r.resampledFrame != nil {
		r.resampledFrame.Free()
		r.resampledFrame = nil
	}
	if r.resampler != nil {
		r.resampler.Free()
		r.resampler = nil
	}
	if r.scaleCtx != nil {
		r.scaleCtx.Free()
		r.scaleCtx = nil
	}
	if r.scaledFrame != nil {
		r.scaledFrame.Free()
		r.scaledFrame = nil
	}
	r.scaleSrcW, r.scaleSrcH, r.scaleDstW, r.scaleDstH = 0, 0, 0, 0

	r.finalCache.Clear()
	r.workingCache.Clear()
	r.missingFrames.Clear()
	r.resetBookkeeping()

	r.closeFormat()

	r.lastFrame = 0
	r.largestFrameProcessed = 0
	r.seekAudioFrameFound = 0
	r.seekVideoFrameFound = 0
	r.currentVideoFrame = 0
	r.hasMissingFrames = false
	r.videoPTSOffset = ptsSentinel
	r.audioPTSOffset = ptsSentinel
}

// DisplayInfo prints the details of the opened media file.
func (r *Reader) DisplayInfo() {
	i := r.Info
	fmt.Println("----------------------------")
	fmt.Println("----- File Information -----")
	fmt.Println("----------------------------")
	fmt.Printf("--> Has Video: %v\n", i.HasVideo)
	fmt.Printf("--> Has Audio: %v\n", i.HasAudio)
	fmt.Printf("--> Has Single Image: %v\n", i.HasSingleImage)
	fmt.Printf("--> Duration: %.2f Seconds\n", i.Duration)
	fmt.Printf("--> File Size: %.2f MB\n", float64(i.FileSize)/1024/1024)
	if i.HasVideo {
		fmt.Println("----------------------------")
		fmt.Println("----- Video Attributes -----")
		fmt.Println("----------------------------")
		fmt.Printf("--> Width: %d\n", i.Width)
		fmt.Printf("--> Height: %d\n", i.Height)
		fmt.Printf("--> Pixel Format: %d\n", i.PixelFormat)
		fmt.Printf("--> Frames Per Second: %.2f (%d/%d)\n", i.FPS.ToFloat64(), i.FPS.Num, i.FPS.Den)
		fmt.Printf("--> Video Bit Rate: %d kb/s\n", i.VideoBitRate/1000)
		fmt.Printf("--> Pixel Ratio: %.2f (%d/%d)\n", i.PixelRatio.ToFloat64(), i.PixelRatio.Num, i.PixelRatio.Den)
		fmt.Printf("--> Display Aspect Ratio: %.2f (%d/%d)\n", i.DisplayRatio.ToFloat64(), i.DisplayRatio.Num, i.DisplayRatio.Den)
		fmt.Printf("--> Video Codec: %s\n", i.VCodec)
		fmt.Printf("--> Video Length: %d Frames\n", i.VideoLength)
		fmt.Printf("--> Video Stream Index: %d\n", i.VideoStreamIdx)
		fmt.Printf("--> Video Timebase: %.4f (%d/%d)\n", i.VideoTimeBase.ToFloat64(), i.VideoTimeBase.Num, i.VideoTimeBase.Den)
		fmt.Printf("--> Interlaced: %v\n", i.InterlacedFrame)
		fmt.Printf("--> Interlaced: Top Field First: %v\n", i.TopFieldFirst)
	}
	if i.HasAudio {
		fmt.Println("----------------------------")
		fmt.Println("----- Audio Attributes -----")
		fmt.Println("----------------------------")
		fmt.Printf("--> Audio Codec: %s\n", i.ACodec)
		fmt.Printf("--> Audio Bit Rate: %d kb/s\n", i.AudioBitRate/1000)
		fmt.Printf("--> Sample Rate: %d Hz\n", i.SampleRate)
		fmt.Printf("--> # of Channels: %d\n", i.Channels)
		fmt.Printf("--> Audio Stream Index: %d\n", i.AudioStreamIdx)
		fmt.Printf("--> Audio Timebase: %.4f (%d/%d)\n", i.AudioTimeBase.ToFloat64(), i.AudioTimeBase.Num, i.AudioTimeBase.Den)
	}
	fmt.Println("----------------------------")
}

func (r *Reader) updateVideoInfo() {
	i := &r.Info
	i.HasVideo = true
	i.Height = r.videoCodecCtx.Height()
	i.Width = r.videoCodecCtx.Width()
	i.VCodec = r.videoCodecCtx.Codec().Name()
	i.VideoBitRate = int(r.formatCtx.BitRate())

	if !r.checkFPS {
		rate := r.videoStreamObj.AvgFrameRate()
		i.FPS = fraction.New(rate.Num(), rate.Den())
	}

	sar := r.videoStreamObj.SampleAspectRatio()
	switch {
	case sar.Num() != 0:
		i.PixelRatio = fraction.New(sar.Num(), sar.Den())
	case r.videoCodecCtx.SampleAspectRatio().Num() != 0:
		ctxSar := r.videoCodecCtx.SampleAspectRatio()
		i.PixelRatio = fraction.New(ctxSar.Num(), ctxSar.Den())
	default:
		i.PixelRatio = fraction.New(1, 1)
	}

	i.PixelFormat = int(r.videoCodecCtx.PixelFormat())

	size := fraction.New(i.Width*i.PixelRatio.Num, i.Height*i.PixelRatio.Den).Reduce()
	i.DisplayRatio = size

	tb := r.videoStreamObj.TimeBase()
	i.VideoTimeBase = fraction.New(tb.Num(), tb.Den())

	i.Duration = float64(r.videoStreamObj.Duration()) * i.VideoTimeBase.ToFloat64()
	if i.Duration <= 0 && r.formatCtx.Duration() >= 0 {
		i.Duration = float64(r.formatCtx.Duration()) / float64(time.Second/time.Microsecond)
	}
	if i.Duration <= 0 && i.VideoBitRate > 0 && i.FileSize > 0 {
		i.Duration = float64(i.FileSize / int64(i.VideoBitRate))
	}

	if i.Duration <= 0 {
		i.Duration = -1
		i.VideoLength = -1
		r.isDurationKnown = false
	} else {
		r.isDurationKnown = true
		i.VideoLength = int(math.Round(i.Duration * i.FPS.ToFloat64()))
	}

	if i.FPS.ToFloat64() > 120.0 || i.FPS.Num == 0 || i.FPS.Den == 0 {
		i.FPS = fraction.New(24, 1)
		i.VideoTimeBase = fraction.New(1, 24)
		i.VideoLength = int(math.Round(i.Duration * i.FPS.ToFloat64()))
	}
}

func (r *Reader) updateAudioInfo() {
	i := &r.Info
	i.HasAudio = true
	i.ACodec = r.audioCodecCtx.Codec().Name()
	channelLayout := r.audioCodecCtx.ChannelLayout()
	i.Channels = channelLayout.Channels()
	i.ChannelLayout = mapChannelLayout(i.Channels)
	i.SampleRate = r.audioCodecCtx.SampleRate()
	i.AudioBitRate = int(r.audioCodecCtx.BitRate())

	tb := r.audioStreamObj.TimeBase()
	i.AudioTimeBase = fraction.New(tb.Num(), tb.Den())

	audioDuration := float64(r.audioStreamObj.Duration()) * i.AudioTimeBase.ToFloat64()
	if audioDuration > 0 && audioDuration > i.Duration {
		i.Duration = audioDuration
	}

	if i.HasVideo && i.VideoLength <= 0 {
		i.VideoLength = int(i.Duration * i.FPS.ToFloat64())
	}

	if !i.HasVideo {
		i.FPS = fraction.New(24, 1)
		i.VideoTimeBase = fraction.New(1, 24)
		i.VideoLength = int(i.Duration * i.FPS.ToFloat64())
		i.Width = 720
		i.Height = 480
	}
}

// mapChannelLayout is a coarse approximation of the original's direct
// AVCodecContext channel_layout cast: enough fidelity for Waveform
// rendering and ResizeAudio, without depending on libavutil's bitmask
// layout constants.
func mapChannelLayout(channels int) frame.ChannelLayout {
	switch channels {
	case 1:
		return frame.LayoutMono
	case 2:
		return frame.LayoutStereo
	case 3:
		return frame.Layout2Point1
	case 6:
		return frame.Layout5Point1
	case 8:
		return frame.Layout7Point1
	default:
		return frame.LayoutStereo
	}
}

// GetFrame returns the Frame for requestedFrame (1-based), decoding or
// seeking through the container as needed.
func (r *Reader) GetFrame(requestedFrame int) (*frame.Frame, error) {
	if !r.isOpen {
		return nil, &ReaderClosed{Message: "the reader is closed; call Open() before calling this method", FilePath: r.path}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if requestedFrame < 1 {
		requestedFrame = 1
	}
	if r.isDurationKnown && requestedFrame > r.Info.VideoLength {
		requestedFrame = r.Info.VideoLength
	}
	if r.Info.HasVideo && r.Info.VideoLength == 0 {
		return nil, &InvalidFile{Message: "could not detect the duration of the video or audio stream", FilePath: r.path}
	}

	if f, ok := r.finalCache.GetFrame(requestedFrame); ok {
		return f, nil
	}

	if r.hasMissingFrames {
		r.checkMissingFrame(requestedFrame)
	}
	if f, ok := r.finalCache.GetFrame(requestedFrame); ok {
		return f, nil
	}

	r.seekCount = 0

	if r.lastFrame == 0 && requestedFrame != 1 {
		r.readStream(1)
	}

	diff := requestedFrame - r.lastFrame
	if diff >= 1 && diff <= forwardWalkHorizon {
		return r.readStream(requestedFrame), nil
	}

	if r.EnableSeek {
		r.seek(requestedFrame)
	} else if diff < 0 {
		r.Close()
		if err := r.Open(); err != nil {
			return nil, err
		}
	}
	return r.readStream(requestedFrame), nil
}
