package reader

import (
	"errors"
	"math"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/e1z0/mediareader/internal/frame"
)

// noPTSValue mirrors FFmpeg's AV_NOPTS_VALUE (INT64_MIN), used to detect
// an unset packet timestamp.
const noPTSValue = int64(math.MinInt64)

// readStream pumps packets from the container until requestedFrame is
// available in the final cache, or the stream ends.
func (r *Reader) readStream(requestedFrame int) *frame.Frame {
	endOfStream := false
	packetsProcessed := 0
	minimumPackets := r.numThreads
	if minimumPackets < 1 {
		minimumPackets = 1
	}

	for {
		packetErr := r.nextPacket()

		for len(r.processingVideoFrames)+len(r.processingAudioFrames) >= minimumPackets {
			time.Sleep(drainPollInterval)
		}

		if packetErr != nil {
			endOfStream = true
			break
		}

		streamIdx := r.packet.StreamIndex()
		checkSeek := false

		switch {
		case r.Info.HasVideo && streamIdx == r.videoStream:
			if r.isSeeking {
				checkSeek = r.checkSeek(true)
			}
			if checkSeek {
				r.packet.Unref()
				continue
			}

			if r.decodeVideoFrame() {
				r.updateVideoPTSOffset(r.videoPTS())
				r.processVideoPacket(requestedFrame)
			}

		case r.Info.HasAudio && streamIdx == r.audioStream:
			if r.isSeeking {
				checkSeek = r.checkSeek(false)
			}
			if checkSeek {
				r.packet.Unref()
				continue
			}

			r.updateAudioPTSOffset(r.packet.Pts())
			location := r.getAudioPTSLocation(r.packet.Pts())
			r.processAudioPacket(requestedFrame, location.frame, location.sampleStart)
		}

		r.packet.Unref()

		if !r.isSeeking {
			r.checkMissingFrame(requestedFrame)
			r.checkWorkingFrames(false, requestedFrame)
		}

		_, cacheFound := r.finalCache.GetFrame(requestedFrame)
		packetsProcessed++

		if (cacheFound && packetsProcessed >= minimumPackets) || packetsProcessed > maxPacketsPerRead {
			break
		}
	}

	if endOfStream {
		r.checkWorkingFrames(true, requestedFrame)
	}

	if f, ok := r.finalCache.GetFrame(requestedFrame); ok {
		return f
	}
	if f, ok := r.finalCache.GetFrame(r.largestFrameProcessed); ok {
		return f
	}

	f := r.createFrame(r.largestFrameProcessed)
	f.AddColor(r.Info.Width, r.Info.Height, "#000000")
	return f
}

// nextPacket reads the next demuxed packet into r.packet, returning the
// astiav error (typically io.EOF-equivalent) when the stream is
// exhausted.
func (r *Reader) nextPacket() error {
	return r.formatCtx.ReadFrame(r.packet)
}

// videoPTS returns the decode timestamp for the most recently decoded
// video packet, falling back to 0 when it's unset.
func (r *Reader) videoPTS() int64 {
	dts := r.packet.Dts()
	if dts == noPTSValue {
		return 0
	}
	return dts
}

// decodeVideoFrame feeds the current packet to the video decoder and
// reports whether a full frame became available.
func (r *Reader) decodeVideoFrame() bool {
	if err := r.videoCodecCtx.SendPacket(r.packet); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return false
	}
	err := r.videoCodecCtx.ReceiveFrame(r.decodedVideoFrame)
	if err != nil {
		return false
	}
	r.pictureType = 0
	return true
}

// isPartialFrame reports whether requestedFrame falls within the range
// of frames discarded as seek overshoot.
func (r *Reader) isPartialFrame(requestedFrame int) bool {
	maxSeekedFrame := r.seekAudioFrameFound
	if r.seekVideoFrameFound > maxSeekedFrame {
		maxSeekedFrame = r.seekVideoFrameFound
	}

	if r.Info.HasAudio && r.seekAudioFrameFound != 0 && maxSeekedFrame >= requestedFrame {
		return true
	}
	if r.Info.HasVideo && r.seekVideoFrameFound != 0 && maxSeekedFrame >= requestedFrame {
		return true
	}
	return false
}

// checkMissingFrame attempts to fill a gap frame number by copying the
// image from its nearest processed neighbor, promoting the result to
// the final cache once a donor frame is available.
func (r *Reader) checkMissingFrame(requestedFrame int) bool {
	r.checkedFrames[requestedFrame]++

	missingSourceFrame := -1
	if src, ok := r.missingVideoFrames[requestedFrame]; ok {
		missingSourceFrame = src
	} else if src, ok := r.missingAudioFrames[requestedFrame]; ok {
		missingSourceFrame = src
	} else {
		return false
	}

	r.checkedFrames[missingSourceFrame]++

	parentFrame, ok := r.missingFrames.GetFrame(missingSourceFrame)
	if !ok {
		if pf, ok := r.finalCache.GetFrame(missingSourceFrame); ok {
			parentFrame = pf
			r.missingFrames.Add(pf)
		}
	}

	missingFrame := r.createFrame(requestedFrame)

	if parentFrame != nil {
		missingFrame.AddImageRGBA(parentFrame.GetImage())

		r.processedVideoFrames[missingFrame.Number] = true
		r.processedAudioFrames[missingFrame.Number] = true

		r.finalCache.Add(missingFrame)
		r.workingCache.Remove(missingFrame.Number)

		r.lastFrame = missingFrame.Number
	}

	return false
}

// checkWorkingFrames promotes frames whose video and audio data have
// both arrived (or, at end of stream or after maxCheckedCount retries,
// whatever data is available) from the working cache to the final
// cache.
func (r *Reader) checkWorkingFrames(endOfStream bool, requestedFrame int) {
	checkedCountTripped := false

	for {
		f, ok := r.workingCache.GetSmallestFrame()
		if !ok {
			break
		}

		r.checkMissingFrame(f.Number)

		isVideoReady := r.processedVideoFrames[f.Number]
		isAudioReady := r.processedAudioFrames[f.Number]

		checkedCount := r.checkedFrames[f.Number]
		if checkedCountTripped && f.Number < requestedFrame {
			checkedCount = maxCheckedCount
		}

		if r.previousPacketLocation.frame == f.Number && !endOfStream {
			isAudioReady = false
		}

		isSeekTrash := r.isPartialFrame(f.Number)

		if !r.Info.HasVideo {
			isVideoReady = true
		}
		if !r.Info.HasAudio {
			isAudioReady = true
		}

		if checkedCount >= maxCheckedCount && (!isVideoReady || !isAudioReady) {
			checkedCountTripped = true

			if r.Info.HasVideo && !isVideoReady && r.lastVideoFrame != nil {
				f.AddImageRGBA(r.lastVideoFrame.GetImage())
				isVideoReady = true
			}
			if r.Info.HasAudio && !isAudioReady {
				isAudioReady = true
			}
		}

		if (!endOfStream && isVideoReady && isAudioReady) || endOfStream || isSeekTrash {
			if !isSeekTrash {
				r.finalCache.Add(f)

				if _, ok := r.missingVideoFramesSource[f.Number]; ok {
					r.missingFrames.Add(f)
				}
				delete(r.checkedFrames, f.Number)

				r.workingCache.Remove(f.Number)
				r.lastFrame = f.Number
			} else {
				r.workingCache.Remove(f.Number)
			}
		} else {
			break
		}
	}
}

// createFrame returns the working-cache frame for requestedFrame,
// allocating and registering a new one (sized for this stream's audio
// layout) if it isn't already there.
func (r *Reader) createFrame(requestedFrame int) *frame.Frame {
	if f, ok := r.workingCache.GetFrame(requestedFrame); ok {
		return f
	}

	samplesPerFrame := frame.GetSamplesPerFrame(requestedFrame, r.Info.FPS, r.Info.SampleRate, r.Info.Channels)
	f := frame.NewWithImageAndAudio(requestedFrame, r.Info.Width, r.Info.Height, "#000000", samplesPerFrame, r.Info.Channels)
	f.SetPixelRatio(r.Info.PixelRatio.Num, r.Info.PixelRatio.Den)
	f.SetChannelsLayout(r.Info.ChannelLayout)
	f.SetSampleRate(r.Info.SampleRate)

	r.workingCache.Add(f)

	if requestedFrame > r.largestFrameProcessed {
		r.largestFrameProcessed = requestedFrame
	}

	return f
}
