package reader

import (
	"time"

	"github.com/asticode/go-astiav"
)

// seek jumps the container close to requestedFrame, either by seeking to
// the nearest preceding keyframe or, for frames near the start (or after
// a seek failure), by closing and reopening the file.
func (r *Reader) seek(requestedFrame int) {
	if requestedFrame < 1 {
		requestedFrame = 1
	}
	if requestedFrame > r.Info.VideoLength {
		requestedFrame = r.Info.VideoLength
	}

	for len(r.processingVideoFrames)+len(r.processingAudioFrames) > 0 {
		time.Sleep(drainPollInterval)
	}

	r.workingCache.Clear()
	r.missingFrames.Clear()
	r.resetBookkeeping()

	r.lastFrame = 0
	r.currentVideoFrame = 0
	r.largestFrameProcessed = 0
	r.hasMissingFrames = false

	hasAudio := r.Info.HasAudio
	hasVideo := r.Info.HasVideo

	r.seekCount++

	if requestedFrame-seekBufferAmount < 20 {
		r.Close()
		_ = r.Open()

		r.Info.HasAudio = hasAudio
		r.Info.HasVideo = hasVideo

		r.isSeeking = false
		if r.seekCount == 1 {
			r.seekingFrame = 1
			r.seekingPTS = r.convertFrameToVideoPTS(1)
		}
		r.seekAudioFrameFound = 0
		r.seekVideoFrameFound = 0
		return
	}

	seekWorked := false
	var seekTarget int64

	if !seekWorked && hasVideo {
		seekTarget = r.convertFrameToVideoPTS(requestedFrame - seekBufferAmount)
		if err := r.formatCtx.SeekFrame(r.Info.VideoStreamIdx, seekTarget, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err == nil {
			r.isVideoSeek = true
			seekWorked = true
		}
	}

	if !seekWorked && hasAudio {
		seekTarget = r.convertFrameToAudioPTS(requestedFrame - seekBufferAmount)
		if err := r.formatCtx.SeekFrame(r.Info.AudioStreamIdx, seekTarget, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err == nil {
			r.isVideoSeek = false
			seekWorked = true
		}
	}

	if seekWorked {
		if hasAudio {
			r.audioCodecCtx.FlushBuffers()
		}
		if hasVideo {
			r.videoCodecCtx.FlushBuffers()
		}

		r.previousPacketLocation = audioLocation{frame: -1, sampleStart: 0}

		r.isSeeking = true
		if r.seekCount == 1 {
			r.seekingPTS = seekTarget
			r.seekingFrame = requestedFrame
		}
		r.seekAudioFrameFound = 0
		r.seekVideoFrameFound = 0
		return
	}

	r.isSeeking = false
	r.seekingPTS = 0
	r.seekingFrame = 0

	r.EnableSeek = false

	r.Close()
	_ = r.Open()
	r.Info.HasAudio = hasAudio
	r.Info.HasVideo = hasVideo
}

// checkSeek reports whether the current packet should be discarded
// because of a seek. It returns false while the seek's post-seek frames
// are still being observed, so those packets are decoded. Once both
// streams have produced a post-seek frame, it either issues a corrective
// re-seek (when the landing point overshot the target) and returns true,
// or clears the seeking state and returns false.
func (r *Reader) checkSeek(isVideo bool) bool {
	if !r.isSeeking {
		return r.isSeeking
	}

	if (r.isVideoSeek && r.seekVideoFrameFound == 0) || (!r.isVideoSeek && r.seekAudioFrameFound == 0) {
		return false
	}
	if (r.Info.HasVideo && r.seekVideoFrameFound == 0) || (r.Info.HasAudio && r.seekAudioFrameFound == 0) {
		return false
	}

	maxSeekedFrame := r.seekAudioFrameFound
	if r.seekVideoFrameFound > maxSeekedFrame {
		maxSeekedFrame = r.seekVideoFrameFound
	}

	if maxSeekedFrame >= r.seekingFrame {
		r.seek(r.seekingFrame - (20 * r.seekCount * r.seekCount))
	} else {
		r.isSeeking = false
		r.seekingFrame = 0
		r.seekingPTS = -1
	}

	return r.isSeeking
}
