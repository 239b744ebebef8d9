package reader

import (
	"math"

	"github.com/e1z0/mediareader/internal/frame"
)

// ptsSentinel marks an offset that hasn't been computed yet. A computed
// offset is never positive, so it cannot collide with 99999.
const ptsSentinel = 99999

// updateVideoPTSOffset latches the video PTS offset from the first video
// packet, exactly once per Open: the negated larger of that packet's PTS
// and ten times the video timebase rounded to an integer.
func (r *Reader) updateVideoPTSOffset(pts int64) {
	if r.videoPTSOffset != ptsSentinel {
		return
	}
	floor := int64(r.Info.VideoTimeBase.ToInt()) * 10
	if pts > floor {
		floor = pts
	}
	r.videoPTSOffset = -floor
}

// updateAudioPTSOffset latches the audio PTS offset from the first audio
// packet, exactly once per Open: the negated larger of that packet's PTS
// and ten times the audio timebase rounded to an integer.
func (r *Reader) updateAudioPTSOffset(pts int64) {
	if r.audioPTSOffset != ptsSentinel {
		return
	}
	floor := int64(r.Info.AudioTimeBase.ToInt()) * 10
	if pts > floor {
		floor = pts
	}
	r.audioPTSOffset = -floor
}

// convertVideoPTSToFrame maps a video packet's PTS to a 1-based frame
// number, tracking duplicate and skipped frames against the expected
// video frame sequence. It returns -1 for a PTS that duplicates the
// previous packet's frame number.
func (r *Reader) convertVideoPTSToFrame(pts int64) int {
	pts += r.videoPTSOffset
	previousFrame := r.currentVideoFrame

	videoSeconds := float64(pts) * r.Info.VideoTimeBase.ToFloat64()
	frameNumber := int(math.Round(videoSeconds*r.Info.FPS.ToFloat64())) + 1

	if r.currentVideoFrame == 0 {
		r.currentVideoFrame = frameNumber
		return frameNumber
	}

	if frameNumber == previousFrame {
		return -1
	}
	r.currentVideoFrame++

	for r.currentVideoFrame < frameNumber {
		if _, ok := r.missingVideoFrames[r.currentVideoFrame]; !ok {
			r.missingVideoFrames[r.currentVideoFrame] = previousFrame
			r.missingVideoFramesSource[previousFrame] = append(r.missingVideoFramesSource[previousFrame], r.currentVideoFrame)
		}
		r.hasMissingFrames = true
		r.currentVideoFrame++
	}

	return frameNumber
}

// convertFrameToVideoPTS is the inverse of convertVideoPTSToFrame, used
// when seeking. It deliberately uses frameNumber/fps rather than
// (frameNumber-1)/fps: see DESIGN.md for why this asymmetry against
// convertVideoPTSToFrame's "+1" is kept rather than "fixed".
func (r *Reader) convertFrameToVideoPTS(frameNumber int) int64 {
	seconds := float64(frameNumber) / r.Info.FPS.ToFloat64()
	videoPTS := int64(math.Round(seconds / r.Info.VideoTimeBase.ToFloat64()))
	return videoPTS - r.videoPTSOffset
}

// convertFrameToAudioPTS mirrors convertFrameToVideoPTS for the audio
// stream's timebase, with the same frameNumber/fps asymmetry.
func (r *Reader) convertFrameToAudioPTS(frameNumber int) int64 {
	seconds := float64(frameNumber) / r.Info.FPS.ToFloat64()
	audioPTS := int64(math.Round(seconds / r.Info.AudioTimeBase.ToFloat64()))
	return audioPTS - r.audioPTSOffset
}

// getAudioPTSLocation maps an audio packet's PTS to the video frame number
// and starting sample it belongs to, snapping small gaps against the
// previous packet's location and recording larger gaps as missing audio.
func (r *Reader) getAudioPTSLocation(pts int64) audioLocation {
	pts += r.audioPTSOffset

	audioSeconds := float64(pts) * r.Info.AudioTimeBase.ToFloat64()
	frameDecimal := audioSeconds*r.Info.FPS.ToFloat64() + 1

	wholeFrame := int(frameDecimal)
	sampleStartPercentage := frameDecimal - float64(wholeFrame)

	samplesPerFrame := frame.GetSamplesPerFrame(wholeFrame, r.Info.FPS, r.Info.SampleRate, r.Info.Channels)
	sampleStart := int(math.Round(float64(samplesPerFrame) * sampleStartPercentage))

	if wholeFrame < 1 {
		wholeFrame = 1
	}
	if sampleStart < 0 {
		sampleStart = 0
	}

	location := audioLocation{frame: wholeFrame, sampleStart: sampleStart}

	if r.previousPacketLocation.frame != -1 {
		if location.isNear(r.previousPacketLocation, samplesPerFrame, samplesPerFrame) {
			location.frame = r.previousPacketLocation.frame
			location.sampleStart = r.previousPacketLocation.sampleStart
		} else {
			for f := r.previousPacketLocation.frame; f < location.frame; f++ {
				if _, ok := r.missingAudioFrames[f]; !ok {
					r.missingAudioFrames[f] = r.previousPacketLocation.frame - 1
				}
			}
		}
	}

	r.previousPacketLocation = location
	return location
}
