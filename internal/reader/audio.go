package reader

import (
	"errors"
	"unsafe"

	"github.com/asticode/go-astiav"

	"github.com/e1z0/mediareader/internal/frame"
)

// decodeAudioFrame feeds the current packet to the audio decoder and
// resamples whatever comes out to signed 16-bit at the stream's native
// rate and channel layout, returning the number of samples per channel.
func (r *Reader) decodeAudioFrame() (int, error) {
	if err := r.audioCodecCtx.SendPacket(r.packet); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return 0, err
	}

	err := r.audioCodecCtx.ReceiveFrame(r.decodedAudioFrame)
	if err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return 0, nil
		}
		return 0, err
	}
	defer r.decodedAudioFrame.Unref()

	r.resampledFrame.Unref()
	r.resampledFrame.SetSampleRate(r.Info.SampleRate)
	r.resampledFrame.SetSampleFormat(astiav.SampleFormatS16)
	r.resampledFrame.SetChannelLayout(r.audioCodecCtx.ChannelLayout())

	if err := r.resampler.ConvertFrame(r.decodedAudioFrame, r.resampledFrame); err != nil {
		return 0, err
	}

	return r.resampledFrame.NbSamples(), nil
}

// processAudioPacket decodes one audio packet, converts its interleaved
// S16 samples to per-channel float32 in [-1, 1], and distributes them
// across the working cache frames they land on starting at targetFrame /
// startingSample.
func (r *Reader) processAudioPacket(requestedFrame, targetFrame, startingSample int) {
	if r.seekAudioFrameFound == 0 && r.isSeeking {
		r.seekAudioFrameFound = targetFrame
	}

	if targetFrame < requestedFrame-forwardWalkHorizon {
		return
	}

	nbSamples, err := r.decodeAudioFrame()
	if err != nil || nbSamples == 0 {
		return
	}

	channels := r.Info.Channels
	packetSamples := nbSamples * channels

	bufSize, err := r.resampledFrame.SamplesBufferSize(1)
	if err != nil {
		return
	}
	raw := make([]byte, bufSize)
	if _, err := r.resampledFrame.SamplesCopyToBuffer(raw, 1); err != nil {
		return
	}
	samples := unsafe.Slice((*int16)(unsafe.Pointer(&raw[0])), len(raw)/2)

	r.processingAudioFrames[r.previousPacketLocation.frame]++

	ptsRemainingSamples := packetSamples / channels
	for ptsRemainingSamples > 0 {
		samplesPerFrame := frame.GetSamplesPerFrame(r.previousPacketLocation.frame, r.Info.FPS, r.Info.SampleRate, channels)
		n := samplesPerFrame - r.previousPacketLocation.sampleStart
		if n > ptsRemainingSamples {
			n = ptsRemainingSamples
		}
		ptsRemainingSamples -= n

		if ptsRemainingSamples > 0 {
			r.previousPacketLocation.frame++
			r.previousPacketLocation.sampleStart = 0
			r.processingAudioFrames[r.previousPacketLocation.frame]++
		} else {
			r.previousPacketLocation.sampleStart += n
		}
	}

	startingFrameNumber := targetFrame
	for channel := 0; channel < channels; channel++ {
		channelBufferSize := packetSamples / channels
		channelBuffer := make([]float32, channelBufferSize)
		for i, sample := range samples {
			if i%channels == channel {
				channelBuffer[i/channels] = float32(sample) * (1.0 / (1 << 15))
			}
		}

		frameNumber := targetFrame
		start := startingSample
		remaining := channelBufferSize
		pos := 0
		for remaining > 0 {
			samplesPerFrame := frame.GetSamplesPerFrame(frameNumber, r.Info.FPS, r.Info.SampleRate, channels)
			n := samplesPerFrame - start
			if n > remaining {
				n = remaining
			}

			f := r.createFrame(frameNumber)
			f.AddAudio(true, channel, start, channelBuffer[pos:pos+n], n, 0.98)
			r.workingCache.Add(f)

			remaining -= n
			pos += n
			frameNumber++
			start = 0
		}
		startingFrameNumber = frameNumber
	}

	for f := targetFrame; f < startingFrameNumber; f++ {
		if r.processingAudioFrames[f] > 0 {
			r.processingAudioFrames[f]--
			if r.processingAudioFrames[f] == 0 {
				delete(r.processingAudioFrames, f)
				r.processedAudioFrames[f] = true
			}
		}
	}
	if targetFrame == startingFrameNumber {
		if r.processingAudioFrames[targetFrame] > 0 {
			r.processingAudioFrames[targetFrame]--
			if r.processingAudioFrames[targetFrame] == 0 {
				delete(r.processingAudioFrames, targetFrame)
			}
		}
	}
}
