package reader

import (
	"math"

	"github.com/asticode/go-astiav"
)

// ensureScaler (re)builds the reader's software scale context when the
// source or destination dimensions change, converting decoded frames to
// packed RGBA8888.
func (r *Reader) ensureScaler(srcW, srcH int, srcFmt astiav.PixelFormat, dstW, dstH int) error {
	if r.scaleCtx != nil && r.scaleSrcW == srcW && r.scaleSrcH == srcH && r.scaleSrcFmt == srcFmt &&
		r.scaleDstW == dstW && r.scaleDstH == dstH {
		return nil
	}

	if r.scaleCtx != nil {
		r.scaleCtx.Free()
		r.scaleCtx = nil
	}
	if r.scaledFrame != nil {
		r.scaledFrame.Free()
		r.scaledFrame = nil
	}

	flags := astiav.NewSoftwareScaleContextFlags()
	ctx, err := astiav.CreateSoftwareScaleContext(srcW, srcH, srcFmt, dstW, dstH, astiav.PixelFormatRgba, flags)
	if err != nil {
		return err
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(dstW)
	dst.SetHeight(dstH)
	dst.SetPixelFormat(astiav.PixelFormatRgba)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ctx.Free()
		return err
	}

	r.scaleCtx = ctx
	r.scaledFrame = dst
	r.scaleSrcW, r.scaleSrcH, r.scaleSrcFmt = srcW, srcH, srcFmt
	r.scaleDstW, r.scaleDstH = dstW, dstH
	return nil
}

// downscaledSize returns the video's output size, shrunk to fit within
// MaxWidth/MaxHeight while preserving aspect ratio when both are set and
// smaller than the source.
func (r *Reader) downscaledSize() (int, int) {
	width, height := r.Info.Width, r.Info.Height
	if r.MaxWidth != 0 && r.MaxHeight != 0 && r.MaxWidth < width && r.MaxHeight < height {
		ratio := float64(width) / float64(height)
		possibleWidth := int(math.Round(float64(r.MaxHeight) * ratio))
		possibleHeight := int(math.Round(float64(r.MaxWidth) / ratio))

		if possibleWidth <= r.MaxWidth {
			width = possibleWidth
			height = r.MaxHeight
		} else {
			width = r.MaxWidth
			height = possibleHeight
		}
	}
	return width, height
}

// processVideoPacket routes a decoded video frame to the working-cache
// slot of the frame number derived from its PTS, scaling it to RGBA at
// the current output size. Frames more than forwardWalkHorizon before
// requestedFrame, and duplicates, are dropped.
func (r *Reader) processVideoPacket(requestedFrame int) {
	currentFrame := r.convertVideoPTSToFrame(r.videoPTS())

	if r.seekVideoFrameFound == 0 && r.isSeeking {
		r.seekVideoFrameFound = currentFrame
	}

	if currentFrame < requestedFrame-forwardWalkHorizon || currentFrame == -1 {
		return
	}

	width, height := r.downscaledSize()

	if err := r.ensureScaler(r.Info.Width, r.Info.Height, r.videoCodecCtx.PixelFormat(), width, height); err != nil {
		return
	}
	if err := r.scaleCtx.ScaleFrame(r.decodedVideoFrame, r.scaledFrame); err != nil {
		return
	}

	n, err := r.scaledFrame.ImageBufferSize(1)
	if err != nil {
		return
	}
	buf := make([]byte, n)
	if _, err := r.scaledFrame.ImageCopyToBuffer(buf, 1); err != nil {
		return
	}

	r.processingVideoFrames[currentFrame] = currentFrame

	f := r.createFrame(currentFrame)
	f.AddImage(width, height, 4, false, buf)
	f.SetPictureType(r.pictureType)

	r.workingCache.Add(f)
	r.lastVideoFrame = f

	delete(r.processingVideoFrames, currentFrame)
	r.processedVideoFrames[currentFrame] = true
}
