package codec

import ffmpeg "github.com/csnewman/ffmpeg-go"

// isHardwarePixelFormat reports whether a decoder's negotiated pixel format
// is a hardware surface (CUDA/VAAPI), requiring transfer to software memory
// before the Scaler or Compositor can touch plane data.
func isHardwarePixelFormat(f ffmpeg.AVPixelFormat) bool {
	switch f {
	case ffmpeg.AVPixFmtCUDA, ffmpeg.AVPixFmtVAAPI:
		return true
	default:
		return false
	}
}
