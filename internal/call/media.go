package call

import (
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
)

// Frame pacing for outbound tracks. The cipher does not care, but the
// sample writer needs a duration per frame.
const (
	videoFrameDuration = 33 * time.Millisecond // ~30 fps
	audioFrameDuration = 20 * time.Millisecond // one Opus frame
)

// FrameSource delivers the encoded frames of one local media track.
// ReadFrame blocks until the next frame is ready; release, when
// non-nil, must be called once the frame data has been consumed.
type FrameSource interface {
	Kind() webrtc.RTPCodecType
	MimeType() string
	ClockRate() uint32
	ReadFrame() (data []byte, release func(), err error)
	Close() error
}

// FrameSink consumes decrypted remote frames, one call per frame, in
// per-track order. Implementations must tolerate concurrent calls for
// different kinds (audio and video arrive independently).
type FrameSink interface {
	WriteFrame(kind webrtc.RTPCodecType, frame []byte)
	Close()
}

// Capture owns the local capture devices for the duration of one call.
type Capture interface {
	// Sources returns one FrameSource per captured track. May be empty
	// when no device could be opened.
	Sources() []FrameSource
	Close()
}

// CountingSink is a FrameSink that only tallies received frames. The
// CLI renders the counters; anything that wants the media itself can
// wrap this with a real sink.
type CountingSink struct {
	audio atomic.Uint64
	video atomic.Uint64
}

func (s *CountingSink) WriteFrame(kind webrtc.RTPCodecType, frame []byte) {
	switch kind {
	case webrtc.RTPCodecTypeAudio:
		s.audio.Add(1)
	case webrtc.RTPCodecTypeVideo:
		s.video.Add(1)
	}
}

func (s *CountingSink) Close() {}

// Frames returns the number of audio and video frames received so far.
func (s *CountingSink) Frames() (audio, video uint64) {
	return s.audio.Load(), s.video.Load()
}

func frameDuration(kind webrtc.RTPCodecType) time.Duration {
	if kind == webrtc.RTPCodecTypeAudio {
		return audioFrameDuration
	}
	return videoFrameDuration
}
