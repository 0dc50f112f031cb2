//go:build linux

package call

import (
	"log/slog"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
)

const (
	videoClockRate = 90000
	audioClockRate = 48000
)

// encodedSource adapts a mediadevices encoded reader to FrameSource.
// The reader hands out encoder-owned buffers, so each frame is copied
// before release.
type encodedSource struct {
	kind      webrtc.RTPCodecType
	mimeType  string
	clockRate uint32
	reader    mediadevices.EncodedReadCloser
	track     mediadevices.Track
}

func (s *encodedSource) Kind() webrtc.RTPCodecType { return s.kind }
func (s *encodedSource) MimeType() string          { return s.mimeType }
func (s *encodedSource) ClockRate() uint32         { return s.clockRate }

func (s *encodedSource) ReadFrame() ([]byte, func(), error) {
	buf, release, err := s.reader.Read()
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, len(buf.Data))
	copy(data, buf.Data)
	return data, release, nil
}

func (s *encodedSource) Close() error {
	s.reader.Close()
	return s.track.Close()
}

type deviceCapture struct {
	sources []FrameSource
}

func (c *deviceCapture) Sources() []FrameSource { return c.sources }

func (c *deviceCapture) Close() {
	for _, src := range c.sources {
		src.Close()
	}
}

// OpenCapture opens the local camera and microphone through
// pion/mediadevices (V4L2 + malgo) and returns one encoded frame
// source per captured track, VP8 for video and Opus for audio.
//
// GetUserMedia fails as a unit if either track can't be opened, so
// attempts degrade: video+audio, then video-only, then audio-only.
// When every attempt fails the call proceeds receive-only.
func OpenCapture() (Capture, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	vpxParams.BitRate = 1_500_000 // 1.5 Mbps

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}

	codecSelector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	type attempt struct {
		video bool
		audio bool
		label string
	}
	for _, a := range []attempt{
		{true, true, "video+audio"},
		{true, false, "video-only"},
		{false, true, "audio-only"},
	} {
		constraints := mediadevices.MediaStreamConstraints{Codec: codecSelector}
		if a.video {
			constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
				// Exclude MJPEG: some cameras expose an MJPEG V4L2 node
				// that produces malformed JPEG frames and poisons the
				// VP8 encoder. Raw formats only.
				c.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatYUYV,
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatRGBA,
				}
				// Cap at 640x480 to keep VP8 encoding latency down.
				c.Width = prop.IntRanged{Max: 640}
				c.Height = prop.IntRanged{Max: 480}
			}
		}
		if a.audio {
			constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
		}

		stream, err := mediadevices.GetUserMedia(constraints)
		if err != nil {
			slog.Debug("media capture attempt failed", "attempt", a.label, "err", err)
			continue
		}

		capture, err := wrapTracks(stream.GetTracks())
		if err != nil {
			slog.Debug("encoder setup failed, skipping attempt", "attempt", a.label, "err", err)
			continue
		}

		slog.Debug("local media captured", "attempt", a.label, "tracks", len(capture.sources))
		return capture, nil
	}

	return nil, ErrCaptureUnsupported
}

// wrapTracks creates an encoded reader per captured track. On any
// encoder failure the whole attempt is abandoned so a poisoned encoder
// never reaches negotiation.
func wrapTracks(tracks []mediadevices.Track) (*deviceCapture, error) {
	capture := &deviceCapture{}

	for _, track := range tracks {
		var (
			mimeType  string
			clockRate uint32
		)
		switch track.Kind() {
		case webrtc.RTPCodecTypeVideo:
			mimeType, clockRate = webrtc.MimeTypeVP8, videoClockRate
		case webrtc.RTPCodecTypeAudio:
			mimeType, clockRate = webrtc.MimeTypeOpus, audioClockRate
		default:
			track.Close()
			continue
		}

		reader, err := track.NewEncodedReader(mimeType)
		if err != nil {
			track.Close()
			capture.Close()
			return nil, err
		}

		capture.sources = append(capture.sources, &encodedSource{
			kind:      track.Kind(),
			mimeType:  mimeType,
			clockRate: clockRate,
			reader:    reader,
			track:     track,
		})
	}

	if len(capture.sources) == 0 {
		return nil, ErrCaptureUnsupported
	}
	return capture, nil
}
