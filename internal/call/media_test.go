package call

import (
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestCountingSink(t *testing.T) {
	sink := &CountingSink{}

	sink.WriteFrame(webrtc.RTPCodecTypeAudio, []byte{1})
	sink.WriteFrame(webrtc.RTPCodecTypeVideo, []byte{2})
	sink.WriteFrame(webrtc.RTPCodecTypeVideo, []byte{3})

	audio, video := sink.Frames()
	if audio != 1 || video != 2 {
		t.Errorf("Frames() = (%d, %d), want (1, 2)", audio, video)
	}
}

func TestCountingSinkConcurrent(t *testing.T) {
	sink := &CountingSink{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.WriteFrame(webrtc.RTPCodecTypeAudio, nil)
				sink.WriteFrame(webrtc.RTPCodecTypeVideo, nil)
			}
		}()
	}
	wg.Wait()

	audio, video := sink.Frames()
	if audio != 800 || video != 800 {
		t.Errorf("Frames() = (%d, %d), want (800, 800)", audio, video)
	}
}

func TestFrameDuration(t *testing.T) {
	if d := frameDuration(webrtc.RTPCodecTypeAudio); d != audioFrameDuration {
		t.Errorf("audio duration = %v, want %v", d, audioFrameDuration)
	}
	if d := frameDuration(webrtc.RTPCodecTypeVideo); d != videoFrameDuration {
		t.Errorf("video duration = %v, want %v", d, videoFrameDuration)
	}
}
