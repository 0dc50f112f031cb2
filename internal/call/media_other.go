//go:build !linux

package call

// OpenCapture reports that no local capture is available. Camera/mic
// capture via pion/mediadevices requires platform-specific drivers
// (V4L2/malgo on Linux); on other platforms the call proceeds
// receive-only.
func OpenCapture() (Capture, error) {
	return nil, ErrCaptureUnsupported
}
