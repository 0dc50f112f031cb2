package call

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ramu7700/secure-video-call/internal/config"
	"github.com/ramu7700/secure-video-call/internal/crypto"
	"github.com/ramu7700/secure-video-call/internal/version"
)

const (
	// PLI request interval for inbound video. Encrypted frames defeat
	// the decoder's own loss recovery, so ask for keyframes regularly.
	pliInterval = 3 * time.Second

	// samplebuilder reorder windows, in packets.
	videoMaxLate = 128
	audioMaxLate = 32
)

// peerEvent tells the coordinator the media transport changed state.
type peerEvent struct {
	reason string
	err    error
}

// Peer wraps one webrtc.PeerConnection and the cipher pipeline around
// it. Every outbound frame is encrypted before it reaches the track,
// every inbound frame is decrypted after reassembly; the transport
// below only ever carries opaque bytes.
type Peer struct {
	pc   *webrtc.PeerConnection
	tx   *crypto.FrameCipher
	rx   *crypto.FrameCipher
	sink FrameSink

	// onCandidate forwards locally gathered ICE candidates to the
	// signaling layer.
	onCandidate func(webrtc.ICECandidateInit)

	// events receives transport failures and the remote hang-up.
	events chan<- peerEvent

	control *webrtc.DataChannel

	closeOnce sync.Once
	closed    chan struct{}
}

// newPeer builds the peer connection with default codecs, default
// interceptors and generous ICE timeouts so short relay outages do not
// kill the call.
func newPeer(cfg *config.Config, tx, rx *crypto.FrameCipher, sink FrameSink, events chan<- peerEvent) (*Peer, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	se := webrtc.SettingEngine{}
	se.SetICETimeouts(30*time.Second, 120*time.Second, 2*time.Second)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
		webrtc.WithSettingEngine(se),
	)

	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}
	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	rtcConfig := webrtc.Configuration{ICEServers: iceServers}
	if cfg.ForceRelay {
		rtcConfig.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}

	pc, err := api.NewPeerConnection(rtcConfig)
	if err != nil {
		return nil, err
	}

	p := &Peer{
		pc:     pc,
		tx:     tx,
		rx:     rx,
		sink:   sink,
		events: events,
		closed: make(chan struct{}),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || p.onCandidate == nil {
			return
		}
		p.onCandidate(c.ToJSON())
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		go p.handleRemoteTrack(track)
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == controlChannelLabel {
			p.setupControlChannel(dc)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state changed", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
			p.emit(peerEvent{reason: "transport " + state.String(), err: ErrTransportFailed})
		}
	})

	return p, nil
}

const controlChannelLabel = "control"

func (p *Peer) emit(ev peerEvent) {
	select {
	case p.events <- ev:
	case <-p.closed:
	}
}

// OnCandidate registers the sink for locally gathered ICE candidates.
// Must be called before negotiation starts.
func (p *Peer) OnCandidate(fn func(webrtc.ICECandidateInit)) {
	p.onCandidate = fn
}

// AttachSources adds one sending track per local frame source and
// starts a pump goroutine for each: read frame, encrypt, write sample.
// One goroutine per track keeps per-track frame order; tracks proceed
// independently of each other.
func (p *Peer) AttachSources(sources []FrameSource) error {
	if len(sources) == 0 {
		// Still produce valid m-lines so negotiation succeeds even
		// without local devices.
		return p.addRecvOnlyTransceivers()
	}

	for _, src := range sources {
		caps := webrtc.RTPCodecCapability{
			MimeType:  src.MimeType(),
			ClockRate: src.ClockRate(),
		}
		track, err := webrtc.NewTrackLocalStaticSample(caps, src.Kind().String(), "secure-call")
		if err != nil {
			return err
		}
		if _, err := p.pc.AddTrack(track); err != nil {
			return err
		}
		go p.pumpFrames(src, track)
	}
	return nil
}

func (p *Peer) addRecvOnlyTransceivers() error {
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		_, err := p.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// pumpFrames moves frames from one capture source onto its track,
// passing each through the send cipher on the way.
func (p *Peer) pumpFrames(src FrameSource, track *webrtc.TrackLocalStaticSample) {
	duration := frameDuration(src.Kind())

	for {
		select {
		case <-p.closed:
			return
		default:
		}

		data, release, err := src.ReadFrame()
		if err != nil {
			slog.Debug("frame source ended", "kind", src.Kind().String(), "err", err)
			return
		}

		sealed := p.tx.Encrypt(data)
		if release != nil {
			release()
		}

		if err := track.WriteSample(media.Sample{Data: sealed, Duration: duration}); err != nil {
			slog.Debug("write sample failed", "kind", src.Kind().String(), "err", err)
			return
		}
	}
}

// handleRemoteTrack reassembles inbound frames from RTP packets and
// runs each through the receive cipher. A frame that fails to decrypt
// is dropped; the stream continues with the next frame.
func (p *Peer) handleRemoteTrack(track *webrtc.TrackRemote) {
	kind := track.Kind()
	codec := track.Codec()

	var builder *samplebuilder.SampleBuilder
	switch kind {
	case webrtc.RTPCodecTypeVideo:
		builder = samplebuilder.New(videoMaxLate, &codecs.VP8Packet{}, codec.ClockRate)
		go p.sendPLI(track)
	case webrtc.RTPCodecTypeAudio:
		builder = samplebuilder.New(audioMaxLate, &codecs.OpusPacket{}, codec.ClockRate)
	default:
		return
	}

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		builder.Push(pkt)
		for sample := builder.Pop(); sample != nil; sample = builder.Pop() {
			plain := p.rx.Decrypt(sample.Data)
			if len(plain) == 0 {
				continue
			}
			p.sink.WriteFrame(kind, plain)
		}
	}
}

// sendPLI periodically requests a keyframe for the remote video track.
func (p *Peer) sendPLI(track *webrtc.TrackRemote) {
	ticker := time.NewTicker(pliInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.closed:
			return
		case <-ticker.C:
			err := p.pc.WriteRTCP([]rtcp.Packet{
				&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
			})
			if err != nil {
				return
			}
		}
	}
}

// CreateControlChannel opens the control data channel. The initiator
// calls this before creating the offer; the responder receives the
// channel through OnDataChannel.
func (p *Peer) CreateControlChannel() error {
	dc, err := p.pc.CreateDataChannel(controlChannelLabel, nil)
	if err != nil {
		return err
	}
	p.setupControlChannel(dc)
	return nil
}

func (p *Peer) setupControlChannel(dc *webrtc.DataChannel) {
	p.control = dc

	dc.OnOpen(func() {
		msg, err := newControlMessage(controlTypeDeviceInfo, DeviceInfoPayload{
			DeviceName:    "secure-video-call",
			DeviceVersion: version.Version,
		})
		if err != nil {
			return
		}
		if data, err := msgpack.Marshal(msg); err == nil {
			dc.Send(data)
		}
	})

	dc.OnMessage(func(raw webrtc.DataChannelMessage) {
		var msg ControlMessage
		if err := msgpack.Unmarshal(raw.Data, &msg); err != nil {
			return
		}

		switch msg.Type {
		case controlTypeBye:
			p.emit(peerEvent{reason: "peer hung up"})

		case controlTypeDeviceInfo:
			var info DeviceInfoPayload
			if err := msg.DecodePayload(&info); err == nil {
				slog.Debug("peer device", "name", info.DeviceName, "version", info.DeviceVersion)
			}
		}
	})
}

// SendBye tells the peer we are hanging up, ahead of the relay's own
// userLeft notification.
func (p *Peer) SendBye() {
	if p.control == nil {
		return
	}
	msg, err := newControlMessage(controlTypeBye, struct{}{})
	if err != nil {
		return
	}
	if data, err := msgpack.Marshal(msg); err == nil {
		p.control.Send(data)
	}
}

// CreateOffer creates the local offer with trickle ICE: candidates are
// delivered through OnCandidate as they are gathered.
func (p *Peer) CreateOffer() (*webrtc.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return p.pc.LocalDescription(), nil
}

// HandleRemoteOffer applies the remote offer and produces the answer.
func (p *Peer) HandleRemoteOffer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return p.pc.LocalDescription(), nil
}

// HandleRemoteAnswer applies the answer to our outstanding offer.
func (p *Peer) HandleRemoteAnswer(answer webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(answer)
}

// AddCandidate applies one relayed ICE candidate, in arrival order.
func (p *Peer) AddCandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

// Close tears the transport down and stops all pump goroutines.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.control != nil {
			p.control.Close()
		}
		err = p.pc.Close()
	})
	return err
}
