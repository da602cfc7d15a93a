package media

import (
	"fmt"
	"io"
	"log"

	"github.com/gen2brain/malgo"
	"github.com/pion/webrtc/v4"
	"gopkg.in/hraban/opus.v2"
)

// Playback decodes the remote participant's opus track and plays it through
// the default output device. Stop must be called when the call ends.
type Playback struct {
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	decoder *opus.Decoder
	buffer  *RingBuffer
}

// NewPlayback initializes the playback device, which drains a ring buffer
// that Play fills with decoded audio. The device starts immediately and
// plays silence until a track arrives.
func NewPlayback() (*Playback, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("error initializing playback context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = audioFormat
	deviceConfig.Playback.Channels = NumChannels
	deviceConfig.SampleRate = SampleRate
	deviceConfig.Alsa.NoMMap = 1

	// buffer for decoded audio
	playbackBuffer := NewRingBuffer(rbCapacity)

	// read into output sample, for output to speaker device. this fires every X milliseconds
	onSendFrames := func(pOutputSample, _ []byte, _ uint32) {
		playbackBuffer.Read(pOutputSample)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("error creating playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("error starting playback device: %w", err)
	}

	decoder, err := opus.NewDecoder(SampleRate, NumChannels)
	if err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("decoder error: %w", err)
	}

	return &Playback{ctx: ctx, device: device, decoder: decoder, buffer: playbackBuffer}, nil
}

// Play decodes the remote track's RTP into the ring buffer the playback
// device drains, until the track closes. It is the negotiator's remote-track
// consumer and blocks for the track's lifetime.
func (p *Playback) Play(track *webrtc.TrackRemote) {
	pcmBuffer := make([]int16, frameSize*4)

	for { // read RTP packets
		packet, _, readErr := track.ReadRTP()
		if readErr != nil {
			if readErr == io.EOF {
				return // track closed, exit loop
			}
			log.Println("packet read err:", readErr)
			continue // temporary error, keep trying
		}

		samplesDecoded, decodeErr := p.decoder.Decode(packet.Payload, pcmBuffer)
		if decodeErr != nil {
			log.Println("decode error:", decodeErr)
			continue
		}

		// malgo pulls from this buffer to play
		p.buffer.Write(pcmBuffer[:samplesDecoded*NumChannels])
	}
}

// Stop uninitializes the playback device. Safe to call once playback is no
// longer needed; the OnTrack read loop unblocks when the peer connection
// closes.
func (p *Playback) Stop() {
	if p == nil {
		return
	}
	if p.device != nil {
		p.device.Uninit()
	}
	if err := p.ctx.Uninit(); err != nil {
		log.Printf("error uninitializing playback device context: %v", err)
	}
	p.ctx.Free()
	log.Println("released playback device")
}
