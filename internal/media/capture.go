// package media acquires and releases local audio capture, and plays back
// the remote participant's audio. Every acquired Stream must be released on
// every call exit path; nothing here is freed automatically.
package media

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

var (
	// ErrDeviceUnavailable means no usable capture device could be
	// initialized. Surfaced to the user; the call attempt aborts.
	ErrDeviceUnavailable = errors.New("no usable capture device")

	// ErrPermissionDenied means the OS refused access to the microphone.
	ErrPermissionDenied = errors.New("microphone access denied")
)

// pcmBuffer is a shared buffer written by the malgo capture callback and
// drained by the opus encode loop.
type pcmBuffer struct {
	mu   sync.Mutex
	data []int16
}

// Stream is a live local capture handle. It is owned by exactly one call
// session, which must call Release on every exit path.
type Stream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	pcm    *pcmBuffer

	mu       sync.Mutex
	released bool
}

// Acquire initializes the capture device and starts buffering microphone
// PCM. Fails with ErrDeviceUnavailable (or ErrPermissionDenied) if the
// device cannot be started; no resources remain held on failure.
func Acquire() (*Stream, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: error initializing device context: %v", ErrDeviceUnavailable, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = audioFormat
	deviceConfig.Capture.Channels = NumChannels
	deviceConfig.SampleRate = SampleRate
	deviceConfig.PeriodSizeInMilliseconds = frameDurationMs

	pcm := &pcmBuffer{}

	// read into capture buffer, to write to network. this fires every X milliseconds
	onRecvFrames := func(_, pInputSample []byte, _ uint32) {
		pcm.mu.Lock()
		pcm.data = append(pcm.data, bytesToInt16(pInputSample)...)
		pcm.mu.Unlock()
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("%w: error creating capture device: %v", ErrDeviceUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("%w: error starting capture device: %v", ErrDeviceUnavailable, err)
	}
	return &Stream{ctx: ctx, device: device, pcm: pcm}, nil
}

// Release stops capture and frees the device. Idempotent; only the first
// call has any effect.
func (s *Stream) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if s.device != nil {
		s.device.Uninit()
	}
	if err := s.ctx.Uninit(); err != nil {
		log.Printf("error uninitializing capture device context: %v", err)
	}
	s.ctx.Free()
	log.Println("released capture device")
}

// Pump encodes buffered PCM into opus frames and writes them to track until
// ctx is cancelled. It should run once per call, after the call connects.
func (s *Stream) Pump(ctx context.Context, track *webrtc.TrackLocalStaticSample) error {
	opusBuffer := make([]byte, opusBufferSize)
	encoder, err := opus.NewEncoder(SampleRate, NumChannels, opus.AppVoIP)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pcm.mu.Lock()

			// need at least one frame worth of data
			if len(s.pcm.data) < frameSize {
				s.pcm.mu.Unlock()
				continue
			}

			// extract one frame and remove it from the buffer
			frameData := s.pcm.data[:frameSize]
			s.pcm.data = s.pcm.data[frameSize:]
			s.pcm.mu.Unlock()

			bytesEncoded, err := encoder.Encode(frameData, opusBuffer)
			if err != nil {
				log.Println("opus encode error:", err)
				continue
			}

			// only the first N bytes are opus data
			if err := track.WriteSample(media.Sample{
				Data:     opusBuffer[:bytesEncoded],
				Duration: frameDuration,
			}); err != nil {
				log.Println("WriteSample error:", err)
				continue
			}
		}
	}
}

// bytesToInt16 turns a byte slice of PCM audio into an int16 slice for the opus encoder to use.
func bytesToInt16(b []byte) []int16 {
	result := make([]int16, len(b)/2)
	for i := range result {
		result[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return result
}
