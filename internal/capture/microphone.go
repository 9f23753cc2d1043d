// Package capture is the non-core microphone PCM source: an opaque
// producer of a mono []int16 capture, which the recognizer facade wraps
// into the per-channel shape internal/decoder returns for a file, so it
// consumes either source
// identically (spec §1, §9: "treat [microphone capture] as an opaque
// consumer/producer of MatchResult").
package capture

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// frameSize matches the spectrogram's STFT hop (fingerprint.HopSize,
// half of the 4096-sample window), so each portaudio buffer advances the
// capture by one analysis frame.
const frameSize = 2048

// Recorder captures mono PCM from the system's default input device
// until the context is cancelled.
type Recorder struct {
	SampleRate float64
}

// NewRecorder initializes PortAudio and selects a sample rate: the
// device default if it meets the fingerprinting minimum, else 44100 Hz.
func NewRecorder() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("capture: portaudio init: %w", err)
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("capture: default input device: %w", err)
	}

	sampleRate := device.DefaultSampleRate
	if sampleRate < 44100 {
		sampleRate = 44100
	}

	return &Recorder{SampleRate: sampleRate}, nil
}

// Close releases the PortAudio session.
func (r *Recorder) Close() error {
	return portaudio.Terminate()
}

// Record streams mono int16 PCM until ctx is cancelled and returns the
// full capture plus the actual device sample rate used.
func (r *Recorder) Record(ctx context.Context) ([]int16, int, error) {
	buffer := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, r.SampleRate, frameSize, buffer)
	if err != nil {
		return nil, 0, fmt.Errorf("capture: open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, 0, fmt.Errorf("capture: start stream: %w", err)
	}
	defer stream.Stop()

	var samples []int16
	for {
		select {
		case <-ctx.Done():
			return samples, int(stream.Info().SampleRate), nil
		default:
		}

		if err := stream.Read(); err != nil {
			return samples, int(stream.Info().SampleRate), fmt.Errorf("capture: read: %w", err)
		}
		samples = append(samples, buffer...)
	}
}
