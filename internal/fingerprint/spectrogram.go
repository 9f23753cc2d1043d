package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/maddyblue/go-dsp/fft"
	"github.com/maddyblue/go-dsp/window"
)

// Format-fixed STFT parameters (spec.md §4.2). These are constants of the
// wire format, not tunables: changing any of them changes every hash this
// package has ever produced.
const (
	// WindowSize is the STFT window length in samples (W).
	WindowSize = 4096
	// OverlapRatio is the fraction of each window shared with the next (O).
	OverlapRatio = 0.5
	// HopSize is the number of samples advanced between frames.
	HopSize = int(WindowSize * (1 - OverlapRatio))
	// AmplitudeFloor is the post-log amplitude below which a bin is silence (A_MIN).
	AmplitudeFloor = 10.0
)

// spectrogram is a slice of time frames, each holding the first half
// (Nyquist-limited) of the magnitude spectrum for that frame, converted to
// a dB-like log amplitude.
type spectrogram [][]float64

// computeSpectrogram runs a Hann-windowed STFT over samples and returns the
// log-magnitude spectrogram. An empty or too-short input yields an empty
// spectrogram rather than an error (spec.md §4.2: "empty channel -> empty set").
func computeSpectrogram(samples []float64) spectrogram {
	if len(samples) < WindowSize {
		return spectrogram{}
	}

	win := window.Hann(WindowSize)
	nBins := WindowSize/2 + 1

	var frames spectrogram
	frame := make([]float64, WindowSize)
	for start := 0; start+WindowSize <= len(samples); start += HopSize {
		for i := 0; i < WindowSize; i++ {
			frame[i] = samples[start+i] * win[i]
		}

		spectrum := fft.FFTReal(frame)
		mags := make([]float64, nBins)
		for i := 0; i < nBins; i++ {
			mag := cmplx.Abs(spectrum[i])
			// dB-like log amplitude; clamp the floor so log(0) doesn't -Inf.
			if mag < 1e-12 {
				mag = 1e-12
			}
			mags[i] = 20 * math.Log10(mag)
		}
		frames = append(frames, mags)
	}

	return frames
}
