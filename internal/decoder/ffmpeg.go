package decoder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// decodeViaFFmpeg covers containers beep has no front end for (MP4/AAC
// and anything else ffmpeg recognizes): it shells out to transcode the
// input to a temporary 16-bit PCM WAV, then reuses the WAV path to
// produce the final PCM contract.
func decodeViaFFmpeg(path string) ([][]int16, int, float64, error) {
	tmpFile, err := os.CreateTemp("", "eureka-decode-*.wav")
	if err != nil {
		return nil, 0, 0, err
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-i", filepath.Clean(path),
		"-c", "pcm_s16le",
		"-ar", "44100",
		tmpPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, 0, 0, fmt.Errorf("ffmpeg transcode failed: %w, output: %s", err, output)
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, 0, 0, err
	}

	return decodeWAVBytes(raw)
}
