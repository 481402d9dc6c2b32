// Package archive saves captured recordings as WAV files on disk.
package archive

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/langquence/correct-tray/internal/audio"
)

const pcmFormat = 1

// Archive writes recordings into a directory
type Archive struct {
	dir string
	now func() time.Time
	log zerolog.Logger
}

// New creates an Archive rooted at dir. The directory is created on first save.
func New(dir string, log zerolog.Logger) *Archive {
	return &Archive{dir: dir, now: time.Now, log: log}
}

// Dir returns the target directory.
func (a *Archive) Dir() string { return a.dir }

// FileName returns the timestamped name for a recording made at t.
func FileName(t time.Time) string {
	return "audio_" + t.Format("20060102_150405") + ".wav"
}

// Save writes captured as a mono 16-bit WAV and returns its path.
func (a *Archive) Save(captured audio.CapturedAudio) (string, error) {
	if !captured.Valid() {
		return "", fmt.Errorf("nothing to save")
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(a.dir, FileName(a.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, captured.SampleRate, audio.BitsPerSample, audio.Channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: audio.Channels,
			SampleRate:  captured.SampleRate,
		},
		Data:           pcmToInts(captured.PCM),
		SourceBitDepth: audio.BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		return "", fmt.Errorf("failed to write WAV data: %w", err)
	}
	// Close patches the RIFF and data sizes
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize WAV: %w", err)
	}

	a.log.Info().Str("path", path).Int("bytes", len(captured.PCM)).Msg("Saved recording")
	return path, nil
}

func pcmToInts(pcm []byte) []int {
	out := make([]int, len(pcm)/audio.BytesPerSample)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}
