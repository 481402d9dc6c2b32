package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langquence/correct-tray/internal/audio"
)

var frameRate int

var frameCmd = &cobra.Command{
	Use:   "frame <in.pcm> <out.wav>",
	Short: "Wrap raw PCM in a WAV header",
	Long: `Prepends a 44-byte mono 16-bit WAV header to raw little-endian PCM.

Examples:
  correctctl frame capture.pcm capture.wav --rate 16000`,
	Args: cobra.ExactArgs(2),
	RunE: runFrame,
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.Flags().IntVar(&frameRate, "rate", 44100, "sample rate of the PCM data in Hz")
}

func runFrame(cmd *cobra.Command, args []string) error {
	if frameRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", frameRate)
	}

	pcm, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read PCM: %w", err)
	}
	if len(pcm)%audio.BytesPerSample != 0 {
		fmt.Fprintf(os.Stderr, "Warning: odd byte count %d, last byte is not a full sample\n", len(pcm))
	}

	wav := audio.FrameWAV(pcm, frameRate)
	if err := os.WriteFile(args[1], wav, 0644); err != nil {
		return fmt.Errorf("failed to write WAV: %w", err)
	}

	captured := audio.CapturedAudio{PCM: pcm, SampleRate: frameRate}
	fmt.Printf("Wrote %s (%d bytes, %s)\n", args[1], len(wav), captured.Duration())
	return nil
}
