package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/correct"
)

var submitCmd = &cobra.Command{
	Use:   "submit <file.wav>",
	Short: "Submit an existing WAV file for correction",
	Long: `Validates a mono 16-bit PCM WAV file and posts it to the correction API.

Examples:
  correctctl submit ~/Music/correct-tray/audio_20240101_120000.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	header, err := audio.ParseWAVHeader(data)
	if err != nil {
		printError("invalid WAV", err)
		return err
	}
	log.Debug().
		Uint32("sample_rate", header.SampleRate).
		Dur("duration", header.Duration()).
		Msg("Submitting WAV")

	client, err := correct.New(cfg.API, log)
	if err != nil {
		return err
	}

	answer, err := client.Correct(cmd.Context(), data)
	if err != nil {
		var netErr *correct.NetworkError
		if errors.As(err, &netErr) {
			fmt.Fprintf(os.Stderr, "Correction failed (%d): %s\n", netErr.Code, netErr.Message)
		} else {
			printError("correction", err)
		}
		return err
	}

	fmt.Println(answer.Text)
	return nil
}
