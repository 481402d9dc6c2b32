package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langquence/correct-tray/internal/audio"
	"github.com/langquence/correct-tray/internal/permissions"
)

var devicesProbe bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `Lists the input devices of the configured audio backend.

Examples:
  correctctl devices            # list inputs
  correctctl devices --probe    # also negotiate a sample rate`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().BoolVar(&devicesProbe, "probe", false, "negotiate a capture format on the selected device")
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	backend, err := audio.NewBackend(cfg.Audio)
	if err != nil {
		printError("audio backend", err)
		return err
	}
	defer backend.Close()

	devices, err := backend.ListDevices()
	if err != nil {
		printError("list devices", err)
		return err
	}

	fmt.Printf("Backend: %s\n", backend.Name())
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf(" %s %s\n", marker, d.Name)
	}
	if len(devices) == 0 {
		fmt.Println("  (no input devices)")
	}

	if !devicesProbe {
		return nil
	}

	neg, err := audio.NewNegotiator(backend, cfg.Audio, permissions.Microphone, log).Negotiate()
	if err != nil {
		printError("negotiate", err)
		return err
	}
	defer neg.Device.Close()

	fmt.Printf("\nNegotiated: %d Hz, mono, %d-bit, read %d bytes, buffer %d bytes\n",
		neg.SampleRate, audio.BitsPerSample, neg.MinBufferSize, neg.BufferSize)
	return nil
}
