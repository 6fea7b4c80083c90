package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/murmur/internal/audio/mic"
	"github.com/balkashynov/murmur/internal/config"
	"github.com/balkashynov/murmur/internal/tui"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `List the microphones PortAudio can record from. Set capture.device (or
MURMUR_CAPTURE_DEVICE) to an index below to record from it; -1 uses the system default.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		devices, err := mic.InputDevices()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found")
			return
		}

		selected := mic.DefaultDevice
		if cfg, err := config.Load(configPath); err == nil {
			selected = cfg.Capture.Device
		}

		fmt.Printf("   %-6s %-40s %-9s %s\n", "INDEX", "NAME", "CHANNELS", "RATE")
		fmt.Println(strings.Repeat("-", 70))
		for _, d := range devices {
			marker := " "
			if d.Index == selected || (selected == mic.DefaultDevice && d.Default) {
				marker = "*"
			}
			fmt.Printf(" %s %-6d %-40s %-9d %.0f Hz\n", marker, d.Index, tui.Truncate(d.Name, 38), d.MaxInputChannels, d.DefaultSampleRate)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("murmur %s (commit %s, built %s)\n", version, commit, date)
	},
}
