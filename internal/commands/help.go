package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for murmur",
	Long:  `Display detailed help for all murmur commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp()
	},
}

func showCustomHelp() {
	fmt.Print(`
███╗   ███╗██╗   ██╗██████╗ ███╗   ███╗██╗   ██╗██████╗
████╗ ████║██║   ██║██╔══██╗████╗ ████║██║   ██║██╔══██╗
██╔████╔██║██║   ██║██████╔╝██╔████╔██║██║   ██║██████╔╝
██║╚██╔╝██║██║   ██║██╔══██╗██║╚██╔╝██║██║   ██║██╔══██╗
██║ ╚═╝ ██║╚██████╔╝██║  ██║██║ ╚═╝ ██║╚██████╔╝██║  ██║
╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝

murmur - voice notes with transcripts and summaries

COMMANDS:

  record                  Record a voice note
    --no-ui               Record until Ctrl-C without the live timer
    --for                 Stop automatically after a duration (30s, 5m)
    --enrich              Transcribe and summarize right after saving

    Live timer keys:
      s / q / esc   Stop and save

  ls                      Browse recordings in a live dashboard
    --no-ui               Simple text output
    --json                JSON output

    Quick actions:
      ↑/↓           Navigate recordings
      ←/→           Change page
      enter         Open summary and transcript (starts enrichment)
      tab           Switch between summary and transcript
      esc/q         Back / quit

  show <id>               Print a recording with its audio details
  week                    Notes and minutes per day this week
    --ago                 Weeks back (1 = last week)
  enrich <id>             Transcribe and summarize now, retrying failed stages
    --all                 Enrich every pending recording

  status                  Show the library and any running session
  serve                   Serve the HTTP and WebSocket API
    --addr                Listen address (default server.addr)

  devices                 List microphones and their indexes
  version                 Print version information
  help                    Show this help

GLOBAL FLAGS:

  --config                Config file (default ~/.murmur/config.yaml)
  --log-level             debug|info|warn|error

Every config key can also be set with a MURMUR_ environment variable,
e.g. MURMUR_ENRICHMENT_TRANSCRIBER=openai.

`)
}
