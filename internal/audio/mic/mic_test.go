package mic

import (
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestSelectInput(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", MaxInputChannels: 1},
		{Name: "Built-in Output", MaxInputChannels: 0},
		{Name: "USB Interface", MaxInputChannels: 2},
	}

	tests := []struct {
		name    string
		index   int
		want    string
		wantErr string
	}{
		{"first device is selectable", 0, "Built-in Microphone", ""},
		{"later input", 2, "USB Interface", ""},
		{"output only", 1, "", "not an input device"},
		{"past the end", 3, "", "invalid device ID"},
		{"default sentinel", DefaultDevice, "", "invalid device ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectInput(devices, tt.index)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("selectInput(%d) err = %v, want %q", tt.index, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("selectInput(%d): %v", tt.index, err)
			}
			if got.Name != tt.want {
				t.Errorf("selectInput(%d) = %q, want %q", tt.index, got.Name, tt.want)
			}
		})
	}
}
