package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"ShortsFactory/internal/ports"
)

// Prober reads container duration with ffprobe.
type Prober struct {
	command string
}

var _ ports.Prober = (*Prober)(nil)

func NewProber(command string) *Prober {
	if command == "" {
		command = "ffprobe"
	}
	return &Prober{command: command}
}

// Duration returns the format duration reported by ffprobe.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.command,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, lastLine(stderr.String()))
	}
	return parseSeconds(stdout.String())
}

func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("ffprobe: unexpected duration %q", raw)
	}
	return time.Duration(math.Round(secs*1000)) * time.Millisecond, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
