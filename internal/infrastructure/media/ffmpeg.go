// Package media wraps the ffmpeg toolchain and background footage lookup.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

const (
	titleCardDuration = 3 * time.Second
	captionDim        = "black@0.4"
	audioBitrate      = "192k"
	videoBitrate      = "8000k"
	// bottom margin on the 288-line libass canvas, about 18% of the frame
	assMarginV = 52
)

// Composer renders a vertical short with ffmpeg: looped backgrounds cropped
// to the output frame, burned-in subtitles, narration audio.
type Composer struct {
	command       string
	video         config.VideoConfig
	fallbackColor string
	prober        ports.Prober
	logger        *slog.Logger
}

var _ ports.Composer = (*Composer)(nil)

// NewComposer builds a composer. prober may be nil when callers always set
// ComposeRequest.Duration.
func NewComposer(video config.VideoConfig, fallbackColor string, prober ports.Prober, logger *slog.Logger) *Composer {
	command := video.FFmpeg
	if command == "" {
		command = "ffmpeg"
	}
	if fallbackColor == "" {
		fallbackColor = "0x14141e"
	}
	if logger != nil {
		logger = logger.With("component", "composer")
	}
	return &Composer{
		command:       command,
		video:         video,
		fallbackColor: fallbackColor,
		prober:        prober,
		logger:        logger,
	}
}

// Compose encodes req.OutputPath. On failure the output file is removed and
// the error matches domain.ErrEncoding.
func (c *Composer) Compose(ctx context.Context, req ports.ComposeRequest) error {
	if req.AudioPath == "" || req.OutputPath == "" {
		return fmt.Errorf("%w: audio and output paths are required", domain.ErrEncoding)
	}

	duration, err := c.duration(ctx, req)
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "compose-*")
	if err != nil {
		return fmt.Errorf("compose temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	backgrounds := existing(req.Backgrounds)
	args, err := c.args(req, backgrounds, duration, tmpDir)
	if err != nil {
		return err
	}

	c.info("encoding video", "output", req.OutputPath, "backgrounds", len(backgrounds), "duration", duration)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(req.OutputPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrEncoding, err, lastLine(stderr.String()))
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(req.OutputPath)
		return fmt.Errorf("%w: ffmpeg produced no output", domain.ErrEncoding)
	}
	return nil
}

func (c *Composer) duration(ctx context.Context, req ports.ComposeRequest) (time.Duration, error) {
	d := req.Duration
	if d <= 0 && c.prober != nil {
		probed, err := c.prober.Duration(ctx, req.AudioPath)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
		}
		d = probed
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: unknown audio duration", domain.ErrEncoding)
	}
	if c.video.MaxDuration > 0 && d > c.video.MaxDuration {
		c.warn("narration exceeds max duration, trimming", "duration", d, "max", c.video.MaxDuration)
		d = c.video.MaxDuration
	}
	return d, nil
}

// args builds the ffmpeg command line. Inputs: backgrounds (or a lavfi
// colour source), then narration audio.
func (c *Composer) args(req ports.ComposeRequest, backgrounds []string, duration time.Duration, tmpDir string) ([]string, error) {
	w, h, fps := c.video.Width, c.video.Height, c.video.FPS
	secs := seconds(duration)

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	var filters []string

	if len(backgrounds) == 0 {
		args = append(args, "-f", "lavfi", "-i",
			fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s", c.fallbackColor, w, h, fps, secs))
		filters = append(filters, "[0:v]setsar=1[bg]")
	} else {
		slice := seconds(duration / time.Duration(len(backgrounds)))
		var labels strings.Builder
		for i, bg := range backgrounds {
			args = append(args, "-stream_loop", "-1", "-i", bg)
			filters = append(filters, fmt.Sprintf(
				"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,trim=duration=%s,setpts=PTS-STARTPTS[b%d]",
				i, w, h, w, h, fps, slice, i))
			fmt.Fprintf(&labels, "[b%d]", i)
		}
		filters = append(filters, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[bg]", labels.String(), len(backgrounds)))
	}
	audioInput := max(len(backgrounds), 1)
	args = append(args, "-i", req.AudioPath)

	last := "bg"
	next := func(filter string) {
		label := fmt.Sprintf("v%d", len(filters))
		filters = append(filters, fmt.Sprintf("[%s]%s[%s]", last, filter, label))
		last = label
	}

	if req.Caption != "" {
		next(fmt.Sprintf("drawbox=x=0:y=0:w=iw:h=ih:color=%s:t=fill", captionDim))
		path, err := writeText(tmpDir, "caption.txt", req.Caption)
		if err != nil {
			return nil, err
		}
		next(c.drawText(path, c.fontSize()*3/4, "(h-text_h)/2-h*0.15", ""))
	}
	if req.Title != "" {
		path, err := writeText(tmpDir, "title.txt", req.Title)
		if err != nil {
			return nil, err
		}
		next(c.drawText(path, c.fontSize()+c.fontSize()/4, "h*0.12",
			fmt.Sprintf("lt(t,%s)", seconds(titleCardDuration))))
	}
	if req.SubtitlePath != "" {
		next(c.subtitles(req.SubtitlePath))
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "["+last+"]",
		"-map", strconv.Itoa(audioInput)+":a:0",
		"-c:v", c.codec(c.video.VideoCodec, "libx264"),
		"-preset", "veryfast",
		"-b:v", videoBitrate,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-c:a", c.codec(c.video.AudioCodec, "aac"),
		"-b:a", audioBitrate,
		"-t", secs,
		"-movflags", "+faststart",
		"-f", "mp4",
		req.OutputPath,
	)
	return args, nil
}

func (c *Composer) subtitles(path string) string {
	style := []string{
		"FontName=" + c.video.Font,
		"FontSize=" + strconv.Itoa(c.assFontSize()),
		"PrimaryColour=&H00FFFFFF",
		"OutlineColour=&H00000000",
		"BorderStyle=1",
		"Outline=3",
		"Alignment=2",
		"MarginV=" + strconv.Itoa(assMarginV),
	}
	if c.video.Font == "" {
		style = style[1:]
	}
	return fmt.Sprintf("subtitles=filename=%s:force_style='%s'", escapeFilterValue(path), strings.Join(style, ","))
}

func (c *Composer) drawText(textFile string, size int, y, enable string) string {
	parts := []string{
		"drawtext=textfile=" + escapeFilterValue(textFile),
		"fontsize=" + strconv.Itoa(size),
		"fontcolor=white",
		"borderw=4",
		"bordercolor=black",
		"line_spacing=12",
		"x=(w-text_w)/2",
		"y=" + y,
	}
	if c.video.Font != "" {
		parts = append(parts, "font="+escapeFilterValue(c.video.Font))
	}
	if enable != "" {
		parts = append(parts, "enable='"+enable+"'")
	}
	return strings.Join(parts, ":")
}

func (c *Composer) fontSize() int {
	if c.video.FontSize > 0 {
		return c.video.FontSize
	}
	return 64
}

// libass scales styles against a 384x288 script canvas; convert the
// configured pixel size for a full-height frame.
func (c *Composer) assFontSize() int {
	if c.video.Height <= 0 {
		return c.fontSize()
	}
	return max(c.fontSize()*288/c.video.Height, 8)
}

func (c *Composer) codec(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (c *Composer) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Composer) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func existing(paths []string) []string {
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			out = append(out, p)
		}
	}
	return out
}

// writeText stores overlay text in a file so drawtext never has to escape it.
func writeText(dir, name, text string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write overlay text: %w", err)
	}
	return path, nil
}

// escapeFilterValue quotes a filter option value. A quote inside the value
// closes the quoted run, is escaped, then reopens it.
func escapeFilterValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
