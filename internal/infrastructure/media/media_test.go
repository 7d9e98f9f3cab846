package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// fakeFFmpeg records its arguments one per line and writes the output file
// named by the last argument.
const fakeFFmpeg = `#!/bin/sh
for a in "$@"; do printf '%s\n' "$a"; done > "$(dirname "$0")/args.txt"
for a in "$@"; do out="$a"; done
printf 'mp4data' > "$out"
`

const failingFFmpeg = `#!/bin/sh
for a in "$@"; do out="$a"; done
printf 'partial' > "$out"
echo "Error opening filters!" >&2
exit 1
`

const fakeFFprobe = `#!/bin/sh
echo "12.3456"
`

func installScript(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testVideo(ffmpeg string) config.VideoConfig {
	return config.VideoConfig{
		Width:       1080,
		Height:      1920,
		FPS:         30,
		VideoCodec:  "libx264",
		AudioCodec:  "aac",
		MaxDuration: 59 * time.Second,
		FontSize:    64,
		FFmpeg:      ffmpeg,
	}
}

func readArgs(t *testing.T, ffmpeg string) []string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(filepath.Dir(ffmpeg), "args.txt"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(raw)), "\n")
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestComposeWithColourFallback(t *testing.T) {
	ffmpeg := installScript(t, "ffmpeg", fakeFFmpeg)
	dir := t.TempDir()
	out := filepath.Join(dir, "shorts.mp4")

	c := NewComposer(testVideo(ffmpeg), "0x101820", nil, nil)
	err := c.Compose(context.Background(), ports.ComposeRequest{
		AudioPath:    filepath.Join(dir, "narration.mp3"),
		SubtitlePath: filepath.Join(dir, "narration.srt"),
		OutputPath:   out,
		Duration:     20 * time.Second,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "mp4data", string(data))

	args := readArgs(t, ffmpeg)
	assert.Equal(t, "lavfi", argAfter(args, "-f"))
	assert.Contains(t, argAfter(args, "-i"), "color=c=0x101820:s=1080x1920:r=30")
	assert.Equal(t, "1:a:0", args[indexOf(args, "-map")+3])
	assert.Equal(t, "20.000", argAfter(args, "-t"))
	assert.Equal(t, "+faststart", argAfter(args, "-movflags"))
	assert.Contains(t, argAfter(args, "-filter_complex"), "subtitles=filename='"+filepath.Join(dir, "narration.srt")+"'")
	assert.Equal(t, out, args[len(args)-1])
}

func TestComposeLoopsAndCropsBackgrounds(t *testing.T) {
	ffmpeg := installScript(t, "ffmpeg", fakeFFmpeg)
	dir := t.TempDir()
	bg1 := filepath.Join(dir, "bg_1.mp4")
	bg2 := filepath.Join(dir, "bg_2.mp4")
	require.NoError(t, os.WriteFile(bg1, []byte("clip"), 0o644))
	require.NoError(t, os.WriteFile(bg2, []byte("clip"), 0o644))

	c := NewComposer(testVideo(ffmpeg), "", nil, nil)
	err := c.Compose(context.Background(), ports.ComposeRequest{
		AudioPath:   filepath.Join(dir, "narration.mp3"),
		Backgrounds: []string{bg1, filepath.Join(dir, "missing.mp4"), bg2},
		OutputPath:  filepath.Join(dir, "out.mp4"),
		Title:       "오늘의 뉴스",
		Duration:    90 * time.Second,
	})
	require.NoError(t, err)

	args := readArgs(t, ffmpeg)
	joined := strings.Join(args, " ")
	assert.Equal(t, 2, strings.Count(joined, "-stream_loop -1"), "missing background must be dropped")

	graph := argAfter(args, "-filter_complex")
	assert.Contains(t, graph, "crop=1080:1920")
	assert.Contains(t, graph, "concat=n=2:v=1:a=0[bg]")
	assert.Contains(t, graph, "trim=duration=29.500")
	assert.Contains(t, graph, "drawtext=textfile=")
	assert.Contains(t, graph, "enable='lt(t,3.000)'")
	assert.Equal(t, "59.000", argAfter(args, "-t"), "duration is capped at max_duration")
	assert.Contains(t, joined, "-map 2:a:0")
}

func TestComposeFailureIsEncodingError(t *testing.T) {
	ffmpeg := installScript(t, "ffmpeg", failingFFmpeg)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mp4")

	c := NewComposer(testVideo(ffmpeg), "", nil, nil)
	err := c.Compose(context.Background(), ports.ComposeRequest{
		AudioPath:  filepath.Join(dir, "narration.mp3"),
		OutputPath: out,
		Duration:   10 * time.Second,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEncoding))
	assert.Contains(t, err.Error(), "Error opening filters!")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "partial output must be removed")
}

func TestComposeProbesMissingDuration(t *testing.T) {
	ffmpeg := installScript(t, "ffmpeg", fakeFFmpeg)
	ffprobe := installScript(t, "ffprobe", fakeFFprobe)
	dir := t.TempDir()

	c := NewComposer(testVideo(ffmpeg), "", NewProber(ffprobe), nil)
	err := c.Compose(context.Background(), ports.ComposeRequest{
		AudioPath:  filepath.Join(dir, "narration.mp3"),
		OutputPath: filepath.Join(dir, "out.mp4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12.346", argAfter(readArgs(t, ffmpeg), "-t"))
}

func TestComposeWithoutDuration(t *testing.T) {
	dir := t.TempDir()
	c := NewComposer(testVideo("ffmpeg"), "", nil, nil)
	err := c.Compose(context.Background(), ports.ComposeRequest{
		AudioPath:  filepath.Join(dir, "narration.mp3"),
		OutputPath: filepath.Join(dir, "out.mp4"),
	})
	assert.True(t, errors.Is(err, domain.ErrEncoding))
}

func TestProberDuration(t *testing.T) {
	ffprobe := installScript(t, "ffprobe", fakeFFprobe)
	d, err := NewProber(ffprobe).Duration(context.Background(), "audio.mp3")
	require.NoError(t, err)
	assert.Equal(t, 12346*time.Millisecond, d)
}

func TestParseSeconds(t *testing.T) {
	t.Parallel()
	d, err := parseSeconds(" 3.5\n")
	require.NoError(t, err)
	assert.Equal(t, 3500*time.Millisecond, d)

	_, err = parseSeconds("N/A")
	assert.Error(t, err)
}

func TestEscapeFilterValue(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `'/tmp/a b/c.srt'`, escapeFilterValue("/tmp/a b/c.srt"))
	assert.Equal(t, `'/tmp/it'\''s.srt'`, escapeFilterValue("/tmp/it's.srt"))
}

func TestPexelsDownloadsPortraitClips(t *testing.T) {
	t.Parallel()

	var downloads atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos/search":
			assert.Equal(t, "secret", r.Header.Get("Authorization"))
			assert.Equal(t, "portrait", r.URL.Query().Get("orientation"))
			if r.URL.Query().Get("query") == "nothing here" {
				fmt.Fprint(w, `{"videos":[]}`)
				return
			}
			fmt.Fprintf(w, `{"videos":[
				{"id":1,"duration":5,"video_files":[{"file_type":"video/mp4","width":1080,"height":1920,"link":"%[1]s/files/1"}]},
				{"id":2,"duration":30,"video_files":[
					{"file_type":"video/mp4","width":1920,"height":1080,"link":"%[1]s/files/2-landscape"},
					{"file_type":"video/mp4","width":720,"height":1280,"link":"%[1]s/files/2-hd"},
					{"file_type":"video/mp4","width":1080,"height":1920,"link":"%[1]s/files/2-fhd"}
				]},
				{"id":3,"duration":20,"video_files":[{"file_type":"video/mp4","width":1080,"height":1920,"link":"%[1]s/files/3"}]}
			]}`, srv.URL)
		case "/files/2-fhd", "/files/3":
			downloads.Add(1)
			fmt.Fprint(w, "clip-"+strings.TrimPrefix(r.URL.Path, "/files/"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cache := filepath.Join(t.TempDir(), "backgrounds")
	p := NewPexelsBackgrounds(srv.Client(), PexelsOptions{
		APIKey:   "secret",
		BaseURL:  srv.URL,
		CacheDir: cache,
		Fallback: "city night",
	}, nil)

	paths, err := p.Backgrounds(context.Background(), [][]string{{"stock market"}, {"stock market"}})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(cache, "bg_2.mp4"),
		filepath.Join(cache, "bg_3.mp4"),
	}, paths, "short clips are skipped and a clip is used once per call")

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "clip-2-fhd", string(data))

	again, err := p.Backgrounds(context.Background(), [][]string{{"nothing here"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cache, "bg_2.mp4")}, again, "fallback query reuses the cache")
	assert.Equal(t, int32(2), downloads.Load())
}

func TestPexelsWithoutKey(t *testing.T) {
	t.Parallel()
	p := NewPexelsBackgrounds(nil, PexelsOptions{CacheDir: t.TempDir()}, nil)
	paths, err := p.Backgrounds(context.Background(), [][]string{{"city"}})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPexelsSearchErrorSkipsQuery(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewPexelsBackgrounds(srv.Client(), PexelsOptions{APIKey: "k", BaseURL: srv.URL, CacheDir: t.TempDir()}, nil)
	paths, err := p.Backgrounds(context.Background(), [][]string{{"city"}})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestVisualQuery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		keywords []string
		want     string
	}{
		{[]string{"반도체", "삼성"}, "microchip circuit board"},
		{[]string{"삼성", "Nvidia"}, "nvidia"},
		{[]string{"날씨"}, "city night"},
		{[]string{"ai"}, "robot artificial intelligence"},
		{nil, "city night"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, visualQuery(tc.keywords, "city night"), "keywords %v", tc.keywords)
	}
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}
