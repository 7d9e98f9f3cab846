package tts

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
	"testing"
	"time"

	"google.golang.org/api/option"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

const fakeEdge = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --write-media) media="$2"; shift 2 ;;
    --write-subtitles) subs="$2"; shift 2 ;;
    --voice) echo "$2" > "$(dirname "$0")/voice.txt"; shift 2 ;;
    *) shift ;;
  esac
done
printf 'ID3fake' > "$media"
cat > "$subs" <<'SRT'
1
00:00:00,100 --> 00:00:01,500
안녕하세요

2
00:00:01,500 --> 00:00:03,250
오늘의 소식입니다
SRT
`

func installFake(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	path := filepath.Join(t.TempDir(), "edge-tts")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake: %v", err)
	}
	return path
}

func TestEdgeSynthesizerReadsAudioAndTiming(t *testing.T) {
	cmd := installFake(t, fakeEdge)
	synth, err := NewEdgeSynthesizer(config.EdgeTTSConfig{Command: cmd, Voice: "ko-KR-SunHiNeural", Rate: "+5%"})
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}

	speech, err := synth.Synthesize(context.Background(), "안녕하세요. 오늘의 소식입니다", ports.Voice{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	if string(speech.Audio) != "ID3fake" {
		t.Fatalf("unexpected audio %q", speech.Audio)
	}
	if len(speech.Boundaries) != 2 {
		t.Fatalf("expected 2 boundaries, got %d", len(speech.Boundaries))
	}
	if speech.Duration != 3250*time.Millisecond {
		t.Fatalf("unexpected duration %s", speech.Duration)
	}

	voice, err := os.ReadFile(filepath.Join(filepath.Dir(cmd), "voice.txt"))
	if err != nil || strings.TrimSpace(string(voice)) != "ko-KR-SunHiNeural" {
		t.Fatalf("voice not passed through: %q %v", voice, err)
	}
}

func TestEdgeSynthesizerFailureIsUnavailable(t *testing.T) {
	cmd := installFake(t, "#!/bin/sh\necho 'connection reset' >&2\nexit 1\n")
	synth, err := NewEdgeSynthesizer(config.EdgeTTSConfig{Command: cmd})
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}

	_, err = synth.Synthesize(context.Background(), "text", ports.Voice{})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("stderr not reported: %v", err)
	}
}

func TestEdgeSynthesizerMissingCommand(t *testing.T) {
	t.Parallel()

	_, err := NewEdgeSynthesizer(config.EdgeTTSConfig{Command: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGoogleSynthesizer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "text:synthesize") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"audioContent":"SUQz"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	synth, err := NewGoogleSynthesizer(ctx, config.GoogleTTSConfig{VoiceName: "ko-KR-Neural2-A"},
		option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}

	speech, err := synth.Synthesize(ctx, "안녕하세요", ports.Voice{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(speech.Audio) != "ID3" {
		t.Fatalf("unexpected audio %q", speech.Audio)
	}
	if len(speech.Boundaries) != 0 {
		t.Fatalf("google reports no boundaries")
	}
}

func TestGoogleSynthesizerClassifiesErrors(t *testing.T) {
	t.Parallel()

	cases := map[int]error{
		http.StatusForbidden:          domain.ErrProviderRejected,
		http.StatusServiceUnavailable: domain.ErrProviderUnavailable,
	}
	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, status)
		}))
		ctx := context.Background()
		synth, err := NewGoogleSynthesizer(ctx, config.GoogleTTSConfig{},
			option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
		if err != nil {
			srv.Close()
			t.Fatalf("new synthesizer: %v", err)
		}
		_, err = synth.Synthesize(ctx, "x", ports.Voice{})
		srv.Close()
		if !errors.Is(err, want) {
			t.Fatalf("status %d: expected %v, got %v", status, want, err)
		}
	}
}

func TestGoogleSynthesizerNeedsKey(t *testing.T) {
	t.Parallel()

	_, err := NewGoogleSynthesizer(context.Background(), config.GoogleTTSConfig{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
