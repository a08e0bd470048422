package media

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/autodub/internal/domain"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	result CommandResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.result, f.err
}

func TestExtractAudioArgs(t *testing.T) {
	r := &fakeRunner{}
	f := NewFFmpegWithRunner(Config{FFmpegPath: "/usr/bin/ffmpeg"}, r)
	out := filepath.Join(t.TempDir(), "job", "audio.wav")

	if err := f.ExtractAudio(context.Background(), "in.mp4", out); err != nil {
		t.Fatalf("ExtractAudio() error = %v", err)
	}
	if len(r.calls) != 1 || r.calls[0].name != "/usr/bin/ffmpeg" {
		t.Fatalf("calls = %+v", r.calls)
	}
	got := strings.Join(r.calls[0].args, " ")
	want := "-y -i in.mp4 -vn -acodec pcm_s16le -ac 1 -ar 16000 " + out
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestReplaceAudioArgs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "replace",
			cfg:  Config{},
			want: "-y -i v.mp4 -i a.wav -map 0:v:0 -map 1:a:0 -c:v copy -c:a aac OUT",
		},
		{
			name: "mix original",
			cfg:  Config{KeepOriginalAudio: true, OriginalVolume: 0.2},
			want: "-y -i v.mp4 -i a.wav -filter_complex [0:a]volume=0.2[orig];[orig][1:a]amix=inputs=2[mixed] -map 0:v:0 -map [mixed] -c:v copy -c:a aac OUT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			out := filepath.Join(t.TempDir(), "out.mp4")
			if err := NewFFmpegWithRunner(tt.cfg, r).ReplaceAudio(context.Background(), "v.mp4", "a.wav", out); err != nil {
				t.Fatal(err)
			}
			got := strings.Replace(strings.Join(r.calls[0].args, " "), out, "OUT", 1)
			if got != tt.want {
				t.Errorf("args = %q\nwant   %q", got, tt.want)
			}
		})
	}
}

func TestFFmpegFailureWrapsErrMedia(t *testing.T) {
	r := &fakeRunner{
		err:    errors.New("exit status 1"),
		result: CommandResult{ExitCode: 1, Stderr: "banner\nin.mp4: No such file or directory"},
	}
	err := NewFFmpegWithRunner(Config{}, r).ExtractAudio(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "a.wav"))
	if !errors.Is(err, domain.ErrMedia) {
		t.Fatalf("error = %v, want ErrMedia", err)
	}
	if !strings.Contains(err.Error(), "No such file") {
		t.Errorf("error %q lost ffmpeg's message", err)
	}
}

func TestProbe(t *testing.T) {
	r := &fakeRunner{result: CommandResult{Stdout: `{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
		],
		"format": {"duration": "12.480000", "size": "1048576", "format_name": "mov,mp4,m4a"}
	}`}}
	f := NewFFmpegWithRunner(Config{}, r)

	info, err := f.Probe(context.Background(), "v.mp4")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Duration != 12.48 || info.Width != 1280 || info.AudioCodec != "aac" || info.SampleRate != 48000 || info.Size != 1048576 {
		t.Errorf("info = %+v", info)
	}
	if got := strings.Join(r.calls[0].args, " "); got != "-v error -show_format -show_streams -of json v.mp4" {
		t.Errorf("ffprobe args = %q", got)
	}

	d, err := f.ProbeDuration(context.Background(), "v.mp4")
	if err != nil || d != 12.48 {
		t.Errorf("ProbeDuration() = %v, %v", d, err)
	}
}

func TestProbeDurationMissing(t *testing.T) {
	r := &fakeRunner{result: CommandResult{Stdout: `{"format": {}, "streams": []}`}}
	if _, err := NewFFmpegWithRunner(Config{}, r).ProbeDuration(context.Background(), "x"); !errors.Is(err, domain.ErrMedia) {
		t.Fatalf("error = %v, want ErrMedia", err)
	}
}

func TestCheck(t *testing.T) {
	r := &fakeRunner{err: errors.New("executable file not found")}
	if err := NewFFmpegWithRunner(Config{}, r).Check(context.Background()); !errors.Is(err, domain.ErrMedia) {
		t.Fatalf("Check() error = %v", err)
	}
	ok := &fakeRunner{}
	if err := NewFFmpegWithRunner(Config{}, ok).Check(context.Background()); err != nil || len(ok.calls) != 2 {
		t.Fatalf("Check() = %v with %d calls", err, len(ok.calls))
	}
}
