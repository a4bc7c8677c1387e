package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildArgsCPU(t *testing.T) {
	svc := NewService(Config{Model: "small", Language: "es-MX"})
	args := strings.Join(svc.buildArgs("/tmp/in.wav", "/tmp/out"), " ")
	for _, fragment := range []string{
		"--index-url " + PypiIndexURL,
		"whisperx /tmp/in.wav --model small",
		"--output_format json",
		"--vad_method silero",
		"--language es",
		"--device cpu --compute_type float32",
	} {
		if !strings.Contains(args, fragment) {
			t.Fatalf("expected %q in %q", fragment, args)
		}
	}
	if strings.Contains(args, "--hf_token") {
		t.Fatalf("did not expect hf token for silero: %q", args)
	}
}

func TestBuildArgsCUDAWithPyannote(t *testing.T) {
	svc := NewService(Config{CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "hf_x"})
	args := strings.Join(svc.buildArgs("in.wav", "out"), " ")
	for _, fragment := range []string{"--extra-index-url", "--model base", "--hf_token hf_x", "--device cuda"} {
		if !strings.Contains(args, fragment) {
			t.Fatalf("expected %q in %q", fragment, args)
		}
	}
	if strings.Contains(args, "--language") {
		t.Fatalf("language should be omitted when unset: %q", args)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"en":    "en",
		"en-US": "en",
		"spa":   "es",
		"???":   "",
	}
	for input, want := range tests {
		if got := normalizeLanguage(input); got != want {
			t.Fatalf("normalizeLanguage(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRecognizeRunsFFmpegThenWhisperX(t *testing.T) {
	svc := NewService(Config{UVXBinary: "uvx-test", FFmpegBinary: "ff-test"})
	var calls []string
	var workDir string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, name)
		if name == "uvx-test" {
			for i, arg := range args {
				if arg == "--output_dir" {
					workDir = args[i+1]
				}
			}
			payload := `{"segments":[{"text":"hola mundo","start":0.1,"end":1.2,"words":[` +
				`{"word":"hola","start":0.1,"end":0.5,"score":0.9},{"word":"2024"},{"word":"mundo","start":0.6,"end":1.2}]}]}`
			return os.WriteFile(filepath.Join(workDir, "narration.json"), []byte(payload), 0o644)
		}
		return nil
	})

	segments, err := svc.Recognize(context.Background(), "/tmp/voice.mp3")
	if err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}
	if strings.Join(calls, ",") != "ff-test,uvx-test" {
		t.Fatalf("unexpected call order %v", calls)
	}
	if len(segments) != 1 || len(segments[0].Words) != 3 {
		t.Fatalf("unexpected segments %+v", segments)
	}
	if !segments[0].Words[0].Timed() || segments[0].Words[1].Timed() {
		t.Fatalf("unexpected timing flags %+v", segments[0].Words)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("expected work dir %s to be removed, stat err=%v", workDir, err)
	}
}

func TestRecognizePropagatesFailures(t *testing.T) {
	svc := NewService(Config{})
	base := errors.New("model download failed")
	svc.WithCommandRunner(func(_ context.Context, name string, _ ...string) error {
		if name == defaultUVX {
			return base
		}
		return nil
	})
	if _, err := svc.Recognize(context.Background(), "/tmp/voice.wav"); !errors.Is(err, base) {
		t.Fatalf("expected runner error, got %v", err)
	}
	if _, err := svc.Recognize(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
