package whisperx

import "fmt"

// buildExtractArgs converts any audio or video input into the mono 16kHz WAV
// WhisperX aligns best against.
func buildExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", fmt.Sprint(16000),
		"-c:a", "pcm_s16le",
		dest,
	}
}
