package composer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Video timing: one second per frame at 25 fps, with the final frame
// repeated so the sequence does not end abruptly.
const (
	videoFPS        = 25
	frameDwellSecs  = 1
	finalFrameExtra = 1
)

// EncodeVideo builds an MP4 from the ordered frame files using ffmpeg's
// concat demuxer. framePaths must all live in the same directory.
func EncodeVideo(ctx context.Context, ffmpegPath string, framePaths []string, outPath string) error {
	if len(framePaths) == 0 {
		return fmt.Errorf("no frames to encode")
	}

	listPath := outPath + ".frames.txt"
	var sb strings.Builder
	for _, p := range framePaths {
		fmt.Fprintf(&sb, "file '%s'\nduration %d\n", filepath.Base(p), frameDwellSecs)
	}
	// Concat demuxer ignores the duration on the last entry, so repeat it.
	fmt.Fprintf(&sb, "file '%s'\nduration %d\n", filepath.Base(framePaths[len(framePaths)-1]), finalFrameExtra)
	fmt.Fprintf(&sb, "file '%s'\n", filepath.Base(framePaths[len(framePaths)-1]))
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write frame list: %w", err)
	}
	defer os.Remove(listPath)

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", fmt.Sprint(videoFPS),
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		outPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, truncate(string(out), 500))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
