package frames

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/mediastore"
)

// FFmpeg extracts frames by staging the upload in a PathStore and running the
// ffmpeg binary with a frame-select filter.
type FFmpeg struct {
	bin     string
	staging mediastore.PathStore
	logger  *slog.Logger
}

func NewFFmpeg(bin string, staging mediastore.PathStore, logger *slog.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, staging: staging, logger: logger}
}

func (f *FFmpeg) Extract(ctx context.Context, video domain.Media, stride int, emit func([]byte) error) error {
	key, err := f.staging.Save(ctx, "video", video.MIMEType, bytes.NewReader(video.Data))
	if err != nil {
		return fmt.Errorf("failed to stage video: %w", err)
	}
	defer func() {
		if err := f.staging.Delete(context.WithoutCancel(ctx), key); err != nil {
			f.logger.Error("failed to delete staged video", "storage_key", key, "error", err)
		}
	}()

	in, err := f.staging.Path(key)
	if err != nil {
		return err
	}
	outDir, err := os.MkdirTemp("", "freezerinv-frames-*")
	if err != nil {
		return fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx, f.bin, ffmpegArgs(in, outDir, stride)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}

	names, err := filepath.Glob(filepath.Join(outDir, "frame_*.png"))
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read frame: %w", err)
		}
		if err := emit(data); err != nil {
			return err
		}
	}
	return nil
}

func ffmpegArgs(in, outDir string, stride int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-vf", fmt.Sprintf(`select=not(mod(n\,%d))`, stride),
		"-vsync", "vfr",
		filepath.Join(outDir, "frame_%05d.png"),
	}
}
