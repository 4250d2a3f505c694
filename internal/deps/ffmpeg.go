package deps

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// ResolveFFmpeg returns the ffmpeg binary to execute. The configured binary
// wins when it runs "-version" successfully; otherwise "ffmpeg" from PATH is
// tried. An error is returned only when neither works.
func ResolveFFmpeg(ctx context.Context, configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" && probeVersion(ctx, configured) == nil {
		return configured, nil
	}
	fallback := executableName("ffmpeg")
	if configured != fallback {
		if err := probeVersion(ctx, fallback); err == nil {
			return fallback, nil
		}
	}
	if configured == "" {
		configured = fallback
	}
	return "", fmt.Errorf("ffmpeg not usable (tried %q and %q)", configured, fallback)
}

// CheckFFmpeg reports which ffmpeg binary ResolveFFmpeg would choose.
func CheckFFmpeg(ctx context.Context, configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Decodes audio and video, muxes output",
	}
	resolved, err := ResolveFFmpeg(ctx, configured)
	if err != nil {
		result.Command = strings.TrimSpace(configured)
		result.Detail = err.Error()
		return result
	}
	result.Command = resolved
	result.Available = true
	if configured != "" && resolved != configured {
		result.Detail = fmt.Sprintf("configured %q unusable, using %q", configured, resolved)
	}
	return result
}

// DirOf returns the directory holding the resolved binary, for callers that
// need to prepend it to a child's PATH. Empty when the binary is a bare name
// that cannot be resolved.
func DirOf(binary string) string {
	if binary == "" {
		return ""
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return ""
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}
	return filepath.Dir(resolved)
}

func probeVersion(ctx context.Context, binary string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(probeCtx, binary, "-version")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
