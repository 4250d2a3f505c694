package lipsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"lipsync/internal/facedetect"
	"lipsync/internal/fileutil"
	"lipsync/internal/logging"
	"lipsync/internal/services"
)

const (
	defaultExternalTimeout = 600 * time.Second
	stderrTailBytes        = 4096
	defaultWaitDelay       = 5 * time.Second
)

// ProcessSpec is a child process invocation.
type ProcessSpec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
}

// ProcessResult is the structured outcome of the external program.
type ProcessResult struct {
	ExitCode     int
	Stderr       string
	OutputExists bool
}

// ProcessRunner starts a child process and waits for it. The returned error
// is reserved for failures to start or wait; a non-zero exit is reported
// through ExitCode.
type ProcessRunner interface {
	Run(ctx context.Context, spec ProcessSpec) (ProcessResult, error)
}

// ExecRunner runs processes with os/exec. The child leads its own process
// group and cancellation kills the whole group, so helpers it spawned cannot
// hold the stderr pipe open past the deadline.
type ExecRunner struct {
	// WaitDelay bounds the wait for pipes after cancellation. Zero means 5s.
	WaitDelay time.Duration
}

// Run implements ProcessRunner.
func (r ExecRunner) Run(ctx context.Context, spec ProcessSpec) (ProcessResult, error) {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killProcessGroup(cmd.Process) }
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	result := ProcessResult{Stderr: tail(stderr.String(), stderrTailBytes)}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, err
}

func killProcessGroup(p *os.Process) error {
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	return p.Kill()
}

// ExternalStrategy runs the standalone inference program.
type ExternalStrategy struct {
	Command        string
	Script         string
	Workdir        string
	CheckpointPath string
	Pads           facedetect.Pads
	Timeout        time.Duration
	// FFmpegDir is prepended to the child's PATH so it finds the same ffmpeg.
	FFmpegDir string
	Runner    ProcessRunner
	Logger    *slog.Logger
}

// Tier implements Strategy.
func (s ExternalStrategy) Tier() Tier { return TierExternal }

// Args returns the program arguments for req.
func (s ExternalStrategy) Args(req Request) []string {
	args := []string{
		s.Script,
		"--checkpoint_path", s.CheckpointPath,
		"--face", req.AvatarPath,
		"--audio", req.AudioPath,
		"--outfile", req.OutputPath,
		"--pads",
	}
	for _, v := range s.Pads.Slice() {
		args = append(args, strconv.Itoa(v))
	}
	return args
}

// Run implements Strategy.
func (s ExternalStrategy) Run(ctx context.Context, req Request) (Result, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultExternalTimeout
	}
	runner := s.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	// A partial file from an earlier tier must not pass the output check.
	if err := os.Remove(req.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, services.Wrap(services.ErrExternalTool, string(TierExternal), "clear output", req.OutputPath, err)
	}

	spec := ProcessSpec{
		Command: s.Command,
		Args:    s.Args(req),
		Dir:     s.Workdir,
		Env:     childEnv(os.Environ(), s.FFmpegDir),
	}
	logger.Info("running external inference",
		logging.String("command", s.Command),
		logging.String("script", s.Script),
		logging.String("workdir", s.Workdir),
		logging.Duration("timeout", timeout),
	)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	started := time.Now()
	result, err := runner.Run(runCtx, spec)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Result{}, services.Wrap(services.ErrTimeout, string(TierExternal), "run inference program",
			fmt.Sprintf("exceeded %s", timeout), runCtx.Err())
	}
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, string(TierExternal), "run inference program", "", err)
	}
	result.OutputExists = fileutil.NonEmptyFile(req.OutputPath)
	logger.Debug("external inference finished",
		logging.Int("exit_code", result.ExitCode),
		logging.Bool("output_exists", result.OutputExists),
		logging.Duration("elapsed", time.Since(started)),
	)
	if result.ExitCode != 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, string(TierExternal), "run inference program",
			fmt.Sprintf("exit code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)), nil)
	}
	if !result.OutputExists {
		return Result{}, services.Wrap(services.ErrExternalTool, string(TierExternal), "run inference program",
			fmt.Sprintf("did not produce output file %s", req.OutputPath), nil)
	}
	return Result{OutputPath: req.OutputPath, Tier: TierExternal}, nil
}

// childEnv returns env with dir prepended to PATH.
func childEnv(env []string, dir string) []string {
	out := append([]string(nil), env...)
	if strings.TrimSpace(dir) == "" {
		return out
	}
	for i, kv := range out {
		if value, ok := strings.CutPrefix(kv, "PATH="); ok {
			out[i] = "PATH=" + dir + string(os.PathListSeparator) + value
			return out
		}
	}
	return append(out, "PATH="+dir)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
