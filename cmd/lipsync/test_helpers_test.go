package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lipsync/internal/config"
	"lipsync/internal/testsupport"
)

const externalScript = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--outfile" ]; then out="$2"; fi
  shift
done
printf 'synced' > "$out"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	audioPath  string
}

func setupCLITestEnv(t *testing.T, scriptBody string) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithModelFiles(),
		testsupport.WithAvatars("host.mp4", "news_anchor.png"),
		testsupport.WithNativeDisabled(),
		testsupport.WithExternal("/bin/sh", "infer.sh"),
	)
	script := filepath.Join(cfg.External.Workdir, cfg.External.Script)
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+scriptBody), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	base := testsupport.BaseDir(cfg)
	audioPath := filepath.Join(base, "speech.wav")
	testsupport.WriteFile(t, audioPath, 128)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, audioPath: audioPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
