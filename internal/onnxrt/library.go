package onnxrt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUnavailable indicates the runtime binding is not compiled in.
var ErrUnavailable = errors.New("onnxrt: runtime not available (build without -tags onnx)")

// LibraryFilename returns the platform-specific ONNX Runtime library filename.
func LibraryFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// ResolveLibrary returns the path of the ONNX Runtime shared library.
//
// Search order:
//  1. configured, when it names a file
//  2. configured/<filename>, when it names a directory
//  3. lib/<goos>-<goarch>/<filename> relative to the executable
//  4. ../lib/<goos>-<goarch>/<filename> relative to the executable
func ResolveLibrary(configured string) (string, error) {
	filename := LibraryFilename()
	configured = strings.TrimSpace(configured)
	if configured != "" {
		info, err := os.Stat(configured)
		if err != nil {
			return "", fmt.Errorf("onnxrt: configured library location %q does not exist", configured)
		}
		if !info.IsDir() {
			return configured, nil
		}
		path := filepath.Join(configured, filename)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("onnxrt: %s not found in %q", filename, configured)
		}
		return path, nil
	}

	platform := runtime.GOOS + "-" + runtime.GOARCH
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		for _, rel := range []string{
			filepath.Join("lib", platform, filename),
			filepath.Join("..", "lib", platform, filename),
		} {
			path := filepath.Join(exeDir, rel)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("onnxrt: shared library not found; searched lib/%s/%s relative to executable (set model.ort_library_dir or LIPSYNC_ORT_LIB_DIR)", platform, filename)
}
