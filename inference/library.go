package inference

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// LibraryPathEnv names the environment variable that overrides the shared library location.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// ErrLibraryNotFound is returned when the ONNX Runtime shared library is missing.
var ErrLibraryNotFound = errors.New("onnxruntime shared library not found")

// SharedLibPath returns the path to the ONNX Runtime shared library.
//
// An explicit path wins, then LibraryPathEnv, then the bundled third_party
// library for the current platform.
//
// Arguments:
//   - override: An explicit library path, may be empty.
//
// Returns:
//   - string: The path to the shared library.
func SharedLibPath(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv(LibraryPathEnv); env != "" {
		return env
	}
	return defaultLibPath(runtime.GOOS, runtime.GOARCH)
}

func defaultLibPath(goos, goarch string) string {
	switch goos {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}
		return "./third_party/onnxruntime_amd64.dylib"
	default:
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// checkLibrary verifies that the shared library exists before it is handed to cgo.
func checkLibrary(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(ErrLibraryNotFound, "%s: %v", path, err)
	}
	return nil
}
