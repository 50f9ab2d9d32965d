package chrome

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBinaryNotFound indicates an explicitly configured binary does not exist.
var ErrBinaryNotFound = errors.New("binary does not exist")

const (
	binaryChromium        = "chromium"
	binaryChromiumBrowser = "chromium-browser"
)

// ResolveBinary returns the absolute form of path, failing with
// [ErrBinaryNotFound] if nothing exists there.
func ResolveBinary(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}

	_, err = os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, abs, err)
	}

	return abs, nil
}

// DefaultBinary returns the Chromium executable name used when no binary is
// configured. Ubuntu packages it as chromium-browser; everything else,
// including a missing or unreadable osRelease file, gets chromium. The name
// is looked up on $PATH when the browser is started.
func DefaultBinary(osRelease string) string {
	data, err := os.ReadFile(osRelease) //nolint:gosec // Path is a fixed system file or a test fixture.
	if err != nil {
		return binaryChromium
	}

	if distroID(data) == "ubuntu" {
		return binaryChromiumBrowser
	}

	return binaryChromium
}

// distroID returns the ID field of an os-release(5) file.
func distroID(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || key != "ID" {
			continue
		}

		return strings.Trim(value, `"'`)
	}

	return ""
}
