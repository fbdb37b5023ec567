package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the program and arguments that open url on goos.
//
// A non-empty $BROWSER takes precedence on every platform.
func browserCommand(goos, url string) (string, []string, error) {
	if browser := strings.TrimSpace(os.Getenv("BROWSER")); browser != "" {
		fields := strings.Fields(browser)
		return fields[0], append(fields[1:], url), nil
	}

	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser starts the user's browser on url without waiting for it to exit.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(getRuntime(), url)
	if err != nil {
		return err
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
