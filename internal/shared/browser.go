package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the command that opens target in the default browser for the current platform.
func browserCommand(target string) (*exec.Cmd, error) {
	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", target), nil
	case "linux":
		return exec.Command("xdg-open", target), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// OpenBrowser opens the default system browser to the specified URL.
func OpenBrowser(target string) error {
	cmd, err := browserCommand(target)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// PageURL joins the web front-end base URL with a page path and query parameters.
//
// Threads are shown at "/content?id=<thread>", the login view at "/login".
func PageURL(webURL, page string, query url.Values) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(webURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: web url %q", ErrInvalidConfig, webURL)
	}

	base.Path = base.Path + "/" + strings.TrimPrefix(page, "/")
	if len(query) > 0 {
		base.RawQuery = query.Encode()
	}

	return base.String(), nil
}
