package tasks

import (
	"context"
	"net/url"
	"path/filepath"
	"runtime"
)

// fileURL turns an absolute path into a file:// URL
func fileURL(path string) string {
	p := filepath.ToSlash(path)
	if len(p) > 0 && p[0] != '/' {
		// windows drive letter
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// openBrowser asks the desktop to open u
func openBrowser(ctx context.Context, runner CommandRunner, u string) error {
	var cmd Command
	switch runtime.GOOS {
	case "darwin":
		cmd = Cmd("open", Quote(u))
	case "windows":
		cmd = Cmd("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = Cmd("xdg-open", Quote(u))
	}
	return runner.Run(ctx, cmd)
}
