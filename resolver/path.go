package resolver

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// sentinel marks the installed-module root of the project.
	sentinel    = "{}/node_modules/"
	nodeModules = "node_modules"
)

// fixTilde rewrites "~pkg" and bare node_modules references into sentinel
// rooted form so all installed-module references look the same.
func fixTilde(p string) string {
	if strings.HasPrefix(p, "~") {
		p = sentinel + p[1:]
	}
	if !strings.HasPrefix(p, "{") {
		switch {
		case strings.HasPrefix(p, nodeModules):
			p = "{}/" + p
		case strings.HasPrefix(p, "/"+nodeModules):
			p = "{}" + p
		}
	}
	return p
}

// standardPath converts platform specific path into forward slash form.
func standardPath(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	return windowsToStandard(p, os.Getenv("SystemDrive"))
}

// windowsToStandard turns `\Users\x` into `C:/Users/x` (with drive "C:") and
// `C:/Users/x` into "/C/Users/x".
func windowsToStandard(p, drive string) string {
	if strings.HasPrefix(p, `\`) {
		p = drive + p
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) > 1 && p[1] == ':' {
		p = "/" + p[:1] + p[2:]
	}
	return p
}

// nativePath reverses standardPath for filesystem access.
func nativePath(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	return filepath.FromSlash(standardToWindows(p))
}

func standardToWindows(p string) string {
	if len(p) >= 2 && p[0] == '/' && p[1] != '/' && (len(p) == 2 || p[2] == '/') {
		return p[1:2] + ":" + p[2:]
	}
	return p
}

func fileExists(p string) bool {
	fi, err := os.Stat(nativePath(p))
	return err == nil && !fi.IsDir()
}

func hasUnderscore(p string) bool {
	return strings.HasPrefix(path.Base(p), "_")
}
