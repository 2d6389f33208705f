// Package web holds the dashboard served by the monitor.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment variables that switch the dashboard to files on disk.
const (
	// DevModeEnv serves the dashboard from the source tree when set to true
	// or 1.
	DevModeEnv = "VMSIM_MONITOR_DEV"

	// AssetDirEnv serves the dashboard from the named directory.
	AssetDirEnv = "VMSIM_MONITOR_ASSETS"
)

//go:embed dist/*
var staticAssets embed.FS

// Assets returns the dashboard files. They are embedded in the binary unless
// AssetDirEnv or DevModeEnv asks for a directory on disk.
func Assets() http.FileSystem {
	dir := assetDir()
	if dir != "" {
		fmt.Fprintf(os.Stderr, "Serving monitor assets from %s\n", dir)
		return http.Dir(dir)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}

func assetDir() string {
	if dir, ok := os.LookupEnv(AssetDirEnv); ok && dir != "" {
		return dir
	}

	if !envIsTrue(DevModeEnv) {
		return ""
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the monitor source directory")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

func envIsTrue(name string) bool {
	v := strings.ToLower(os.Getenv(name))
	return v == "true" || v == "1"
}
