package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sadopc/dirpie/internal/remote"
)

type scanTarget struct {
	Remote         bool
	LocalPath      string
	SSHDestination string
	RemotePath     string
}

// resolveScanTarget interprets the positional arguments. An existing local
// path wins over a user@host lookalike.
func resolveScanTarget(args []string) (scanTarget, error) {
	if len(args) == 0 {
		return scanTarget{LocalPath: "."}, nil
	}

	first := args[0]
	if _, err := os.Stat(first); err == nil || !remote.IsTarget(first) {
		if len(args) > 1 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for a local path")
		}
		return scanTarget{LocalPath: first}, nil
	}

	if err := remote.ValidateTarget(first); err != nil {
		return scanTarget{}, err
	}
	remotePath := "."
	if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
		remotePath = args[1]
	}
	return scanTarget{Remote: true, SSHDestination: first, RemotePath: remotePath}, nil
}

// localDir returns the absolute form of path, which must be a directory.
func localDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
