package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// uiMode selects whether a build shows the interactive progress view.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	mode := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// wantsProgressView reports whether the progress view should draw on out.
// It never draws on anything but a real file, whatever the mode.
func wantsProgressView(mode uiMode, out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || mode == uiModeOff {
		return false
	}
	if mode == uiModeOn {
		return true
	}
	return isTerminal(f) && os.Getenv("TERM") != "dumb"
}
