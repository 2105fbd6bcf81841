//go:build windows

package ui

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const swShowNormal = 1

// OpenFileInDefaultApp opens a file or directory with ShellExecute "open".
func OpenFileInDefaultApp(filePath string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}
	file, err := windows.UTF16PtrFromString(filePath)
	if err != nil {
		return fmt.Errorf("failed to convert file path to UTF16Ptr: %w", err)
	}
	if err := windows.ShellExecute(0, verb, file, nil, nil, swShowNormal); err != nil {
		return fmt.Errorf("ShellExecute failed for '%s': %w", filePath, err)
	}
	log.Debug().Str("path", filePath).Msg("Opened in default app")
	return nil
}
