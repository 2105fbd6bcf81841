//go:build windows

package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-toast/toast"
)

func (n *NotificationManager) platformNotify(title, message string) error {
	iconPath := ""
	if _, err := os.Stat("icon.png"); err == nil {
		if wd, err := os.Getwd(); err == nil {
			iconPath = filepath.Join(wd, "icon.png")
		} else {
			iconPath = "icon.png"
		}
	} else if len(n.embeddedIcon) > 0 {
		p, err := writeTempIcon(n.embeddedIcon)
		if err != nil {
			log.Warn().Err(err).Msg("Error writing temporary icon")
		} else {
			iconPath = p
			time.AfterFunc(10*time.Second, func() {
				if errRem := os.Remove(p); errRem != nil && !os.IsNotExist(errRem) {
					log.Debug().Err(errRem).Str("path", p).Msg("Error removing temporary icon file")
				}
			})
		}
	}

	notification := toast.Notification{
		AppID:   n.appName,
		Title:   title,
		Message: message,
		Icon:    iconPath,
	}
	if err := notification.Push(); err != nil {
		if strings.Contains(err.Error(), "notification platform is unavailable") {
			log.Warn().Msg("Toast platform unavailable (notifications might be disabled in Windows Settings)")
		}
		return err
	}
	return nil
}

func writeTempIcon(iconData []byte) (string, error) {
	if len(iconData) == 0 {
		return "", errors.New("cannot write empty icon data")
	}
	tmpFile, err := os.CreateTemp("", "multicapture-icon-*.ico")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := tmpFile.Write(iconData); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", err
	}
	absPath, err := filepath.Abs(tmpFile.Name())
	if err != nil {
		return tmpFile.Name(), nil
	}
	return absPath, nil
}
