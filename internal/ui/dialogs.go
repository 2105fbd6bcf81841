package ui

import (
	"errors"
	"strings"

	"github.com/ncruces/zenity"
)

// ErrCanceled is returned when the user dismisses a dialog.
var ErrCanceled = zenity.ErrCanceled

// PromptRegionName asks for the name of a new region spanning rect.
func PromptRegionName(appName, rect string) (string, error) {
	name, err := zenity.Entry(
		"Name for the captured region "+rect+":",
		zenity.Title(appName+" - Save Region"),
		zenity.EntryText("region"),
	)
	if err != nil {
		if !errors.Is(err, zenity.ErrCanceled) {
			log.Error().Err(err).Msg("Region name dialog failed")
		}
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrCanceled
	}
	return name, nil
}

// ShowInfo shows a modal information dialog.
func ShowInfo(appName, title, text string) {
	if err := zenity.Info(text, zenity.Title(appName+" - "+title), zenity.InfoIcon); err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Str("title", title).Msg("Info dialog failed")
	}
}

// ShowError shows a modal error dialog.
func ShowError(appName, title, text string) {
	if err := zenity.Error(text, zenity.Title(appName+" - "+title), zenity.ErrorIcon); err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Str("title", title).Msg("Error dialog failed")
	}
}

// Confirm asks a yes/no question. Dismissing the dialog counts as no.
func Confirm(appName, title, text string) bool {
	err := zenity.Question(text,
		zenity.Title(appName+" - "+title),
		zenity.QuestionIcon,
		zenity.OKLabel("Yes"),
		zenity.CancelLabel("No"),
	)
	if err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Str("title", title).Msg("Question dialog failed")
	}
	return err == nil
}
