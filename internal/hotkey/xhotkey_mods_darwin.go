//go:build darwin && !noxhotkey

package hotkey

import "golang.design/x/hotkey"

func xhotkeyVariants(m Modifier) [][]hotkey.Modifier {
	var mods []hotkey.Modifier
	if m.Has(ModCtrl) {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m.Has(ModAlt) {
		mods = append(mods, hotkey.ModOption)
	}
	if m.Has(ModShift) {
		mods = append(mods, hotkey.ModShift)
	}
	if m.Has(ModMeta) {
		mods = append(mods, hotkey.ModCmd)
	}
	return [][]hotkey.Modifier{mods}
}
