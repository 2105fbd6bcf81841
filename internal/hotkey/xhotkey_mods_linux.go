//go:build linux && !noxhotkey

package hotkey

import "golang.design/x/hotkey"

// X11 lock masks that commonly interfere with XGrabKey.
// CapsLock is LockMask (1<<1) and NumLock is often Mod2.
const (
	linuxCapsLockMask hotkey.Modifier = 1 << 1
)

// xhotkeyVariants maps the modifiers to X11 masks (Alt is Mod1, Super is
// Mod4) and adds the NumLock/CapsLock combinations, so the hotkey still
// fires while a lock key is on. The base combination comes first.
func xhotkeyVariants(m Modifier) [][]hotkey.Modifier {
	var mods []hotkey.Modifier
	if m.Has(ModCtrl) {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m.Has(ModAlt) {
		mods = append(mods, hotkey.Mod1)
	}
	if m.Has(ModShift) {
		mods = append(mods, hotkey.ModShift)
	}
	if m.Has(ModMeta) {
		mods = append(mods, hotkey.Mod4)
	}

	base := append([]hotkey.Modifier(nil), mods...)
	withNum := append(append([]hotkey.Modifier(nil), mods...), hotkey.Mod2)
	withCaps := append(append([]hotkey.Modifier(nil), mods...), linuxCapsLockMask)
	withBoth := append(append([]hotkey.Modifier(nil), mods...), hotkey.Mod2, linuxCapsLockMask)

	return [][]hotkey.Modifier{base, withNum, withCaps, withBoth}
}
