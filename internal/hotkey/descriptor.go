package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// Modifier is a bit set of the modifier keys held for a hotkey.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModMeta
)

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModMeta, "win"},
}

// Has reports whether all modifiers in f are set.
func (m Modifier) Has(f Modifier) bool {
	return m&f == f
}

func (m Modifier) String() string {
	var parts []string
	for _, mo := range modifierOrder {
		if m.Has(mo.mod) {
			parts = append(parts, mo.name)
		}
	}
	return strings.Join(parts, "+")
}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"win":     ModMeta,
	"cmd":     ModMeta,
	"super":   ModMeta,
	"meta":    ModMeta,
}

var (
	ErrEmptyHotkey         = errors.New("empty hotkey string")
	ErrNoPrimaryKey        = errors.New("hotkey has no primary key")
	ErrMultiplePrimaryKeys = errors.New("hotkey has more than one primary key")
)

// ParseError describes a hotkey string that could not be parsed.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid hotkey '%s': %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Descriptor is a parsed hotkey: a modifier set plus exactly one primary key.
// Key is canonical (lower case, aliases resolved), so two descriptors parsed
// from strings that differ only in case or modifier order compare equal.
type Descriptor struct {
	Modifiers Modifier
	Key       string
	// Named is set when Key comes from the named-key table (esc, f1, ...).
	// Unknown multi-character keys are kept as opaque identifiers.
	Named bool
}

// Parse converts a "mod+mod+key" string into a Descriptor.
func Parse(s string) (Descriptor, error) {
	if strings.TrimSpace(s) == "" {
		return Descriptor{}, &ParseError{Input: s, Err: ErrEmptyHotkey}
	}

	var d Descriptor
	primary := ""
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if mod, ok := modifierAliases[part]; ok {
			d.Modifiers |= mod
			continue
		}
		if primary != "" {
			return Descriptor{}, &ParseError{Input: s, Err: fmt.Errorf("%w: '%s' and '%s'", ErrMultiplePrimaryKeys, primary, part)}
		}
		primary = part
	}

	if primary == "" {
		return Descriptor{}, &ParseError{Input: s, Err: ErrNoPrimaryKey}
	}

	if canonical, ok := namedKeyAliases[primary]; ok {
		d.Key = canonical
		d.Named = true
	} else {
		d.Key = primary
	}
	return d, nil
}

// MustParse is Parse for hotkeys known at compile time.
func MustParse(s string) Descriptor {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the normalized form, modifiers in ctrl, alt, shift, win order.
func (d Descriptor) String() string {
	if d.Modifiers == 0 {
		return d.Key
	}
	return d.Modifiers.String() + "+" + d.Key
}

// DisplayKey returns the primary key as shown to users ("F1", "S", "Esc").
func (d Descriptor) DisplayKey() string {
	if len(d.Key) == 1 {
		return strings.ToUpper(d.Key)
	}
	if d.Named && d.Key[0] == 'f' && len(d.Key) <= 3 {
		return strings.ToUpper(d.Key)
	}
	return strings.ToUpper(d.Key[:1]) + d.Key[1:]
}

// Display returns the hotkey as shown to users, e.g. "Ctrl+Alt+S".
func (d Descriptor) Display() string {
	var parts []string
	for _, mo := range modifierOrder {
		if d.Modifiers.Has(mo.mod) {
			parts = append(parts, strings.ToUpper(mo.name[:1])+mo.name[1:])
		}
	}
	return strings.Join(append(parts, d.DisplayKey()), "+")
}

// Tokens returns the key names understood by the input-listener library:
// the primary key first, then the held modifiers.
func (d Descriptor) Tokens() []string {
	tokens := []string{d.Key}
	if d.Modifiers.Has(ModCtrl) {
		tokens = append(tokens, "ctrl")
	}
	if d.Modifiers.Has(ModAlt) {
		tokens = append(tokens, "alt")
	}
	if d.Modifiers.Has(ModShift) {
		tokens = append(tokens, "shift")
	}
	if d.Modifiers.Has(ModMeta) {
		tokens = append(tokens, "cmd")
	}
	return tokens
}

// Win32 RegisterHotKey modifier flags.
const (
	win32ModAlt      = 0x0001
	win32ModControl  = 0x0002
	win32ModShift    = 0x0004
	win32ModWin      = 0x0008
	win32ModNoRepeat = 0x4000
)

// VirtualKey returns the Win32 (modifier bitmask, virtual-key code) pair.
// ok is false when the primary key has no virtual-key code.
func (d Descriptor) VirtualKey() (mods uint32, vk uint32, ok bool) {
	vk, ok = virtualKeyCode(d.Key)
	if !ok {
		return 0, 0, false
	}
	if d.Modifiers.Has(ModAlt) {
		mods |= win32ModAlt
	}
	if d.Modifiers.Has(ModCtrl) {
		mods |= win32ModControl
	}
	if d.Modifiers.Has(ModShift) {
		mods |= win32ModShift
	}
	if d.Modifiers.Has(ModMeta) {
		mods |= win32ModWin
	}
	return mods, vk, true
}
