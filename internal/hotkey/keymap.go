package hotkey

import "fmt"

// namedKeyAliases maps every accepted spelling of a named key to its
// canonical name.
var namedKeyAliases = map[string]string{
	"esc":         "esc",
	"escape":      "esc",
	"enter":       "enter",
	"return":      "enter",
	"space":       "space",
	"tab":         "tab",
	"backspace":   "backspace",
	"delete":      "delete",
	"del":         "delete",
	"insert":      "insert",
	"ins":         "insert",
	"home":        "home",
	"end":         "end",
	"pageup":      "pageup",
	"pgup":        "pageup",
	"pagedown":    "pagedown",
	"pgdn":        "pagedown",
	"left":        "left",
	"up":          "up",
	"right":       "right",
	"down":        "down",
	"printscreen": "printscreen",
	"prtsc":       "printscreen",
}

func init() {
	for i := 1; i <= 24; i++ {
		name := fmt.Sprintf("f%d", i)
		namedKeyAliases[name] = name
	}
}

var namedVirtualKeys = map[string]uint32{
	"backspace":   0x08, // VK_BACK
	"tab":         0x09,
	"enter":       0x0D,
	"esc":         0x1B,
	"space":       0x20,
	"pageup":      0x21, // VK_PRIOR
	"pagedown":    0x22, // VK_NEXT
	"end":         0x23,
	"home":        0x24,
	"left":        0x25,
	"up":          0x26,
	"right":       0x27,
	"down":        0x28,
	"printscreen": 0x2C, // VK_SNAPSHOT
	"insert":      0x2D,
	"delete":      0x2E,
}

// virtualKeyCode maps a canonical key to its Windows virtual-key code.
func virtualKeyCode(key string) (uint32, bool) {
	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint32(c-'a') + 0x41, true
		case c >= '0' && c <= '9':
			return uint32(c-'0') + 0x30, true
		}
		return 0, false
	}
	if vk, ok := namedVirtualKeys[key]; ok {
		return vk, true
	}
	var n int
	if _, err := fmt.Sscanf(key, "f%d", &n); err == nil && n >= 1 && n <= 24 && key == fmt.Sprintf("f%d", n) {
		return 0x70 + uint32(n-1), true // VK_F1..VK_F24
	}
	return 0, false
}
