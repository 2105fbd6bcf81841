package hotkey

import "testing"

func TestDetectDisplayServer(t *testing.T) {
	for _, tt := range []struct {
		name string
		goos string
		env  map[string]string
		want DisplayServer
	}{
		{"windows", "windows", nil, DisplayServerWindows},
		{"darwin", "darwin", map[string]string{"DISPLAY": ":0"}, DisplayServerMacOS},
		{"x11", "linux", map[string]string{"DISPLAY": ":0"}, DisplayServerX11},
		{"xwayland", "linux", map[string]string{"DISPLAY": ":0", "WAYLAND_DISPLAY": "wayland-0"}, DisplayServerWayland},
		{"headless", "linux", nil, DisplayServerUnknown},
	} {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			if got := detectDisplayServer(tt.goos, getenv); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectKind(t *testing.T) {
	all := Capabilities{HookLibrary: true, NativeHotkeys: true, InputListener: true}
	for _, tt := range []struct {
		name      string
		caps      Capabilities
		preferred Kind
		hasPref   bool
		want      Kind
	}{
		{"hook first", all, 0, false, KindHook},
		{"native when no hook", Capabilities{NativeHotkeys: true, InputListener: true}, 0, false, KindNative},
		{"listener last", Capabilities{InputListener: true}, 0, false, KindListener},
		{"nothing usable", Capabilities{Portal: true}, 0, false, KindDisabled},
		{"preference honoured", all, KindListener, true, KindListener},
		{"preference for native", all, KindNative, true, KindNative},
		{"preference unavailable", Capabilities{HookLibrary: true}, KindNative, true, KindHook},
		{"disabled on request", all, KindDisabled, true, KindDisabled},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectKind(tt.caps, tt.preferred, tt.hasPref); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, tt := range []struct {
		input  string
		want   Kind
		ok     bool
		hasErr bool
	}{
		{"", KindDisabled, false, false},
		{"auto", KindDisabled, false, false},
		{"Hook", KindHook, true, false},
		{"win32", KindNative, true, false},
		{"listener", KindListener, true, false},
		{"off", KindDisabled, true, false},
		{"portal", KindDisabled, false, true},
	} {
		t.Run(tt.input, func(t *testing.T) {
			got, ok, err := ParseKind(tt.input)
			if (err != nil) != tt.hasErr {
				t.Fatalf("err = %v, want error %v", err, tt.hasErr)
			}
			if got != tt.want || ok != tt.ok {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
