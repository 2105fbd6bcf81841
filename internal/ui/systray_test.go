package ui

import (
	"strings"
	"testing"
)

func TestStatusTitles(t *testing.T) {
	st := Status{Backend: "Win32 RegisterHotKey", Listening: true, Regions: []RegionEntry{{ID: "a", Name: "chart"}, {ID: "b", Name: "ticker"}}}
	if got := st.statusTitle(); got != "Hotkeys: listening (Win32 RegisterHotKey)" {
		t.Errorf("statusTitle = %q", got)
	}
	if got := st.coordsTitle(); got != "Captured: none" {
		t.Errorf("coordsTitle = %q", got)
	}
	if got := st.captureTitle(); got != "Capture All Regions Now (2)" {
		t.Errorf("captureTitle = %q", got)
	}
	if got := st.regionsTitle(); got != "Regions (2)" {
		t.Errorf("regionsTitle = %q", got)
	}

	st.Paused = true
	st.Coords = "(1, 2) → ?"
	if got := st.statusTitle(); !strings.Contains(got, "paused") {
		t.Errorf("statusTitle = %q", got)
	}
	if got := st.pauseTitle(); got != "Resume Hotkeys" {
		t.Errorf("pauseTitle = %q", got)
	}
	if got := st.coordsTitle(); got != "Captured: (1, 2) → ?" {
		t.Errorf("coordsTitle = %q", got)
	}

	st = Status{Backend: "disabled"}
	if got := st.statusTitle(); got != "Hotkeys: not listening (disabled)" {
		t.Errorf("statusTitle = %q", got)
	}
}

func TestRegionEntryTitle(t *testing.T) {
	tests := []struct {
		in   RegionEntry
		want string
	}{
		{RegionEntry{ID: "1", Name: "chart", Rect: "(10,20)-(300,400)"}, "chart  (10,20)-(300,400)"},
		{RegionEntry{ID: "2", Name: "ticker"}, "ticker"},
	}
	for _, tt := range tests {
		if got := tt.in.title(); got != tt.want {
			t.Errorf("title() = %q, want %q", got, tt.want)
		}
	}
}
