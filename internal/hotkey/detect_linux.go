//go:build linux

package hotkey

import (
	"os"

	"github.com/godbus/dbus/v5"
)

const portalService = "org.freedesktop.portal.Desktop"

// hasPortalSupport checks whether the XDG desktop portal service is running
// on the session bus.
func hasPortalSupport() bool {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		log.Debug().Msg("D-Bus session bus not available (DBUS_SESSION_BUS_ADDRESS not set)")
		return false
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to connect to D-Bus session bus")
		return false
	}
	defer conn.Close()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		log.Debug().Err(err).Msg("D-Bus ListNames failed")
		return false
	}
	for _, name := range names {
		if name == portalService {
			return true
		}
	}
	return false
}
