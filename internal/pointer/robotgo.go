//go:build cgo

package pointer

import "github.com/go-vgo/robotgo"

func robotgoProvider() (Provider, bool) {
	return Provider{
		Name: "robotgo",
		Position: func() (int, int, error) {
			x, y := robotgo.Location()
			return x, y, nil
		},
	}, true
}
