package ui

import "github.com/TanaroSch/multi-capture/internal/logging"

var log = logging.For("ui")
