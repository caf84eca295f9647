package cronengine

import "errors"

var (
	errAlreadyRunning = errors.New("cronengine: already running")
	errNotRunning     = errors.New("cronengine: not running")
)
