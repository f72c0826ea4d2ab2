//go:build !tinygo && !cgo && !windows && !darwin

package hal

import "errors"

func RunWindow(NewApp, HostConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1), or use -headless")
}
