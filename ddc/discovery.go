// Package ddc finds the displays of the current platform and talks to them.
//
// On Linux, displays are reached over DDC/CI on the I²C buses exposed as
// /dev/i2c-*. On Windows, the dxva2 monitor configuration API is used.
package ddc

import (
	"errors"
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/flokli/monitor-agent/vcp"
)

// ErrUnsupportedPlatform is returned when no transport exists for the OS.
var ErrUnsupportedPlatform = errors.New("ddc: unsupported platform")

// Enumerator lists the displays reachable through one platform transport.
type Enumerator func() ([]vcp.Transport, error)

// Discovery maps operating systems to their transport enumerators.
type Discovery struct {
	GOOS        string
	enumerators map[string]Enumerator
}

// NewDiscovery returns an empty Discovery for the given GOOS.
func NewDiscovery(goos string) *Discovery {
	return &Discovery{
		GOOS:        goos,
		enumerators: make(map[string]Enumerator),
	}
}

// Register sets the enumerator used on goos.
func (d *Discovery) Register(goos string, e Enumerator) {
	d.enumerators[goos] = e
}

// ListSessions enumerates displays afresh and returns one closed session
// per display.
func (d *Discovery) ListSessions() ([]*vcp.Session, error) {
	enumerate, ok := d.enumerators[d.GOOS]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, d.GOOS)
	}

	transports, err := enumerate()
	if err != nil {
		return nil, fmt.Errorf("unable to enumerate displays: %w", err)
	}

	sessions := make([]*vcp.Session, 0, len(transports))
	for _, t := range transports {
		sessions = append(sessions, vcp.NewSession(t))
	}
	log.WithFields(log.Fields{
		"goos":     d.GOOS,
		"displays": len(sessions),
	}).Debug("enumerated displays")
	return sessions, nil
}

var defaultDiscovery = NewDiscovery(runtime.GOOS)

// Register sets the enumerator for goos in the default Discovery. Platform
// transports call it from init.
func Register(goos string, e Enumerator) {
	defaultDiscovery.Register(goos, e)
}

// ListSessions lists the displays of the running platform.
func ListSessions() ([]*vcp.Session, error) {
	return defaultDiscovery.ListSessions()
}
