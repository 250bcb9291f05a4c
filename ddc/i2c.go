package ddc

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"

	"github.com/flokli/monitor-agent/vcp"
)

const (
	// replyDelay is the time a display needs between a request and its reply.
	replyDelay = 40 * time.Millisecond
	// setDelay is the time to leave a display alone after a set request.
	setDelay = 50 * time.Millisecond
	// getAttempts bounds retries of get requests on busy or garbled replies.
	getAttempts = 3
)

// BusOpener opens an I²C bus. It matches periph's i2creg.Opener.
type BusOpener func() (i2c.BusCloser, error)

// I2CTransport speaks DDC/CI on one I²C bus.
type I2CTransport struct {
	name  string
	open  BusOpener
	bus   i2c.BusCloser
	sleep func(time.Duration)
}

// NewI2CTransport returns a transport for the bus opened by open.
func NewI2CTransport(name string, open BusOpener) *I2CTransport {
	return &I2CTransport{
		name:  name,
		open:  open,
		sleep: time.Sleep,
	}
}

func (t *I2CTransport) String() string {
	return t.name
}

func (t *I2CTransport) Open() error {
	if t.bus != nil {
		return fmt.Errorf("%w: bus %s already open", vcp.ErrIO, t.name)
	}
	bus, err := t.open()
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %w", vcp.ErrPermission, err)
		}
		return fmt.Errorf("%w: %w", vcp.ErrIO, err)
	}
	t.bus = bus
	return nil
}

func (t *I2CTransport) Close() error {
	if t.bus == nil {
		return nil
	}
	err := t.bus.Close()
	t.bus = nil
	if err != nil {
		return fmt.Errorf("%w: %w", vcp.ErrIO, err)
	}
	return nil
}

func (t *I2CTransport) GetFeature(code uint8) (int, int, error) {
	if t.bus == nil {
		return 0, 0, fmt.Errorf("%w: bus %s not open", vcp.ErrIO, t.name)
	}
	l := log.WithFields(log.Fields{
		"bus":  t.name,
		"code": code,
	})

	var err error
	for attempt := 1; attempt <= getAttempts; attempt++ {
		var current, maximum int
		current, maximum, err = t.get(code)
		if err == nil {
			return current, maximum, nil
		}
		l.WithError(err).WithField("attempt", attempt).Debug("get request failed")
		if !errors.Is(err, errBusy) && !errors.Is(err, errGarbled) {
			break
		}
	}
	if errors.Is(err, errBusy) {
		return 0, 0, fmt.Errorf("%w: %w after %d attempts", vcp.ErrIO, err, getAttempts)
	}
	return 0, 0, err
}

func (t *I2CTransport) get(code uint8) (int, int, error) {
	if err := t.bus.Tx(displayAddr, encodeGetRequest(code), nil); err != nil {
		return 0, 0, fmt.Errorf("%w: write: %w", vcp.ErrIO, err)
	}
	t.sleep(replyDelay)

	reply := make([]byte, getReplyLen)
	if err := t.bus.Tx(displayAddr, nil, reply); err != nil {
		return 0, 0, fmt.Errorf("%w: read: %w", vcp.ErrIO, err)
	}
	return decodeGetReply(reply, code)
}

func (t *I2CTransport) SetFeature(code uint8, value int) error {
	if t.bus == nil {
		return fmt.Errorf("%w: bus %s not open", vcp.ErrIO, t.name)
	}
	if value < 0 || value > 0xFFFF {
		return fmt.Errorf("%w: value %d does not fit 16 bits", vcp.ErrIO, value)
	}
	if err := t.bus.Tx(displayAddr, encodeSetRequest(code, uint16(value)), nil); err != nil {
		return fmt.Errorf("%w: write: %w", vcp.ErrIO, err)
	}
	t.sleep(setDelay)
	return nil
}

// hasEDID reports whether a display answers on the EDID address of a bus,
// which tells display buses apart from unrelated I²C buses. Only failing to
// open the bus is an error, a silent bus just has no display.
func hasEDID(open BusOpener) (bool, error) {
	bus, err := open()
	if err != nil {
		return false, err
	}
	defer bus.Close()

	header := make([]byte, 1)
	if err := bus.Tx(edidAddr, []byte{0x00}, header); err != nil {
		return false, nil
	}
	// The first byte of every EDID header is zero.
	return header[0] == 0x00, nil
}

// busRef names an I²C bus and how to open it, like periph's i2creg.Ref.
type busRef struct {
	name string
	open BusOpener
}

// findDisplays returns a transport for every bus with a display attached.
// Buses that cannot be opened are logged. If that leaves no display and at
// least one bus was refused for lack of permissions, ErrPermission is
// returned, so missing access to /dev/i2c-* is not mistaken for no displays.
func findDisplays(refs []busRef) ([]vcp.Transport, error) {
	var transports []vcp.Transport
	var permErr error
	for _, ref := range refs {
		l := log.WithField("bus", ref.name)
		found, err := hasEDID(ref.open)
		if err != nil {
			l.WithError(err).Warn("unable to open bus")
			if errors.Is(err, fs.ErrPermission) && permErr == nil {
				permErr = fmt.Errorf("%w: bus %s: %w", vcp.ErrPermission, ref.name, err)
			}
			continue
		}
		if !found {
			l.Debug("no display on bus")
			continue
		}
		l.Debug("found display")
		transports = append(transports, NewI2CTransport(ref.name, ref.open))
	}
	if len(transports) == 0 && permErr != nil {
		return nil, permErr
	}
	return transports, nil
}
