package vcp

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Transport performs the raw exchange with one display's control channel.
// One implementation exists per platform; see package ddc.
//
// Implementations should report failures wrapping ErrIO or ErrPermission.
// Other errors are treated as ErrIO.
type Transport interface {
	// Open acquires the control channel.
	Open() error
	// Close releases the control channel.
	Close() error
	// GetFeature returns the current and maximum value of a feature.
	GetFeature(code uint8) (current, maximum int, err error)
	// SetFeature writes a feature value.
	SetFeature(code uint8, value int) error
	// String identifies the display, stable across enumerations.
	String() string
}

// Session is one exclusive conversation with a display.
//
// All feature access must happen between Enter and Exit. A Session is not
// safe for concurrent use; callers serialize access to a display.
type Session struct {
	transport Transport
	open      bool
	// maximum values of features, keyed by opcode, valid while open.
	maximums map[uint8]int
}

// NewSession wraps a transport in a closed session.
func NewSession(t Transport) *Session {
	return &Session{transport: t}
}

// Name returns the display identifier of the underlying transport.
func (s *Session) Name() string {
	return s.transport.String()
}

// IsOpen reports whether the session has been entered.
func (s *Session) IsOpen() bool {
	return s.open
}

func (s *Session) logger() *log.Entry {
	return log.WithField("display", s.transport.String())
}

// Enter opens the control channel.
func (s *Session) Enter() error {
	if s.open {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, s.Name())
	}
	s.logger().Debug("opening session")
	if err := s.transport.Open(); err != nil {
		return fmt.Errorf("unable to open %s: %w", s.Name(), transportError(err))
	}
	s.open = true
	s.maximums = make(map[uint8]int)
	return nil
}

// Exit closes the control channel. The session is marked closed and the
// maximum value cache dropped even if closing the transport fails.
// Exiting a closed session does nothing.
func (s *Session) Exit() error {
	if !s.open {
		return nil
	}
	s.open = false
	s.maximums = nil
	s.logger().Debug("closing session")
	if err := s.transport.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", s.Name(), transportError(err))
	}
	return nil
}

// Do runs fn inside an entered session and exits afterwards on every path,
// including panics. An error from fn takes precedence over an exit error.
func (s *Session) Do(fn func() error) (err error) {
	if err := s.Enter(); err != nil {
		return err
	}
	defer func() {
		exitErr := s.Exit()
		if exitErr == nil {
			return
		}
		if err == nil {
			err = exitErr
			return
		}
		s.logger().WithError(exitErr).Warn("unable to close session after failure")
	}()
	return fn()
}

// With is Do as a function, for callers holding a session they did not create.
func With(s *Session, fn func(*Session) error) error {
	return s.Do(func() error { return fn(s) })
}

// ReadFeature returns the current and maximum value the display reports for
// code. The maximum is only meaningful for continuous codes.
func (s *Session) ReadFeature(code FeatureCode) (current, maximum int, err error) {
	if !s.open {
		return 0, 0, fmt.Errorf("%w: reading %s", ErrNotOpen, code)
	}
	if !code.Readable() {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotReadable, code)
	}

	l := s.logger().WithField("code", code.Name)
	current, maximum, err = s.transport.GetFeature(code.Value)
	if err != nil {
		l.WithError(err).Debug("get feature failed")
		return 0, 0, fmt.Errorf("unable to read %s: %w", code, transportError(err))
	}
	l.WithFields(log.Fields{
		"current": current,
		"maximum": maximum,
	}).Debug("got feature")
	return current, maximum, nil
}

// WriteFeature writes value to code. Success means the transport accepted
// the command; the value is not read back.
func (s *Session) WriteFeature(code FeatureCode, value int) error {
	if !s.open {
		return fmt.Errorf("%w: writing %s", ErrNotOpen, code)
	}
	if !code.Writable() {
		return fmt.Errorf("%w: %s", ErrNotWritable, code)
	}

	l := s.logger().WithFields(log.Fields{
		"code":  code.Name,
		"value": value,
	})
	if err := s.transport.SetFeature(code.Value, value); err != nil {
		l.WithError(err).Debug("set feature failed")
		return fmt.Errorf("unable to write %s: %w", code, transportError(err))
	}
	l.Debug("set feature")
	return nil
}

// CachedMaximum returns the maximum value of code, reading it from the
// display only the first time it is asked for within this session.
func (s *Session) CachedMaximum(code FeatureCode) (int, error) {
	if !s.open {
		return 0, fmt.Errorf("%w: reading maximum of %s", ErrNotOpen, code)
	}
	if !code.Readable() {
		return 0, fmt.Errorf("%w: %s", ErrNotReadable, code)
	}
	if maximum, ok := s.maximums[code.Value]; ok {
		return maximum, nil
	}
	_, maximum, err := s.ReadFeature(code)
	if err != nil {
		return 0, err
	}
	s.maximums[code.Value] = maximum
	return maximum, nil
}

// transportError makes sure err is classified as ErrIO or ErrPermission.
func transportError(err error) error {
	if errors.Is(err, ErrIO) || errors.Is(err, ErrPermission) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
