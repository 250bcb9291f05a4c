// Package vcptest provides an in-memory vcp.Transport for tests.
package vcptest

import (
	"fmt"
	"sync"

	"github.com/flokli/monitor-agent/vcp"
)

// Write is one recorded SetFeature call.
type Write struct {
	Code  uint8
	Value int
}

// Transport is a fake display. Features hold current values, Maximums the
// reported maximum per code (default 100). Every call is counted.
type Transport struct {
	mu sync.Mutex

	Name     string
	Features map[uint8]int
	Maximums map[uint8]int

	// Errors to return from the corresponding calls, if set.
	OpenErr  error
	CloseErr error
	GetErr   error
	SetErr   error

	Opens  int
	Closes int
	Reads  map[uint8]int
	Writes []Write
}

// New returns a fake display with the given current feature values.
func New(name string, features map[uint8]int) *Transport {
	if features == nil {
		features = make(map[uint8]int)
	}
	return &Transport{
		Name:     name,
		Features: features,
		Maximums: make(map[uint8]int),
		Reads:    make(map[uint8]int),
	}
}

func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Opens++
	return t.OpenErr
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closes++
	return t.CloseErr
}

func (t *Transport) GetFeature(code uint8) (int, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Reads[code]++
	if t.GetErr != nil {
		return 0, 0, t.GetErr
	}
	current, ok := t.Features[code]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unsupported code 0x%02x", vcp.ErrIO, code)
	}
	maximum, ok := t.Maximums[code]
	if !ok {
		maximum = 100
	}
	return current, maximum, nil
}

func (t *Transport) SetFeature(code uint8, value int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Writes = append(t.Writes, Write{Code: code, Value: value})
	if t.SetErr != nil {
		return t.SetErr
	}
	t.Features[code] = value
	return nil
}

func (t *Transport) String() string {
	return t.Name
}

// ReadCount returns how often code has been read.
func (t *Transport) ReadCount(code uint8) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Reads[code]
}

// WriteLog returns a copy of all recorded writes.
func (t *Transport) WriteLog() []Write {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Write(nil), t.Writes...)
}
