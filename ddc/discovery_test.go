package ddc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokli/monitor-agent/vcp"
	"github.com/flokli/monitor-agent/vcp/vcptest"
)

func TestListSessionsUnsupportedPlatform(t *testing.T) {
	d := NewDiscovery("plan9")
	d.Register("linux", func() ([]vcp.Transport, error) { return nil, nil })

	_, err := d.ListSessions()
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestListSessions(t *testing.T) {
	calls := 0
	d := NewDiscovery("linux")
	d.Register("linux", func() ([]vcp.Transport, error) {
		calls++
		return []vcp.Transport{vcptest.New("i2c-3", nil), vcptest.New("i2c-4", nil)}, nil
	})

	sessions, err := d.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "i2c-3", sessions[0].Name())
	for _, s := range sessions {
		assert.False(t, s.IsOpen())
	}

	// every call enumerates again
	_, err = d.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestListSessionsEnumerationError(t *testing.T) {
	enumErr := errors.New("no permission on /sys")
	d := NewDiscovery("linux")
	d.Register("linux", func() ([]vcp.Transport, error) { return nil, enumErr })

	_, err := d.ListSessions()
	assert.ErrorIs(t, err, enumErr)
}
