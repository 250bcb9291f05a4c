package vcp_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokli/monitor-agent/vcp"
	"github.com/flokli/monitor-agent/vcp/vcptest"
)

func code(t *testing.T, name string) vcp.FeatureCode {
	t.Helper()
	c, err := vcp.NewRegistry().LookupName(name)
	require.NoError(t, err)
	return c
}

func TestAccessOutsideSession(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	s := vcp.NewSession(tr)

	// Validity of the code does not matter.
	for _, c := range []vcp.FeatureCode{
		code(t, vcp.ImageLuminance),
		code(t, vcp.ImageFactoryDefault),
		{Name: "bogus", Value: 0xFF},
	} {
		_, _, err := s.ReadFeature(c)
		assert.ErrorIs(t, err, vcp.ErrNotOpen)
		assert.ErrorIs(t, s.WriteFeature(c, 1), vcp.ErrNotOpen)
		_, err = s.CachedMaximum(c)
		assert.ErrorIs(t, err, vcp.ErrNotOpen)
	}
	assert.Empty(t, tr.Reads)
	assert.Empty(t, tr.Writes)
}

func TestReadWrite(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	tr.Maximums[0x10] = 80
	s := vcp.NewSession(tr)
	require.NoError(t, s.Enter())
	defer s.Exit()

	current, maximum, err := s.ReadFeature(code(t, vcp.ImageLuminance))
	require.NoError(t, err)
	assert.Equal(t, 50, current)
	assert.Equal(t, 80, maximum)

	require.NoError(t, s.WriteFeature(code(t, vcp.ImageLuminance), 70))
	assert.Equal(t, []vcptest.Write{{Code: 0x10, Value: 70}}, tr.WriteLog())
}

func TestAccessModeChecks(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x52: 1, 0x04: 0})
	s := vcp.NewSession(tr)
	require.NoError(t, s.Enter())
	defer s.Exit()

	_, _, err := s.ReadFeature(code(t, vcp.ImageFactoryDefault))
	assert.ErrorIs(t, err, vcp.ErrNotReadable)
	_, err = s.CachedMaximum(code(t, vcp.ImageFactoryDefault))
	assert.ErrorIs(t, err, vcp.ErrNotReadable)

	err = s.WriteFeature(code(t, vcp.ActiveControl), 1)
	assert.ErrorIs(t, err, vcp.ErrNotWritable)

	assert.Zero(t, tr.ReadCount(0x04))
	assert.Empty(t, tr.Writes)
}

func TestTransportErrorsAreClassified(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	s := vcp.NewSession(tr)
	require.NoError(t, s.Enter())
	defer s.Exit()

	tr.GetErr = errors.New("nack")
	_, _, err := s.ReadFeature(code(t, vcp.ImageLuminance))
	assert.ErrorIs(t, err, vcp.ErrIO)

	tr.GetErr = fmt.Errorf("%w: bus busy", vcp.ErrPermission)
	_, _, err = s.ReadFeature(code(t, vcp.ImageLuminance))
	assert.ErrorIs(t, err, vcp.ErrPermission)
	assert.NotErrorIs(t, err, vcp.ErrIO)

	tr.SetErr = errors.New("nack")
	err = s.WriteFeature(code(t, vcp.ImageLuminance), 1)
	assert.ErrorIs(t, err, vcp.ErrIO)
}

func TestCachedMaximumReadsOnce(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	tr.Maximums[0x10] = 80
	s := vcp.NewSession(tr)
	require.NoError(t, s.Enter())
	defer s.Exit()

	luminance := code(t, vcp.ImageLuminance)
	first, err := s.CachedMaximum(luminance)
	require.NoError(t, err)
	second, err := s.CachedMaximum(luminance)
	require.NoError(t, err)

	assert.Equal(t, 80, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, tr.ReadCount(0x10))
}

func TestCachedMaximumFailureIsNotCached(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	s := vcp.NewSession(tr)
	require.NoError(t, s.Enter())
	defer s.Exit()

	tr.GetErr = errors.New("nack")
	_, err := s.CachedMaximum(code(t, vcp.ImageLuminance))
	require.ErrorIs(t, err, vcp.ErrIO)

	tr.GetErr = nil
	maximum, err := s.CachedMaximum(code(t, vcp.ImageLuminance))
	require.NoError(t, err)
	assert.Equal(t, 100, maximum)
	assert.Equal(t, 2, tr.ReadCount(0x10))
}

func TestExitClearsCache(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	s := vcp.NewSession(tr)
	luminance := code(t, vcp.ImageLuminance)

	require.NoError(t, s.Enter())
	_, err := s.CachedMaximum(luminance)
	require.NoError(t, err)
	require.NoError(t, s.Exit())
	assert.Equal(t, 1, tr.ReadCount(0x10))

	require.NoError(t, s.Enter())
	_, err = s.CachedMaximum(luminance)
	require.NoError(t, err)
	require.NoError(t, s.Exit())
	assert.Equal(t, 2, tr.ReadCount(0x10))
}

func TestEnterTwiceFails(t *testing.T) {
	tr := vcptest.New("fake", nil)
	s := vcp.NewSession(tr)
	require.NoError(t, s.Enter())
	assert.ErrorIs(t, s.Enter(), vcp.ErrAlreadyOpen)
	assert.Equal(t, 1, tr.Opens)
	require.NoError(t, s.Exit())

	// exiting again is a no-op
	require.NoError(t, s.Exit())
	assert.Equal(t, 1, tr.Closes)
}

func TestEnterFailureLeavesSessionClosed(t *testing.T) {
	tr := vcptest.New("fake", nil)
	tr.OpenErr = fmt.Errorf("%w: /dev/i2c-4", vcp.ErrPermission)
	s := vcp.NewSession(tr)

	err := s.Enter()
	assert.ErrorIs(t, err, vcp.ErrPermission)
	assert.False(t, s.IsOpen())
}

func TestDoExitsOnEveryPath(t *testing.T) {
	tr := vcptest.New("fake", map[uint8]int{0x10: 50})
	s := vcp.NewSession(tr)

	err := s.Do(func() error {
		assert.True(t, s.IsOpen())
		_, _, err := s.ReadFeature(code(t, vcp.ImageLuminance))
		return err
	})
	require.NoError(t, err)
	assert.False(t, s.IsOpen())
	assert.Equal(t, 1, tr.Closes)

	bodyErr := errors.New("body failed")
	err = s.Do(func() error { return bodyErr })
	assert.ErrorIs(t, err, bodyErr)
	assert.False(t, s.IsOpen())
	assert.Equal(t, 2, tr.Closes)

	assert.Panics(t, func() {
		_ = s.Do(func() error { panic("boom") })
	})
	assert.False(t, s.IsOpen())
	assert.Equal(t, 3, tr.Closes)
}

func TestDoExitErrorDoesNotMaskBodyError(t *testing.T) {
	tr := vcptest.New("fake", nil)
	tr.CloseErr = errors.New("handle already destroyed")
	s := vcp.NewSession(tr)

	bodyErr := errors.New("body failed")
	err := s.Do(func() error { return bodyErr })
	assert.ErrorIs(t, err, bodyErr)
	assert.NotErrorIs(t, err, vcp.ErrIO)

	err = vcp.With(s, func(*vcp.Session) error { return nil })
	assert.ErrorIs(t, err, vcp.ErrIO)
	assert.False(t, s.IsOpen())
}
