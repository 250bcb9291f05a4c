package vcp

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardCodesAccess(t *testing.T) {
	tests := []struct {
		name     string
		value    uint8
		readable bool
		writable bool
		cont     Continuity
	}{
		{ImageFactoryDefault, 0x04, false, true, NonContinuous},
		{ImageLuminance, 0x10, true, true, Continuous},
		{ImageContrast, 0x12, true, true, Continuous},
		{ImageColorPreset, 0x14, true, true, Continuous},
		{ActiveControl, 0x52, true, false, NonContinuous},
		{InputSelect, 0x60, true, true, NonContinuous},
		{ImageOrientation, 0xAA, true, false, NonContinuous},
		{DisplayPowerMode, 0xD6, true, true, NonContinuous},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := r.LookupName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.value, code.Value)
			assert.Equal(t, tt.readable, code.Readable())
			assert.Equal(t, tt.writable, code.Writable())
			assert.Equal(t, tt.cont, code.Continuity)

			byValue, err := r.LookupValue(int(tt.value))
			require.NoError(t, err)
			assert.Equal(t, code, byValue)
		})
	}
	assert.Len(t, r.Codes(), len(tests))
}

func TestLookupErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.LookupName("image_sharpness")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.LookupValue(0x87)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.LookupValue(0x110)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Lookup(Key{})
	assert.ErrorIs(t, err, ErrInvalidKeyType)

	_, err = r.Lookup(KeyOf(1.5))
	assert.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestKeyOf(t *testing.T) {
	r := NewRegistry()

	for _, key := range []any{"image_luminance", 0x10, int64(0x10), uint8(0x10), json.Number("16")} {
		code, err := r.Lookup(KeyOf(key))
		require.NoError(t, err, "key %v", key)
		assert.Equal(t, ImageLuminance, code.Name)
	}

	_, err := r.Lookup(KeyOf(json.Number("16.5")))
	assert.ErrorIs(t, err, ErrInvalidKeyType)
	_, err = r.Lookup(KeyOf(nil))
	assert.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestKeyOfIntegerKinds(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		key  any
	}{
		{"int", int(0x10)},
		{"int8", int8(0x10)},
		{"int16", int16(0x10)},
		{"int32", int32(0x10)},
		{"int64", int64(0x10)},
		{"uint", uint(0x10)},
		{"uint8", uint8(0x10)},
		{"uint16", uint16(0x10)},
		{"uint32", uint32(0x10)},
		{"uint64", uint64(0x10)},
		{"uintptr", uintptr(0x10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := r.Lookup(KeyOf(tt.key))
			require.NoError(t, err)
			assert.Equal(t, ImageLuminance, code.Name)
		})
	}

	// integers that are no feature code are not found, not invalid
	for _, key := range []any{int8(-1), uint64(math.MaxUint64), int64(math.MinInt64)} {
		_, err := r.Lookup(KeyOf(key))
		assert.ErrorIs(t, err, ErrNotFound, "key %v", key)
		assert.NotErrorIs(t, err, ErrInvalidKeyType, "key %v", key)
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	sharpness := FeatureCode{
		Name:        "image_sharpness",
		Description: "image sharpness",
		Value:       0x87,
		Access:      ReadWrite,
		Continuity:  Continuous,
	}
	require.NoError(t, r.Register(sharpness))

	code, err := r.LookupValue(0x87)
	require.NoError(t, err)
	assert.Equal(t, sharpness, code)
}

func TestRegisterCollisionLeavesRegistryUnchanged(t *testing.T) {
	r := NewRegistry()
	before := r.Codes()

	err := r.Register(FeatureCode{Name: ImageLuminance, Value: 0x87})
	assert.ErrorIs(t, err, ErrDuplicateName)

	err = r.Register(FeatureCode{Name: "brightness", Value: 0x10})
	assert.ErrorIs(t, err, ErrDuplicateValue)

	assert.Equal(t, before, r.Codes())
	_, err = r.LookupName("brightness")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterAfterFreeze(t *testing.T) {
	r := NewRegistry()
	r.Freeze()

	err := r.Register(FeatureCode{Name: "image_sharpness", Value: 0x87})
	assert.ErrorIs(t, err, ErrRegistryFrozen)
	_, err = r.LookupValue(0x87)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	require.NoError(t, a.Register(FeatureCode{Name: "image_sharpness", Value: 0x87}))

	_, err := b.LookupValue(0x87)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseAccessModeAndContinuity(t *testing.T) {
	for _, m := range []AccessMode{ReadOnly, WriteOnly, ReadWrite} {
		parsed, err := ParseAccessMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseAccessMode("rx")
	assert.Error(t, err)

	for _, c := range []Continuity{Continuous, NonContinuous} {
		parsed, err := ParseContinuity(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err = ParseContinuity("t")
	assert.Error(t, err)
}
