package monitor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "COLOR_TEMP_5000K", ColorTemp5000K.String())
	assert.Equal(t, "standby", PowerStandby.String())
	assert.Equal(t, "HDMI1", InputHDMI1.String())
	assert.Equal(t, "0x42", ColorPreset(0x42).String())
	assert.False(t, PowerMode(0).Defined())
}

func TestValueMatches(t *testing.T) {
	assert.True(t, PowerStandby.Value().Matches(Name("standby")))
	assert.True(t, Name("standby").Matches(PowerStandby.Value()))
	assert.True(t, InputHDMI1.Value().Matches(Name("hdmi1")))
	assert.True(t, InputHDMI1.Value().Matches(Int(0x11)))
	assert.True(t, Int(4).Matches(Int(4)))

	assert.False(t, PowerStandby.Value().Matches(Name("on")))
	assert.False(t, PowerStandby.Value().Matches(InputAnalog2.Value()))
	assert.False(t, Name("standby").Matches(Int(2)))
}

func TestValueJSON(t *testing.T) {
	var state struct {
		Power  *Value `json:"power"`
		Input  *Value `json:"input"`
		Preset *Value `json:"preset"`
		Other  *Value `json:"other"`
	}
	payload := `{"power": "standby", "input": 17, "preset": 4.5}`
	require.NoError(t, json.Unmarshal([]byte(payload), &state))

	require.NotNil(t, state.Power)
	assert.Equal(t, Name("standby"), *state.Power)
	require.NotNil(t, state.Input)
	assert.Equal(t, Int(17), *state.Input)
	require.NotNil(t, state.Preset)
	_, err := state.Preset.wire(colorPresets)
	assert.ErrorIs(t, err, ErrUnsupportedValueType)
	assert.Nil(t, state.Other)

	out, err := json.Marshal([]Value{PowerStandby.Value(), InputSource(0x7F).Value(), Int(3), Name("DP1")})
	require.NoError(t, err)
	assert.JSONEq(t, `["standby", 127, 3, "DP1"]`, string(out))

	_, err = json.Marshal(ValueOf(1.5))
	assert.Error(t, err)
}
