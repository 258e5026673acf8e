package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRoundingPolicy_Apply(t *testing.T) {
	tests := []struct {
		name     string
		policy   RoundingPolicy
		value    float64
		expected string
	}{
		{"default is banker's to four places", RoundingPolicy{}, 0.09377916, "0.0938"},
		{"banker's tie goes to even", RoundingPolicy{Places: PayoutPlaces(2), Mode: RoundHalfEven}, 0.125, "0.12"},
		{"banker's tie goes to even upward", RoundingPolicy{Places: PayoutPlaces(2), Mode: RoundHalfEven}, 0.135, "0.14"},
		{"half up tie goes up", RoundingPolicy{Places: PayoutPlaces(2), Mode: RoundHalfUp}, 0.125, "0.13"},
		{"half up below tie", RoundingPolicy{Places: PayoutPlaces(2), Mode: RoundHalfUp}, 0.1249, "0.12"},
		{"zero", RoundingPolicy{Places: PayoutPlaces(2)}, 0, "0"},
		{"whole units half up", RoundingPolicy{Places: PayoutPlaces(0), Mode: RoundHalfUp}, 2.5, "3"},
		{"whole units banker's", RoundingPolicy{Places: PayoutPlaces(0), Mode: RoundHalfEven}, 2.5, "2"},
		{"whole units below tie", RoundingPolicy{Places: PayoutPlaces(0)}, 0.49, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.Apply(tt.value).String())
		})
	}
}

func TestRoundingPolicy_Validate(t *testing.T) {
	assert.NoError(t, RoundingPolicy{}.Validate())
	assert.NoError(t, RoundingPolicy{Places: PayoutPlaces(2), Mode: RoundHalfUp}.Validate())
	assert.NoError(t, RoundingPolicy{Places: PayoutPlaces(0)}.Validate())
	assert.Error(t, RoundingPolicy{Places: PayoutPlaces(-1)}.Validate())
	assert.Error(t, RoundingPolicy{Places: PayoutPlaces(40)}.Validate())
	assert.Error(t, RoundingPolicy{Mode: "ceil"}.Validate())
}

func TestRoundingPolicy_Normalize(t *testing.T) {
	p := RoundingPolicy{}.Normalize()
	require.NotNil(t, p.Places)
	assert.Equal(t, DefaultPayoutPlaces, *p.Places)
	assert.Equal(t, RoundHalfEven, p.Mode)

	whole := RoundingPolicy{Places: PayoutPlaces(0)}.Normalize()
	assert.Equal(t, int32(0), *whole.Places, "zero places is kept")
}

func TestRoundingPolicy_YAMLZeroPlaces(t *testing.T) {
	var p RoundingPolicy
	require.NoError(t, yaml.Unmarshal([]byte("places: 0\nmode: half_up\n"), &p))
	require.NotNil(t, p.Places)
	assert.Equal(t, "3", p.Apply(2.5).String())

	var unset RoundingPolicy
	require.NoError(t, yaml.Unmarshal([]byte("mode: half_up\n"), &unset))
	assert.Equal(t, "2.5", unset.Apply(2.5).String())
}
