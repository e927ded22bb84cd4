package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		"alpha": {KeyCompanyData},
		"beta":  {KeyIndustryData},
		"gamma": {KeyCompanyData, KeyReferences},
	}
}

func TestSchemaAllows(t *testing.T) {
	s := testSchema()

	assert.True(t, s.Allows("alpha", KeyCompanyData))
	assert.False(t, s.Allows("alpha", KeyIndustryData))
	assert.False(t, s.Allows("unknown", KeyCompanyData))

	// Messages are shared and writable by everyone.
	assert.True(t, s.Allows("alpha", KeyMessages))
	assert.True(t, s.Allows("unknown", KeyMessages))
}

func TestSchemaValidate(t *testing.T) {
	s := testSchema()

	err := s.Validate("alpha", Update{
		KeyCompanyData: map[string]Document{},
		KeyMessages:    []string{"ok"},
	})
	assert.NoError(t, err)

	err = s.Validate("alpha", Update{
		KeyIndustryData: map[string]Document{},
		KeyReport:       "nope",
	})
	require.Error(t, err)
	// Violations are listed sorted for stable messages.
	assert.Contains(t, err.Error(), "industry_data, report")
}

func TestSchemaCheckDisjoint(t *testing.T) {
	s := testSchema()

	assert.NoError(t, s.CheckDisjoint([]string{"alpha", "beta"}))

	err := s.CheckDisjoint([]string{"alpha", "gamma"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(KeyCompanyData))
}

func TestSharedKeysExemptFromDisjointness(t *testing.T) {
	s := Schema{
		"alpha": {KeyMessages, KeyCompanyData},
		"beta":  {KeyMessages, KeyIndustryData},
	}
	assert.NoError(t, s.CheckDisjoint([]string{"alpha", "beta"}))
}
