package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return New(Params{
		Company:    "Acme Corp",
		CompanyURL: "https://acme.example",
		HQLocation: "Berlin",
		Industry:   "Robotics",
	}, "job-1", nil)
}

func TestApplyMergesAdditively(t *testing.T) {
	s := newTestState()

	err := s.Apply(Update{
		KeyCompanyData: map[string]Document{
			"https://a.example": {Title: "A", RawContent: "alpha"},
		},
		KeyMessages: []string{"first"},
	})
	require.NoError(t, err)

	err = s.Apply(Update{
		KeyCompanyData: map[string]Document{
			"https://b.example": {Title: "B", RawContent: "beta"},
			"https://a.example": {Title: "A2", RawContent: "alpha updated"},
		},
		KeyMessages: []string{"second"},
	})
	require.NoError(t, err)

	assert.Len(t, s.CompanyData, 2)
	assert.Equal(t, "A2", s.CompanyData["https://a.example"].Title)
	assert.Equal(t, []string{"first", "second"}, s.Messages)
}

func TestApplyAppendsReferences(t *testing.T) {
	s := newTestState()

	require.NoError(t, s.Apply(Update{KeyReferences: []string{"https://a.example"}}))
	require.NoError(t, s.Apply(Update{KeyReferences: []string{"https://b.example"}}))

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.References)
}

func TestApplyScalarOverwrites(t *testing.T) {
	s := newTestState()

	require.NoError(t, s.Apply(Update{KeyCompanyBriefing: "draft"}))
	require.NoError(t, s.Apply(Update{KeyCompanyBriefing: "final"}))

	assert.Equal(t, "final", s.Briefing(KeyCompanyBriefing))
}

func TestApplyReport(t *testing.T) {
	s := newTestState()
	assert.Nil(t, s.Report)

	require.NoError(t, s.Apply(Update{KeyReport: "the report"}))
	require.NotNil(t, s.Report)
	assert.Equal(t, "the report", *s.Report)

	// A typed nil pointer resets the report to explicitly absent.
	require.NoError(t, s.Apply(Update{KeyReport: (*string)(nil)}))
	assert.Nil(t, s.Report)
}

func TestApplyRejectsUnknownKey(t *testing.T) {
	s := newTestState()

	err := s.Apply(Update{Key("bogus"): "value"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestApplyRejectsWrongType(t *testing.T) {
	s := newTestState()

	err := s.Apply(Update{KeyMessages: "not a slice"})
	require.Error(t, err)

	err = s.Apply(Update{KeyCompanyData: []string{"not a map"}})
	require.Error(t, err)
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Apply(Update{
		KeyCompanyData: map[string]Document{"https://a.example": {Title: "A"}},
		KeyMessages:    []string{"one"},
	}))

	snap := s.Snapshot()

	// Mutating the live state must not leak into the snapshot.
	require.NoError(t, s.Apply(Update{
		KeyCompanyData: map[string]Document{"https://b.example": {Title: "B"}},
		KeyMessages:    []string{"two"},
		KeyReport:      "done",
	}))

	assert.Len(t, snap.CompanyData, 1)
	assert.Equal(t, []string{"one"}, snap.Messages)
	assert.Nil(t, snap.Report)

	assert.Len(t, s.CompanyData, 2)
	require.NotNil(t, s.Report)
}

func TestSnapshotCopiesReport(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Apply(Update{KeyReport: "v1"}))

	snap := s.Snapshot()
	require.NoError(t, s.Apply(Update{KeyReport: "v2"}))

	require.NotNil(t, snap.Report)
	assert.Equal(t, "v1", *snap.Report)
	assert.Equal(t, "v2", *s.Report)
}
