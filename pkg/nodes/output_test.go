package nodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/company-researcher/pkg/state"
)

func TestOutputWritesReportFile(t *testing.T) {
	dir := t.TempDir()
	st := state.New(state.Params{Company: "Acme GmbH & Co."}, "job", nil)
	require.NoError(t, st.Apply(state.Update{state.KeyReport: "# Report\n"}))

	stage := NewOutput(testDeps(nil, nil))
	stage.Dir = dir

	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	path := filepath.Join(dir, "report_acme_gmbh_co.md")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Report\n", string(data))

	msgs := update[state.KeyMessages].([]string)
	assert.Contains(t, msgs[0], path)
}

func TestOutputNilReport(t *testing.T) {
	st := state.New(state.Params{Company: "Acme"}, "job", nil)
	notifier := &recordingNotifier{}
	st.Notifier = notifier

	stage := NewOutput(testDeps(nil, nil))
	stage.Dir = t.TempDir()

	update, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	entries, err := os.ReadDir(stage.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no report file should be written")

	completed := notifier.byStatus("completed")
	require.Len(t, completed, 1)
	assert.Nil(t, completed[0].Payload["report"])

	msgs := update[state.KeyMessages].([]string)
	assert.Equal(t, "Run finished without a report", msgs[0])
}

func TestOutputCompletedEventCarriesReport(t *testing.T) {
	st := state.New(state.Params{Company: "Acme"}, "job", nil)
	notifier := &recordingNotifier{}
	st.Notifier = notifier
	require.NoError(t, st.Apply(state.Update{state.KeyReport: "the report"}))

	stage := NewOutput(testDeps(nil, nil))
	stage.Dir = t.TempDir()

	_, err := stage.Run(context.Background(), st)
	require.NoError(t, err)

	completed := notifier.byStatus("completed")
	require.Len(t, completed, 1)
	assert.Equal(t, "the report", completed[0].Payload["report"])
}
