package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_AgainstScenarioHistory(t *testing.T) {
	out, _, err := execute(t, "query", "--scenario", "testdata/memory_pressure.yaml", "testdata/state_query.json")
	require.NoError(t, err)

	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"state":"800MB"`)
}

func TestQuery_EmptyEngineReportsNoData(t *testing.T) {
	out, _, err := execute(t, "query", "testdata/state_query.json")
	require.NoError(t, err)

	assert.Contains(t, out, `"found":false`)
}

func TestQuery_SchemaViolationExitsOne(t *testing.T) {
	_, _, err := execute(t, "query", "testdata/bad_protocol.json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestQuery_MissingFileExitsTwo(t *testing.T) {
	_, _, err := execute(t, "query", "testdata/missing.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
