package schema

import (
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueEventV1(t *testing.T) {
	var s avro.Schema
	require.NotPanics(t, func() {
		s = IssueEventV1Avro()
	})

	t.Run("NilIssues", func(t *testing.T) {
		data, err := avro.Marshal(s, IssueEventV1{RunID: "run-1", ProductID: 1})
		require.NoError(t, err)

		var v IssueEventV1
		require.NoError(t, avro.Unmarshal(s, data, &v))
		assert.Equal(t, "run-1", v.RunID)
		assert.Empty(t, v.Issues)
	})
}

func TestRunSummaryV1(t *testing.T) {
	var s avro.Schema
	require.NotPanics(t, func() {
		s = RunSummaryV1Avro()
	})

	data, err := avro.Marshal(s, RunSummaryV1{RunID: "run-1", Status: "failed", Error: "status 503"})
	require.NoError(t, err)

	var v RunSummaryV1
	require.NoError(t, avro.Unmarshal(s, data, &v))
	assert.Equal(t, "status 503", v.Error)
	assert.Empty(t, v.Counts)
}
