package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(EmbeddingChunks.WithLabelValues("failed"))
	RecordEmbeddingChunk(errors.New("x"))
	require.Equal(t, before+1, testutil.ToFloat64(EmbeddingChunks.WithLabelValues("failed")))

	before = testutil.ToFloat64(PipelineRuns.WithLabelValues("completed", "true"))
	RecordPipelineRun("completed", true)
	require.Equal(t, before+1, testutil.ToFloat64(PipelineRuns.WithLabelValues("completed", "true")))
}
