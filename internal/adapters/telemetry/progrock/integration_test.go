package progrock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/telemetry/progrock"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
)

func TestRecorder_Integration(t *testing.T) {
	recorder := progrock.New()

	ctx, vertex := recorder.Record(context.Background(), "install b@1.2.0")

	fromCtx, ok := ports.VertexFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, vertex, fromCtx)

	_, err := vertex.Stdout().Write([]byte("fetched 3 files\n"))
	require.NoError(t, err)
	_, err = vertex.Stderr().Write([]byte("slow mirror\n"))
	require.NoError(t, err)

	vertex.Log(domain.LogLevelDebug, "debug msg")
	vertex.Log(domain.LogLevelError, "error msg")

	vertex.Complete(nil)
	vertex.Complete(errors.New("ignored after the first completion"))

	_, cached := recorder.Record(ctx, "install c@2.1.0")
	cached.Cached()

	assert.NoError(t, recorder.Close())
}

func TestRecorder_WithTransaction(t *testing.T) {
	recorder := progrock.New()
	scoped := recorder.WithTransaction("txn-1")

	_, v := scoped.Record(context.Background(), "remove d@1.0.0")
	v.Complete(errors.New("failed"))

	assert.NoError(t, scoped.Close())
}
