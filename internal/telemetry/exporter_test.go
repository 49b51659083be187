package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsoleExporterAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	c := NewConsole(zap.NewNop())
	c.RecordSpan(context.Background(), "execute_query", map[string]string{"sql.table": "orders"}, nil)
	c.RecordSpan(context.Background(), "execute_query", map[string]string{"sql.table": "orders"}, errors.New("boom"))
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestNewOTLPRejectsInvalidUTF8Endpoint(t *testing.T) {
	t.Parallel()

	_, err := NewOTLP(context.Background(), string([]byte{0xff, 0xfe}))
	require.Error(t, err)
}

func TestNewOTLPBuildsExporterForValidEndpoint(t *testing.T) {
	t.Parallel()

	exp, err := NewOTLP(context.Background(), "http://127.0.0.1:4318")
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.NoError(t, exp.Shutdown(context.Background()))
}
