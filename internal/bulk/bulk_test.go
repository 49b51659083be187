package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

type recordedCell struct {
	col, row int
	isNull   bool
}

type fakeInserter struct {
	rowCount     int
	executeCalls int
	failOn       int // execute call index (1-based) to fail, 0 = never
	seenI32      []recordedCell
	totalRows    int
}

func (f *fakeInserter) SetRowCount(n int) error { f.rowCount = n; return nil }
func (f *fakeInserter) SetInt32(col, row int, v int32, isNull bool) error {
	f.seenI32 = append(f.seenI32, recordedCell{col, row, isNull})
	return nil
}
func (f *fakeInserter) SetInt64(col, row int, v int64, isNull bool) error                    { return nil }
func (f *fakeInserter) SetText(col, row int, v []byte, isNull bool) error                    { return nil }
func (f *fakeInserter) SetBinary(col, row int, v []byte, isNull bool) error                  { return nil }
func (f *fakeInserter) SetTimestamp(col, row int, v protocol.Timestamp, isNull bool) error   { return nil }
func (f *fakeInserter) Execute(ctx context.Context) (int64, error) {
	f.executeCalls++
	if f.failOn != 0 && f.executeCalls == f.failOn {
		return 0, errors.New("boom")
	}
	f.totalRows += f.rowCount
	return int64(f.rowCount), nil
}
func (f *fakeInserter) Close() error { return nil }

type fakeBulkStatement struct {
	inserter *fakeInserter
}

func (s *fakeBulkStatement) NumParams() int { return 0 }
func (s *fakeBulkStatement) Execute(ctx context.Context, params []protocol.ParamValue, timeoutSec, fetchSize int) (driver.Cursor, bool, int64, error) {
	return nil, false, 0, nil
}
func (s *fakeBulkStatement) BindColumnar(capacity int, specs []protocol.BulkColumnSpec) (driver.ColumnarInserter, error) {
	return s.inserter, nil
}
func (s *fakeBulkStatement) Close() error { return nil }

type fakeBulkConn struct{ stmt *fakeBulkStatement }

func (c *fakeBulkConn) Prepare(ctx context.Context, sql string) (driver.Statement, error) { return c.stmt, nil }
func (c *fakeBulkConn) ExecDirect(ctx context.Context, sql string) error                  { return nil }
func (c *fakeBulkConn) SetAutocommit(autocommit bool) error                              { return nil }
func (c *fakeBulkConn) EndTran(ctx context.Context, commit bool) error                    { return nil }
func (c *fakeBulkConn) Ping(ctx context.Context) error                                    { return nil }
func (c *fakeBulkConn) Close() error                                                      { return nil }

func samplePayload(rowCount int) *protocol.BulkInsertPayload {
	ids := make([]int32, rowCount)
	nulls := make([]bool, rowCount)
	for i := range ids {
		ids[i] = int32(i)
	}
	return &protocol.BulkInsertPayload{
		Table:    "events",
		Columns:  []protocol.BulkColumnSpec{{Name: "id", Type: protocol.BulkI32, Nullable: true}},
		RowCount: rowCount,
		Data:     []protocol.BulkColumnData{{I32s: ids, Nulls: nulls}},
	}
}

func TestInsertChunksByParamsetSize(t *testing.T) {
	t.Parallel()

	inserter := &fakeInserter{}
	conn := &fakeBulkConn{stmt: &fakeBulkStatement{inserter: inserter}}
	payload := samplePayload(10)

	total, err := Insert(context.Background(), conn, driver.NoopPlugin(), payload, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, 4, inserter.executeCalls, "10 rows at paramset 3 should take 4 execute calls")
}

func TestInsertParamsetFlooredAtOne(t *testing.T) {
	t.Parallel()

	inserter := &fakeInserter{}
	conn := &fakeBulkConn{stmt: &fakeBulkStatement{inserter: inserter}}
	payload := samplePayload(2)

	total, err := Insert(context.Background(), conn, driver.NoopPlugin(), payload, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, 2, inserter.executeCalls)
}

func TestInsertRejectsDriverWithoutArrayBinding(t *testing.T) {
	t.Parallel()

	conn := &fakeBulkConn{stmt: &fakeBulkStatement{inserter: &fakeInserter{}}}
	payload := samplePayload(1)

	_, err := Insert(context.Background(), conn, driver.PluginForDriver("hana"), payload, 10)
	require.Error(t, err)
}

func TestParallelInsertSumsWorkerResults(t *testing.T) {
	t.Parallel()

	conns := make([]driver.Connection, 3)
	for i := range conns {
		conns[i] = &fakeBulkConn{stmt: &fakeBulkStatement{inserter: &fakeInserter{}}}
	}
	payload := samplePayload(10)

	total, err := ParallelInsert(context.Background(), conns, driver.NoopPlugin(), payload, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestParallelInsertFailsAggregateOnAnyWorkerFailure(t *testing.T) {
	t.Parallel()

	conns := []driver.Connection{
		&fakeBulkConn{stmt: &fakeBulkStatement{inserter: &fakeInserter{}}},
		&fakeBulkConn{stmt: &fakeBulkStatement{inserter: &fakeInserter{failOn: 1}}},
	}
	payload := samplePayload(10)

	_, err := ParallelInsert(context.Background(), conns, driver.NoopPlugin(), payload, 100)
	require.Error(t, err)
}
