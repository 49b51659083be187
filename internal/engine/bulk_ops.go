package engine

import (
	"context"

	"github.com/cesarcarlos/odbcengine/internal/bulk"
	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// BulkInsertArray decodes a columnar bulk-insert payload and inserts it
// against connID in chunks of paramsetSize rows (spec §4.11,
// §6.1 "bulk_insert_array"). paramsetSize <= 0 is floored to 1.
func (e *Engine) BulkInsertArray(ctx context.Context, connID uint32, buf []byte, paramsetSize int) (int64, error) {
	ch, err := e.reg.Connection(connID)
	if err != nil {
		return 0, e.recordError(connID, err)
	}

	payload, err := protocol.ParseBulkInsertPayload(buf)
	if err != nil {
		return 0, e.recordError(connID, odbcerr.NewValidation("parse bulk insert payload: "+err.Error()))
	}

	n, err := bulk.Insert(ctx, ch.Conn, pluginFor(ch), payload, paramsetSize)
	e.span(ctx, "bulk_insert_array", map[string]string{"conn_id": fmtUint(connID), "rows": fmtUint(uint32(payload.RowCount))}, err)
	if err != nil {
		return 0, e.recordError(connID, err)
	}
	return n, nil
}

// BulkInsertParallel decodes a columnar bulk-insert payload and splits
// its row range across min(parallelism, row_count) connections checked
// out of poolID, running one worker per range and summing the inserted
// counts (spec §4.11, §6.1 "bulk_insert_parallel"). Any worker's
// failure fails the whole call; the core attempts no rollback.
func (e *Engine) BulkInsertParallel(ctx context.Context, poolID uint32, buf []byte, paramsetSize, parallelism int) (int64, error) {
	ph, err := e.reg.PoolByID(poolID)
	if err != nil {
		return 0, e.recordError(0, err)
	}

	payload, err := protocol.ParseBulkInsertPayload(buf)
	if err != nil {
		return 0, e.recordError(0, odbcerr.NewValidation("parse bulk insert payload: "+err.Error()))
	}
	if payload.RowCount == 0 {
		return 0, nil
	}

	workers := parallelism
	if workers < 1 {
		workers = 1
	}
	if workers > payload.RowCount {
		workers = payload.RowCount
	}

	conns := make([]driver.Connection, 0, workers)
	defer func() {
		for _, c := range conns {
			ph.Pool.Release(c)
		}
	}()
	for i := 0; i < workers; i++ {
		c, err := ph.Pool.Checkout(ctx)
		if err != nil {
			return 0, e.recordError(0, err)
		}
		conns = append(conns, c)
	}

	n, err := bulk.ParallelInsert(ctx, conns, ph.Plugin, payload, paramsetSize)
	e.span(ctx, "bulk_insert_parallel", map[string]string{"pool_id": fmtUint(poolID), "workers": fmtUint(uint32(workers))}, err)
	if err != nil {
		return 0, e.recordError(0, err)
	}
	return n, nil
}
