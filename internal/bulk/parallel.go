package bulk

import (
	"context"
	"sync"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// ParallelInsert splits payload's rows evenly across len(conns) pool
// connections (row range width ceil(RowCount/workers), spec §4.11)
// and runs one Insert per worker concurrently. Any worker's
// failure fails the whole aggregate, matching the spec's "any-worker-
// failure fails aggregate" rule.
func ParallelInsert(ctx context.Context, conns []driver.Connection, plugin driver.DriverPlugin, payload *protocol.BulkInsertPayload, paramsetSize int) (int64, error) {
	workers := len(conns)
	if workers < 1 {
		return 0, odbcerr.NewValidation("parallel bulk insert requires at least one connection")
	}
	if payload.RowCount == 0 {
		return 0, nil
	}

	chunkSize := (payload.RowCount + workers - 1) / workers

	var wg sync.WaitGroup
	results := make([]int64, workers)
	errs := make([]error, workers)

	active := 0
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= payload.RowCount {
			break
		}
		end := start + chunkSize
		if end > payload.RowCount {
			end = payload.RowCount
		}

		active++
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			sub := splitPayload(payload, start, end)
			n, err := Insert(ctx, conns[w], plugin, sub, paramsetSize)
			results[w] = n
			errs[w] = err
		}(w, start, end)
	}
	wg.Wait()

	var total int64
	for w := 0; w < active; w++ {
		if errs[w] != nil {
			return 0, errs[w]
		}
		total += results[w]
	}
	return total, nil
}

// splitPayload returns a BulkInsertPayload referencing rows [start, end)
// of p's columnar data, without copying the underlying arrays.
func splitPayload(p *protocol.BulkInsertPayload, start, end int) *protocol.BulkInsertPayload {
	sub := &protocol.BulkInsertPayload{
		Table:    p.Table,
		Columns:  p.Columns,
		RowCount: end - start,
		Data:     make([]protocol.BulkColumnData, len(p.Data)),
	}
	for i, d := range p.Data {
		nd := protocol.BulkColumnData{}
		if d.Nulls != nil {
			nd.Nulls = d.Nulls[start:end]
		}
		if d.I32s != nil {
			nd.I32s = d.I32s[start:end]
		}
		if d.I64s != nil {
			nd.I64s = d.I64s[start:end]
		}
		if d.Texts != nil {
			nd.Texts = d.Texts[start:end]
		}
		if d.Binaries != nil {
			nd.Binaries = d.Binaries[start:end]
		}
		if d.Timestamps != nil {
			nd.Timestamps = d.Timestamps[start:end]
		}
		sub.Data[i] = nd
	}
	return sub
}
