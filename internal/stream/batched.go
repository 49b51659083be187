package stream

import (
	"context"
	"sync/atomic"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/pipeline"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

type msgKind int

const (
	msgBatch msgKind = iota
	msgDone
	msgError
)

type batchMsg struct {
	kind msgKind
	data []byte
	err  error
}

// BatchedStream runs a background worker that fetches rows from a
// driver.Cursor in fixed-size batches, encoding each batch as a
// protocol v1 buffer and delivering it over a channel of capacity 1
// (spec §4.10: "bounded channel capacity 1 with Batch/Done/Error
// variants"), so at most one encoded batch is ever buffered ahead of
// the consumer.
type BatchedStream struct {
	ch         chan batchMsg
	cancel     context.CancelFunc
	cursor     driver.Cursor
	chunkSize  int
	curBatch   []byte
	curOffset  int
	exhausted  atomic.Bool
	closedOnce atomic.Bool
}

// StartBatched launches the worker goroutine and returns the consumer
// handle immediately; the caller owns cursor's lifetime via Close.
// batchSize bounds the number of rows fetched from the driver per batch
// (fetch_size); chunkSize bounds the number of encoded bytes
// FetchNextChunk returns at a time, sliced out of the current cached
// batch (spec §4.10, §6.1: stream_start_batched takes both).
func StartBatched(ctx context.Context, cursor driver.Cursor, columns []protocol.Column, batchSize, chunkSize int) *BatchedStream {
	if batchSize <= 0 {
		batchSize = 1
	}
	if chunkSize <= 0 {
		chunkSize = 1
	}
	workerCtx, cancel := context.WithCancel(ctx)
	bs := &BatchedStream{
		ch:        make(chan batchMsg, 1),
		cancel:    cancel,
		cursor:    cursor,
		chunkSize: chunkSize,
	}
	go bs.worker(workerCtx, columns, batchSize)
	return bs
}

func (bs *BatchedStream) worker(ctx context.Context, columns []protocol.Column, batchSize int) {
	defer close(bs.ch)

	for {
		rows := make([][]protocol.Cell, 0, batchSize)
		for len(rows) < batchSize {
			more, err := bs.cursor.Next(ctx)
			if err != nil {
				bs.send(ctx, batchMsg{kind: msgError, err: err})
				return
			}
			if !more {
				break
			}
			row, err := pipeline.ReadRow(bs.cursor, columns)
			if err != nil {
				bs.send(ctx, batchMsg{kind: msgError, err: err})
				return
			}
			rows = append(rows, row)
		}

		if len(rows) == 0 {
			bs.send(ctx, batchMsg{kind: msgDone})
			return
		}

		buf := &protocol.RowBuffer{Columns: columns, Rows: rows}
		if !bs.send(ctx, batchMsg{kind: msgBatch, data: protocol.EncodeV1(buf)}) {
			return
		}

		if len(rows) < batchSize {
			bs.send(ctx, batchMsg{kind: msgDone})
			return
		}
	}
}

// send delivers msg, returning false if the worker context was canceled first.
func (bs *BatchedStream) send(ctx context.Context, msg batchMsg) bool {
	select {
	case bs.ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// FetchNextChunk caches the current batch and yields caller-sized byte
// chunks from it (spec §4.10: "cache the current batch, yield
// caller-sized byte chunks from it"). Once the cached batch is
// exhausted it pulls the next one off the worker channel, blocking if
// necessary; it returns hasMore=false on stream exhaustion, or a
// non-nil error if the worker hit a fetch error.
func (bs *BatchedStream) FetchNextChunk() (chunk []byte, hasMore bool, err error) {
	for bs.curOffset >= len(bs.curBatch) {
		msg, ok := <-bs.ch
		if !ok {
			bs.exhausted.Store(true)
			bs.curBatch, bs.curOffset = nil, 0
			return nil, false, nil
		}
		switch msg.kind {
		case msgBatch:
			bs.curBatch, bs.curOffset = msg.data, 0
		case msgDone:
			bs.exhausted.Store(true)
			bs.curBatch, bs.curOffset = nil, 0
			return nil, false, nil
		case msgError:
			bs.exhausted.Store(true)
			return nil, false, msg.err
		default:
			return nil, false, nil
		}
	}

	end := bs.curOffset + bs.chunkSize
	if end > len(bs.curBatch) {
		end = len(bs.curBatch)
	}
	chunk = bs.curBatch[bs.curOffset:end]
	bs.curOffset = end

	hasMore = bs.curOffset < len(bs.curBatch) || !bs.exhausted.Load()
	return chunk, hasMore, nil
}

// HasMore reports whether the stream has observed exhaustion yet. It is
// conservative: until a fetch confirms otherwise, it reports true.
func (bs *BatchedStream) HasMore() bool {
	if bs.curOffset < len(bs.curBatch) {
		return true
	}
	return !bs.exhausted.Load()
}

// Close stops the worker goroutine and releases the underlying cursor.
func (bs *BatchedStream) Close() error {
	if !bs.closedOnce.CompareAndSwap(false, true) {
		return nil
	}
	bs.cancel()
	for range bs.ch {
		// drain so the worker's send doesn't block forever on a full channel
	}
	return bs.cursor.Close()
}
