package engine

import (
	"context"

	"github.com/cesarcarlos/odbcengine/internal/driver"
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
	"github.com/cesarcarlos/odbcengine/internal/pipeline"
	"github.com/cesarcarlos/odbcengine/internal/protocol"
	"github.com/cesarcarlos/odbcengine/internal/stream"
)

// StreamStart executes sql fully, encodes it once, and registers a
// buffered stream that hands the result back in fixed-size byte chunks
// (spec §6.1 "stream_start", spec §4.10 buffered mode).
func (e *Engine) StreamStart(ctx context.Context, connID uint32, sql string, chunkSize int) (uint32, error) {
	ch, err := e.reg.Connection(connID)
	if err != nil {
		return 0, e.recordError(connID, err)
	}

	result, err := pipeline.ExecuteQuery(ctx, ch.Conn, pluginFor(ch), ch.Cache, sql)
	if err != nil {
		return 0, e.recordError(connID, err)
	}
	if !result.HasResultSet {
		return 0, e.recordError(connID, odbcerr.NewValidation("stream_start requires a statement that produces a result set"))
	}

	s := stream.NewBuffered(protocol.EncodeV1(result.Rows), chunkSize)
	streamID, err := e.reg.RegisterStream(s)
	if err != nil {
		return 0, e.recordError(connID, err)
	}
	return streamID, nil
}

// StreamStartBatched prepares and executes sql, then hands iteration of
// its cursor to a background worker producing row-count-bounded batches
// (spec §6.1 "stream_start_batched", spec §4.10 batched mode).
func (e *Engine) StreamStartBatched(ctx context.Context, connID uint32, sql string, batchSize, chunkSize int) (uint32, error) {
	ch, err := e.reg.Connection(connID)
	if err != nil {
		return 0, e.recordError(connID, err)
	}

	plugin := pluginFor(ch)
	ch.Cache.GetOrInsert(sql)
	optimized := plugin.OptimizeQuery(sql)

	stmt, err := ch.Conn.Prepare(ctx, optimized)
	if err != nil {
		return 0, e.recordError(connID, odbcerr.New(odbcerr.KindOdbcAPI, "prepare: "+err.Error()))
	}

	cursor, hasCursor, _, err := stmt.Execute(ctx, nil, 0, 0)
	stmt.Close()
	if err != nil {
		return 0, e.recordError(connID, odbcerr.New(odbcerr.KindOdbcAPI, "execute: "+err.Error()))
	}
	if !hasCursor {
		return 0, e.recordError(connID, odbcerr.NewValidation("stream_start_batched requires a statement that produces a result set"))
	}
	ch.Cache.RecordExecution(sql)

	columns, err := columnsOf(cursor, plugin)
	if err != nil {
		cursor.Close()
		return 0, e.recordError(connID, err)
	}

	s := stream.StartBatched(ctx, cursor, columns, batchSize, chunkSize)
	streamID, err := e.reg.RegisterStream(s)
	if err != nil {
		s.Close()
		return 0, e.recordError(connID, err)
	}
	return streamID, nil
}

func columnsOf(cursor driver.Cursor, plugin driver.DriverPlugin) ([]protocol.Column, error) {
	meta, err := cursor.Columns()
	if err != nil {
		return nil, odbcerr.New(odbcerr.KindOdbcAPI, "read columns: "+err.Error())
	}
	columns := make([]protocol.Column, len(meta))
	for i, m := range meta {
		columns[i] = protocol.Column{Name: m.Name, Type: plugin.MapType(m.RawType)}
	}
	return columns, nil
}

// streamer is the subset of stream.BufferedStream / stream.BatchedStream
// that StreamFetch needs.
type streamer interface {
	FetchNextChunk() (chunk []byte, hasMore bool, err error)
	Close() error
}

// StreamFetch returns the stream's next encoded chunk (spec §6.1
// "stream_fetch").
func (e *Engine) StreamFetch(streamID uint32) (chunk []byte, hasMore bool, err error) {
	s, err := e.reg.StreamByID(streamID)
	if err != nil {
		return nil, false, e.recordError(0, err)
	}
	st, ok := s.(streamer)
	if !ok {
		return nil, false, e.recordError(0, odbcerr.NewInternal("stream handle does not implement FetchNextChunk"))
	}
	chunk, hasMore, err = st.FetchNextChunk()
	if err != nil {
		return nil, false, e.recordError(0, odbcerr.New(odbcerr.KindOdbcAPI, "stream fetch: "+err.Error()))
	}
	return chunk, hasMore, nil
}

// StreamClose releases a stream's driver resources and its handle (spec
// §6.1 "stream_close").
func (e *Engine) StreamClose(streamID uint32) error {
	return e.recordError(0, e.reg.CloseStream(streamID))
}
