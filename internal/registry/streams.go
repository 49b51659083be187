package registry

import (
	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// RegisterStream adds an already-started stream (buffered or batched,
// both satisfy the Stream interface) and returns its handle ID.
func (r *Registry) RegisterStream(s Stream) (uint32, error) {
	return withLock(r, func() (uint32, error) {
		id := r.nextStreamID
		r.nextStreamID++
		r.streams[id] = s
		return id, nil
	})
}

// StreamByID returns the stream registered under id.
func (r *Registry) StreamByID(id uint32) (Stream, error) {
	return withLock(r, func() (Stream, error) {
		s, ok := r.streams[id]
		if !ok {
			return nil, odbcerr.NewInvalidHandle(id)
		}
		return s, nil
	})
}

// CloseStream closes and removes a stream handle.
func (r *Registry) CloseStream(id uint32) error {
	return withLockErr(r, func() error {
		s, ok := r.streams[id]
		if !ok {
			return odbcerr.NewInvalidHandle(id)
		}
		delete(r.streams, id)
		return s.Close()
	})
}
