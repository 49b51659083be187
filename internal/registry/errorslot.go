package registry

import "github.com/cesarcarlos/odbcengine/internal/odbcerr"

// SetError records err as connID's last error, and also as the global
// last error (spec §4.14: "per-connection + global error slots").
// Passing connID 0 records only the global slot.
func (r *Registry) SetError(connID uint32, err *odbcerr.Error) {
	_ = withLockErr(r, func() error {
		r.globalErr = err
		if connID != 0 {
			r.connErrors[connID] = err
		}
		return nil
	})
}

// LastError returns connID's last recorded error, or the global last
// error if connID is 0 or has none recorded.
func (r *Registry) LastError(connID uint32) *odbcerr.Error {
	e, _ := withLock(r, func() (*odbcerr.Error, error) {
		if connID != 0 {
			if e, ok := r.connErrors[connID]; ok {
				return e, nil
			}
		}
		return r.globalErr, nil
	})
	return e
}
