package engine

import "strconv"

// fmtUint renders a handle ID for telemetry span attributes.
func fmtUint(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
