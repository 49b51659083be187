package sqldriver

import "github.com/cesarcarlos/odbcengine/internal/protocol"

// paramsToArgs converts wire parameter values to database/sql's []any
// argument form.
func paramsToArgs(params []protocol.ParamValue) []any {
	args := make([]any, len(params))
	for i, p := range params {
		switch p.Kind {
		case protocol.ParamNull:
			args[i] = nil
		case protocol.ParamString, protocol.ParamDecimal:
			args[i] = p.Str
		case protocol.ParamInteger:
			args[i] = p.Int32
		case protocol.ParamBigInt:
			args[i] = p.Int64
		case protocol.ParamBinary:
			args[i] = p.Binary
		}
	}
	return args
}
