package driver

import (
	"strings"

	"github.com/cesarcarlos/odbcengine/internal/protocol"
)

// RawType is a driver-reported column type code. The numeric values match
// the standard ODBC SQL type identifiers so a real C ABI shim can pass
// them through unchanged.
type RawType int

const (
	RawCharType      RawType = 1
	RawNumeric       RawType = 2
	RawDecimal       RawType = 3
	RawInteger       RawType = 4
	RawSmallInt      RawType = 5
	RawFloat         RawType = 6
	RawReal          RawType = 7
	RawDouble        RawType = 8
	RawTimestampOld  RawType = 11
	RawVarchar       RawType = 12
	RawLongVarchar   RawType = -1
	RawBinary        RawType = -2
	RawVarbinary     RawType = -3
	RawLongVarbinary RawType = -4
	RawBigInt        RawType = -5
	RawTinyInt       RawType = -6
	RawBit           RawType = -7
	RawWChar         RawType = -8
	RawWVarchar      RawType = -9
	RawWLongVarchar  RawType = -10
)

// DefaultMapType is the engine's built-in raw-type-to-ColumnType mapping,
// used when no driver plugin is active (spec §4.9 step 5).
func DefaultMapType(raw RawType) protocol.ColumnType {
	switch raw {
	case RawInteger, RawSmallInt, RawTinyInt, RawBit:
		return protocol.TypeInteger
	case RawBigInt:
		return protocol.TypeBigInt
	case RawBinary, RawVarbinary, RawLongVarbinary:
		return protocol.TypeBinary
	case RawDecimal, RawNumeric, RawFloat, RawReal, RawDouble:
		return protocol.TypeDecimal
	case RawCharType, RawVarchar, RawLongVarchar, RawWChar, RawWVarchar, RawWLongVarchar:
		return protocol.TypeVarchar
	default:
		return protocol.TypeOther
	}
}

// driverSignatures maps a case-insensitive connection-string substring to
// the canonical driver name returned by DetectDriver (spec §C.2).
var driverSignatures = []struct {
	substr string
	name   string
}{
	{"sql server", "sqlserver"},
	{"sqlserver", "sqlserver"},
	{"mysql", "mysql"},
	{"postgresql", "postgresql"},
	{"postgres", "postgresql"},
	{"sqlite", "sqlite"},
	{"hdbodbc", "hana"},
	{"hana", "hana"},
}

// DetectDriver inspects connStr for a recognizable driver signature,
// matching case-insensitively, and returns the canonical short name.
func DetectDriver(connStr string) (name string, ok bool) {
	lower := strings.ToLower(connStr)
	for _, sig := range driverSignatures {
		if strings.Contains(lower, sig.substr) {
			return sig.name, true
		}
	}
	return "unknown", false
}
