package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// ParamKind is the tag of a bound parameter value.
type ParamKind uint8

const (
	ParamNull ParamKind = iota
	ParamString
	ParamInteger
	ParamBigInt
	ParamDecimal
	ParamBinary
)

// ParamValue is one tagged, length-prefixed bound parameter value.
type ParamValue struct {
	Kind    ParamKind
	Str     string // ParamString, ParamDecimal
	Int32   int32  // ParamInteger
	Int64   int64  // ParamBigInt
	Binary  []byte // ParamBinary
}

// Serialize encodes a single ParamValue as tag(u8) || len(u32 LE) || payload.
func (p ParamValue) Serialize() []byte {
	switch p.Kind {
	case ParamNull:
		return []byte{byte(ParamNull), 0, 0, 0, 0}
	case ParamString, ParamDecimal:
		payload := []byte(p.Str)
		buf := make([]byte, 5+len(payload))
		buf[0] = byte(p.Kind)
		binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
		copy(buf[5:], payload)
		return buf
	case ParamInteger:
		buf := make([]byte, 5+4)
		buf[0] = byte(ParamInteger)
		binary.LittleEndian.PutUint32(buf[1:5], 4)
		binary.LittleEndian.PutUint32(buf[5:9], uint32(p.Int32))
		return buf
	case ParamBigInt:
		buf := make([]byte, 5+8)
		buf[0] = byte(ParamBigInt)
		binary.LittleEndian.PutUint32(buf[1:5], 8)
		binary.LittleEndian.PutUint64(buf[5:13], uint64(p.Int64))
		return buf
	case ParamBinary:
		buf := make([]byte, 5+len(p.Binary))
		buf[0] = byte(ParamBinary)
		binary.LittleEndian.PutUint32(buf[1:5], uint32(len(p.Binary)))
		copy(buf[5:], p.Binary)
		return buf
	default:
		panic(fmt.Sprintf("protocol: unknown param kind %d", p.Kind))
	}
}

// SerializeParams serializes a list of ParamValue by concatenating each
// value's wire form.
func SerializeParams(params []ParamValue) []byte {
	var out []byte
	for _, p := range params {
		out = append(out, p.Serialize()...)
	}
	return out
}

// DeserializeParam parses a single ParamValue from the front of buf,
// returning the value and the number of bytes consumed.
func DeserializeParam(buf []byte) (ParamValue, int, error) {
	if len(buf) < 5 {
		return ParamValue{}, 0, odbcerr.NewValidation("protocol param value: buffer too short for tag+length")
	}
	kind := ParamKind(buf[0])
	length := int(binary.LittleEndian.Uint32(buf[1:5]))
	if len(buf) < 5+length {
		return ParamValue{}, 0, odbcerr.NewValidation(fmt.Sprintf("protocol param value: truncated payload, need %d have %d", 5+length, len(buf)))
	}
	payload := buf[5 : 5+length]
	consumed := 5 + length

	switch kind {
	case ParamNull:
		return ParamValue{Kind: ParamNull}, consumed, nil
	case ParamString, ParamDecimal:
		return ParamValue{Kind: kind, Str: string(payload)}, consumed, nil
	case ParamInteger:
		if length != 4 {
			return ParamValue{}, 0, odbcerr.NewValidation(fmt.Sprintf("protocol param value: Integer length %d, want 4", length))
		}
		return ParamValue{Kind: ParamInteger, Int32: int32(binary.LittleEndian.Uint32(payload))}, consumed, nil
	case ParamBigInt:
		if length != 8 {
			return ParamValue{}, 0, odbcerr.NewValidation(fmt.Sprintf("protocol param value: BigInt length %d, want 8", length))
		}
		return ParamValue{Kind: ParamBigInt, Int64: int64(binary.LittleEndian.Uint64(payload))}, consumed, nil
	case ParamBinary:
		return ParamValue{Kind: ParamBinary, Binary: append([]byte(nil), payload...)}, consumed, nil
	default:
		return ParamValue{}, 0, odbcerr.NewValidation(fmt.Sprintf("protocol param value: unknown tag %d", kind))
	}
}

// DeserializeParams walks buf greedily, parsing ParamValues until the
// buffer is fully consumed.
func DeserializeParams(buf []byte) ([]ParamValue, error) {
	var out []ParamValue
	for len(buf) > 0 {
		p, n, err := DeserializeParam(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		buf = buf[n:]
	}
	return out, nil
}
