package odbcerr

import (
	"encoding/binary"
	"fmt"
)

// minStructuredWireLen is the fixed header: 5-byte SQLSTATE + 4-byte native
// code + 4-byte message length.
const minStructuredWireLen = 5 + 4 + 4

// Serialize encodes s as sqlstate(5) || native_code_le(4) || msg_len_le(4) || msg_bytes.
func (s *Structured) Serialize() []byte {
	msg := []byte(s.Message)
	buf := make([]byte, minStructuredWireLen+len(msg))
	copy(buf[0:5], s.SQLState[:])
	binary.LittleEndian.PutUint32(buf[5:9], uint32(s.NativeCode))
	binary.LittleEndian.PutUint32(buf[9:13], uint32(len(msg)))
	copy(buf[13:], msg)
	return buf
}

// ParseStructured parses the wire form produced by Serialize. It rejects
// buffers shorter than the fixed header, or shorter than header+msg_len.
func ParseStructured(buf []byte) (*Structured, error) {
	if len(buf) < minStructuredWireLen {
		return nil, fmt.Errorf("odbcerr: structured error buffer too short: %d bytes, need at least %d", len(buf), minStructuredWireLen)
	}

	var s Structured
	copy(s.SQLState[:], buf[0:5])
	s.NativeCode = int32(binary.LittleEndian.Uint32(buf[5:9]))
	msgLen := binary.LittleEndian.Uint32(buf[9:13])

	need := minStructuredWireLen + int(msgLen)
	if len(buf) < need {
		return nil, fmt.Errorf("odbcerr: structured error buffer too short for message: have %d bytes, need %d", len(buf), need)
	}

	s.Message = string(buf[13:need])
	return &s, nil
}

// Serialize encodes e's structured form. It panics if e.Kind != KindStructured;
// callers must check first, since only structured errors have a wire form.
func (e *Error) Serialize() []byte {
	if e.Kind != KindStructured {
		panic("odbcerr: Serialize called on non-structured error")
	}
	return e.Structured.Serialize()
}

// ParseError parses a structured error from its wire form.
func ParseError(buf []byte) (*Error, error) {
	s, err := ParseStructured(buf)
	if err != nil {
		return nil, err
	}
	return &Error{Kind: KindStructured, Structured: s}, nil
}
