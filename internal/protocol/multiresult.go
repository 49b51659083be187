package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/cesarcarlos/odbcengine/internal/odbcerr"
)

// MultiResultItem is one element of a multi-result sequence: either an
// encoded result set or a bare row count.
type MultiResultItem struct {
	IsRowCount bool
	ResultSet  []byte // valid when !IsRowCount
	RowCount   int64  // valid when IsRowCount
}

const (
	multiTagResultSet uint8 = 0
	multiTagRowCount   uint8 = 1
)

// EncodeMultiResult serializes items as count(u32 LE) followed by
// tag(u8) || len(u32 LE) || payload(len) per item.
func EncodeMultiResult(items []MultiResultItem) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(items)))

	for _, item := range items {
		if item.IsRowCount {
			entry := make([]byte, 1+4+8)
			entry[0] = multiTagRowCount
			binary.LittleEndian.PutUint32(entry[1:5], 8)
			binary.LittleEndian.PutUint64(entry[5:13], uint64(item.RowCount))
			buf = append(buf, entry...)
			continue
		}

		entry := make([]byte, 1+4)
		entry[0] = multiTagResultSet
		binary.LittleEndian.PutUint32(entry[1:5], uint32(len(item.ResultSet)))
		buf = append(buf, entry...)
		buf = append(buf, item.ResultSet...)
	}

	return buf
}

// DecodeMultiResult parses the buffer produced by EncodeMultiResult.
func DecodeMultiResult(buf []byte) ([]MultiResultItem, error) {
	if len(buf) < 4 {
		return nil, odbcerr.NewValidation("protocol multi-result: buffer too short for count")
	}
	count := int(binary.LittleEndian.Uint32(buf[0:4]))
	pos := 4

	items := make([]MultiResultItem, 0, count)
	for i := 0; i < count; i++ {
		if pos+1+4 > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol multi-result: truncated item header at index %d", i))
		}
		tag := buf[pos]
		itemLen := int(binary.LittleEndian.Uint32(buf[pos+1 : pos+5]))
		pos += 5

		if pos+itemLen > len(buf) {
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol multi-result: truncated item payload at index %d", i))
		}
		payload := buf[pos : pos+itemLen]
		pos += itemLen

		switch tag {
		case multiTagResultSet:
			items = append(items, MultiResultItem{ResultSet: append([]byte{}, payload...)})
		case multiTagRowCount:
			if itemLen != 8 {
				return nil, odbcerr.NewValidation(fmt.Sprintf("protocol multi-result: RowCount item at index %d has length %d, want 8", i, itemLen))
			}
			items = append(items, MultiResultItem{
				IsRowCount: true,
				RowCount:   int64(binary.LittleEndian.Uint64(payload)),
			})
		default:
			return nil, odbcerr.NewValidation(fmt.Sprintf("protocol multi-result: unknown tag %d at index %d", tag, i))
		}
	}

	return items, nil
}
