package rpc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// Message is implemented by every value carried over the catalog services.
type Message interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Request carries the fields of a call keyed by their wire names. The identity
// travels as a decimal string under the kind's identity key (e.g. "book_id").
//
// Wire layout:
//
//	message Request { map<string, string> fields = 1; }
type Request struct {
	Fields map[string]string
}

// Reply carries the outcome of a call. Reads and creates fill Records; updates
// and deletes report RowsAffected.
//
// Wire layout:
//
//	message Record { map<string, string> fields = 1; }
//	message Reply  { repeated Record records = 1; int64 rows_affected = 2; }
type Reply struct {
	Records      []map[string]string
	RowsAffected int64
}

const (
	fieldMap          protowire.Number = 1
	fieldRecords      protowire.Number = 1
	fieldRowsAffected protowire.Number = 2

	entryKey   protowire.Number = 1
	entryValue protowire.Number = 2
)

// NewRequest returns a request carrying fields.
func NewRequest(fields map[string]string) *Request {
	if fields == nil {
		fields = make(map[string]string)
	}
	return &Request{Fields: fields}
}

// ID parses the identity carried under key.
func (r *Request) ID(key string) (int64, error) {
	raw, ok := r.Fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", errors.ErrInvalidID, key)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errors.ErrInvalidID, key, raw)
	}
	return id, nil
}

// MarshalBinary encodes the request.
func (r *Request) MarshalBinary() ([]byte, error) {
	return appendMap(nil, fieldMap, r.Fields), nil
}

// UnmarshalBinary decodes the request.
func (r *Request) UnmarshalBinary(data []byte) error {
	r.Fields = make(map[string]string)
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldMap && typ == protowire.BytesType {
			return consumeEntry(b, r.Fields)
		}
		return -1, nil
	})
}

// MarshalBinary encodes the reply.
func (r *Reply) MarshalBinary() ([]byte, error) {
	var b []byte
	for _, rec := range r.Records {
		b = protowire.AppendTag(b, fieldRecords, protowire.BytesType)
		b = protowire.AppendBytes(b, appendMap(nil, fieldMap, rec))
	}
	if r.RowsAffected != 0 {
		b = protowire.AppendTag(b, fieldRowsAffected, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.RowsAffected))
	}
	return b, nil
}

// UnmarshalBinary decodes the reply.
func (r *Reply) UnmarshalBinary(data []byte) error {
	r.Records = nil
	r.RowsAffected = 0
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldRecords && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			rec := make(map[string]string)
			err := walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == fieldMap && typ == protowire.BytesType {
					return consumeEntry(b, rec)
				}
				return -1, nil
			})
			if err != nil {
				return 0, err
			}
			r.Records = append(r.Records, rec)
			return n, nil
		case num == fieldRowsAffected && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			r.RowsAffected = int64(v)
			return n, nil
		}
		return -1, nil
	})
}

// appendMap encodes m as a proto map field with keys in sorted order.
func appendMap(b []byte, num protowire.Number, m map[string]string) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var entry []byte
		entry = protowire.AppendTag(entry, entryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, entryValue, protowire.BytesType)
		entry = protowire.AppendString(entry, m[k])

		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// consumeEntry decodes one length-prefixed map entry into m.
func consumeEntry(b []byte, m map[string]string) (int, error) {
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}

	var key, value string
	err := walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != entryKey && num != entryValue) {
			return -1, nil
		}
		s, n := protowire.ConsumeString(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if num == entryKey {
			key = s
		} else {
			value = s
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	m[key] = value
	return n, nil
}

// walk iterates the fields of an encoded message. visit returns the number of
// bytes it consumed, or -1 to skip a field it does not know.
func walk(data []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errors.WrapInvalid(protowire.ParseError(n), "rpc", "Unmarshal", "read tag")
		}
		data = data[n:]

		n, err := visit(num, typ, data)
		if err != nil {
			return errors.WrapInvalid(err, "rpc", "Unmarshal", fmt.Sprintf("read field %d", num))
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return errors.WrapInvalid(protowire.ParseError(n), "rpc", "Unmarshal", fmt.Sprintf("skip field %d", num))
			}
		}
		data = data[n:]
	}
	return nil
}
