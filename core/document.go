package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidDocument is returned when a value cannot be represented as JSON.
var ErrInvalidDocument = errors.New("invalid document")

// Document is an immutable JSON-like value: null, bool, number, string,
// array or object, recursively.
//
// Documents are normalized through structpb, so numbers come back as float64
// and typed slices or maps come back as []any and map[string]any. Value
// always returns a fresh copy; nothing handed out by a Document aliases its
// internal state.
//
// The zero Document is JSON null.
type Document struct {
	v *structpb.Value
}

// NewDocument converts v into a Document.
func NewDocument(v any) (Document, error) {
	switch t := v.(type) {
	case Document:
		return t, nil
	case *structpb.Value:
		if t == nil {
			return Document{}, nil
		}
		return Document{v: proto.Clone(t).(*structpb.Value)}, nil
	}

	val, err := structpb.NewValue(v)
	if err == nil {
		return Document{v: val}, nil
	}

	// structpb only understands []any and map[string]any; route everything
	// else through encoding/json to get there.
	raw, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	val, err = structpb.NewValue(generic)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return Document{v: val}, nil
}

// MustDocument is like NewDocument but panics on error.
func MustDocument(v any) Document {
	d, err := NewDocument(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Value returns a deep copy of the document as plain Go values.
func (d Document) Value() any {
	if d.v == nil {
		return nil
	}
	return d.v.AsInterface()
}

// IsNull reports whether the document is JSON null.
func (d Document) IsNull() bool {
	if d.v == nil {
		return true
	}
	_, ok := d.v.GetKind().(*structpb.Value_NullValue)
	return ok
}

// Map returns a copy of the document as an object. The second result is
// false when the document is not an object.
func (d Document) Map() (map[string]any, bool) {
	if d.v == nil {
		return nil, false
	}
	s := d.v.GetStructValue()
	if s == nil {
		return nil, false
	}
	return s.AsMap(), true
}

// Field returns a copy of one field of an object document, or nil.
func (d Document) Field(key string) any {
	if d.v == nil {
		return nil
	}
	s := d.v.GetStructValue()
	if s == nil {
		return nil
	}
	f, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	return f.AsInterface()
}

// Equal reports whether two documents hold the same value.
func (d Document) Equal(other Document) bool {
	return proto.Equal(d.proto(), other.proto())
}

func (d Document) proto() *structpb.Value {
	if d.v == nil {
		return structpb.NewNullValue()
	}
	return d.v
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(d.proto())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	v := &structpb.Value{}
	if err := protojson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	d.v = v
	return nil
}
