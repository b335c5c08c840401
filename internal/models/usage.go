package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// UsageKind tags the shape of a Usage value.
type UsageKind int

const (
	// UsageScalar is a single engine-hours or odometer counter.
	UsageScalar UsageKind = iota
	// UsageDual is a left/right pair of engine-hours counters.
	UsageDual
)

// EnginePair holds the counters of a dual-engine boat.
type EnginePair struct {
	Left  float64 `bson:"left" json:"left"`
	Right float64 `bson:"right" json:"right"`
}

// Usage is a cumulative engine-hours (or distance) value. It is either a
// plain number or, for dual-engine boats, a {left, right} pair. It is stored
// and serialized in exactly those two shapes.
type Usage struct {
	Kind  UsageKind
	Value float64
	Pair  EnginePair
}

// Scalar returns a single-counter usage.
func Scalar(v float64) Usage {
	return Usage{Kind: UsageScalar, Value: v}
}

// Dual returns a left/right usage pair.
func Dual(left, right float64) Usage {
	return Usage{Kind: UsageDual, Pair: EnginePair{Left: left, Right: right}}
}

// IsDual reports whether u carries a left/right pair.
func (u Usage) IsDual() bool {
	return u.Kind == UsageDual
}

// Add advances the usage by d. Both engines of a pair advance by the same amount.
func (u Usage) Add(d float64) Usage {
	if u.IsDual() {
		return Dual(u.Pair.Left+d, u.Pair.Right+d)
	}
	return Scalar(u.Value + d)
}

// As converts u to the requested shape. A scalar becomes a pair with both
// counters equal to it; a pair becomes the left counter.
func (u Usage) As(dual bool) Usage {
	switch {
	case dual && !u.IsDual():
		return Dual(u.Value, u.Value)
	case !dual && u.IsDual():
		return Scalar(u.Pair.Left)
	default:
		return u
	}
}

// Equal compares two usages of the same shape exactly.
func (u Usage) Equal(o Usage) bool {
	if u.Kind != o.Kind {
		return false
	}
	if u.IsDual() {
		return u.Pair == o.Pair
	}
	return u.Value == o.Value
}

func (u Usage) String() string {
	if u.IsDual() {
		return fmt.Sprintf("{left: %g, right: %g}", u.Pair.Left, u.Pair.Right)
	}
	return fmt.Sprintf("%g", u.Value)
}

// MarshalJSON writes a number or a {left,right} object.
func (u Usage) MarshalJSON() ([]byte, error) {
	if u.IsDual() {
		return json.Marshal(u.Pair)
	}
	return json.Marshal(u.Value)
}

// UnmarshalJSON accepts a number, a {left,right} object or null (zero).
func (u *Usage) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = Scalar(0)
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var p EnginePair
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("usage pair: %w", err)
		}
		*u = Dual(p.Left, p.Right)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("usage value: %w", err)
	}
	*u = Scalar(v)
	return nil
}

// MarshalBSONValue stores a double or an embedded {left,right} document.
func (u Usage) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if u.IsDual() {
		return bson.MarshalValue(u.Pair)
	}
	return bson.MarshalValue(u.Value)
}

// UnmarshalBSONValue reads any numeric BSON value or an embedded pair document.
func (u *Usage) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.EmbeddedDocument:
		var p EnginePair
		if err := raw.Unmarshal(&p); err != nil {
			return fmt.Errorf("usage pair: %w", err)
		}
		*u = Dual(p.Left, p.Right)
	case bsontype.Double:
		*u = Scalar(raw.Double())
	case bsontype.Int32:
		*u = Scalar(float64(raw.Int32()))
	case bsontype.Int64:
		*u = Scalar(float64(raw.Int64()))
	case bsontype.Null, bsontype.Undefined:
		*u = Scalar(0)
	default:
		return fmt.Errorf("usage: unsupported bson type %s", t)
	}
	return nil
}
