package datapoint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
)

var ErrReadOnly = errors.New("data point is read only")
var ErrUnmappedValue = errors.New("value has no mapping to a raw data point value")

const (
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeString  = "string"
)

// Mapping translates a raw data point value into the logical value understood by a capability.
type Mapping struct {
	Raw   any
	Value any
}

type Config struct {
	ID       string
	Name     string
	Type     string
	Readonly bool
	Mapping  []Mapping
}

// DataPoint is a binding to a single addressable value on a device.
type DataPoint interface {
	ID() string
	Name() string
	// Value returns the current logical value, false if the device has not reported it.
	Value() (any, bool)
	// SetValue writes a logical value to the device.
	SetValue(context.Context, any) error
	// Values returns the set of legal logical values, nil if the data point is not enumerated.
	Values() []any
}

func New(d *Device, c Config) DataPoint {
	return &dataPoint{device: d, config: c}
}

type dataPoint struct {
	device *Device
	config Config
}

func (p *dataPoint) ID() string {
	return p.config.ID
}

func (p *dataPoint) Name() string {
	return p.config.Name
}

func (p *dataPoint) Value() (any, bool) {
	raw, found := p.device.Get(p.config.ID)
	if !found {
		return nil, false
	}

	return p.decode(raw), true
}

func (p *dataPoint) SetValue(ctx context.Context, v any) error {
	if p.config.Readonly {
		return fmt.Errorf("%s (%s): %w", p.config.Name, p.config.ID, ErrReadOnly)
	}

	raw, err := p.encode(v)
	if err != nil {
		return err
	}

	return p.device.Set(ctx, map[string]any{p.config.ID: raw})
}

func (p *dataPoint) Values() []any {
	if len(p.config.Mapping) == 0 {
		if p.config.Type == TypeBoolean {
			return []any{false, true}
		}

		return nil
	}

	var values []any

	for _, m := range p.config.Mapping {
		if !containsValue(values, m.Value) {
			values = append(values, m.Value)
		}
	}

	return values
}

func (p *dataPoint) decode(raw any) any {
	for _, m := range p.config.Mapping {
		if equal(m.Raw, raw) {
			return m.Value
		}
	}

	return raw
}

func (p *dataPoint) encode(v any) (any, error) {
	if len(p.config.Mapping) == 0 {
		return v, nil
	}

	for _, m := range p.config.Mapping {
		if equal(m.Value, v) {
			return m.Raw, nil
		}
	}

	return nil, fmt.Errorf("%s (%s): %#v: %w", p.config.Name, p.config.ID, v, ErrUnmappedValue)
}

// Bind removes the requested roles from the mapping, returning the data point for each role in the order requested.
// Roles which are not present result in a nil entry.
func Bind(m map[string]DataPoint, roles ...string) []DataPoint {
	bound := make([]DataPoint, len(roles))

	for i, role := range roles {
		if dp, found := m[role]; found {
			bound[i] = dp
			delete(m, role)
		}
	}

	return bound
}

func containsValue(haystack []any, needle any) bool {
	for _, straw := range haystack {
		if equal(straw, needle) {
			return true
		}
	}

	return false
}

func equal(a, b any) bool {
	return reflect.DeepEqual(normalise(a), normalise(b))
}

// normalise converts numeric values to int64 where they are integral and float64 otherwise, as values arrive from
// YAML, JSON and transports with differing numeric types.
func normalise(v any) any {
	switch tv := v.(type) {
	case int:
		return int64(tv)
	case int8:
		return int64(tv)
	case int16:
		return int64(tv)
	case int32:
		return int64(tv)
	case uint:
		return normaliseUnsigned(uint64(tv))
	case uint8:
		return int64(tv)
	case uint16:
		return int64(tv)
	case uint32:
		return int64(tv)
	case uint64:
		return normaliseUnsigned(tv)
	case float32:
		return normaliseFloat(float64(tv))
	case float64:
		return normaliseFloat(tv)
	default:
		return v
	}
}

// normaliseUnsigned keeps values beyond the range of int64 as uint64, so they never compare equal to a negative value.
func normaliseUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return u
	}

	return int64(u)
}

func normaliseFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return int64(f)
	}

	return f
}
