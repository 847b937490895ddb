package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ObservationKind discriminates observation payloads.
type ObservationKind string

const (
	ObservationBoolean    ObservationKind = "boolean"
	ObservationCounter    ObservationKind = "counter"
	ObservationRating     ObservationKind = "rating"
	ObservationChoice     ObservationKind = "choice"
	ObservationCoordinate ObservationKind = "coordinate"
	ObservationComplex    ObservationKind = "complex"
)

// ErrUnknownObservationKind is returned when decoding an unsupported kind.
var ErrUnknownObservationKind = errors.New("unknown observation kind")

// ObservationValue is a closed union of observation payloads.
type ObservationValue interface {
	Kind() ObservationKind
	isObservation()
}

// BooleanValue is a yes/no observation.
type BooleanValue struct {
	Value bool `json:"value"`
}

// CounterValue counts occurrences.
type CounterValue struct {
	Count int `json:"count"`
}

// RatingValue is a score on a 0..Max scale.
type RatingValue struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

// ChoiceValue is one option picked from a fixed list.
type ChoiceValue struct {
	Choice string `json:"choice"`
}

// CoordinateValue is a position on a field or map.
type CoordinateValue struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ComplexValue groups named sub-observations.
type ComplexValue struct {
	Fields map[string]ObservationValue `json:"-"`
}

func (BooleanValue) Kind() ObservationKind    { return ObservationBoolean }
func (CounterValue) Kind() ObservationKind    { return ObservationCounter }
func (RatingValue) Kind() ObservationKind     { return ObservationRating }
func (ChoiceValue) Kind() ObservationKind     { return ObservationChoice }
func (CoordinateValue) Kind() ObservationKind { return ObservationCoordinate }
func (ComplexValue) Kind() ObservationKind    { return ObservationComplex }

func (BooleanValue) isObservation()    {}
func (CounterValue) isObservation()    {}
func (RatingValue) isObservation()     {}
func (ChoiceValue) isObservation()     {}
func (CoordinateValue) isObservation() {}
func (ComplexValue) isObservation()    {}

type observationEnvelope struct {
	Kind  ObservationKind `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalObservation encodes a value with its kind discriminant.
func MarshalObservation(v ObservationValue) ([]byte, error) {
	var payload any
	switch val := v.(type) {
	case BooleanValue, CounterValue, RatingValue, ChoiceValue, CoordinateValue:
		payload = val
	case ComplexValue:
		fields := make(map[string]json.RawMessage, len(val.Fields))
		for name, field := range val.Fields {
			raw, err := MarshalObservation(field)
			if err != nil {
				return nil, err
			}
			fields[name] = raw
		}
		payload = fields
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownObservationKind, v)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(observationEnvelope{Kind: v.Kind(), Value: raw})
}

// UnmarshalObservation decodes a value written by MarshalObservation.
func UnmarshalObservation(data []byte) (ObservationValue, error) {
	var env observationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case ObservationBoolean:
		return decodeAs[BooleanValue](env.Value)
	case ObservationCounter:
		return decodeAs[CounterValue](env.Value)
	case ObservationRating:
		return decodeAs[RatingValue](env.Value)
	case ObservationChoice:
		return decodeAs[ChoiceValue](env.Value)
	case ObservationCoordinate:
		return decodeAs[CoordinateValue](env.Value)
	case ObservationComplex:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(env.Value, &raw); err != nil {
			return nil, err
		}
		out := ComplexValue{Fields: make(map[string]ObservationValue, len(raw))}
		for name, field := range raw {
			v, err := UnmarshalObservation(field)
			if err != nil {
				return nil, err
			}
			out.Fields[name] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownObservationKind, env.Kind)
	}
}

func decodeAs[T ObservationValue](raw json.RawMessage) (ObservationValue, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ObservationScore maps a value onto a numeric metric for reports.
func ObservationScore(v ObservationValue) float64 {
	switch val := v.(type) {
	case BooleanValue:
		if val.Value {
			return 1
		}
		return 0
	case CounterValue:
		return float64(val.Count)
	case RatingValue:
		return float64(val.Score)
	case ChoiceValue:
		return 0
	case CoordinateValue:
		return 0
	case ComplexValue:
		var sum float64
		for _, field := range val.Fields {
			sum += ObservationScore(field)
		}
		return sum
	default:
		return 0
	}
}
