package grpc

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// fields reads typed values out of a request document
type fields struct {
	s *structpb.Struct
}

func newFields(s *structpb.Struct) fields {
	if s == nil {
		s = &structpb.Struct{}
	}
	return fields{s: s}
}

func (f fields) value(key string) (*structpb.Value, bool) {
	v, ok := f.s.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (f fields) requiredString(key string) (string, error) {
	v, ok := f.value(key)
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || s.StringValue == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return s.StringValue, nil
}

func (f fields) optionalString(key string) string {
	v, ok := f.value(key)
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// int64 accepts a whole number or its decimal string form
func (f fields) int64(key string) (int64, error) {
	v, ok := f.value(key)
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
}

func (f fields) bool(key string) bool {
	v, ok := f.value(key)
	if !ok {
		return false
	}
	return v.GetBoolValue()
}

// decimal accepts a decimal string or a number. Strings are preferred since
// numbers travel as float64.
func (f fields) decimal(key string) (decimal.Decimal, error) {
	v, ok := f.value(key)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s is required", key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s format: %w", key, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, fmt.Errorf("%s must be a decimal string", key)
	}
}

func (f fields) date(key string) (time.Time, error) {
	s, err := f.requiredString(key)
	if err != nil {
		return time.Time{}, err
	}
	return domain.ParseDate(s)
}
