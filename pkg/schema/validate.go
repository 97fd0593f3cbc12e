package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/warp/pkg/domain"
)

// Schema is a map of param names to their expected types.
type Schema map[string]Type

// MarshalJSON describes the schema as param names mapped to type strings.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	described := make(map[string]string, len(s))
	for name, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("param %s: type is nil", name)
		}
		described[name] = typ.Name()
	}
	return json.Marshal(described)
}

// Fields returns the param names in sorted order.
func (s Schema) Fields() []string {
	fields := make([]string, 0, len(s))
	for name := range s {
		fields = append(fields, name)
	}
	slices.Sort(fields)
	return fields
}

// Validate checks data against the schema and reports every failure at once,
// in param name order. Each failure is a *domain.ValidationError.
// Keys of data the schema does not declare are allowed.
func Validate(schema Schema, data map[string]any) error {
	var errs []error
	for _, field := range schema.Fields() {
		typ := schema[field]
		value, exists := data[field]
		if !exists || value == nil {
			if _, optional := typ.(*OptionalType); !optional {
				errs = append(errs, domain.NewValidationError(field, "required"))
			}
			continue
		}

		if err := typ.Validate(value); err != nil {
			verr := domain.NewValidationError(field, err.Error())
			verr.Err = err
			errs = append(errs, verr)
		}
	}
	return errors.Join(errs...)
}

// ValidationErrors returns the individual failures reported by Validate.
func ValidationErrors(err error) []*domain.ValidationError {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []*domain.ValidationError
		for _, e := range joined.Unwrap() {
			var verr *domain.ValidationError
			if errors.As(e, &verr) {
				out = append(out, verr)
			}
		}
		return out
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return []*domain.ValidationError{verr}
	}
	return nil
}
