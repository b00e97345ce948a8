package relic

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validator for strict parameter checks. Instances cache tag
// parsing, so the package keeps a single one.
var validate = validator.New()

// checkConstraints enforces declared bounds and enum membership on a
// coerced value. Bounds apply to numeric values only; enum membership
// compares string forms, elementwise for arrays. Constraints the
// operation cannot resolve (no enum source, unknown enum name) pass.
func checkConstraints(p ParamSpec, value any, enums EnumResolver) error {
	if p.Min != nil || p.Max != nil {
		if err := checkBounds(p, value); err != nil {
			return err
		}
	}
	if p.Enum != "" {
		if err := checkEnum(p, value, enums); err != nil {
			return err
		}
	}
	return nil
}

func checkBounds(p ParamSpec, value any) error {
	var tags []string
	if p.Min != nil {
		tags = append(tags, fmt.Sprintf("gte=%v", *p.Min))
	}
	if p.Max != nil {
		tags = append(tags, fmt.Sprintf("lte=%v", *p.Max))
	}
	tag := strings.Join(tags, ",")

	// Integers check as floats so fractional bounds stay valid tag
	// parameters.
	switch v := value.(type) {
	case int64:
		if err := validate.Var(float64(v), tag); err != nil {
			return boundsError(p)
		}
	case float64:
		if err := validate.Var(v, tag); err != nil {
			return boundsError(p)
		}
	}
	return nil
}

func boundsError(p ParamSpec) error {
	switch {
	case p.Min != nil && p.Max != nil:
		return fmt.Errorf("must be between %v and %v", *p.Min, *p.Max)
	case p.Min != nil:
		return fmt.Errorf("must be at least %v", *p.Min)
	default:
		return fmt.Errorf("must be at most %v", *p.Max)
	}
}

func checkEnum(p ParamSpec, value any, enums EnumResolver) error {
	if enums == nil {
		return nil
	}
	allowed := enums.ResolveEnum(p.Enum)
	if len(allowed) == 0 {
		return nil
	}
	if elems, ok := value.([]any); ok {
		for _, e := range elems {
			if err := checkEnum(p, e, enums); err != nil {
				return err
			}
		}
		return nil
	}
	s := stringify(value)
	for _, a := range allowed {
		if a == s {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
}

func stringify(value any) string {
	s, _ := asString(value)
	return s.(string)
}
