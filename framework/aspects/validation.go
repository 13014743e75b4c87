package aspects

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/km-arc/go-inject/framework/aspect"
)

// ValidateAnnotation carries parameter rules as attributes: parameter name to
// validator tag, e.g. aspect.Annotate("validate", "radius", "required,gt=0").
// Pipe rules such as "required|gt:0" are accepted too, see Tag.
// Struct parameters of an annotated method are also checked against their own
// `validate` field tags.
const ValidateAnnotation = "validate"

var ErrInvalidArgument = errors.New("invalid argument")

// ValidationError lists every broken rule of one call.
type ValidationError struct {
	Method   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("call %s: %v: %s", e.Method, ErrInvalidArgument, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

// Validation checks the parameters of annotated methods before the call
// proceeds.
type Validation struct {
	validate *validator.Validate
}

// NewValidation creates the handler. A nil validator gets a default one.
func NewValidation(v *validator.Validate) *Validation {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Validation{validate: v}
}

func (*Validation) Order() int { return OrderValidation }

func (*Validation) AppliesTo(m *aspect.RootMethod) bool { return m.HasAnnotation(ValidateAnnotation) }

func (v *Validation) Process(ctx *aspect.ExecutionContext) (any, error) {
	m := ctx.Method()
	a, _ := m.Annotation(ValidateAnnotation)
	params := ctx.Parameters()

	var problems []string

	names := make([]string, 0, len(a.Attributes))
	for name := range a.Attributes {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value, _ := params.Get(name)
		if err := v.check(value, Tag(a.Attributes[name])); err != nil {
			problems = append(problems, describe(name, err)...)
		}
	}

	for _, name := range params.Names() {
		value, _ := params.Get(name)
		if !isStruct(value) {
			continue
		}
		if err := v.validate.Struct(value); err != nil {
			problems = append(problems, describe(name, err)...)
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Method: m.FullName(), Problems: problems}
	}
	return ctx.Proceed()
}

// check runs one tag. The validator panics on undefined tags; that becomes
// an error naming the rule.
func (v *Validation) check(value any, tag string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rule %q: %v", tag, rec)
		}
	}()
	return v.validate.Var(value, tag)
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		if reflect.ValueOf(v).IsNil() {
			return false
		}
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func describe(param string, err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{fmt.Sprintf("%s: %v", param, err)}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := param
		if fe.Field() != "" {
			field = param + "." + fe.Field()
		}
		out = append(out, formatFieldError(field, fe))
	}
	return out
}

func formatFieldError(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}
