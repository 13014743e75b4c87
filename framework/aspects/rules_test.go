package aspects_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/aspect"
	"github.com/km-arc/go-inject/framework/aspects"
)

func TestTag(t *testing.T) {
	tests := []struct {
		rule string
		want string
	}{
		{"required,gt=0", "required,gt=0"},
		{"required|gt:0|lte:100", "required,gt=0,lte=100"},
		{"nullable|email", "omitempty,email"},
		{"string|min:2|max:100", "min=2,max=100"},
		{"in:cm, mm ,in", "oneof=cm mm in"},
		{"not_in:ft,yd", "ne=ft,ne=yd"},
		{"between:2,10", "min=2,max=10"},
		{"integer|size:3", "number,len=3"},
		{"alpha_num|same:Other", "alphanum,eqfield=Other"},
		{"required||", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			assert.Equal(t, tt.want, aspects.Tag(tt.rule))
		})
	}
}

func TestValidation_PipeRulesAndUndefinedTags(t *testing.T) {
	unit := aspect.NewRootMethod("Unit", func(*aspect.ExecutionContext) (any, error) {
		return "ok", nil
	}, aspect.Annotate(aspects.ValidateAnnotation, "unit", "required|in:cm,mm"))
	chain := chainOf(t, unit, aspects.NewValidation(nil))

	_, err := chain.Execute(aspect.NewParameters().With("unit", "cm"))
	require.NoError(t, err)

	_, err = chain.Execute(aspect.NewParameters().With("unit", "ft"))
	assert.ErrorContains(t, err, "unit must be one of: cm mm")

	odd := aspect.NewRootMethod("Odd", func(*aspect.ExecutionContext) (any, error) {
		return nil, nil
	}, aspect.Annotate(aspects.ValidateAnnotation, "x", "confirmed"))
	_, err = chainOf(t, odd, aspects.NewValidation(nil)).Execute(aspect.NewParameters().With("x", "1"))
	require.ErrorIs(t, err, aspects.ErrInvalidArgument)
	assert.ErrorContains(t, err, `rule "confirmed"`)
}
