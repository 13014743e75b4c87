package aspects

import (
	"strings"
)

// Tag converts a pipe-separated rule string into a validator tag:
//
//	"required|gt:0|lte:100"   → "required,gt=0,lte=100"
//	"in:cm,mm,in"             → "oneof=cm mm in"
//	"between:2,10"            → "min=2,max=10"
//
// Strings already in validator syntax (no pipe, no colon) are returned as is.
func Tag(rule string) string {
	if !strings.ContainsAny(rule, "|:") {
		return rule
	}

	var tags []string
	for _, part := range strings.Split(rule, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, param, _ := strings.Cut(part, ":")
		tags = append(tags, translate(name, param)...)
	}
	return strings.Join(tags, ",")
}

func translate(name, param string) []string {
	switch name {
	case "nullable", "sometimes":
		return []string{"omitempty"}
	case "string":
		return nil
	case "integer":
		return []string{"number"}
	case "boolean":
		return []string{"boolean"}
	case "alpha_num":
		return []string{"alphanum"}
	case "size":
		return []string{"len=" + param}
	case "in":
		return []string{"oneof=" + strings.Join(splitList(param), " ")}
	case "not_in":
		var out []string
		for _, v := range splitList(param) {
			out = append(out, "ne="+v)
		}
		return out
	case "between":
		bounds := splitList(param)
		if len(bounds) != 2 {
			return []string{name}
		}
		return []string{"min=" + bounds[0], "max=" + bounds[1]}
	case "same":
		return []string{"eqfield=" + param}
	case "different":
		return []string{"nefield=" + param}
	}
	if param != "" {
		return []string{name + "=" + param}
	}
	return []string{name}
}
