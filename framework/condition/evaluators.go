package condition

import (
	"fmt"
	"sort"
	"strings"
)

// ProfileKey is the environment key holding the active profile.
const ProfileKey = "APP_ENV"

// ── Built-in evaluators ───────────────────────────────────────────────────────

type propertyEvaluator struct{}

// OnProperty matches on an environment property.
//
// Metadata:
//   - name:           property key (required)
//   - havingValue:    expected value, compared case-insensitively; when empty
//     any value other than "false" matches
//   - matchIfMissing: "true" to match when the property is absent
var OnProperty Evaluator = propertyEvaluator{}

func (propertyEvaluator) Evaluate(env Environment, meta Metadata) bool {
	name := meta.Get("name", "")
	if name == "" || env == nil {
		return false
	}
	v, ok := env.Lookup(name)
	if !ok {
		return meta.Get("matchIfMissing", "false") == "true"
	}
	want := meta.Get("havingValue", "")
	if want == "" {
		return !strings.EqualFold(v, "false")
	}
	return strings.EqualFold(v, want)
}

func (propertyEvaluator) String() string { return "onProperty" }

type missingPropertyEvaluator struct{}

// OnMissingProperty matches when the property named by metadata "name" is
// absent from the environment.
var OnMissingProperty Evaluator = missingPropertyEvaluator{}

func (missingPropertyEvaluator) Evaluate(env Environment, meta Metadata) bool {
	name := meta.Get("name", "")
	if name == "" {
		return false
	}
	if env == nil {
		return true
	}
	_, ok := env.Lookup(name)
	return !ok
}

func (missingPropertyEvaluator) String() string { return "onMissingProperty" }

type profileEvaluator struct{}

// OnProfile matches when the active profile is one of metadata "profiles"
// (comma separated). A profile prefixed with "!" matches when it is not active.
// The active profile is read from metadata "key" (default APP_ENV).
var OnProfile Evaluator = profileEvaluator{}

func (profileEvaluator) Evaluate(env Environment, meta Metadata) bool {
	active := ""
	if env != nil {
		active, _ = env.Lookup(meta.Get("key", ProfileKey))
	}
	for _, p := range strings.Split(meta.Get("profiles", ""), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			if !strings.EqualFold(neg, active) {
				return true
			}
			continue
		}
		if strings.EqualFold(p, active) {
			return true
		}
	}
	return false
}

func (profileEvaluator) String() string { return "onProfile" }

// ── Shorthands ────────────────────────────────────────────────────────────────

// Property matches when name equals value. An empty value matches any value
// other than "false".
func Property(name, value string) Condition {
	return Single(OnProperty, Metadata{"name": name, "havingValue": value})
}

// PropertyOrMissing is Property that also matches when name is absent.
func PropertyOrMissing(name, value string) Condition {
	return Single(OnProperty, Metadata{"name": name, "havingValue": value, "matchIfMissing": "true"})
}

// MissingProperty matches when name is absent.
func MissingProperty(name string) Condition {
	return Single(OnMissingProperty, Metadata{"name": name})
}

// Profile matches when one of profiles is active.
func Profile(profiles ...string) Condition {
	return Single(OnProfile, Metadata{"profiles": strings.Join(profiles, ",")})
}

// ── Formatting helpers ────────────────────────────────────────────────────────

func evaluatorName(e Evaluator) string {
	if s, ok := e.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", e)
}

func formatMeta(meta Metadata) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + meta[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
