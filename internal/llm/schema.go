// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

const formatInstructionsTmpl = `The output must be a single JSON object that conforms to the JSON schema below.
Do not include any text outside the JSON object.

` + "```json\n%s\n```"

var schemaCache sync.Map // reflect.Type -> string

// FormatInstructions returns the response-format paragraph for T: the JSON
// schema reflected from T's json and jsonschema struct tags.
func FormatInstructions[T any]() (string, error) {
	typ := reflect.TypeFor[T]()
	if cached, ok := schemaCache.Load(typ); ok {
		return cached.(string), nil
	}

	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero T
	schema := r.Reflect(&zero)
	schema.Version = ""
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling schema for %s: %w", typ, err)
	}

	text := fmt.Sprintf(formatInstructionsTmpl, data)
	schemaCache.Store(typ, text)
	return text, nil
}

// decode parses raw model text into T, then validates struct tags and runs
// the extra checks. Every failure wraps ErrInvalidOutput.
func decode[T any](raw string, v *validator.Validate, checks []func(T) error) (T, error) {
	var out T
	body := extractJSON(raw)
	if body == "" {
		return out, fmt.Errorf("%w: no JSON object in response", ErrInvalidOutput)
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if err := v.Struct(out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	for _, check := range checks {
		if err := check(out); err != nil {
			return out, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
		}
	}
	return out, nil
}

// extractJSON returns the outermost JSON object in s, ignoring Markdown code
// fences and any prose around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
