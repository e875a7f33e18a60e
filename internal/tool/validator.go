package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ValidateInput checks if the JSON input matches the tool's parameter schema.
// This is a lightweight implementation of JSON Schema validation covering
// required, type, enum, items and nested objects.
func ValidateInput(schema map[string]interface{}, input json.RawMessage) error {
	var decoded interface{}
	if err := json.Unmarshal(input, &decoded); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if decoded == nil {
		decoded = map[string]interface{}{}
	}

	inputMap, ok := decoded.(map[string]interface{})
	if !ok {
		return fmt.Errorf("arguments must be a JSON object, got %s", jsonKind(decoded))
	}

	return validateObject("", schema, inputMap)
}

func validateObject(path string, schema map[string]interface{}, input map[string]interface{}) error {
	for _, fieldName := range requiredFields(schema) {
		if _, exists := input[fieldName]; !exists {
			return fmt.Errorf("missing required field: %s", joinPath(path, fieldName))
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	// Unknown fields are ignored.
	for key, value := range input {
		propSchema, ok := properties[key].(map[string]interface{})
		if !ok {
			continue
		}

		if err := validateValue(joinPath(path, key), propSchema, value); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(fieldName string, schema map[string]interface{}, value interface{}) error {
	if err := validateEnum(fieldName, schema, value); err != nil {
		return err
	}

	expectedType, ok := schema["type"].(string)
	if !ok {
		return nil
	}

	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' expected string, got %s", fieldName, jsonKind(value))
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' expected number, got %s", fieldName, jsonKind(value))
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("field '%s' expected integer, got %s", fieldName, jsonKind(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' expected boolean, got %s", fieldName, jsonKind(value))
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected array, got %s", fieldName, jsonKind(value))
		}
		if itemsSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateValue(fmt.Sprintf("%s[%d]", fieldName, i), itemsSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field '%s' expected object, got %s", fieldName, jsonKind(value))
		}
		return validateObject(fieldName, schema, obj)
	}

	return nil
}

func validateEnum(fieldName string, schema map[string]interface{}, value interface{}) error {
	var allowed []interface{}
	switch enum := schema["enum"].(type) {
	case []interface{}:
		allowed = enum
	case []string:
		for _, v := range enum {
			allowed = append(allowed, v)
		}
	default:
		return nil
	}

	for _, candidate := range allowed {
		if candidate == value {
			return nil
		}
	}

	options := make([]string, 0, len(allowed))
	for _, candidate := range allowed {
		options = append(options, fmt.Sprint(candidate))
	}
	return fmt.Errorf("field '%s' must be one of [%s], got %v", fieldName, strings.Join(options, ", "), value)
}

func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		out := make([]string, 0, len(required))
		for _, field := range required {
			if name, ok := field.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func jsonKind(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
