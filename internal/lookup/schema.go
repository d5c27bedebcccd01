package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the minimum shape of a product API answer we rely on.
var responseSchema = map[string]any{
	"type":     "object",
	"required": []any{"status"},
	"properties": map[string]any{
		"code":   map[string]any{"type": "string"},
		"status": map[string]any{"type": "integer"},
		"product": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"product_name":     map[string]any{"type": "string"},
				"brands":           map[string]any{"type": "string"},
				"ingredients_text": map[string]any{"type": "string"},
				"categories_tags":  stringArray,
				"allergens_tags":   stringArray,
				"additives_tags":   stringArray,
				"nutriments":       map[string]any{"type": "object"},
				"nutrient_levels":  map[string]any{"type": "object"},
			},
		},
	},
}

// ProductSchema describes an importable product document, the JSON form of
// entity.FoodProduct.
var ProductSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "nutritional_info"},
	"properties": map[string]any{
		"barcode":  map[string]any{"type": "string", "pattern": "^([0-9]{8}|[0-9]{12,14})$"},
		"name":     map[string]any{"type": "string", "minLength": 1},
		"brand":    map[string]any{"type": "string"},
		"category": map[string]any{"type": "string"},
		"species":  map[string]any{"type": "string"},
		"nutritional_info": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"calories_per_kg":      nonNegative,
				"calories_per_serving": nonNegative,
				"protein":              percent,
				"fat":                  percent,
				"fiber":                percent,
				"moisture":             percent,
				"ash":                  percent,
				"carbohydrates":        percent,
				"sodium":               percent,
				"calcium":              percent,
				"phosphorus":           percent,
				"ingredients":          stringArray,
				"allergens":            stringArray,
				"additives":            stringArray,
				"vitamins":             stringArray,
				"minerals":             stringArray,
				"nutrient_levels":      map[string]any{"type": "object"},
				"packaging":            map[string]any{"type": "object"},
				"manufacturing":        map[string]any{"type": "object"},
			},
		},
	},
}

var (
	stringArray = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	percent     = map[string]any{"type": "number", "minimum": 0, "maximum": 100}
	nonNegative = map[string]any{"type": "number", "minimum": 0}
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
