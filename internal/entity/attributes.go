package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AttributeKind tags which field of an AttributeValue is meaningful.
type AttributeKind int

const (
	KindText AttributeKind = iota
	KindNumber
	KindLevel
	KindBool
)

// Level is a traffic-light grade used by nutrient level attributes.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// AttributeKey names a known extra attribute.
type AttributeKey string

// Nutrient level keys.
const (
	NutrientFat          AttributeKey = "fat"
	NutrientSaturatedFat AttributeKey = "saturated-fat"
	NutrientSugars       AttributeKey = "sugars"
	NutrientSalt         AttributeKey = "salt"
)

// Packaging keys.
const (
	PackagingMaterial    AttributeKey = "material"
	PackagingRecyclable  AttributeKey = "recyclable"
	PackagingNetWeightG  AttributeKey = "net_weight_g"
	PackagingServingSize AttributeKey = "serving_size"
)

// Manufacturing keys.
const (
	ManufacturingCountry  AttributeKey = "country"
	ManufacturingFacility AttributeKey = "facility"
	ManufacturingLot      AttributeKey = "lot"
)

var knownKinds = map[AttributeKey]AttributeKind{
	NutrientFat:           KindLevel,
	NutrientSaturatedFat:  KindLevel,
	NutrientSugars:        KindLevel,
	NutrientSalt:          KindLevel,
	PackagingMaterial:     KindText,
	PackagingRecyclable:   KindBool,
	PackagingNetWeightG:   KindNumber,
	PackagingServingSize:  KindText,
	ManufacturingCountry:  KindText,
	ManufacturingFacility: KindText,
	ManufacturingLot:      KindText,
}

// AttributeValue is a tagged union over the supported attribute payloads.
type AttributeValue struct {
	Kind   AttributeKind
	Text   string
	Number float64
	Level  Level
	Bool   bool
}

func (v AttributeValue) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindLevel:
		return string(v.Level)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// Attributes holds typed known attributes plus a residual map for keys this
// version does not know about.
type Attributes struct {
	Known map[AttributeKey]AttributeValue
	Extra map[string]string
}

// Set stores raw under key. Known keys are parsed into their declared kind;
// values that fail to parse, and unknown keys, land in Extra.
func (a *Attributes) Set(key, raw string) {
	key = strings.ToLower(strings.TrimSpace(key))
	raw = strings.TrimSpace(raw)
	if key == "" {
		return
	}
	if kind, ok := knownKinds[AttributeKey(key)]; ok {
		if v, ok := parseValue(kind, raw); ok {
			if a.Known == nil {
				a.Known = map[AttributeKey]AttributeValue{}
			}
			a.Known[AttributeKey(key)] = v
			return
		}
	}
	if a.Extra == nil {
		a.Extra = map[string]string{}
	}
	a.Extra[key] = raw
}

// Get returns the typed value of a known key.
func (a Attributes) Get(key AttributeKey) (AttributeValue, bool) {
	v, ok := a.Known[key]
	return v, ok
}

func (a Attributes) Len() int { return len(a.Known) + len(a.Extra) }

// Flatten renders all attributes as strings, sorted by key.
func (a Attributes) Flatten() []string {
	out := make([]string, 0, a.Len())
	for k, v := range a.Known {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	for k, v := range a.Extra {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func parseValue(kind AttributeKind, raw string) (AttributeValue, bool) {
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return AttributeValue{}, false
		}
		return AttributeValue{Kind: KindNumber, Number: f}, true
	case KindLevel:
		switch l := Level(strings.ToLower(raw)); l {
		case LevelLow, LevelModerate, LevelHigh:
			return AttributeValue{Kind: KindLevel, Level: l}, true
		}
		return AttributeValue{}, false
	case KindBool:
		switch strings.ToLower(raw) {
		case "true", "yes", "1":
			return AttributeValue{Kind: KindBool, Bool: true}, true
		case "false", "no", "0":
			return AttributeValue{Kind: KindBool, Bool: false}, true
		}
		return AttributeValue{}, false
	default:
		return AttributeValue{Kind: KindText, Text: raw}, true
	}
}

// MarshalJSON writes a flat object; known values keep their JSON type.
func (a Attributes) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, a.Len())
	for k, v := range a.Extra {
		m[k] = v
	}
	for k, v := range a.Known {
		switch v.Kind {
		case KindNumber:
			m[string(k)] = v.Number
		case KindBool:
			m[string(k)] = v.Bool
		default:
			m[string(k)] = v.String()
		}
	}
	return json.Marshal(m)
}

func (a *Attributes) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*a = Attributes{}
	for k, v := range m {
		switch t := v.(type) {
		case string:
			a.Set(k, t)
		case float64:
			a.Set(k, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			a.Set(k, strconv.FormatBool(t))
		case nil:
		default:
			raw, _ := json.Marshal(t)
			a.Set(k, string(raw))
		}
	}
	return nil
}
