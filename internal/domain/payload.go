package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the kind-specific part of an activity. The set of implementations is closed.
type Payload interface {
	Kind() Kind
	payload()
}

// Feeding records a bottle or breast feed.
type Feeding struct {
	VolumeMl int    `json:"volume_ml"`
	Method   string `json:"method,omitempty"`
}

// Sleep carries no extra data; its interval lives on the activity itself.
type Sleep struct{}

// SolidFood records a meal.
type SolidFood struct {
	Amount string   `json:"amount,omitempty"`
	Items  []string `json:"items,omitempty"`
}

// Diaper records a diaper change.
type Diaper struct {
	Color       string `json:"color,omitempty"`
	Consistency string `json:"consistency,omitempty"`
}

// Other is a free-form event described only by its note.
type Other struct{}

func (Feeding) Kind() Kind   { return KindFeeding }
func (Sleep) Kind() Kind     { return KindSleep }
func (SolidFood) Kind() Kind { return KindSolidFood }
func (Diaper) Kind() Kind    { return KindDiaper }
func (Other) Kind() Kind     { return KindOther }

func (Feeding) payload()   {}
func (Sleep) payload()     {}
func (SolidFood) payload() {}
func (Diaper) payload()    {}
func (Other) payload()     {}

// UnmarshalJSON accepts items either as an array or as a string holding an encoded array,
// which is how older clients stored the food list.
func (s *SolidFood) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   string          `json:"amount"`
		Items    json.RawMessage `json:"items"`
		FoodType json.RawMessage `json:"food_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Amount = raw.Amount

	field := raw.Items
	if len(bytes.TrimSpace(field)) == 0 || bytes.Equal(bytes.TrimSpace(field), []byte("null")) {
		field = raw.FoodType
	}
	items, err := decodeItems(field)
	if err != nil {
		return err
	}
	s.Items = items
	return nil
}

func decodeItems(field json.RawMessage) ([]string, error) {
	field = bytes.TrimSpace(field)
	if len(field) == 0 || bytes.Equal(field, []byte("null")) {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(field, &list); err == nil {
		return compactItems(list), nil
	}

	var encoded string
	if err := json.Unmarshal(field, &encoded); err != nil {
		return nil, fmt.Errorf("%w: items must be a list of strings", ErrInvalidActivity)
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(encoded), &list); err == nil {
		return compactItems(list), nil
	}
	return []string{encoded}, nil
}

func compactItems(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DecodePayload turns the stored or submitted JSON for kind into its typed variant.
// An empty document yields the zero value of the variant.
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	empty := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	switch kind {
	case KindFeeding:
		var f Feeding
		if !empty {
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("%w: feeding payload: %v", ErrInvalidActivity, err)
			}
		}
		if f.VolumeMl < 0 {
			return nil, fmt.Errorf("%w: volume_ml must not be negative", ErrInvalidActivity)
		}
		return f, nil
	case KindSleep:
		return Sleep{}, nil
	case KindSolidFood:
		var s SolidFood
		if !empty {
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("%w: solid food payload: %v", ErrInvalidActivity, err)
			}
		}
		return s, nil
	case KindDiaper:
		var d Diaper
		if !empty {
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("%w: diaper payload: %v", ErrInvalidActivity, err)
			}
		}
		return d, nil
	case KindOther:
		return Other{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidActivity, kind)
	}
}

// EncodePayload renders a payload for storage. Variants without fields encode as an empty object.
func EncodePayload(p Payload) ([]byte, error) {
	switch v := p.(type) {
	case nil, Sleep, Other:
		return []byte("{}"), nil
	case Feeding, SolidFood, Diaper:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", ErrInvalidActivity, p)
	}
}
