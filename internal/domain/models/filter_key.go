package models

import (
	"fmt"
	"strings"
)

// Wildcard is the serialized form of an unconstrained key field.
const Wildcard = "*"

var keyFields = [...]string{"year", "region", "category", "subcategory", "product"}

// FilterKey identifies one series in the hierarchy. An empty field is a wildcard.
// Year is always a wildcard here but stays part of the serialized form.
type FilterKey struct {
	Region      string
	Category    string
	Subcategory string
	Product     string
}

func (k FilterKey) values() [5]string {
	return [5]string{"", k.Region, k.Category, k.Subcategory, k.Product}
}

// String renders year=*|region=R|category=C|subcategory=S|product=P.
func (k FilterKey) String() string {
	var sb strings.Builder
	for i, v := range k.values() {
		if i > 0 {
			sb.WriteByte('|')
		}
		if v == "" {
			v = Wildcard
		}
		sb.WriteString(keyFields[i])
		sb.WriteByte('=')
		sb.WriteString(v)
	}
	return sb.String()
}

// ParseFilterKey is the inverse of FilterKey.String.
func ParseFilterKey(s string) (FilterKey, error) {
	parts := strings.SplitN(s, "|", len(keyFields))
	if len(parts) != len(keyFields) {
		return FilterKey{}, fmt.Errorf("malformed series key %q", s)
	}
	var vals [5]string
	for i, p := range parts {
		name, v, ok := strings.Cut(p, "=")
		if !ok || name != keyFields[i] {
			return FilterKey{}, fmt.Errorf("malformed series key %q: expected field %s", s, keyFields[i])
		}
		if v != Wildcard {
			vals[i] = v
		}
	}
	return FilterKey{Region: vals[1], Category: vals[2], Subcategory: vals[3], Product: vals[4]}, nil
}

// Filters exposes the key as nullable fields. Wildcards encode as JSON null.
func (k FilterKey) Filters() Filters {
	return Filters{
		Region:      nullable(k.Region),
		Category:    nullable(k.Category),
		Subcategory: nullable(k.Subcategory),
		Product:     nullable(k.Product),
	}
}

type Filters struct {
	Year        *string `json:"year"`
	Region      *string `json:"region"`
	Category    *string `json:"category"`
	Subcategory *string `json:"subcategory"`
	Product     *string `json:"product"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
