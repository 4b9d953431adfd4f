package models

import (
	"encoding/json"
	"fmt"
)

// Observation is one raw monthly price record.
type Observation struct {
	Period      string  `json:"period"`
	Region      string  `json:"region"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Product     string  `json:"product"`
	Price       float64 `json:"price"`
}

// observationWire accepts both field spellings produced by the ingestion pipeline.
type observationWire struct {
	Period      *string  `json:"period"`
	Region      *string  `json:"region"`
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
	Product     *string  `json:"product"`
	Price       *float64 `json:"price"`

	Periodo      *string  `json:"periodo"`
	Regiao       *string  `json:"regiao"`
	Categoria    *string  `json:"categoria"`
	Subcategoria *string  `json:"subcategoria"`
	Produto      *string  `json:"produto"`
	Preco        *float64 `json:"preco"`
}

func (o *Observation) UnmarshalJSON(b []byte) error {
	var w observationWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode observation: %w", err)
	}
	*o = Observation{
		Period:      pick(w.Period, w.Periodo),
		Region:      pick(w.Region, w.Regiao),
		Category:    pick(w.Category, w.Categoria),
		Subcategory: pick(w.Subcategory, w.Subcategoria),
		Product:     pick(w.Product, w.Produto),
	}
	switch {
	case w.Price != nil:
		o.Price = *w.Price
	case w.Preco != nil:
		o.Price = *w.Preco
	}
	return nil
}

func pick(primary, alias *string) string {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return ""
}
