package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
)

// JSONObservationSource streams a JSON array of observation objects from disk.
type JSONObservationSource struct {
	path string
}

func NewJSONObservationSource(path string) *JSONObservationSource {
	return &JSONObservationSource{path: path}
}

func (s *JSONObservationSource) Load(ctx context.Context) ([]models.Observation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domrepo.ErrInputNotFound, s.path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReaderSize(f, 1<<16))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("read %s: expected a JSON array", s.path)
	}

	out := make([]models.Observation, 0, 4096)
	for dec.More() {
		if len(out)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var o models.Observation
		if err := dec.Decode(&o); err != nil {
			return nil, fmt.Errorf("decode record %d of %s: %w", len(out), s.path, err)
		}
		out = append(out, o)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return out, nil
}
