package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"PriceCast/internal/domain/models"
)

// EncodeDocument renders the document as compact JSON without HTML escaping.
// Map keys are sorted, so equal documents encode to equal bytes.
func EncodeDocument(doc *models.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// FileDocumentWriter writes the document atomically to a path.
type FileDocumentWriter struct {
	path string
}

func NewFileDocumentWriter(path string) *FileDocumentWriter {
	return &FileDocumentWriter{path: path}
}

func (w *FileDocumentWriter) Name() string { return "file" }

func (w *FileDocumentWriter) Path() string { return w.path }

func (w *FileDocumentWriter) Write(ctx context.Context, doc *models.Document) error {
	b, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	return w.WriteBytes(b)
}

// WriteBytes replaces the target file with b via a temp file and rename.
func (w *FileDocumentWriter) WriteBytes(b []byte) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(name, w.path); err != nil {
		cleanup()
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
