package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// ArchivoStore keeps generated documents (closing PDFs).
type ArchivoStore interface {
	// Guardar writes data under nombre and returns where it ended up.
	Guardar(ctx context.Context, nombre, contentType string, data []byte) (string, error)
	Leer(ctx context.Context, nombre string) ([]byte, error)
}

var ErrArchivoNoEncontrado = errors.New("archivo no encontrado")

// ── Local directory ──────────────────────────────────────────────────────────

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore { return &LocalStore{dir: dir} }

func (s *LocalStore) Guardar(_ context.Context, nombre, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	path := filepath.Join(s.dir, filepath.Base(nombre))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return path, nil
}

func (s *LocalStore) Leer(_ context.Context, nombre string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(nombre)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArchivoNoEncontrado
	}
	return data, err
}

// ── Google Cloud Storage ─────────────────────────────────────────────────────

// GCSStore writes objects to one bucket. Credentials come from the
// environment (GOOGLE_APPLICATION_CREDENTIALS or the runtime service account).
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Guardar(ctx context.Context, nombre, contentType string, data []byte) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(nombre).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, nombre), nil
}

func (s *GCSStore) Leer(ctx context.Context, nombre string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(nombre).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrArchivoNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *GCSStore) Close() error { return s.client.Close() }
