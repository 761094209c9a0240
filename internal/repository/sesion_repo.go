package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cierrecaja/internal/sesion"

	"github.com/redis/go-redis/v9"
)

var ErrSesionNoEncontrada = errors.New("sesión no encontrada o expirada")

// SesionRepository keeps in-progress forms between requests.
type SesionRepository interface {
	Get(ctx context.Context, id string) (*sesion.Formulario, error)
	Save(ctx context.Context, f *sesion.Formulario) error
	Delete(ctx context.Context, id string) error
}

// ── Redis ────────────────────────────────────────────────────────────────────

// Sessions live as JSON under sesion:{id}; every save refreshes the TTL.
type redisSesionRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSesionRepository(rdb *redis.Client, ttl time.Duration) SesionRepository {
	return &redisSesionRepo{rdb: rdb, ttl: ttl}
}

func sesionKey(id string) string { return "sesion:" + id }

func (r *redisSesionRepo) Get(ctx context.Context, id string) (*sesion.Formulario, error) {
	raw, err := r.rdb.Get(ctx, sesionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSesionNoEncontrada
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamientoNoDisponible, err)
	}
	var f sesion.Formulario
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("sesión %s corrupta: %w", id, err)
	}
	return &f, nil
}

func (r *redisSesionRepo) Save(ctx context.Context, f *sesion.Formulario) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sesionKey(f.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAlmacenamientoNoDisponible, err)
	}
	return nil
}

func (r *redisSesionRepo) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, sesionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAlmacenamientoNoDisponible, err)
	}
	if n == 0 {
		return ErrSesionNoEncontrada
	}
	return nil
}

// ── In memory ────────────────────────────────────────────────────────────────

// memSesionRepo stores JSON copies so callers never share a Formulario.
// Used when REDIS_URL is empty and in tests.
type memSesionRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemSesionRepository() SesionRepository {
	return &memSesionRepo{items: map[string][]byte{}}
}

func (r *memSesionRepo) Get(_ context.Context, id string) (*sesion.Formulario, error) {
	r.mu.Lock()
	raw, ok := r.items[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSesionNoEncontrada
	}
	var f sesion.Formulario
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *memSesionRepo) Save(_ context.Context, f *sesion.Formulario) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.items[f.ID] = raw
	r.mu.Unlock()
	return nil
}

func (r *memSesionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrSesionNoEncontrada
	}
	delete(r.items, id)
	return nil
}
