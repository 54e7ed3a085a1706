package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "kasa:pref"

	// LastSectionKey şubede en son kullanılan bölüm ipucu
	LastSectionKey = "last_section"
)

// Store şube bazlı küçük tercih değerleri. Nil client ile hiçbir şey saklamaz.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func prefKey(key string, branchID uint) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, key, branchID)
}

// GetPref değer yoksa "" döner.
func (s *Store) GetPref(ctx context.Context, key string, branchID uint) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}
	v, err := s.client.Get(ctx, prefKey(key, branchID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("tercih okunamadı: %w", err)
	}
	return v, nil
}

func (s *Store) SetPref(ctx context.Context, key string, branchID uint, value string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Set(ctx, prefKey(key, branchID), value, 0).Err(); err != nil {
		return fmt.Errorf("tercih yazılamadı: %w", err)
	}
	return nil
}

// LastSection son kullanılan bölüm ipucu; yoksa 0.
func (s *Store) LastSection(ctx context.Context, branchID uint) (uint, error) {
	v, err := s.GetPref(ctx, LastSectionKey, branchID)
	if err != nil || v == "" {
		return 0, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		// Bozuk ipucu yok sayılır
		return 0, nil
	}
	return uint(id), nil
}

func (s *Store) RememberSection(ctx context.Context, branchID, sectionID uint) error {
	return s.SetPref(ctx, LastSectionKey, branchID, strconv.FormatUint(uint64(sectionID), 10))
}
