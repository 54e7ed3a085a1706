package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kasa-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// PinStore kullanıcının şubedeki oturumunda seçtiği (sabitlediği) vardiyayı tutar.
// Her (kullanıcı, şube) anahtarının tek yazarı o kullanıcının oturumudur.
type PinStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPinStore(client *redis.Client, ttl time.Duration) *PinStore {
	return &PinStore{client: client, ttl: ttl}
}

func pinKey(userID, branchID uint) string {
	return fmt.Sprintf("kasa:pin:%d:%d", userID, branchID)
}

// Load sabitlenmiş vardiya anlık görüntüsünü döner; yoksa nil.
func (p *PinStore) Load(ctx context.Context, userID, branchID uint) (*models.Shift, error) {
	if p == nil || p.client == nil {
		return nil, nil
	}
	raw, err := p.client.Get(ctx, pinKey(userID, branchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sabit vardiya okunamadı: %w", err)
	}
	var sh models.Shift
	if err := json.Unmarshal(raw, &sh); err != nil {
		// Bozuk kayıt temizlenir
		_ = p.client.Del(ctx, pinKey(userID, branchID)).Err()
		return nil, nil
	}
	return &sh, nil
}

func (p *PinStore) Save(ctx context.Context, userID uint, sh models.Shift) error {
	if p == nil || p.client == nil {
		return nil
	}
	raw, err := json.Marshal(sh)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, pinKey(userID, sh.BranchID), raw, p.ttl).Err(); err != nil {
		return fmt.Errorf("vardiya sabitlenemedi: %w", err)
	}
	return nil
}

func (p *PinStore) Clear(ctx context.Context, userID, branchID uint) error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Del(ctx, pinKey(userID, branchID)).Err()
}
