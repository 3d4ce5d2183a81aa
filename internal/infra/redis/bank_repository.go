package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mediwise-quiz-service/internal/domain"
)

// BankLoader fetches question bank content from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (*domain.Bank, error)
}

// bankDocument is the cache wire form of a bank; content re-passes NewBank
// validation when read back, so a poisoned cache entry cannot smuggle
// malformed questions into a session.
type bankDocument struct {
	ID        string            `json:"id"`
	Questions []domain.Question `json:"questions"`
}

// BankRepository caches bank JSON in Redis (key per bank) and falls back to a
// loader on cache miss. Stored as: SET bank:{bankID} {json} EX ttl
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (*domain.Bank, error) {
	key := r.bankKey(bankID)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil && len(raw) > 0 {
		if bank, err := bankFromCache(raw); err == nil {
			return bank, nil
		}
		// fall through to reload on a corrupt entry
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Bytes()
		if err == nil && len(raw) > 0 {
			if bank, err := bankFromCache(raw); err == nil {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return nil, err
		}

		doc := bankDocument{ID: bank.ID(), Questions: bank.Questions()}
		if data, err := json.Marshal(doc); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Bank), nil
}

func (r *BankRepository) bankKey(bankID string) string {
	return "bank:" + bankID
}

func bankFromCache(raw []byte) (*domain.Bank, error) {
	var doc bankDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return domain.NewBank(doc.ID, doc.Questions)
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
