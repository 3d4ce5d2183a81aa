package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mediwise-quiz-service/internal/domain"
)

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

type bankDocument struct {
	ID        string            `json:"id"`
	Questions []domain.Question `json:"questions"`
}

func (l *BankLoader) LoadBank(ctx context.Context, bankID string) (*domain.Bank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM banks WHERE id=$1`, bankID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	var doc bankDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal bank: %w", err)
	}
	if doc.ID == "" {
		doc.ID = bankID
	}
	bank, err := domain.NewBank(doc.ID, doc.Questions)
	if err != nil {
		return nil, fmt.Errorf("validate bank: %w", err)
	}
	return bank, nil
}
