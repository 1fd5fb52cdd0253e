package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

type ExchangeRepo struct {
	pool *pgxpool.Pool
}

func NewExchangeRepo(pool *pgxpool.Pool) *ExchangeRepo {
	return &ExchangeRepo{pool: pool}
}

func (r *ExchangeRepo) Insert(ctx context.Context, e *models.Exchange) error {
	query := `
		INSERT INTO tutor_exchanges (session_id, endpoint, language, level, user_text, tutor_text, tokens_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return r.pool.QueryRow(ctx, query,
		e.SessionID, e.Endpoint, e.Language, e.Level, e.UserText, e.TutorText, e.TokensUsed,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *ExchangeRepo) RecentBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Exchange, error) {
	query := `
		SELECT id, session_id, endpoint, language, level, user_text, tutor_text, tokens_used, created_at
		FROM tutor_exchanges
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []models.Exchange
	for rows.Next() {
		var e models.Exchange
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Endpoint, &e.Language, &e.Level,
			&e.UserText, &e.TutorText, &e.TokensUsed, &e.CreatedAt); err != nil {
			return nil, err
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

func (r *ExchangeRepo) TokensBySessionToday(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var tokens int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(tokens_used), 0)
		FROM tutor_exchanges
		WHERE session_id = $1
		  AND created_at >= date_trunc('day', NOW())
	`, sessionID).Scan(&tokens)
	return tokens, err
}
