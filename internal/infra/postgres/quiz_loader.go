package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-game-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizSnapshot, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSnapshot{}, domain.ErrInvalidQuizID
	}
	if err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.QuizSnapshot
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.QuizID = quizID
	return quiz, nil
}
