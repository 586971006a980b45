package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-game-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[int64]domain.QuizSnapshot{
			1: sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 42); !errors.Is(err, domain.ErrInvalidQuizID) {
		t.Fatalf("expected ErrInvalidQuizID, got %v", err)
	}
}

func TestQuizRepositoryInvalidateForcesReload(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[int64]domain.QuizSnapshot{
			1: sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	repo.Invalidate(1)
	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryClonesOnReturn(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[int64]domain.QuizSnapshot{
		1: sampleQuiz(),
	}), time.Minute)

	first, err := repo.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	first.Questions[0].Question = "MUTATED"

	second, err := repo.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if second.Questions[0].Question == "MUTATED" {
		t.Fatal("cached quiz shares memory with callers")
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizSnapshot, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.QuizSnapshot {
	return domain.QuizSnapshot{
		QuizID: 1,
		Name:   "arithmetic",
		Questions: []domain.Question{
			{
				QuestionID: 1,
				Question:   "What is 2 + 2?",
				TimeLimit:  20,
				Points:     5,
				AnswerOptions: []domain.AnswerOption{
					{AnswerID: 1, Answer: "3", Colour: "red"},
					{AnswerID: 2, Answer: "4", Colour: "blue", Correct: true},
				},
			},
		},
	}
}
