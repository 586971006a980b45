package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-game-service/internal/domain"
)

func TestResultsArchiveRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	archive := NewResultsArchive(newClient(mr), time.Minute)

	results := domain.GameResults{
		UsersRankedByScore: []domain.RankedPlayer{
			{PlayerName: "Alice", Score: 15},
			{PlayerName: "Bob", Score: 5},
		},
		QuestionResults: []domain.QuestionResult{
			{QuestionID: 1, PlayersCorrect: []string{"Alice"}, AverageAnswerTime: 2.5, PercentCorrect: 50},
		},
	}

	if err := archive.ArchiveResults(context.Background(), 3, results); err != nil {
		t.Fatalf("archive: %v", err)
	}

	stored, found, err := archive.Results(context.Background(), 3)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if !found {
		t.Fatal("expected archived results")
	}
	if len(stored.UsersRankedByScore) != 2 || stored.UsersRankedByScore[0].PlayerName != "Alice" {
		t.Fatalf("unexpected scoreboard: %+v", stored.UsersRankedByScore)
	}
	if stored.QuestionResults[0].PercentCorrect != 50 {
		t.Fatalf("unexpected question results: %+v", stored.QuestionResults)
	}
}

func TestResultsArchiveMissingGame(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	archive := NewResultsArchive(newClient(mr), time.Minute)

	_, found, err := archive.Results(context.Background(), 999)
	if err != nil {
		t.Fatalf("read missing: %v", err)
	}
	if found {
		t.Fatal("found results that were never archived")
	}
}
