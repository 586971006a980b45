package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-game-service/internal/domain"
)

// ResultsArchive persists final game results in Redis so dashboards can read
// finished scoreboards without touching the live engine.
// Key layout: SET game:{gameID}:results {json}.
type ResultsArchive struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultsArchive(client *redis.Client, ttl time.Duration) *ResultsArchive {
	return &ResultsArchive{client: client, ttl: ttl}
}

func (a *ResultsArchive) ArchiveResults(ctx context.Context, gameID int64, results domain.GameResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return a.client.Set(ctx, resultsKey(gameID), data, a.ttl).Err()
}

// Results reads an archived scoreboard back, if present.
func (a *ResultsArchive) Results(ctx context.Context, gameID int64) (domain.GameResults, bool, error) {
	data, err := a.client.Get(ctx, resultsKey(gameID)).Bytes()
	if err == redis.Nil {
		return domain.GameResults{}, false, nil
	}
	if err != nil {
		return domain.GameResults{}, false, err
	}
	var results domain.GameResults
	if err := json.Unmarshal(data, &results); err != nil {
		return domain.GameResults{}, false, fmt.Errorf("unmarshal results: %w", err)
	}
	return results, true, nil
}

func resultsKey(gameID int64) string {
	return "game:" + strconv.FormatInt(gameID, 10) + ":results"
}
