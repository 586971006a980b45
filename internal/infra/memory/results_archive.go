package memory

import (
	"context"
	"sync"

	"quiz-game-service/internal/domain"
)

// ResultsArchive keeps finished scoreboards in memory. It backs deployments
// without Redis; archived results live as long as the process.
type ResultsArchive struct {
	mu      sync.RWMutex
	results map[int64]domain.GameResults
}

func NewResultsArchive() *ResultsArchive {
	return &ResultsArchive{results: make(map[int64]domain.GameResults)}
}

func (a *ResultsArchive) ArchiveResults(_ context.Context, gameID int64, results domain.GameResults) error {
	a.mu.Lock()
	a.results[gameID] = results
	a.mu.Unlock()
	return nil
}

// Results reads an archived scoreboard back, if present.
func (a *ResultsArchive) Results(gameID int64) (domain.GameResults, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	results, ok := a.results[gameID]
	return results, ok
}
