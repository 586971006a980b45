package game

import (
	"time"

	"quiz-game-service/internal/domain"
)

// Ledger stores at most one answer record per (player, question position).
// Resubmission replaces the prior record. The ledger is owned by a Session and
// shares its lock; it is not safe for direct concurrent use.
type Ledger struct {
	answers map[int64]map[int]domain.PlayerAnswer // playerID -> position -> record
}

func NewLedger() *Ledger {
	return &Ledger{answers: make(map[int64]map[int]domain.PlayerAnswer)}
}

// Submit validates answerIDs against the question and stores the record.
// Validation is complete before any mutation: a rejected submission leaves the
// ledger untouched.
func (l *Ledger) Submit(playerID int64, position int, answerIDs []int64, question domain.Question, now time.Time) error {
	if len(answerIDs) == 0 {
		return domain.ErrInvalidAnswerIDs
	}

	valid := make(map[int64]bool, len(question.AnswerOptions))
	for _, opt := range question.AnswerOptions {
		valid[opt.AnswerID] = true
	}

	seen := make(map[int64]bool, len(answerIDs))
	for _, id := range answerIDs {
		if id <= 0 {
			return domain.ErrInvalidAnswerIDs
		}
		if seen[id] {
			return domain.ErrInvalidAnswerIDs
		}
		seen[id] = true
		if !valid[id] {
			return domain.ErrInvalidAnswerIDs
		}
	}

	if len(question.CorrectAnswerIDs()) == 1 && len(answerIDs) > 1 {
		return domain.ErrInvalidAnswerIDs
	}

	byPosition, ok := l.answers[playerID]
	if !ok {
		byPosition = make(map[int]domain.PlayerAnswer)
		l.answers[playerID] = byPosition
	}
	ids := make([]int64, len(answerIDs))
	copy(ids, answerIDs)
	byPosition[position] = domain.PlayerAnswer{
		PlayerID:         playerID,
		QuestionPosition: position,
		AnswerIDs:        ids,
		SubmittedAt:      now,
	}
	return nil
}

// Answer returns the stored record for one (player, position), if any.
func (l *Ledger) Answer(playerID int64, position int) (domain.PlayerAnswer, bool) {
	record, ok := l.answers[playerID][position]
	return record, ok
}

// AnswersFor returns all records at a position whose player passes the
// membership filter, guarding against ids from other games.
func (l *Ledger) AnswersFor(position int, isMember func(int64) bool) []domain.PlayerAnswer {
	var out []domain.PlayerAnswer
	for playerID, byPosition := range l.answers {
		if !isMember(playerID) {
			continue
		}
		if record, ok := byPosition[position]; ok {
			out = append(out, record)
		}
	}
	return out
}
