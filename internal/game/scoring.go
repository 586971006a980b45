package game

import (
	"math"
	"sort"
	"time"

	"quiz-game-service/internal/domain"
)

// answerCorrect reports whether the submitted id set exactly equals the
// correct id set. Partial credit is never given.
func answerCorrect(submitted, correct []int64) bool {
	if len(submitted) != len(correct) {
		return false
	}
	set := make(map[int64]bool, len(correct))
	for _, id := range correct {
		set[id] = true
	}
	for _, id := range submitted {
		if !set[id] {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PlayerScores sums question points over every question a player answered
// fully correctly. Players with no submission for a question score 0 for it.
func PlayerScores(quiz domain.QuizSnapshot, players []domain.Player, answersByPosition map[int][]domain.PlayerAnswer) map[int64]int {
	scores := make(map[int64]int, len(players))
	for _, p := range players {
		scores[p.PlayerID] = 0
	}
	for i, question := range quiz.Questions {
		position := i + 1
		correct := question.CorrectAnswerIDs()
		for _, answer := range answersByPosition[position] {
			if answerCorrect(answer.AnswerIDs, correct) {
				scores[answer.PlayerID] += question.Points
			}
		}
	}
	return scores
}

// QuestionStats computes the aggregate outcome of one question. Answer time is
// measured from the question entering QUESTION_OPEN to the submission;
// averages and percentages are rounded to two decimals, 0 with no respondents.
func QuestionStats(question domain.Question, players []domain.Player, answers []domain.PlayerAnswer, openedAt time.Time) domain.QuestionResult {
	correct := question.CorrectAnswerIDs()
	names := make(map[int64]string, len(players))
	for _, p := range players {
		names[p.PlayerID] = p.PlayerName
	}

	playersCorrect := []string{}
	var totalSeconds float64
	for _, answer := range answers {
		if answerCorrect(answer.AnswerIDs, correct) {
			playersCorrect = append(playersCorrect, names[answer.PlayerID])
		}
		elapsed := answer.SubmittedAt.Sub(openedAt).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		totalSeconds += elapsed
	}
	sort.Strings(playersCorrect)

	result := domain.QuestionResult{
		QuestionID:     question.QuestionID,
		PlayersCorrect: playersCorrect,
	}
	if len(answers) > 0 {
		result.AverageAnswerTime = round2(totalSeconds / float64(len(answers)))
		result.PercentCorrect = round2(100 * float64(len(playersCorrect)) / float64(len(answers)))
	}
	return result
}

// QuestionBreakdown lists, per answer option, the players who selected that
// option and whose overall submission was fully correct.
func QuestionBreakdown(question domain.Question, players []domain.Player, answers []domain.PlayerAnswer) []domain.AnswerBreakdown {
	correct := question.CorrectAnswerIDs()
	names := make(map[int64]string, len(players))
	for _, p := range players {
		names[p.PlayerID] = p.PlayerName
	}

	breakdown := make([]domain.AnswerBreakdown, len(question.AnswerOptions))
	for i, option := range question.AnswerOptions {
		selected := []string{}
		for _, answer := range answers {
			if !answerCorrect(answer.AnswerIDs, correct) {
				continue
			}
			for _, id := range answer.AnswerIDs {
				if id == option.AnswerID {
					selected = append(selected, names[answer.PlayerID])
					break
				}
			}
		}
		sort.Strings(selected)
		breakdown[i] = domain.AnswerBreakdown{AnswerID: option.AnswerID, PlayersCorrect: selected}
	}
	return breakdown
}

// FinalResults builds the ranked scoreboard and per-question results. Ranking
// is descending by score with ties broken by join order (stable).
func FinalResults(quiz domain.QuizSnapshot, players []domain.Player, answersByPosition map[int][]domain.PlayerAnswer, openedAt map[int]time.Time) domain.GameResults {
	scores := PlayerScores(quiz, players, answersByPosition)

	ranked := make([]domain.RankedPlayer, len(players))
	for i, p := range players {
		ranked[i] = domain.RankedPlayer{PlayerName: p.PlayerName, Score: scores[p.PlayerID]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	questionResults := make([]domain.QuestionResult, len(quiz.Questions))
	for i, question := range quiz.Questions {
		position := i + 1
		questionResults[i] = QuestionStats(question, players, answersByPosition[position], openedAt[position])
	}

	return domain.GameResults{
		UsersRankedByScore: ranked,
		QuestionResults:    questionResults,
	}
}
