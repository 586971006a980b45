package domain

import "time"

// GameState enumerates the states of a live game session.
type GameState string

const (
	StateLobby             GameState = "LOBBY"
	StateQuestionCountdown GameState = "QUESTION_COUNTDOWN"
	StateQuestionOpen      GameState = "QUESTION_OPEN"
	StateQuestionClose     GameState = "QUESTION_CLOSE"
	StateAnswerShow        GameState = "ANSWER_SHOW"
	StateFinalResults      GameState = "FINAL_RESULTS"
	StateEnd               GameState = "END"
)

// Action is a host command applied to a game session.
type Action int

const (
	ActionNextQuestion Action = iota
	ActionSkipCountdown
	ActionGoToAnswer
	ActionGoToFinalResults
	ActionEnd
)

var actionTokens = map[string]Action{
	"NEXT_QUESTION":       ActionNextQuestion,
	"SKIP_COUNTDOWN":      ActionSkipCountdown,
	"GO_TO_ANSWER":        ActionGoToAnswer,
	"GO_TO_FINAL_RESULTS": ActionGoToFinalResults,
	"END":                 ActionEnd,
}

// ParseAction converts a wire-level action token into an Action. Unrecognized
// tokens fail with ErrInvalidAction.
func ParseAction(token string) (Action, error) {
	action, ok := actionTokens[token]
	if !ok {
		return 0, ErrInvalidAction
	}
	return action, nil
}

func (a Action) String() string {
	for token, action := range actionTokens {
		if action == a {
			return token
		}
	}
	return "UNKNOWN"
}

const (
	// MaxActiveGames caps the games not in END state per quiz.
	MaxActiveGames = 10
	// MaxAutoStartNum caps the auto-start player threshold stored on a game.
	MaxAutoStartNum = 50
	// CountdownSeconds is the default length of the question countdown.
	CountdownSeconds = 3
)

// AnswerOption is one selectable option of a question.
type AnswerOption struct {
	AnswerID int64  `json:"answerId"`
	Answer   string `json:"answer"`
	Colour   string `json:"colour"`
	Correct  bool   `json:"correct"`
}

// Question is one timed, scored question of a quiz.
type Question struct {
	QuestionID    int64          `json:"questionId"`
	Question      string         `json:"question"`
	TimeLimit     int            `json:"timeLimit"` // seconds
	Points        int            `json:"points"`
	ThumbnailURL  string         `json:"thumbnailUrl"`
	AnswerOptions []AnswerOption `json:"answerOptions"`
}

// CorrectAnswerIDs returns the ids of the question's correct options.
func (q Question) CorrectAnswerIDs() []int64 {
	ids := make([]int64, 0, len(q.AnswerOptions))
	for _, opt := range q.AnswerOptions {
		if opt.Correct {
			ids = append(ids, opt.AnswerID)
		}
	}
	return ids
}

// QuizSnapshot is an immutable copy of a quiz taken when a game starts.
// Authoring changes to the live quiz never reach an already-started game.
type QuizSnapshot struct {
	QuizID       int64      `json:"quizId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	TimeLimit    int        `json:"timeLimit"`
	Questions    []Question `json:"questions"`
}

// NumQuestions returns the number of questions in the snapshot.
func (s QuizSnapshot) NumQuestions() int {
	return len(s.Questions)
}

// Clone returns a structural deep copy of the snapshot.
func (s QuizSnapshot) Clone() QuizSnapshot {
	out := s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		cq := q
		cq.AnswerOptions = make([]AnswerOption, len(q.AnswerOptions))
		copy(cq.AnswerOptions, q.AnswerOptions)
		out.Questions[i] = cq
	}
	return out
}

// Player is a joined game participant. Players are never removed once joined.
type Player struct {
	PlayerID   int64     `json:"playerId"`
	PlayerName string    `json:"playerName"`
	GameID     int64     `json:"gameId"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// PlayerAnswer is the stored submission of one player for one question position.
// At most one record exists per (player, position); resubmission replaces it.
type PlayerAnswer struct {
	PlayerID         int64     `json:"playerId"`
	QuestionPosition int       `json:"questionPosition"`
	AnswerIDs        []int64   `json:"answerIds"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// RankedPlayer is one row of the final scoreboard.
type RankedPlayer struct {
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// QuestionResult is the aggregate outcome of one question.
type QuestionResult struct {
	QuestionID        int64    `json:"questionId"`
	PlayersCorrect    []string `json:"playersCorrect"`
	AverageAnswerTime float64  `json:"averageAnswerTime"`
	PercentCorrect    float64  `json:"percentCorrect"`
}

// AnswerBreakdown lists, per answer option, the players who selected it and
// whose overall submission was fully correct.
type AnswerBreakdown struct {
	AnswerID       int64    `json:"answerId"`
	PlayersCorrect []string `json:"playersCorrect"`
}

// QuestionResultDetail is a QuestionResult extended with the per-option breakdown.
type QuestionResultDetail struct {
	QuestionID               int64             `json:"questionId"`
	PlayersCorrect           []string          `json:"playersCorrect"`
	AverageAnswerTime        float64           `json:"averageAnswerTime"`
	PercentCorrect           float64           `json:"percentCorrect"`
	QuestionCorrectBreakdown []AnswerBreakdown `json:"questionCorrectBreakdown"`
}

// GameResults is the final outcome of a finished game, always recomputed.
type GameResults struct {
	UsersRankedByScore []RankedPlayer   `json:"usersRankedByScore"`
	QuestionResults    []QuestionResult `json:"questionResults"`
}

// GameStatus is the host-facing view of a game.
type GameStatus struct {
	State      GameState    `json:"state"`
	AtQuestion int          `json:"atQuestion"`
	Players    []string     `json:"players"`
	Metadata   QuizSnapshot `json:"metadata"`
}

// PlayerStatus is the player-facing view of the game they joined.
type PlayerStatus struct {
	State        GameState `json:"state"`
	NumQuestions int       `json:"numQuestions"`
	AtQuestion   int       `json:"atQuestion"`
}

// OptionInfo is an answer option as shown to players (correctness hidden).
type OptionInfo struct {
	AnswerID int64  `json:"answerId"`
	Answer   string `json:"answer"`
	Colour   string `json:"colour"`
}

// QuestionInfo is the current question as shown to players.
type QuestionInfo struct {
	QuestionID    int64        `json:"questionId"`
	Question      string       `json:"question"`
	TimeLimit     int          `json:"timeLimit"`
	ThumbnailURL  string       `json:"thumbnailUrl"`
	Points        int          `json:"points"`
	AnswerOptions []OptionInfo `json:"answerOptions"`
}

// GameList partitions a quiz's games by liveness, each sorted ascending by id.
type GameList struct {
	ActiveGames   []int64 `json:"activeGames"`
	InactiveGames []int64 `json:"inactiveGames"`
}
