package game

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"quiz-game-service/internal/domain"
)

var playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// StateUpdate is pushed to subscribers whenever a session transitions, whether
// the transition was host-issued or timer-driven. Observers cannot tell the
// two apart.
type StateUpdate struct {
	GameID     int64            `json:"gameId"`
	State      domain.GameState `json:"state"`
	AtQuestion int              `json:"atQuestion"`
}

// Session is the state machine for one live game. All mutations are serialized
// behind the session mutex; different sessions never block each other.
type Session struct {
	mu    sync.Mutex
	sched Scheduler
	now   func() time.Time
	rnd   *rand.Rand

	gameID       int64
	quiz         domain.QuizSnapshot
	autoStartNum int
	countdown    time.Duration

	state      domain.GameState
	atQuestion int
	players    []domain.Player
	ledger     *Ledger

	// Pending timer handles, at most one of each kind. Zero means none. A
	// firing callback must match the stored handle or it is stale and applies
	// nothing.
	countdownTimer TimerID
	questionTimer  TimerID

	// When each question position entered QUESTION_OPEN; feeds answer times.
	openedAt map[int]time.Time

	subscribers map[chan StateUpdate]struct{}
}

func newSession(gameID int64, quiz domain.QuizSnapshot, autoStartNum int, sched Scheduler, countdown time.Duration, now func() time.Time) *Session {
	return &Session{
		sched:        sched,
		now:          now,
		rnd:          rand.New(rand.NewSource(now().UnixNano() + gameID)),
		gameID:       gameID,
		quiz:         quiz,
		autoStartNum: autoStartNum,
		countdown:    countdown,
		state:        domain.StateLobby,
		atQuestion:   1,
		ledger:       NewLedger(),
		openedAt:     make(map[int]time.Time),
		subscribers:  make(map[chan StateUpdate]struct{}),
	}
}

// GameID returns the session's game id.
func (s *Session) GameID() int64 { return s.gameID }

// QuizID returns the id of the quiz snapshot the session runs on.
func (s *Session) QuizID() int64 { return s.quiz.QuizID }

// Quiz returns the frozen quiz snapshot. Callers must treat it as read-only.
func (s *Session) Quiz() domain.QuizSnapshot { return s.quiz }

// State returns the current game state.
func (s *Session) State() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the host-facing view of the session.
func (s *Session) Status() domain.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.players))
	for i, p := range s.players {
		names[i] = p.PlayerName
	}
	return domain.GameStatus{
		State:      s.state,
		AtQuestion: s.atQuestion,
		Players:    names,
		Metadata:   s.quiz,
	}
}

// PlayerStatus returns the player-facing view of the session.
func (s *Session) PlayerStatus() domain.PlayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PlayerStatus{
		State:        s.state,
		NumQuestions: s.quiz.NumQuestions(),
		AtQuestion:   s.atQuestion,
	}
}

// Apply runs one host action against the state machine. Actions not allowed in
// the current state fail with ErrIncompatibleGameState and mutate nothing.
func (s *Session) Apply(action domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateLobby:
		switch action {
		case domain.ActionNextQuestion:
			s.startCountdownLocked()
		case domain.ActionEnd:
			s.endLocked()
		default:
			return domain.ErrIncompatibleGameState
		}
	case domain.StateQuestionCountdown:
		switch action {
		case domain.ActionSkipCountdown:
			s.cancelCountdownLocked()
			s.openQuestionLocked()
		case domain.ActionEnd:
			s.endLocked()
		default:
			return domain.ErrIncompatibleGameState
		}
	case domain.StateQuestionOpen:
		switch action {
		case domain.ActionGoToAnswer:
			s.cancelQuestionTimerLocked()
			s.state = domain.StateAnswerShow
		case domain.ActionEnd:
			s.endLocked()
		default:
			return domain.ErrIncompatibleGameState
		}
	case domain.StateQuestionClose:
		switch action {
		case domain.ActionGoToAnswer:
			s.state = domain.StateAnswerShow
		case domain.ActionGoToFinalResults:
			s.state = domain.StateFinalResults
		case domain.ActionNextQuestion:
			s.advanceLocked()
		case domain.ActionEnd:
			s.endLocked()
		default:
			return domain.ErrIncompatibleGameState
		}
	case domain.StateAnswerShow:
		switch action {
		case domain.ActionNextQuestion:
			s.advanceLocked()
		case domain.ActionGoToFinalResults:
			s.state = domain.StateFinalResults
		case domain.ActionEnd:
			s.endLocked()
		default:
			return domain.ErrIncompatibleGameState
		}
	case domain.StateFinalResults:
		switch action {
		case domain.ActionEnd:
			s.endLocked()
		default:
			return domain.ErrIncompatibleGameState
		}
	default: // END is terminal
		return domain.ErrIncompatibleGameState
	}

	s.broadcastLocked()
	return nil
}

// startCountdownLocked arms the countdown timer; its expiry opens the question.
func (s *Session) startCountdownLocked() {
	s.state = domain.StateQuestionCountdown
	s.countdownTimer = s.sched.Schedule(s.countdown, s.onCountdownFired)
}

// advanceLocked implements the advance-or-finish rule for NEXT_QUESTION.
func (s *Session) advanceLocked() {
	if s.atQuestion >= s.quiz.NumQuestions() {
		s.state = domain.StateFinalResults
		return
	}
	s.atQuestion++
	s.startCountdownLocked()
}

// openQuestionLocked enters QUESTION_OPEN and arms the question timer for the
// current question's time limit.
func (s *Session) openQuestionLocked() {
	s.state = domain.StateQuestionOpen
	s.openedAt[s.atQuestion] = s.now()
	limit := time.Duration(s.quiz.Questions[s.atQuestion-1].TimeLimit) * time.Second
	s.questionTimer = s.sched.Schedule(limit, s.onQuestionTimerFired)
}

func (s *Session) endLocked() {
	s.cancelCountdownLocked()
	s.cancelQuestionTimerLocked()
	s.state = domain.StateEnd
}

func (s *Session) cancelCountdownLocked() {
	if s.countdownTimer != 0 {
		s.sched.Cancel(s.countdownTimer)
		s.countdownTimer = 0
	}
}

func (s *Session) cancelQuestionTimerLocked() {
	if s.questionTimer != 0 {
		s.sched.Cancel(s.questionTimer)
		s.questionTimer = 0
	}
}

// onCountdownFired is the autonomous countdown expiry. A fire whose handle no
// longer matches the pending one lost a race with Cancel and applies nothing.
func (s *Session) onCountdownFired(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateQuestionCountdown || id != s.countdownTimer {
		return
	}
	s.countdownTimer = 0
	s.openQuestionLocked()
	s.broadcastLocked()
}

// onQuestionTimerFired is the autonomous question-time expiry.
func (s *Session) onQuestionTimerFired(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateQuestionOpen || id != s.questionTimer {
		return
	}
	s.questionTimer = 0
	s.state = domain.StateQuestionClose
	s.broadcastLocked()
}

// Join adds a player to the lobby. A blank name gets a generated unique one;
// otherwise the name must be alphanumeric-plus-spaces and unique in this game.
func (s *Session) Join(playerID int64, playerName string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return domain.Player{}, domain.ErrIncompatibleGameState
	}

	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		playerName = s.generateNameLocked()
	}
	if !playerNamePattern.MatchString(playerName) {
		return domain.Player{}, domain.ErrInvalidPlayerName
	}
	for _, p := range s.players {
		if p.PlayerName == playerName {
			return domain.Player{}, domain.ErrInvalidPlayerName
		}
	}

	player := domain.Player{
		PlayerID:   playerID,
		PlayerName: playerName,
		GameID:     s.gameID,
		JoinedAt:   s.now(),
	}
	s.players = append(s.players, player)
	return player, nil
}

// generateNameLocked builds a 5-distinct-letter + 3-distinct-digit name,
// retrying until it is unique among current players.
func (s *Session) generateNameLocked() string {
	for {
		name := randomPlayerName(s.rnd)
		taken := false
		for _, p := range s.players {
			if p.PlayerName == name {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
	}
}

func randomPlayerName(rnd *rand.Rand) string {
	pickDistinct := func(alphabet string, n int) string {
		out := make([]byte, 0, n)
		used := make(map[byte]bool)
		for len(out) < n {
			c := alphabet[rnd.Intn(len(alphabet))]
			if used[c] {
				continue
			}
			used[c] = true
			out = append(out, c)
		}
		return string(out)
	}
	return pickDistinct("abcdefghijklmnopqrstuvwxyz", 5) + pickDistinct("0123456789", 3)
}

// hasPlayer reports membership by player id.
func (s *Session) hasPlayerLocked(playerID int64) bool {
	for _, p := range s.players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// SubmitAnswer validates and stores one player's answer for the current
// question. All checks run before any mutation.
func (s *Session) SubmitAnswer(playerID int64, position int, answerIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 1 || position > s.quiz.NumQuestions() || position != s.atQuestion {
		return domain.ErrInvalidPosition
	}
	if s.state != domain.StateQuestionOpen {
		return domain.ErrIncompatibleGameState
	}
	question := s.quiz.Questions[position-1]
	return s.ledger.Submit(playerID, position, answerIDs, question, s.now())
}

// QuestionInfo returns the question as shown to players. Only available while
// the game is on a question-facing state.
func (s *Session) QuestionInfo(position int) (domain.QuestionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateQuestionOpen, domain.StateQuestionClose, domain.StateAnswerShow:
	default:
		return domain.QuestionInfo{}, domain.ErrIncompatibleGameState
	}
	if position < 1 || position > s.quiz.NumQuestions() || position != s.atQuestion {
		return domain.QuestionInfo{}, domain.ErrInvalidPosition
	}

	q := s.quiz.Questions[position-1]
	options := make([]domain.OptionInfo, len(q.AnswerOptions))
	for i, opt := range q.AnswerOptions {
		options[i] = domain.OptionInfo{AnswerID: opt.AnswerID, Answer: opt.Answer, Colour: opt.Colour}
	}
	return domain.QuestionInfo{
		QuestionID:    q.QuestionID,
		Question:      q.Question,
		TimeLimit:     q.TimeLimit,
		ThumbnailURL:  q.ThumbnailURL,
		Points:        q.Points,
		AnswerOptions: options,
	}, nil
}

// QuestionResults returns the aggregate results for one question, including
// the per-option breakdown. Requires ANSWER_SHOW on that question.
func (s *Session) QuestionResults(position int) (domain.QuestionResultDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 1 || position > s.quiz.NumQuestions() || position != s.atQuestion {
		return domain.QuestionResultDetail{}, domain.ErrInvalidPosition
	}
	if s.state != domain.StateAnswerShow {
		return domain.QuestionResultDetail{}, domain.ErrIncompatibleGameState
	}

	question := s.quiz.Questions[position-1]
	answers := s.ledger.AnswersFor(position, s.hasPlayerLocked)
	stats := QuestionStats(question, s.players, answers, s.openedAt[position])
	breakdown := QuestionBreakdown(question, s.players, answers)
	return domain.QuestionResultDetail{
		QuestionID:               stats.QuestionID,
		PlayersCorrect:           stats.PlayersCorrect,
		AverageAnswerTime:        stats.AverageAnswerTime,
		PercentCorrect:           stats.PercentCorrect,
		QuestionCorrectBreakdown: breakdown,
	}, nil
}

// FinalResults computes the ranked scoreboard and per-question results.
// Only callable in FINAL_RESULTS; results are derived, never cached.
func (s *Session) FinalResults() (domain.GameResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateFinalResults {
		return domain.GameResults{}, domain.ErrIncompatibleGameState
	}
	answersByPosition := make(map[int][]domain.PlayerAnswer, s.quiz.NumQuestions())
	for pos := 1; pos <= s.quiz.NumQuestions(); pos++ {
		answersByPosition[pos] = s.ledger.AnswersFor(pos, s.hasPlayerLocked)
	}
	return FinalResults(s.quiz, s.players, answersByPosition, s.openedAt), nil
}

// Subscribe registers a channel receiving state updates. The returned cancel
// must be called to avoid leaks.
func (s *Session) Subscribe() (<-chan StateUpdate, func()) {
	ch := make(chan StateUpdate, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := StateUpdate{GameID: s.gameID, State: s.state, AtQuestion: s.atQuestion}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	update := StateUpdate{GameID: s.gameID, State: s.state, AtQuestion: s.atQuestion}
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Drop the oldest update so slow subscribers never block a transition.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
