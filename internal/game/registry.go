package game

import (
	"sort"
	"sync"
	"time"

	"quiz-game-service/internal/domain"
)

// Registry creates and indexes game sessions. It owns the scheduler instance
// the sessions arm timers on, the id counters, and the per-quiz concurrency
// cap. Its lock is short-held; session mutations happen behind each session's
// own lock.
type Registry struct {
	mu        sync.Mutex
	sched     Scheduler
	countdown time.Duration
	now       func() time.Time

	nextGameID   int64
	nextPlayerID int64
	sessions     map[int64]*Session   // by game id
	byQuiz       map[int64][]*Session // in start order
	byPlayer     map[int64]*Session
}

func NewRegistry(sched Scheduler, countdown time.Duration) *Registry {
	return NewRegistryWithClock(sched, countdown, time.Now)
}

// NewRegistryWithClock allows deterministic timestamps in tests.
func NewRegistryWithClock(sched Scheduler, countdown time.Duration, now func() time.Time) *Registry {
	if countdown <= 0 {
		countdown = domain.CountdownSeconds * time.Second
	}
	return &Registry{
		sched:     sched,
		countdown: countdown,
		now:       now,
		sessions:  make(map[int64]*Session),
		byQuiz:    make(map[int64][]*Session),
		byPlayer:  make(map[int64]*Session),
	}
}

// Start creates a new game in LOBBY over a frozen clone of the quiz. Game ids
// are strictly increasing across all quizzes.
func (r *Registry) Start(quiz domain.QuizSnapshot, autoStartNum int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if autoStartNum > domain.MaxAutoStartNum {
		return nil, domain.ErrInvalidGame
	}
	if quiz.NumQuestions() == 0 {
		return nil, domain.ErrQuizIsEmpty
	}
	active := 0
	for _, session := range r.byQuiz[quiz.QuizID] {
		if session.State() != domain.StateEnd {
			active++
		}
	}
	if active >= domain.MaxActiveGames {
		return nil, domain.ErrMaxActiveGames
	}

	r.nextGameID++
	session := newSession(r.nextGameID, quiz.Clone(), autoStartNum, r.sched, r.countdown, r.now)
	r.sessions[session.GameID()] = session
	r.byQuiz[quiz.QuizID] = append(r.byQuiz[quiz.QuizID], session)
	return session, nil
}

// View partitions a quiz's games into active (not END) and inactive (END),
// each sorted ascending by game id.
func (r *Registry) View(quizID int64) domain.GameList {
	r.mu.Lock()
	sessions := make([]*Session, len(r.byQuiz[quizID]))
	copy(sessions, r.byQuiz[quizID])
	r.mu.Unlock()

	list := domain.GameList{ActiveGames: []int64{}, InactiveGames: []int64{}}
	for _, session := range sessions {
		if session.State() == domain.StateEnd {
			list.InactiveGames = append(list.InactiveGames, session.GameID())
		} else {
			list.ActiveGames = append(list.ActiveGames, session.GameID())
		}
	}
	sort.Slice(list.ActiveGames, func(i, j int) bool { return list.ActiveGames[i] < list.ActiveGames[j] })
	sort.Slice(list.InactiveGames, func(i, j int) bool { return list.InactiveGames[i] < list.InactiveGames[j] })
	return list
}

// Get looks up a session by game id.
func (r *Registry) Get(gameID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[gameID]
	return session, ok
}

// GetForQuiz looks up a session by game id, requiring it to belong to the quiz.
func (r *Registry) GetForQuiz(quizID, gameID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[gameID]
	if !ok || session.QuizID() != quizID {
		return nil, false
	}
	return session, true
}

// Join allocates a player id and adds the player to the game's lobby. The id
// counter only advances on a successful join.
func (r *Registry) Join(gameID int64, playerName string) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[gameID]
	if !ok {
		return domain.Player{}, domain.ErrInvalidGameID
	}
	player, err := session.Join(r.nextPlayerID+1, playerName)
	if err != nil {
		return domain.Player{}, err
	}
	r.nextPlayerID++
	r.byPlayer[player.PlayerID] = session
	return player, nil
}

// FindPlayer returns the session a player has joined.
func (r *Registry) FindPlayer(playerID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byPlayer[playerID]
	return session, ok
}

// ActiveGameExists reports whether any game for the quiz is not in END state.
// The quiz-authoring collaborator uses this as its delete precondition.
func (r *Registry) ActiveGameExists(quizID int64) bool {
	r.mu.Lock()
	sessions := make([]*Session, len(r.byQuiz[quizID]))
	copy(sessions, r.byQuiz[quizID])
	r.mu.Unlock()

	for _, session := range sessions {
		if session.State() != domain.StateEnd {
			return true
		}
	}
	return false
}
