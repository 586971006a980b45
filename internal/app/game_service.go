package app

import (
	"context"
	"log"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

// QuizRepository loads frozen quiz content (from cache/backing store). Lookups
// for unknown ids fail with domain.ErrInvalidQuizID.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizSnapshot, error)
}

// ResultsArchiver persists final results when a game reaches FINAL_RESULTS.
// Archiving is best-effort; failures never surface to callers.
type ResultsArchiver interface {
	ArchiveResults(ctx context.Context, gameID int64, results domain.GameResults) error
}

// GameService exposes the live game engine to the HTTP/auth layer. Caller
// identity is validated upstream; callerID is carried for audit logging only.
type GameService struct {
	registry *game.Registry
	quizzes  QuizRepository
	archive  ResultsArchiver
}

func NewGameService(registry *game.Registry, quizzes QuizRepository, archive ResultsArchiver) *GameService {
	return &GameService{registry: registry, quizzes: quizzes, archive: archive}
}

// GameStart creates a new game for the quiz and returns its id.
func (s *GameService) GameStart(ctx context.Context, callerID string, quizID int64, autoStartNum int) (int64, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	session, err := s.registry.Start(quiz, autoStartNum)
	if err != nil {
		return 0, err
	}
	log.Printf("game started game_id=%d quiz_id=%d caller=%s", session.GameID(), quizID, callerID)
	return session.GameID(), nil
}

// GameView lists the quiz's games partitioned by liveness.
func (s *GameService) GameView(ctx context.Context, callerID string, quizID int64) (domain.GameList, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.GameList{}, err
	}
	return s.registry.View(quizID), nil
}

// GameStatus returns the host-facing status of one game. Metadata comes from
// the frozen snapshot, so authoring edits never show up here.
func (s *GameService) GameStatus(ctx context.Context, callerID string, quizID, gameID int64) (domain.GameStatus, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.GameStatus{}, err
	}
	session, ok := s.registry.GetForQuiz(quizID, gameID)
	if !ok {
		return domain.GameStatus{}, domain.ErrInvalidGameID
	}
	return session.Status(), nil
}

// GameUpdate applies one host action to the game's state machine.
func (s *GameService) GameUpdate(ctx context.Context, callerID string, quizID, gameID int64, action string) error {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	session, ok := s.registry.GetForQuiz(quizID, gameID)
	if !ok {
		return domain.ErrInvalidGameID
	}
	parsed, err := domain.ParseAction(action)
	if err != nil {
		return err
	}
	if err := session.Apply(parsed); err != nil {
		return err
	}
	log.Printf("game updated game_id=%d action=%s state=%s caller=%s", gameID, action, session.State(), callerID)
	s.maybeArchive(ctx, session)
	return nil
}

// GameResult returns the final results of a game in FINAL_RESULTS state.
func (s *GameService) GameResult(ctx context.Context, callerID string, quizID, gameID int64) (domain.GameResults, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.GameResults{}, err
	}
	session, ok := s.registry.GetForQuiz(quizID, gameID)
	if !ok {
		return domain.GameResults{}, domain.ErrInvalidGameID
	}
	return session.FinalResults()
}

// QuizHasActiveGame reports whether the quiz still has games not in END state.
// The quiz-authoring collaborator calls this before deleting a quiz.
func (s *GameService) QuizHasActiveGame(quizID int64) bool {
	return s.registry.ActiveGameExists(quizID)
}

// PlayerJoin adds a player to a game's lobby and returns the player id.
func (s *GameService) PlayerJoin(gameID int64, playerName string) (int64, error) {
	player, err := s.registry.Join(gameID, playerName)
	if err != nil {
		return 0, err
	}
	return player.PlayerID, nil
}

// PlayerStatus returns the state of the game the player joined.
func (s *GameService) PlayerStatus(playerID int64) (domain.PlayerStatus, error) {
	session, ok := s.registry.FindPlayer(playerID)
	if !ok {
		return domain.PlayerStatus{}, domain.ErrInvalidPlayerID
	}
	return session.PlayerStatus(), nil
}

// PlayerQuestionInfo returns the current question as shown to the player.
func (s *GameService) PlayerQuestionInfo(playerID int64, position int) (domain.QuestionInfo, error) {
	session, ok := s.registry.FindPlayer(playerID)
	if !ok {
		return domain.QuestionInfo{}, domain.ErrInvalidPlayerID
	}
	return session.QuestionInfo(position)
}

// PlayerAnswerSubmit stores (or replaces) the player's answer for the current
// question.
func (s *GameService) PlayerAnswerSubmit(playerID int64, position int, answerIDs []int64) error {
	session, ok := s.registry.FindPlayer(playerID)
	if !ok {
		return domain.ErrInvalidPlayerID
	}
	return session.SubmitAnswer(playerID, position, answerIDs)
}

// PlayerQuestionResults returns the results of the current question while the
// game shows answers.
func (s *GameService) PlayerQuestionResults(playerID int64, position int) (domain.QuestionResultDetail, error) {
	session, ok := s.registry.FindPlayer(playerID)
	if !ok {
		return domain.QuestionResultDetail{}, domain.ErrInvalidPlayerID
	}
	return session.QuestionResults(position)
}

// PlayerGameResults returns the final results of the player's game.
func (s *GameService) PlayerGameResults(playerID int64) (domain.GameResults, error) {
	session, ok := s.registry.FindPlayer(playerID)
	if !ok {
		return domain.GameResults{}, domain.ErrInvalidPlayerID
	}
	return session.FinalResults()
}

// SubscribeToGame streams state updates for the game a player joined.
func (s *GameService) SubscribeToGame(playerID int64) (<-chan game.StateUpdate, func(), error) {
	session, ok := s.registry.FindPlayer(playerID)
	if !ok {
		return nil, nil, domain.ErrInvalidPlayerID
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

func (s *GameService) maybeArchive(ctx context.Context, session *game.Session) {
	if s.archive == nil || session.State() != domain.StateFinalResults {
		return
	}
	results, err := session.FinalResults()
	if err != nil {
		return
	}
	if err := s.archive.ArchiveResults(ctx, session.GameID(), results); err != nil {
		log.Printf("archive results failed game_id=%d error=%v", session.GameID(), err)
	}
}
