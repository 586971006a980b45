package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

type stubQuizRepo struct {
	quizzes map[int64]domain.QuizSnapshot
}

func (r *stubQuizRepo) GetQuiz(_ context.Context, quizID int64) (domain.QuizSnapshot, error) {
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return domain.QuizSnapshot{}, domain.ErrInvalidQuizID
	}
	return quiz.Clone(), nil
}

type recordingArchiver struct {
	calls   int
	gameID  int64
	results domain.GameResults
}

func (a *recordingArchiver) ArchiveResults(_ context.Context, gameID int64, results domain.GameResults) error {
	a.calls++
	a.gameID = gameID
	a.results = results
	return nil
}

func sampleQuiz() domain.QuizSnapshot {
	return domain.QuizSnapshot{
		QuizID: 7,
		Name:   "arithmetic",
		Questions: []domain.Question{
			{
				QuestionID: 1,
				Question:   "What is 2 + 2?",
				TimeLimit:  30,
				Points:     5,
				AnswerOptions: []domain.AnswerOption{
					{AnswerID: 1, Answer: "3", Colour: "red"},
					{AnswerID: 2, Answer: "4", Colour: "blue", Correct: true},
					{AnswerID: 3, Answer: "5", Colour: "green"},
					{AnswerID: 4, Answer: "22", Colour: "yellow"},
				},
			},
		},
	}
}

func newTestService(t *testing.T) (*GameService, *recordingArchiver) {
	t.Helper()
	registry := game.NewRegistry(game.NewManualScheduler(), 3*time.Second)
	repo := &stubQuizRepo{quizzes: map[int64]domain.QuizSnapshot{7: sampleQuiz()}}
	archiver := &recordingArchiver{}
	return NewGameService(registry, repo, archiver), archiver
}

func TestGameLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	service, archiver := newTestService(t)

	gameID, err := service.GameStart(ctx, "host-1", 7, 0)
	if err != nil {
		t.Fatalf("game start: %v", err)
	}

	playerID, err := service.PlayerJoin(gameID, "A")
	if err != nil {
		t.Fatalf("player join: %v", err)
	}

	for _, action := range []string{"NEXT_QUESTION", "SKIP_COUNTDOWN"} {
		if err := service.GameUpdate(ctx, "host-1", 7, gameID, action); err != nil {
			t.Fatalf("apply %s: %v", action, err)
		}
	}

	status, err := service.PlayerStatus(playerID)
	if err != nil {
		t.Fatalf("player status: %v", err)
	}
	if status.State != domain.StateQuestionOpen || status.AtQuestion != 1 || status.NumQuestions != 1 {
		t.Fatalf("unexpected player status: %+v", status)
	}

	info, err := service.PlayerQuestionInfo(playerID, 1)
	if err != nil {
		t.Fatalf("question info: %v", err)
	}
	if info.QuestionID != 1 || len(info.AnswerOptions) != 4 {
		t.Fatalf("unexpected question info: %+v", info)
	}

	if err := service.PlayerAnswerSubmit(playerID, 1, []int64{2}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := service.GameUpdate(ctx, "host-1", 7, gameID, "GO_TO_ANSWER"); err != nil {
		t.Fatalf("go to answer: %v", err)
	}
	qres, err := service.PlayerQuestionResults(playerID, 1)
	if err != nil {
		t.Fatalf("question results: %v", err)
	}
	if qres.PercentCorrect != 100 || len(qres.PlayersCorrect) != 1 || qres.PlayersCorrect[0] != "A" {
		t.Fatalf("unexpected question results: %+v", qres)
	}

	if err := service.GameUpdate(ctx, "host-1", 7, gameID, "GO_TO_FINAL_RESULTS"); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if archiver.calls != 1 || archiver.gameID != gameID {
		t.Fatalf("expected one archive call for game %d, got calls=%d game=%d", gameID, archiver.calls, archiver.gameID)
	}

	results, err := service.GameResult(ctx, "host-1", 7, gameID)
	if err != nil {
		t.Fatalf("game result: %v", err)
	}
	if len(results.UsersRankedByScore) != 1 || results.UsersRankedByScore[0].Score != 5 {
		t.Fatalf("unexpected scoreboard: %+v", results.UsersRankedByScore)
	}

	playerResults, err := service.PlayerGameResults(playerID)
	if err != nil {
		t.Fatalf("player game results: %v", err)
	}
	if playerResults.UsersRankedByScore[0].PlayerName != "A" {
		t.Fatalf("unexpected player results: %+v", playerResults)
	}

	if err := service.GameUpdate(ctx, "host-1", 7, gameID, "END"); err != nil {
		t.Fatalf("end: %v", err)
	}
	list, err := service.GameView(ctx, "host-1", 7)
	if err != nil {
		t.Fatalf("game view: %v", err)
	}
	if len(list.ActiveGames) != 0 || len(list.InactiveGames) != 1 || list.InactiveGames[0] != gameID {
		t.Fatalf("unexpected game list: %+v", list)
	}
}

func TestGameServiceErrorMapping(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.GameStart(ctx, "h", 99, 0); !errors.Is(err, domain.ErrInvalidQuizID) {
		t.Fatalf("unknown quiz on start: got %v", err)
	}
	if _, err := service.GameView(ctx, "h", 99); !errors.Is(err, domain.ErrInvalidQuizID) {
		t.Fatalf("unknown quiz on view: got %v", err)
	}

	gameID, err := service.GameStart(ctx, "h", 7, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.GameStatus(ctx, "h", 7, 999); !errors.Is(err, domain.ErrInvalidGameID) {
		t.Fatalf("unknown game: got %v", err)
	}
	if err := service.GameUpdate(ctx, "h", 7, gameID, "JUMP"); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("bad action token: got %v", err)
	}
	if _, err := service.GameResult(ctx, "h", 7, gameID); !errors.Is(err, domain.ErrIncompatibleGameState) {
		t.Fatalf("results before finish: got %v", err)
	}

	if _, err := service.PlayerStatus(999); !errors.Is(err, domain.ErrInvalidPlayerID) {
		t.Fatalf("unknown player status: got %v", err)
	}
	if _, err := service.PlayerQuestionInfo(999, 1); !errors.Is(err, domain.ErrInvalidPlayerID) {
		t.Fatalf("unknown player info: got %v", err)
	}
	if err := service.PlayerAnswerSubmit(999, 1, []int64{1}); !errors.Is(err, domain.ErrInvalidPlayerID) {
		t.Fatalf("unknown player submit: got %v", err)
	}
	if _, err := service.PlayerQuestionResults(999, 1); !errors.Is(err, domain.ErrInvalidPlayerID) {
		t.Fatalf("unknown player results: got %v", err)
	}
	if _, err := service.PlayerGameResults(999); !errors.Is(err, domain.ErrInvalidPlayerID) {
		t.Fatalf("unknown player game results: got %v", err)
	}
	if _, _, err := service.SubscribeToGame(999); !errors.Is(err, domain.ErrInvalidPlayerID) {
		t.Fatalf("unknown player subscribe: got %v", err)
	}
}

func TestQuizHasActiveGame(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if service.QuizHasActiveGame(7) {
		t.Fatal("no games yet")
	}
	gameID, err := service.GameStart(ctx, "h", 7, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !service.QuizHasActiveGame(7) {
		t.Fatal("expected active game")
	}
	if err := service.GameUpdate(ctx, "h", 7, gameID, "END"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if service.QuizHasActiveGame(7) {
		t.Fatal("ended game still reported active")
	}
}

func TestSubscribeToGameStreamsUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	gameID, err := service.GameStart(ctx, "h", 7, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	playerID, err := service.PlayerJoin(gameID, "A")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	updates, cancel, err := service.SubscribeToGame(playerID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if got := <-updates; got.State != domain.StateLobby || got.GameID != gameID {
		t.Fatalf("unexpected initial update: %+v", got)
	}
	if err := service.GameUpdate(ctx, "h", 7, gameID, "NEXT_QUESTION"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := <-updates; got.State != domain.StateQuestionCountdown {
		t.Fatalf("expected countdown update, got %+v", got)
	}
}
