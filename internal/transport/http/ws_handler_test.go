package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
	"quiz-game-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	scheduler := game.NewTimerScheduler()
	t.Cleanup(scheduler.CancelAll)
	registry := game.NewRegistry(scheduler, 3*time.Second)
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewGameService(registry, quizRepo, nil)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?session=host-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// awaitMessage reads until a message of the wanted type arrives, skipping
// interleaved state pushes.
func awaitMessage(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error while waiting for %s: %s", want, msg.Payload)
		}
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, "gameStart", map[string]any{"quizId": 1})
	var started struct {
		GameID int64 `json:"gameId"`
	}
	if err := json.Unmarshal(awaitMessage(t, conn, "gameStarted"), &started); err != nil {
		t.Fatalf("decode gameStarted: %v", err)
	}

	send(t, conn, "playerJoin", map[string]any{"gameId": started.GameID, "name": "Alice"})
	var joined struct {
		PlayerID int64 `json:"playerId"`
	}
	if err := json.Unmarshal(awaitMessage(t, conn, "playerJoined"), &joined); err != nil {
		t.Fatalf("decode playerJoined: %v", err)
	}

	// The subscription starts with the current state.
	var update struct {
		State domain.GameState `json:"state"`
	}
	if err := json.Unmarshal(awaitMessage(t, conn, "state"), &update); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if update.State != domain.StateLobby {
		t.Fatalf("expected LOBBY push, got %s", update.State)
	}

	send(t, conn, "gameUpdate", map[string]any{"quizId": 1, "gameId": started.GameID, "action": "NEXT_QUESTION"})
	awaitMessage(t, conn, "gameUpdated")
	send(t, conn, "gameUpdate", map[string]any{"quizId": 1, "gameId": started.GameID, "action": "SKIP_COUNTDOWN"})
	awaitMessage(t, conn, "gameUpdated")

	send(t, conn, "questionInfo", map[string]any{"playerId": joined.PlayerID, "position": 1})
	var info struct {
		QuestionID    int64 `json:"questionId"`
		AnswerOptions []struct {
			AnswerID int64 `json:"answerId"`
		} `json:"answerOptions"`
	}
	if err := json.Unmarshal(awaitMessage(t, conn, "questionInfo"), &info); err != nil {
		t.Fatalf("decode questionInfo: %v", err)
	}
	if info.QuestionID != 1 || len(info.AnswerOptions) != 3 {
		t.Fatalf("unexpected question info: %+v", info)
	}

	send(t, conn, "answerSubmit", map[string]any{"playerId": joined.PlayerID, "position": 1, "answerIds": []int64{2}})
	awaitMessage(t, conn, "answerAccepted")

	send(t, conn, "gameUpdate", map[string]any{"quizId": 1, "gameId": started.GameID, "action": "GO_TO_ANSWER"})
	awaitMessage(t, conn, "gameUpdated")

	send(t, conn, "questionResults", map[string]any{"playerId": joined.PlayerID, "position": 1})
	var qres struct {
		PercentCorrect float64  `json:"percentCorrect"`
		PlayersCorrect []string `json:"playersCorrect"`
	}
	if err := json.Unmarshal(awaitMessage(t, conn, "questionResults"), &qres); err != nil {
		t.Fatalf("decode questionResults: %v", err)
	}
	if qres.PercentCorrect != 100 || len(qres.PlayersCorrect) != 1 {
		t.Fatalf("unexpected question results: %+v", qres)
	}

	send(t, conn, "gameUpdate", map[string]any{"quizId": 1, "gameId": started.GameID, "action": "GO_TO_FINAL_RESULTS"})
	awaitMessage(t, conn, "gameUpdated")

	send(t, conn, "gameResults", map[string]any{"playerId": joined.PlayerID})
	var results struct {
		UsersRankedByScore []struct {
			PlayerName string `json:"playerName"`
			Score      int    `json:"score"`
		} `json:"usersRankedByScore"`
	}
	if err := json.Unmarshal(awaitMessage(t, conn, "gameResults"), &results); err != nil {
		t.Fatalf("decode gameResults: %v", err)
	}
	if len(results.UsersRankedByScore) != 1 || results.UsersRankedByScore[0].Score != 5 {
		t.Fatalf("unexpected scoreboard: %+v", results.UsersRankedByScore)
	}
}

func TestWebSocketErrorPayloads(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	awaitError := func(wantCode string) {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg struct {
			Type    string       `json:"type"`
			Payload errorPayload `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read error: %v", err)
		}
		if msg.Type != "error" || msg.Payload.Code != wantCode {
			t.Fatalf("expected error %s, got type=%s payload=%+v", wantCode, msg.Type, msg.Payload)
		}
	}

	send(t, conn, "gameStart", map[string]any{"quizId": 99})
	awaitError("INVALID_QUIZ_ID")

	send(t, conn, "gameUpdate", map[string]any{"quizId": 1, "gameId": 1, "action": "JUMP"})
	awaitError("INVALID_GAME_ID") // no game started yet

	send(t, conn, "playerStatus", map[string]any{"playerId": 42})
	awaitError("INVALID_PLAYER_ID")

	send(t, conn, "answerSubmit", map[string]any{"playerId": 42, "position": 1, "answerIds": []float64{1.5}})
	awaitError("INVALID_ANSWER_IDS")

	send(t, conn, "bogus", map[string]any{})
	awaitError("UNSUPPORTED_TYPE")
}

func sampleQuizzes() map[int64]domain.QuizSnapshot {
	return map[int64]domain.QuizSnapshot{
		1: {
			QuizID: 1,
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
					},
				},
			},
		},
	}
}
