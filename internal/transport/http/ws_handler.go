package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/domain"
)

// WSHandler exposes host commands and the player flow over a websocket. One
// socket can drive either side; a player socket additionally receives "state"
// pushes on every session transition.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type gameStartPayload struct {
	QuizID       int64 `json:"quizId"`
	AutoStartNum int   `json:"autoStartNum"`
}

type gameRefPayload struct {
	QuizID int64 `json:"quizId"`
	GameID int64 `json:"gameId"`
}

type gameUpdatePayload struct {
	QuizID int64  `json:"quizId"`
	GameID int64  `json:"gameId"`
	Action string `json:"action"`
}

type playerJoinPayload struct {
	GameID int64  `json:"gameId"`
	Name   string `json:"name"`
}

type playerRefPayload struct {
	PlayerID int64 `json:"playerId"`
	Position int   `json:"position"`
}

type answerSubmitPayload struct {
	PlayerID  int64         `json:"playerId"`
	Position  int           `json:"position"`
	AnswerIDs []json.Number `json:"answerIds"`
}

// ServeWS upgrades the request and serves the message protocol until the
// client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	callerID := r.URL.Query().Get("session")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var cancelUpdates func()
	defer func() {
		if cancelUpdates != nil {
			cancelUpdates()
			<-pumpDone
		}
		close(send)
		<-writerDone
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "gameStart":
			var p gameStartPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidQuizID)
				continue
			}
			gameID, err := h.service.GameStart(r.Context(), callerID, p.QuizID, p.AutoStartNum)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "gameStarted", Payload: map[string]int64{"gameId": gameID}}

		case "gameView":
			var p gameRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidQuizID)
				continue
			}
			list, err := h.service.GameView(r.Context(), callerID, p.QuizID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "gameList", Payload: list}

		case "gameStatus":
			var p gameRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidGameID)
				continue
			}
			status, err := h.service.GameStatus(r.Context(), callerID, p.QuizID, p.GameID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "gameStatus", Payload: status}

		case "gameUpdate":
			var p gameUpdatePayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidAction)
				continue
			}
			if err := h.service.GameUpdate(r.Context(), callerID, p.QuizID, p.GameID, p.Action); err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "gameUpdated", Payload: struct{}{}}

		case "gameResult":
			var p gameRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidGameID)
				continue
			}
			results, err := h.service.GameResult(r.Context(), callerID, p.QuizID, p.GameID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "gameResult", Payload: results}

		case "playerJoin":
			var p playerJoinPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidGameID)
				continue
			}
			playerID, err := h.service.PlayerJoin(p.GameID, p.Name)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "playerJoined", Payload: map[string]int64{"playerId": playerID}}
			if cancelUpdates == nil {
				updates, cancel, err := h.service.SubscribeToGame(playerID)
				if err == nil {
					cancelUpdates = cancel
					go func() {
						defer close(pumpDone)
						for update := range updates {
							select {
							case send <- outboundMessage{Type: "state", Payload: update}:
							case <-writerDone:
								return
							}
						}
					}()
				}
			}

		case "playerStatus":
			var p playerRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidPlayerID)
				continue
			}
			status, err := h.service.PlayerStatus(p.PlayerID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "playerStatus", Payload: status}

		case "questionInfo":
			var p playerRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidPlayerID)
				continue
			}
			info, err := h.service.PlayerQuestionInfo(p.PlayerID, p.Position)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "questionInfo", Payload: info}

		case "answerSubmit":
			var p answerSubmitPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidAnswerIDs)
				continue
			}
			ids, err := parseAnswerIDs(p.AnswerIDs)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			if err := h.service.PlayerAnswerSubmit(p.PlayerID, p.Position, ids); err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "answerAccepted", Payload: struct{}{}}

		case "questionResults":
			var p playerRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidPlayerID)
				continue
			}
			results, err := h.service.PlayerQuestionResults(p.PlayerID, p.Position)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "questionResults", Payload: results}

		case "gameResults":
			var p playerRefPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				send <- errorMessage(domain.ErrInvalidPlayerID)
				continue
			}
			results, err := h.service.PlayerGameResults(p.PlayerID)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "gameResults", Payload: results}

		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Code: "UNSUPPORTED_TYPE", Message: "unsupported message type"}}
		}
	}
}

// parseAnswerIDs rejects fractional and out-of-range values the way the
// engine rejects malformed id sets.
func parseAnswerIDs(raw []json.Number) ([]int64, error) {
	ids := make([]int64, len(raw))
	for i, n := range raw {
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidAnswerIDs
		}
		ids[i] = v
	}
	return ids, nil
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	}}
}
