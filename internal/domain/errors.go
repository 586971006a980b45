package domain

import "errors"

var (
	// ErrInvalidQuizID is returned when a quiz id does not refer to a known quiz.
	ErrInvalidQuizID = errors.New("quiz id does not refer to a valid quiz")
	// ErrInvalidGameID is returned when a game id does not refer to a game of the quiz.
	ErrInvalidGameID = errors.New("game id does not refer to a valid game within this quiz")
	// ErrInvalidPlayerID is returned when a player id is not part of any game.
	ErrInvalidPlayerID = errors.New("player id does not exist")
	// ErrInvalidPlayerName is returned for malformed or non-unique player names.
	ErrInvalidPlayerName = errors.New("player name is invalid or already taken in this game")
	// ErrInvalidAction is returned for an unrecognized action token.
	ErrInvalidAction = errors.New("action provided is not a valid action")
	// ErrIncompatibleGameState is returned when an operation is not allowed in the
	// game's current state.
	ErrIncompatibleGameState = errors.New("action cannot be applied in the current game state")
	// ErrInvalidPosition is returned when a question position is out of range or is
	// not the question the game is currently at.
	ErrInvalidPosition = errors.New("question position is not valid for this game")
	// ErrInvalidAnswerIDs is returned when a submitted answer id set is malformed.
	ErrInvalidAnswerIDs = errors.New("answer ids are invalid for the current question")
	// ErrInvalidGame is returned when autoStartNum exceeds the allowed maximum.
	ErrInvalidGame = errors.New("autoStartNum is greater than 50")
	// ErrMaxActiveGames is returned when a quiz already has 10 games not in END state.
	ErrMaxActiveGames = errors.New("10 games that are not in END state already exist for this quiz")
	// ErrQuizIsEmpty is returned when starting a game for a quiz with no questions.
	ErrQuizIsEmpty = errors.New("the quiz does not have any questions in it")
	// ErrActiveGameExists signals that a quiz still has games not in END state.
	ErrActiveGameExists = errors.New("an active game exists for this quiz")
)

// ErrorCode maps a domain error to its wire-level code token. Transports use the
// code to drive status mapping; unknown errors map to INTERNAL_ERROR.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuizID):
		return "INVALID_QUIZ_ID"
	case errors.Is(err, ErrInvalidGameID):
		return "INVALID_GAME_ID"
	case errors.Is(err, ErrInvalidPlayerID):
		return "INVALID_PLAYER_ID"
	case errors.Is(err, ErrInvalidPlayerName):
		return "INVALID_PLAYER_NAME"
	case errors.Is(err, ErrInvalidAction):
		return "INVALID_ACTION"
	case errors.Is(err, ErrIncompatibleGameState):
		return "INCOMPATIBLE_GAME_STATE"
	case errors.Is(err, ErrInvalidPosition):
		return "INVALID_POSITION"
	case errors.Is(err, ErrInvalidAnswerIDs):
		return "INVALID_ANSWER_IDS"
	case errors.Is(err, ErrInvalidGame):
		return "INVALID_GAME"
	case errors.Is(err, ErrMaxActiveGames):
		return "MAX_ACTIVE_GAMES"
	case errors.Is(err, ErrQuizIsEmpty):
		return "QUIZ_IS_EMPTY"
	case errors.Is(err, ErrActiveGameExists):
		return "ACTIVE_GAME_EXISTS"
	default:
		return "INTERNAL_ERROR"
	}
}
