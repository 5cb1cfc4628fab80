package chessdto

import "errors"

var (
	ErrUnknownCommand = errors.New("unknown command type")
	ErrUnknownMessage = errors.New("unknown server message type")
)

// ErrorResponse is the REST error body.
type ErrorResponse struct {
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "chess server error"
}
