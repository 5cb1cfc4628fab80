package chessdto

import (
	"encoding/json"
	"fmt"
)

type ServerMessageType string

const (
	MessageLoadGame     ServerMessageType = "LOAD_GAME"
	MessageNotification ServerMessageType = "NOTIFICATION"
	MessageError        ServerMessageType = "ERROR"
)

// ServerMessage is the outbound union.
type ServerMessage interface {
	MessageType() ServerMessageType
}

type LoadGameMessage struct {
	Type  ServerMessageType `json:"serverMessageType"`
	Game  GameSnapshot      `json:"game"`
	State string            `json:"state"`
	Name  string            `json:"name"`
}

type NotificationMessage struct {
	Type    ServerMessageType `json:"serverMessageType"`
	Message string            `json:"message"`
}

type ErrorMessage struct {
	Type         ServerMessageType `json:"serverMessageType"`
	ErrorMessage string            `json:"errorMessage"`
}

func (LoadGameMessage) MessageType() ServerMessageType     { return MessageLoadGame }
func (NotificationMessage) MessageType() ServerMessageType { return MessageNotification }
func (ErrorMessage) MessageType() ServerMessageType        { return MessageError }

func NewLoadGame(game GameSnapshot, state, name string) LoadGameMessage {
	return LoadGameMessage{Type: MessageLoadGame, Game: game, State: state, Name: name}
}

func NewNotification(msg string) NotificationMessage {
	return NotificationMessage{Type: MessageNotification, Message: msg}
}

// NewError prefixes msg the way clients expect to print it.
func NewError(msg string) ErrorMessage {
	return ErrorMessage{Type: MessageError, ErrorMessage: "ERROR: " + msg}
}

func DecodeServerMessage(raw []byte) (ServerMessage, error) {
	var head struct {
		Type ServerMessageType `json:"serverMessageType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode server message: %w", err)
	}
	switch head.Type {
	case MessageLoadGame:
		return decodeMessage[LoadGameMessage](raw)
	case MessageNotification:
		return decodeMessage[NotificationMessage](raw)
	case MessageError:
		return decodeMessage[ErrorMessage](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, head.Type)
}

func decodeMessage[T ServerMessage](raw []byte) (ServerMessage, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode server message: %w", err)
	}
	return v, nil
}
