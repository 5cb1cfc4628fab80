package chessdto

import (
	"encoding/json"
	"fmt"
)

type CommandType string

const (
	CommandJoinPlayer   CommandType = "JOIN_PLAYER"
	CommandJoinObserver CommandType = "JOIN_OBSERVER"
	CommandMakeMove     CommandType = "MAKE_MOVE"
	CommandLeave        CommandType = "LEAVE"
	CommandResign       CommandType = "RESIGN"
	CommandVerbose      CommandType = "VERBOSE"
)

// Command is the inbound union. Concrete variants are the *Command structs
// below; DecodeCommand is the only way in from the wire.
type Command interface {
	Header() CommandHeader
	isCommand()
}

type CommandHeader struct {
	CommandType CommandType `json:"commandType"`
	AuthToken   string      `json:"authToken"`
	GameID      int         `json:"gameID"`
}

func NewHeader(t CommandType, authToken string, gameID int) CommandHeader {
	return CommandHeader{CommandType: t, AuthToken: authToken, GameID: gameID}
}

func (h CommandHeader) Header() CommandHeader { return h }

type JoinPlayerCommand struct {
	CommandHeader
	PlayerColor string `json:"playerColor"`
}

type JoinObserverCommand struct{ CommandHeader }

type MakeMoveCommand struct {
	CommandHeader
	Move Move `json:"move"`
}

type LeaveCommand struct{ CommandHeader }

type ResignCommand struct{ CommandHeader }

type VerboseCommand struct{ CommandHeader }

func (JoinPlayerCommand) isCommand()   {}
func (JoinObserverCommand) isCommand() {}
func (MakeMoveCommand) isCommand()     {}
func (LeaveCommand) isCommand()        {}
func (ResignCommand) isCommand()       {}
func (VerboseCommand) isCommand()      {}

// DecodeCommand reads the discriminant first, then the concrete variant.
func DecodeCommand(raw []byte) (Command, error) {
	var head CommandHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	switch head.CommandType {
	case CommandJoinPlayer:
		return decodeAs[JoinPlayerCommand](raw)
	case CommandJoinObserver:
		return decodeAs[JoinObserverCommand](raw)
	case CommandMakeMove:
		return decodeAs[MakeMoveCommand](raw)
	case CommandLeave:
		return decodeAs[LeaveCommand](raw)
	case CommandResign:
		return decodeAs[ResignCommand](raw)
	case CommandVerbose:
		return decodeAs[VerboseCommand](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, head.CommandType)
}

func decodeAs[T Command](raw []byte) (Command, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	return v, nil
}
