package facade

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "disconnected"
}

type MessageCallback func(msg chessdto.ServerMessage)

type StateCallback func(state ConnState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

var ErrNotConnected = errors.New("game connection not open")

// GameConnection is one WebSocket to the server's /connect endpoint. A
// dropped connection is not redialed: the server forgets the session when
// the socket closes, so the caller has to join again.
type GameConnection struct {
	wsURL string
	token string

	connM sync.RWMutex
	conn  *websocket.Conn

	state  ConnState
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewGameConnection(wsURL, authToken string) *GameConnection {
	return &GameConnection{
		wsURL:        wsURL,
		token:        authToken,
		state:        StateDisconnected,
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// SetPingInterval must be called before Connect; zero disables pings.
func (gc *GameConnection) SetPingInterval(d time.Duration) { gc.pingInterval = d }

func (gc *GameConnection) Connect(ctx context.Context) error {
	gc.stateM.Lock()
	if gc.state == StateConnected || gc.state == StateConnecting {
		gc.stateM.Unlock()
		return nil
	}
	gc.stateM.Unlock()

	gc.rootCtx, gc.rootCancel = context.WithCancel(context.Background())
	gc.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, gc.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		gc.setState(StateFailed)
		return err
	}

	gc.connM.Lock()
	gc.conn = conn
	gc.connM.Unlock()
	gc.setState(StateConnected)

	gc.wg.Add(1)
	go gc.listen(conn)
	if gc.pingInterval > 0 {
		gc.wg.Add(1)
		go gc.pingLoop(conn)
	}
	return nil
}

func (gc *GameConnection) listen(conn *websocket.Conn) {
	defer gc.wg.Done()
	for {
		_, raw, err := conn.Read(gc.rootCtx)
		if err != nil {
			if !gc.isStopping() {
				gc.dropConn(websocket.StatusGoingAway, "read failed")
			}
			return
		}
		msg, err := chessdto.DecodeServerMessage(raw)
		if err != nil {
			continue
		}

		gc.cbM.RLock()
		callbacks := make([]callbackEntry, len(gc.msgCbs))
		copy(callbacks, gc.msgCbs)
		gc.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(msg)
		}
	}
}

func (gc *GameConnection) pingLoop(conn *websocket.Conn) {
	defer gc.wg.Done()
	t := time.NewTicker(gc.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-gc.stopCh:
			return
		case <-gc.rootCtx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(gc.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			if failures++; failures >= 2 {
				gc.dropConn(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// Send writes one command.
func (gc *GameConnection) Send(ctx context.Context, cmd chessdto.Command) error {
	gc.connM.RLock()
	conn := gc.conn
	gc.connM.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, cmd)
}

func (gc *GameConnection) JoinPlayer(ctx context.Context, gameID int, color string) error {
	return gc.Send(ctx, chessdto.JoinPlayerCommand{
		CommandHeader: chessdto.NewHeader(chessdto.CommandJoinPlayer, gc.token, gameID),
		PlayerColor:   color,
	})
}

func (gc *GameConnection) JoinObserver(ctx context.Context, gameID int) error {
	return gc.Send(ctx, chessdto.JoinObserverCommand{CommandHeader: chessdto.NewHeader(chessdto.CommandJoinObserver, gc.token, gameID)})
}

func (gc *GameConnection) MakeMove(ctx context.Context, gameID int, move chessdto.Move) error {
	return gc.Send(ctx, chessdto.MakeMoveCommand{
		CommandHeader: chessdto.NewHeader(chessdto.CommandMakeMove, gc.token, gameID),
		Move:          move,
	})
}

func (gc *GameConnection) Leave(ctx context.Context, gameID int) error {
	return gc.Send(ctx, chessdto.LeaveCommand{CommandHeader: chessdto.NewHeader(chessdto.CommandLeave, gc.token, gameID)})
}

func (gc *GameConnection) Resign(ctx context.Context, gameID int) error {
	return gc.Send(ctx, chessdto.ResignCommand{CommandHeader: chessdto.NewHeader(chessdto.CommandResign, gc.token, gameID)})
}

func (gc *GameConnection) Verbose(ctx context.Context, gameID int) error {
	return gc.Send(ctx, chessdto.VerboseCommand{CommandHeader: chessdto.NewHeader(chessdto.CommandVerbose, gc.token, gameID)})
}

func (gc *GameConnection) OnMessage(cb MessageCallback) int {
	gc.cbM.Lock()
	defer gc.cbM.Unlock()
	gc.nextCbID++
	gc.msgCbs = append(gc.msgCbs, callbackEntry{id: gc.nextCbID, callback: cb})
	return gc.nextCbID
}

func (gc *GameConnection) RemoveMessageCallback(id int) {
	gc.cbM.Lock()
	defer gc.cbM.Unlock()
	for i, cb := range gc.msgCbs {
		if cb.id == id {
			gc.msgCbs = append(gc.msgCbs[:i], gc.msgCbs[i+1:]...)
			break
		}
	}
}

func (gc *GameConnection) OnStateChange(cb StateCallback) int {
	gc.cbM.Lock()
	defer gc.cbM.Unlock()
	gc.nextCbID++
	gc.stateCbs = append(gc.stateCbs, stateCallbackEntry{id: gc.nextCbID, callback: cb})
	return gc.nextCbID
}

func (gc *GameConnection) State() ConnState {
	gc.stateM.RLock()
	defer gc.stateM.RUnlock()
	return gc.state
}

func (gc *GameConnection) setState(state ConnState) {
	gc.stateM.Lock()
	gc.state = state
	gc.stateM.Unlock()

	gc.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(gc.stateCbs))
	copy(callbacks, gc.stateCbs)
	gc.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

func (gc *GameConnection) Close(ctx context.Context) error {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
	gc.dropConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		gc.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if gc.rootCancel != nil {
			gc.rootCancel()
		}
		return nil
	}
}

// dropConn closes the socket once and marks the connection disconnected.
func (gc *GameConnection) dropConn(code websocket.StatusCode, reason string) {
	gc.connM.Lock()
	conn := gc.conn
	gc.conn = nil
	gc.connM.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close(code, reason)
	gc.setState(StateDisconnected)
}

func (gc *GameConnection) isStopping() bool {
	select {
	case <-gc.stopCh:
		return true
	default:
		return false
	}
}
