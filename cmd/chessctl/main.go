// Command chessctl is a console client for the chess server: lobby calls go
// over REST and play goes over the /connect WebSocket.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/facade"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

const help = `commands:
  register <user> <pass> <email>   login <user> <pass>   logout
  create <name>   list   join <id> <white|black>   observe <id>
  move <e2e4|e7e8q>   redraw   resign   leave   png <file>   clear   quit`

type session struct {
	client    *facade.Client
	wsURL     string
	conn      *facade.GameConnection
	presenter *chesspresenter.Presenter
	gameID    int
	side      chess.Color
}

func main() {
	base := flag.String("server", envDefault("CHESS_SERVER_URL", "http://localhost:8080"), "server base URL")
	flag.Parse()

	s := &session{
		client: facade.NewClient(*base, facade.WithTimeout(8*time.Second)),
		wsURL:  "ws" + strings.TrimPrefix(strings.TrimRight(*base, "/"), "http") + "/connect",
		presenter: chesspresenter.NewPresenter(func(text string) error {
			_, err := fmt.Println(text)
			return err
		}, chess.White),
	}
	fmt.Println(help)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		args := strings.Fields(in.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := s.run(ctx, args[0], args[1:]); err != nil {
			fmt.Println("Error:", err)
		}
		cancel()
	}
	s.disconnect()
}

func (s *session) run(ctx context.Context, cmd string, args []string) error {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s)", cmd, n)
		}
		return nil
	}
	switch cmd {
	case "help":
		fmt.Println(help)
	case "register":
		if err := need(3); err != nil {
			return err
		}
		return s.client.Register(ctx, args[0], args[1], args[2])
	case "login":
		if err := need(2); err != nil {
			return err
		}
		return s.client.Login(ctx, args[0], args[1])
	case "logout":
		s.disconnect()
		return s.client.Logout(ctx)
	case "create":
		if err := need(1); err != nil {
			return err
		}
		id, err := s.client.CreateGame(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("created game %d\n", id)
	case "list":
		games, err := s.client.ListGames(ctx)
		if err != nil {
			return err
		}
		for _, g := range games {
			fmt.Printf("%4d  %-20s white=%-12s black=%-12s %s\n", g.GameID, g.GameName, orDash(g.WhiteUsername), orDash(g.BlackUsername), g.State)
		}
	case "join":
		if err := need(2); err != nil {
			return err
		}
		id, color, err := gameAndColor(args[0], args[1])
		if err != nil {
			return err
		}
		if err := s.client.JoinGame(ctx, id, color.String()); err != nil {
			return err
		}
		if err := s.connect(ctx); err != nil {
			return err
		}
		s.gameID, s.side = id, color
		s.presenter.SetPerspective(color)
		return s.conn.JoinPlayer(ctx, id, color.String())
	case "observe":
		if err := need(1); err != nil {
			return err
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad game id %q", args[0])
		}
		if err := s.connect(ctx); err != nil {
			return err
		}
		s.gameID, s.side = id, chess.White
		s.presenter.SetPerspective(chess.White)
		return s.conn.JoinObserver(ctx, id)
	case "move":
		if err := need(1); err != nil {
			return err
		}
		m, err := parseMove(args[0])
		if err != nil {
			return err
		}
		if err := s.requireGame(); err != nil {
			return err
		}
		return s.conn.MakeMove(ctx, s.gameID, chesspresenter.ToDTOMove(m))
	case "redraw":
		if err := s.requireGame(); err != nil {
			return err
		}
		return s.conn.Verbose(ctx, s.gameID)
	case "resign":
		if err := s.requireGame(); err != nil {
			return err
		}
		return s.conn.Resign(ctx, s.gameID)
	case "leave":
		if err := s.requireGame(); err != nil {
			return err
		}
		err := s.conn.Leave(ctx, s.gameID)
		s.gameID = 0
		return err
	case "png":
		if err := need(1); err != nil {
			return err
		}
		if s.gameID == 0 {
			return fmt.Errorf("not in a game")
		}
		img, err := s.client.BoardPNG(ctx, s.gameID, s.side.String())
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], img, 0o644)
	case "clear":
		return s.client.Clear(ctx)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *session) connect(ctx context.Context) error {
	if s.conn != nil && s.conn.State() == facade.StateConnected {
		return nil
	}
	token := s.client.Token()
	if token == "" {
		return facade.ErrNotLoggedIn
	}
	gc := facade.NewGameConnection(s.wsURL, token)
	gc.OnMessage(func(m chessdto.ServerMessage) {
		if err := s.presenter.Show(m); err != nil {
			log.Printf("display error: %v", err)
		}
	})
	gc.OnStateChange(func(st facade.ConnState) {
		if st == facade.StateDisconnected {
			fmt.Println("connection closed")
		}
	})
	if err := gc.Connect(ctx); err != nil {
		return err
	}
	s.conn = gc
	return nil
}

func (s *session) disconnect() {
	if s.conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.conn.Close(ctx)
	s.conn, s.gameID = nil, 0
}

func (s *session) requireGame() error {
	if s.conn == nil || s.gameID == 0 {
		return fmt.Errorf("not in a game")
	}
	return nil
}

func gameAndColor(idArg, colorArg string) (int, chess.Color, error) {
	id, err := strconv.Atoi(idArg)
	if err != nil {
		return 0, 0, fmt.Errorf("bad game id %q", idArg)
	}
	color, err := chess.ParseColor(colorArg)
	if err != nil {
		return 0, 0, err
	}
	return id, color, nil
}

// parseMove reads coordinate notation with an optional promotion letter.
func parseMove(s string) (chess.Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return chess.Move{}, fmt.Errorf("bad move %q, want e.g. e2e4 or e7e8q", s)
	}
	from, err := chess.ParsePosition(s[:2])
	if err != nil {
		return chess.Move{}, err
	}
	to, err := chess.ParsePosition(s[2:4])
	if err != nil {
		return chess.Move{}, err
	}
	m := chess.NewMove(from, to)
	if len(s) == 5 {
		t, err := chess.ParsePieceType(s[4:])
		if err != nil {
			return chess.Move{}, err
		}
		m = m.WithPromotion(t)
	}
	return m, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
