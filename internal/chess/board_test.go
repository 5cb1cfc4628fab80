package chess

import (
	"bytes"
	"errors"
	"testing"
)

func TestPositionOffsetAndParse(t *testing.T) {
	p := sq(t, "a1")
	if _, ok := p.Offset(-1, 0); ok {
		t.Fatalf("offset below rank 1 should fail")
	}
	next, ok := p.Offset(3, 4)
	if !ok || next.String() != "e4" {
		t.Fatalf("offset = %v %v, want e4", next, ok)
	}
	if _, err := ParsePosition("i9"); err == nil {
		t.Fatalf("expected error for i9")
	}
}

func TestRelocateKeepsDerivedStateInStep(t *testing.T) {
	b := diagram(t,
		"....k...",
		"........",
		"........",
		"...p....",
		"....N...",
		"........",
		"........",
		"....K...",
	)
	captured, err := b.Relocate(mv(t, "e4d5"))
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if captured == nil || captured.Type != Pawn || captured.Color != Black {
		t.Fatalf("captured = %+v, want black pawn", captured)
	}
	if got := b.Positions(Black); len(got) != 1 || got[0] != sq(t, "e8") {
		t.Fatalf("black positions = %v", got)
	}
	if got := b.Positions(White); len(got) != 2 || got[1] != sq(t, "d5") {
		t.Fatalf("white positions = %v", got)
	}
	p, _ := b.PieceAt(sq(t, "d5"))
	if p.MovesTaken() != 1 || p.LastMoveRound() != 0 {
		t.Fatalf("moved piece history = %d/%d", p.MovesTaken(), p.LastMoveRound())
	}

	if _, err := b.Relocate(mv(t, "e1f1")); err != nil {
		t.Fatalf("Relocate king: %v", err)
	}
	if k, ok := b.KingPosition(White); !ok || k != sq(t, "f1") {
		t.Fatalf("white king cache = %v %v", k, ok)
	}
}

func TestRelocatePawnToLastRankNeedsChoice(t *testing.T) {
	b := diagram(t,
		"....k...",
		"P.......",
		"........",
		"........",
		"........",
		"........",
		"........",
		"....K...",
	)
	before := b.Copy()
	if _, err := b.Relocate(mv(t, "a7a8")); !errors.Is(err, ErrPromotionRequired) {
		t.Fatalf("err = %v, want ErrPromotionRequired", err)
	}
	if !b.Equal(before) {
		t.Fatalf("board changed after rejected relocate")
	}
	if _, err := b.Relocate(mv(t, "a7a8n")); err != nil {
		t.Fatalf("Relocate with promotion: %v", err)
	}
	if p, _ := b.PieceAt(sq(t, "a8")); p.Type != Knight || p.Color != White {
		t.Fatalf("a8 = %+v, want white knight", p)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	b := NewStandardBoard()
	c := b.Copy()
	if _, err := c.Relocate(mv(t, "e2e4")); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if _, ok := b.PieceAt(sq(t, "e2")); !ok {
		t.Fatalf("source board lost e2 after copy was mutated")
	}
	if len(b.Positions(White)) != 16 || len(c.Positions(White)) != 16 {
		t.Fatalf("position sets diverged in size")
	}
	if b.Equal(c) {
		t.Fatalf("boards should differ")
	}
}

func TestSerializeLayout(t *testing.T) {
	if got := NewBoard().Serialize(); !bytes.Equal(got, []byte{0, 0, 0xFF, 0xFF}) {
		t.Fatalf("empty board = %x", got)
	}

	b := NewBoard()
	b.SetRound(3)
	b.Place(sq(t, "a8"), NewPiece(King, Black))
	want := []byte{0, 3, 0x01, 0, 0, 0, 0, 0xFF, 0xFF}
	if got := b.Serialize(); !bytes.Equal(got, want) {
		t.Fatalf("a8 king = %x, want %x", got, want)
	}

	b = NewBoard()
	b.Place(sq(t, "h1"), NewPiece(Rook, White))
	want = []byte{0, 0, 0xFF, 63, 4 << 1, 0, 0, 0, 0}
	if got := b.Serialize(); !bytes.Equal(got, want) {
		t.Fatalf("h1 rook = %x, want %x", got, want)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	g := NewGame()
	play(t, g, "e2e4", "d7d5", "e4d5", "g8f6", "f1b5", "c7c6", "d5c6", "d8d2", "b1d2")

	boards := []*Board{NewBoard(), NewStandardBoard(), g.board}
	for i, b := range boards {
		got, err := DeserializeBoard(b.Serialize())
		if err != nil {
			t.Fatalf("case %d: DeserializeBoard: %v", i, err)
		}
		if !got.Equal(b) {
			t.Fatalf("case %d: round trip mismatch\nwant:\n%s\ngot:\n%s", i, b, got)
		}
		if len(got.Positions(White)) != len(b.Positions(White)) || len(got.Positions(Black)) != len(b.Positions(Black)) {
			t.Fatalf("case %d: derived sets not rebuilt", i)
		}
	}

	decoded, err := DecodeBoardString(g.board.EncodeString())
	if err != nil || !decoded.Equal(g.board) {
		t.Fatalf("base64 round trip failed: %v", err)
	}
}

func TestDeserializeRejectsCorruptInput(t *testing.T) {
	cases := map[string][]byte{
		"short":           {0},
		"truncated":       {0, 0, 0x01, 0},
		"overlong run":    {0, 0, 0xFF, 65},
		"bad piece":       {0, 0, 0x0E, 0, 0, 0, 0, 0xFF, 0xFF},
		"trailing":        {0, 0, 0xFF, 0xFF, 0x00},
		"missing squares": {0, 0, 0xFF, 10},
	}
	for name, data := range cases {
		if _, err := DeserializeBoard(data); !errors.Is(err, ErrCorruptBoard) {
			t.Fatalf("%s: err = %v, want ErrCorruptBoard", name, err)
		}
	}
}
