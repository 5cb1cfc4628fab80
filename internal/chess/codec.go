package chess

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Binary layout:
//
//	int16 round
//	for each square, rank 8 down to rank 1, file a to h:
//	  piece: byte color|ordinal<<1, int16 movesTaken, int16 lastMoveRound
//	  empty run: 0xFF, count
//	0xFF 0xFF ends the stream when every remaining square is empty.
const (
	nullMarker     = 0xFF
	pieceRecordLen = 5
	maxEncodedLen  = 2 + boardSize*boardSize*pieceRecordLen
)

// squareOrder yields (row, col) in encoding order.
func squareOrder(yield func(pos Position) bool) {
	for row := boardSize; row >= 1; row-- {
		for col := 1; col <= boardSize; col++ {
			if !yield(Position{Row: row, Col: col}) {
				return
			}
		}
	}
}

func (b *Board) Serialize() []byte {
	buf := make([]byte, 2, maxEncodedLen)
	binary.BigEndian.PutUint16(buf, uint16(int16(b.round)))

	empty := 0
	for pos := range squareOrder {
		p := b.at(pos)
		if p == nil {
			empty++
			continue
		}
		if empty > 0 {
			buf = append(buf, nullMarker, byte(empty))
			empty = 0
		}
		buf = append(buf, byte(p.Color)|p.Type.ordinal()<<1)
		buf = binary.BigEndian.AppendUint16(buf, uint16(int16(p.movesTaken)))
		buf = binary.BigEndian.AppendUint16(buf, uint16(int16(p.lastMoveRound)))
	}
	if empty > 0 {
		buf = append(buf, nullMarker, nullMarker)
	}
	return buf
}

func DeserializeBoard(data []byte) (*Board, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: short header", ErrCorruptBoard)
	}
	b := NewBoard()
	b.round = int(int16(binary.BigEndian.Uint16(data)))

	var squares []Position
	for pos := range squareOrder {
		squares = append(squares, pos)
	}

	i, off := 0, 2
	for i < len(squares) {
		if off >= len(data) {
			return nil, fmt.Errorf("%w: stream ended at square %d", ErrCorruptBoard, i)
		}
		head := data[off]
		if head == nullMarker {
			if off+1 >= len(data) {
				return nil, fmt.Errorf("%w: truncated empty run", ErrCorruptBoard)
			}
			count := data[off+1]
			off += 2
			if count == nullMarker {
				i = len(squares)
				break
			}
			if count == 0 || i+int(count) > len(squares) {
				return nil, fmt.Errorf("%w: bad empty run %d at square %d", ErrCorruptBoard, count, i)
			}
			i += int(count)
			continue
		}
		if off+pieceRecordLen > len(data) {
			return nil, fmt.Errorf("%w: truncated piece", ErrCorruptBoard)
		}
		t, ok := pieceTypeFromOrdinal(head >> 1)
		if !ok {
			return nil, fmt.Errorf("%w: bad piece byte 0x%02x", ErrCorruptBoard, head)
		}
		p := &Piece{
			Type:          t,
			Color:         Color(head & 1),
			movesTaken:    int(int16(binary.BigEndian.Uint16(data[off+1:]))),
			lastMoveRound: int(int16(binary.BigEndian.Uint16(data[off+3:]))),
		}
		b.place(squares[i], p)
		off += pieceRecordLen
		i++
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptBoard, len(data)-off)
	}
	return b, nil
}

// EncodeString is the base64 form carried inside JSON documents.
func (b *Board) EncodeString() string {
	return base64.StdEncoding.EncodeToString(b.Serialize())
}

func DecodeBoardString(s string) (*Board, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBoard, err)
	}
	return DeserializeBoard(raw)
}
