package chess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	corechess "github.com/park285/cheese-chess-server/internal/chess"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type RenderOptions struct {
	// Perspective puts that side's pieces at the bottom.
	Perspective corechess.Color
	Title       string
	State       string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, game *corechess.Game, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

const (
	squareSize   = 64
	boardSquares = 8
	boardPixels  = squareSize * boardSquares
	sideMargin   = 28
	topMargin    = 72
	bottomMargin = 28
	panelHeight  = 30
	panelRadius  = 10
	panelPadX    = 16
	gapToBoard   = 14
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, game *corechess.Game, opts RenderOptions) ([]byte, error) {
	if game == nil {
		return nil, fmt.Errorf("game is nil")
	}

	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardPixels, origin.Y+boardPixels)
	img := image.NewRGBA(image.Rect(0, 0, boardPixels+sideMargin*2, boardPixels+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	view := newBoardView(opts.Perspective, origin)
	drawHUD(img, game, opts, boardRect)
	drawSquares(img, view)
	drawCheck(img, game, view)
	if err := drawPieces(img, game, view); err != nil {
		return nil, err
	}
	drawCoordinates(img, view)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor     = color.RGBA{22, 24, 34, 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	checkOverlayColor   = color.NRGBA{R: 220, G: 40, B: 40, A: 150}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudShadowColor      = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// boardView maps engine positions to pixels for one perspective.
type boardView struct {
	perspective corechess.Color
	origin      image.Point
}

func newBoardView(perspective corechess.Color, origin image.Point) boardView {
	return boardView{perspective: perspective, origin: origin}
}

// cell returns the screen row and column (0 at top-left) of pos.
func (v boardView) cell(pos corechess.Position) (row, col int) {
	if v.perspective == corechess.Black {
		return pos.Row - 1, boardSquares - pos.Col
	}
	return boardSquares - pos.Row, pos.Col - 1
}

func (v boardView) rect(pos corechess.Position) image.Rectangle {
	row, col := v.cell(pos)
	x := v.origin.X + col*squareSize
	y := v.origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func eachPosition(fn func(pos corechess.Position)) {
	for row := 1; row <= boardSquares; row++ {
		for col := 1; col <= boardSquares; col++ {
			fn(corechess.NewPosition(row, col))
		}
	}
}

func drawSquares(dst imagedraw.Image, v boardView) {
	eachPosition(func(pos corechess.Position) {
		clr := lightSquare
		if (pos.Row+pos.Col)%2 == 0 {
			clr = darkSquare
		}
		imagedraw.Draw(dst, v.rect(pos), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	})
}

func drawPieces(dst imagedraw.Image, game *corechess.Game, v boardView) error {
	var err error
	eachPosition(func(pos corechess.Position) {
		if err != nil {
			return
		}
		piece, ok := game.PieceAt(pos)
		if !ok {
			return
		}
		var img image.Image
		img, err = renderPieceImage(piece, squareSize)
		if err != nil {
			return
		}
		imagedraw.Draw(dst, v.rect(pos), img, image.Point{}, imagedraw.Over)
	})
	return err
}

// drawCheck tints the king square of the side to move when it is in check.
func drawCheck(img *image.RGBA, game *corechess.Game, v boardView) {
	turn := game.Turn()
	if !game.IsInCheck(turn) {
		return
	}
	king, ok := game.Board().KingPosition(turn)
	if !ok {
		return
	}
	imagedraw.Draw(img, v.rect(king), image.NewUniform(checkOverlayColor), image.Point{}, imagedraw.Over)
}

func drawHUD(img *image.RGBA, game *corechess.Game, opts RenderOptions, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Chess"
	}
	if state := strings.TrimSpace(opts.State); state != "" {
		title += " - " + state
	}
	turnText := fmt.Sprintf("%s to move", game.Turn())

	bottom := boardRect.Min.Y - gapToBoard
	top := bottom - panelHeight

	turnWidth := drawer.MeasureString(turnText).Round() + panelPadX*2
	turnRect := image.Rect(boardRect.Max.X-turnWidth, top, boardRect.Max.X, bottom)

	titleWidth := drawer.MeasureString(title).Round() + panelPadX*2
	if maxWidth := boardRect.Dx() - turnWidth - 12; titleWidth > maxWidth {
		titleWidth = maxWidth
	}
	titleRect := image.Rect(boardRect.Min.X, top, boardRect.Min.X+titleWidth, bottom)
	title = truncateWithEllipsis(face, title, titleRect.Dx()-panelPadX*2)

	for _, r := range []image.Rectangle{titleRect, turnRect} {
		drawRoundedPanel(img, r.Add(image.Pt(0, 4)), panelRadius, hudShadowColor)
		drawRoundedPanel(img, r, panelRadius, hudPanelColor)
	}
	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTextPrimary)
}

func drawCoordinates(dst imagedraw.Image, v boardView) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()

	for i := 1; i <= boardSquares; i++ {
		rankRect := v.rect(corechess.NewPosition(i, 1))
		if v.perspective == corechess.Black {
			rankRect = v.rect(corechess.NewPosition(i, boardSquares))
		}
		drawCenteredText(drawer, fmt.Sprint(i), v.origin.X-sideMargin/2, rankRect.Min.Y+squareSize/2+ascent/2)

		fileRect := v.rect(corechess.NewPosition(1, i))
		if v.perspective == corechess.Black {
			fileRect = v.rect(corechess.NewPosition(boardSquares, i))
		}
		file := string(rune('a' + i - 1))
		drawCenteredText(drawer, file, fileRect.Min.X+squareSize/2, v.origin.Y+boardPixels+ascent+4)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	if limit := min(rect.Dx(), rect.Dy()) / 2; radius > limit {
		radius = limit
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// Cross of two rectangles plus four corner discs.
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawQuarterDisc(img, center, radius, clr, rect)
	}
}

// drawQuarterDisc fills the part of the disc at center that lies outside the
// already painted cross but inside bounds.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, clr color.Color, bounds image.Rectangle) {
	inner := image.Rect(bounds.Min.X+radius, bounds.Min.Y, bounds.Max.X-radius, bounds.Max.Y)
	side := image.Rect(bounds.Min.X, bounds.Min.Y+radius, bounds.Max.X, bounds.Max.Y-radius)
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if !p.In(bounds) || p.In(inner) || p.In(side) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/65535) >> 8),
	})
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
