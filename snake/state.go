package snake

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/logrusorgru/aurora"
)

// State is a copy of a game that can be shared with other goroutines.
type State struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Direction Direction `json:"direction"`
	Body      []Point   `json:"body"`
	Food      Point     `json:"food"`
	Score     int       `json:"score"`
	Frame     int       `json:"frame"`
}

func (g *Game) Snapshot() State {
	return State{
		Width:     g.width,
		Height:    g.height,
		Direction: g.direction,
		Body:      g.Body(),
		Food:      g.food,
		Score:     g.score,
		Frame:     g.frame,
	}
}

// Render draws the state as a grid of blocks. Colours are skipped when au was
// built with colours disabled.
func (s State) Render(w io.Writer, au aurora.Aurora) error {
	cols := s.Width / BlockSize
	rows := s.Height / BlockSize

	cells := make(map[Point]rune, len(s.Body)+1)
	for i, b := range s.Body {
		if i == 0 {
			cells[b] = '@'
		} else {
			cells[b] = '#'
		}
	}
	cells[s.Food] = '*'

	border := "+"
	for c := 0; c < cols; c++ {
		border += "-"
	}
	border += "+\n"

	if _, err := fmt.Fprint(w, au.White(border)); err != nil {
		return err
	}
	for r := 0; r < rows; r++ {
		fmt.Fprint(w, au.White("|"))
		for c := 0; c < cols; c++ {
			switch ch := cells[Point{X: c * BlockSize, Y: r * BlockSize}]; ch {
			case '@':
				fmt.Fprint(w, au.Blue(string(ch)))
			case '#':
				fmt.Fprint(w, au.Green(string(ch)))
			case '*':
				fmt.Fprint(w, au.Red(string(ch)))
			default:
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, au.White("|\n"))
	}
	_, err := fmt.Fprintf(w, "%sScore: %d\n", au.White(border), s.Score)
	return err
}

// Restore builds a game positioned at the state. Food placed by the restored
// game uses its own random source.
func (s State) Restore() *Game {
	body := make([]Point, len(s.Body))
	copy(body, s.Body)
	return &Game{
		width:     s.Width,
		height:    s.Height,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		direction: s.Direction,
		body:      body,
		food:      s.Food,
		score:     s.Score,
		frame:     s.Frame,
	}
}
