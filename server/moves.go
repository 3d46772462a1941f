package server

import (
	"net/http"

	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/Antonite/snake_rl/snake"
	"gonum.org/v1/gonum/floats"
)

type MovesResponse struct {
	Action string  `json:"action"`
	Value  float64 `json:"value"`
	Best   bool    `json:"best"`
}

// GetMovesHandler reports the network's value for every move from the current board.
func (s *Server) GetMovesHandler(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)
	writeJSON(w, s.getMoves())
}

func (s *Server) getMoves() []*MovesResponse {
	game := s.source.Snapshot().Restore()
	values := s.source.Predict(qdeepneuro.GetState(game))
	best := floats.MaxIdx(values)

	mresponse := make([]*MovesResponse, 0, len(values))
	for i, v := range values {
		mresponse = append(mresponse, &MovesResponse{
			Action: snake.ActionFromIndex(i).String(),
			Value:  v,
			Best:   i == best,
		})
	}
	return mresponse
}
