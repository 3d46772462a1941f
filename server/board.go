package server

import (
	"net/http"

	"github.com/Antonite/snake_rl/snake"
)

type BoardResponse struct {
	snake.State
	Direction string `json:"direction"`
}

func (s *Server) GetBoardHandler(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)
	writeJSON(w, s.getBoard())
}

func (s *Server) getBoard() *BoardResponse {
	state := s.source.Snapshot()
	return &BoardResponse{
		State:     state,
		Direction: state.Direction.String(),
	}
}
