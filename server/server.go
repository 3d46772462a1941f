package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Antonite/snake_rl/metrics"
	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/Antonite/snake_rl/snake"
	log "github.com/sirupsen/logrus"
)

// Source is the training run the server reports on.
type Source interface {
	Snapshot() snake.State
	Stats() qdeepneuro.Stats
	Predict(state []float64) []float64
}

type Server struct {
	source  Source
	metrics *metrics.Metrics
}

func New(source Source, m *metrics.Metrics) *Server {
	return &Server{source: source, metrics: m}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/board", s.GetBoardHandler)
	mux.HandleFunc("/moves", s.GetMovesHandler)
	mux.HandleFunc("/stats", s.GetStatsHandler)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).WithField("addr", addr).Debug("server shutdown was not clean")
			return
		}
		log.WithField("addr", addr).Debug("server stopped")
	}()

	log.WithField("addr", addr).Info("server started")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Access-Control-Allow-Headers, Origin,Accept, X-Requested-With, Content-Type, Access-Control-Request-Method, Access-Control-Request-Headers")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

func (s *Server) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)
	writeJSON(w, s.source.Stats())
}
