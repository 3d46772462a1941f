package qdeepneuro

import (
	"context"

	"github.com/Antonite/snake_rl/snake"
)

// Play runs one game with the agent's greedy policy and no training.
// onFrame, when set, sees every frame including the final one.
func Play(ctx context.Context, a *Agent, g *snake.Game, onFrame func(snake.State) error) (int, error) {
	g.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return g.Score(), err
		}

		_, over, score := g.PlayStep(a.BestAction(GetState(g)))
		if onFrame != nil {
			if err := onFrame(g.Snapshot()); err != nil {
				return score, err
			}
		}
		if over {
			return score, nil
		}
	}
}

// Evaluate plays n greedy games and returns their scores.
func Evaluate(ctx context.Context, a *Agent, g *snake.Game, n int) ([]int, error) {
	scores := make([]int, 0, n)
	for i := 0; i < n; i++ {
		score, err := Play(ctx, a, g, nil)
		if err != nil {
			return scores, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}
