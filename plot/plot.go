package plot

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// Plotter renders training scores to an HTML chart. It satisfies qdeepneuro.Plotter.
type Plotter struct {
	path  string
	title string
}

func New(path string) *Plotter {
	return &Plotter{
		path:  path,
		title: "Training...",
	}
}

func (p *Plotter) Path() string {
	return p.path
}

// Plot overwrites the chart with the score and mean score of every game so far.
func (p *Plotter) Plot(scores []int, means []float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: p.title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Number of Games",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Score",
		}),
	)

	games := make([]string, len(scores))
	scoreItems := make([]opts.LineData, len(scores))
	for i, s := range scores {
		games[i] = strconv.Itoa(i + 1)
		scoreItems[i] = opts.LineData{Value: s}
	}
	meanItems := make([]opts.LineData, len(means))
	for i, m := range means {
		meanItems[i] = opts.LineData{Value: m}
	}

	line.SetXAxis(games).
		AddSeries("Score", scoreItems).
		AddSeries("Mean score", meanItems)

	page := components.NewPage()
	page.AddCharts(line)

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create chart directory")
	}
	f, err := os.Create(p.path)
	if err != nil {
		return errors.Wrap(err, "failed to create chart")
	}
	defer f.Close()

	return errors.Wrap(page.Render(f), "failed to render chart")
}
