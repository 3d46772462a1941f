package config

import (
	"flag"
	"os"
	"time"

	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/Antonite/snake_rl/snake"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type Agent struct {
	MaxMemory    int     `yaml:"max_memory"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Gamma        float64 `yaml:"gamma"`
	HiddenSize   int     `yaml:"hidden_size"`
	ExploreGames int     `yaml:"explore_games"`
	ExploreRange int     `yaml:"explore_range"`
}

type Game struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Couchbase struct {
	// Connection string. Empty disables the recorder.
	Address  string        `yaml:"address"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Bucket   string        `yaml:"bucket"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Config struct {
	Agent     Agent     `yaml:"agent"`
	Game      Game      `yaml:"game"`
	Couchbase Couchbase `yaml:"couchbase"`

	ModelPath     string        `yaml:"model_path"`
	UseCheckpoint bool          `yaml:"use_checkpoint"`
	MaxGames      int           `yaml:"max_games"`
	ChartPath     string        `yaml:"chart_path"`
	Render        bool          `yaml:"render"`
	FrameDelay    time.Duration `yaml:"frame_delay"`
	Addr          string        `yaml:"addr"`
	LogLevel      string        `yaml:"log_level"`
}

func Default() *Config {
	p := qdeepneuro.DefaultParams()
	return &Config{
		Agent: Agent{
			MaxMemory:    p.MaxMemory,
			BatchSize:    p.BatchSize,
			LearningRate: p.LearningRate,
			Gamma:        p.Gamma,
			HiddenSize:   p.HiddenSize,
			ExploreGames: p.ExploreGames,
			ExploreRange: p.ExploreRange,
		},
		Game: Game{
			Width:  snake.DefaultWidth,
			Height: snake.DefaultHeight,
		},
		Couchbase: Couchbase{
			Username: "snake",
			Password: "snakerl",
			Bucket:   "qlearn",
			Timeout:  5 * time.Second,
		},
		ModelPath:     "./model/model.pth",
		UseCheckpoint: true,
		ChartPath:     "./charts/training.html",
		LogLevel:      "info",
	}
}

// Load reads a yaml file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// LoadFlags binds the command line flags to the config. Values come from the
// defaults, then the file named by -config, then the flags given explicitly.
func LoadFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	var path string
	fs.StringVar(&path, "config", "", "yaml config file")
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		// Flags win over the file
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	return errors.Wrapf(yaml.UnmarshalStrict(data, c), "failed to parse config %s", path)
}

func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.ModelPath, "model", c.ModelPath, "weight file, saved whenever a game beats the best score")
	fs.BoolVar(&c.UseCheckpoint, "checkpoint", c.UseCheckpoint, "start from the weight file when it exists")
	fs.IntVar(&c.MaxGames, "games", c.MaxGames, "stop after this many games, 0 runs until interrupted")
	fs.StringVar(&c.ChartPath, "chart", c.ChartPath, "html score chart, empty disables plotting")
	fs.BoolVar(&c.Render, "render", c.Render, "draw the board in the terminal")
	fs.DurationVar(&c.FrameDelay, "delay", c.FrameDelay, "pause between rendered frames")
	fs.StringVar(&c.Addr, "addr", c.Addr, "serve board, stats and metrics on this address")
	fs.StringVar(&c.Couchbase.Address, "couchbase", c.Couchbase.Address, "couchbase connection string for game records")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.IntVar(&c.Agent.BatchSize, "batch-size", c.Agent.BatchSize, "long memory batch size")
	fs.Float64Var(&c.Agent.LearningRate, "lr", c.Agent.LearningRate, "learning rate")
	fs.Float64Var(&c.Agent.Gamma, "gamma", c.Agent.Gamma, "discount rate")
	fs.IntVar(&c.Game.Width, "width", c.Game.Width, "board width in pixels")
	fs.IntVar(&c.Game.Height, "height", c.Game.Height, "board height in pixels")
}

func (c *Config) Validate() error {
	switch {
	case c.Agent.MaxMemory < 1:
		return errors.New("agent.max_memory must be positive")
	case c.Agent.BatchSize < 1:
		return errors.New("agent.batch_size must be positive")
	case c.Agent.HiddenSize < 1:
		return errors.New("agent.hidden_size must be positive")
	case c.Agent.ExploreRange < 0:
		return errors.New("agent.explore_range must not be negative")
	// Sizes are rounded down to whole blocks and the snake starts three blocks
	// long with its head in the middle column.
	case c.Game.Width/snake.BlockSize < 4 || c.Game.Height/snake.BlockSize < 1:
		return errors.Errorf("game must be at least %dx%d", 4*snake.BlockSize, snake.BlockSize)
	}
	return nil
}

func (c *Config) Params() qdeepneuro.Params {
	return qdeepneuro.Params{
		MaxMemory:    c.Agent.MaxMemory,
		BatchSize:    c.Agent.BatchSize,
		LearningRate: c.Agent.LearningRate,
		Gamma:        c.Agent.Gamma,
		HiddenSize:   c.Agent.HiddenSize,
		ExploreGames: c.Agent.ExploreGames,
		ExploreRange: c.Agent.ExploreRange,
	}
}

// SetupLogging applies the configured log level.
func (c *Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
