package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Provider selects the generation backend.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Secondary strategies.
const (
	StrategyKeyword = "keyword"
	StrategyLLM     = "llm"
	StrategyNone    = "none"
)

// Config is read once from the environment at startup. StateTable is only
// needed by entrypoints that persist turns.
type Config struct {
	StateTable  string `env:"STATE_TABLE"`
	ParamPrefix string `env:"PARAM_PREFIX,required,notEmpty"`

	MaxHistoryItems int `env:"MAX_HISTORY_ITEMS" envDefault:"20"`
	MaxQueryLength  int `env:"MAX_QUERY_LENGTH" envDefault:"300"`

	LLM      LLMConfig      `envPrefix:"LLM_"`
	FollowUp FollowUpConfig `envPrefix:"FOLLOW_UP_"`
	Log      LogConfig      `envPrefix:"LOG_"`
}

type LLMConfig struct {
	Provider        string `env:"PROVIDER" envDefault:"openai"`
	Model           string `env:"MODEL"`
	BaseURL         string `env:"BASE_URL"`
	MaxOutputTokens int    `env:"MAX_OUTPUT_TOKENS" envDefault:"512"`
	MaxRetries      int    `env:"MAX_RETRIES" envDefault:"2"`
	JSONOutput      bool   `env:"JSON_OUTPUT" envDefault:"true"`
}

type FollowUpConfig struct {
	MaxQuestions      int           `env:"MAX_QUESTIONS" envDefault:"3"`
	MaxPromptChars    int           `env:"MAX_PROMPT_CHARS" envDefault:"10000"`
	MinQuestionChars  int           `env:"MIN_QUESTION_CHARS" envDefault:"10"`
	MaxQuestionChars  int           `env:"MAX_QUESTION_CHARS" envDefault:"200"`
	Sentinel          string        `env:"SENTINEL" envDefault:"No follow-up needed"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"8s"`
	SecondaryStrategy string        `env:"SECONDARY_STRATEGY" envDefault:"keyword"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: parse environment")
	}
	return finish(&cfg)
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, eris.Wrap(err, "config: parse environment")
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.StateTable = strings.TrimSpace(cfg.StateTable)
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.FollowUp.SecondaryStrategy = strings.ToLower(strings.TrimSpace(cfg.FollowUp.SecondaryStrategy))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.ParamPrefix == "" {
		return eris.New("config: PARAM_PREFIX must not be empty")
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return eris.Errorf("config: unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.FollowUp.SecondaryStrategy {
	case StrategyKeyword, StrategyLLM, StrategyNone:
	default:
		return eris.Errorf("config: unknown FOLLOW_UP_SECONDARY_STRATEGY %q", c.FollowUp.SecondaryStrategy)
	}
	if c.FollowUp.MaxQuestions <= 0 {
		return eris.New("config: FOLLOW_UP_MAX_QUESTIONS must be positive")
	}
	if c.FollowUp.MaxPromptChars <= 0 {
		return eris.New("config: FOLLOW_UP_MAX_PROMPT_CHARS must be positive")
	}
	if c.FollowUp.MaxQuestionChars > 0 && c.FollowUp.MaxQuestionChars <= c.FollowUp.MinQuestionChars {
		return eris.New("config: FOLLOW_UP_MAX_QUESTION_CHARS must exceed FOLLOW_UP_MIN_QUESTION_CHARS")
	}
	if c.FollowUp.Timeout <= 0 {
		return eris.New("config: FOLLOW_UP_TIMEOUT must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return eris.New("config: LLM_MAX_RETRIES must not be negative")
	}
	return nil
}

// InitLogger installs the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
