package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mathfly-quiz-service/internal/app"
	"mathfly-quiz-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Offline struct {
		Path string `yaml:"path"`
	} `yaml:"offline"`
	Questions struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Quiz struct {
		QuestionCount   int     `yaml:"question_count"`
		TimeLimit       string  `yaml:"time_limit"`
		BonusDivisor    float64 `yaml:"bonus_divisor"`
		UnlockThreshold int     `yaml:"unlock_threshold"`
		FeedbackDelay   string  `yaml:"feedback_delay"`
		Tick            string  `yaml:"tick"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as an empty config.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	return cfg, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// QuizSettings resolves the game tuning, filling unset values with defaults.
// A feedback_delay of "0s" disables auto-advance.
func (c Config) QuizSettings() app.Settings {
	s := app.DefaultSettings()
	q := c.Quiz

	if q.QuestionCount > 0 {
		s.QuestionCount = q.QuestionCount
	}
	if q.UnlockThreshold > 0 {
		s.UnlockThreshold = q.UnlockThreshold
	}
	if q.BonusDivisor > 0 {
		s.Scoring.BonusDivisor = q.BonusDivisor
	}
	s.Scoring.TimeLimit = TTLDuration(q.TimeLimit, s.Scoring.TimeLimit)
	s.Controller.Tick = TTLDuration(q.Tick, s.Controller.Tick)
	s.Controller.FeedbackDelay = TTLDuration(q.FeedbackDelay, s.Controller.FeedbackDelay)

	if s.Controller.Tick > 0 {
		s.Controller.Countdown = int(s.Scoring.TimeLimit / s.Controller.Tick)
	}
	if s.Controller.Countdown <= 0 {
		s.Controller.Countdown = 1
	}
	if s.QuestionCount <= 0 {
		s.QuestionCount = domain.DefaultQuestionCount
	}
	return s
}
