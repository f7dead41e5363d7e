package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"

	"github.com/totegamma/passgate/internal/domain"
)

type Config struct {
	Server Server `yaml:"server"`
	Gate   Gate   `yaml:"gate"`
	Notify Notify `yaml:"notify"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	// SqlitePath is used when no postgres dsn is set; single-gate installs.
	SqlitePath    string `yaml:"sqlitePath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	JwtSecret     string `yaml:"jwtSecret"`
	LogLevel      string `yaml:"logLevel"`
}

// Gate holds the environment-level defaults behind the persisted gate
// settings row.
type Gate struct {
	Token                   string   `yaml:"token"`
	CooldownSeconds         int      `yaml:"cooldownSeconds"`
	AllowedStatuses         []string `yaml:"allowedStatuses"`
	AllowRepeatAfterEntered bool     `yaml:"allowRepeatAfterEntered"`
	Timezone                string   `yaml:"timezone"`
	ConfigCacheSeconds      int      `yaml:"configCacheSeconds"`
}

type Notify struct {
	HeartbeatSeconds int    `yaml:"heartbeatSeconds"`
	RedisChannel     string `yaml:"redisChannel"`
}

// Defaults returns the gate policy used when no settings row overrides it.
func (g Gate) Defaults() domain.GateConfig {
	statuses := make([]string, len(g.AllowedStatuses))
	copy(statuses, g.AllowedStatuses)
	return domain.GateConfig{
		CooldownSeconds:         g.CooldownSeconds,
		AllowedStatuses:         statuses,
		AllowRepeatAfterEntered: g.AllowRepeatAfterEntered,
		Timezone:                g.Timezone,
	}
}

func Default() Config {
	return Config{
		Server: Server{
			Listen:     ":8000",
			SqlitePath: "passgate.db",
			LogLevel:   "info",
		},
		Gate: Gate{
			CooldownSeconds:    15,
			AllowedStatuses:    []string{string(domain.PassPending)},
			Timezone:           "Asia/Almaty",
			ConfigCacheSeconds: 5,
		},
		Notify: Notify{
			HeartbeatSeconds: 15,
			RedisChannel:     "passgate:notify",
		},
	}
}

// Load reads .env, then the yaml file at path (a missing file is not an
// error), then lets environment variables override both.
func Load(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", slog.String("error", err.Error()), slog.String("module", "config"))
	}

	config := Default()

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	ApplyEnv(&config, os.LookupEnv)
	return config, nil
}

// ApplyEnv overrides config values from the environment. Unparseable
// numbers and booleans are logged and ignored.
func ApplyEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			slog.Warn("ignoring invalid integer", slog.String("key", key), slog.String("module", "config"))
			return
		}
		*dst = n
	}

	str("PORT", &config.Server.Listen)
	if config.Server.Listen != "" && !strings.Contains(config.Server.Listen, ":") {
		config.Server.Listen = ":" + config.Server.Listen
	}
	str("DATABASE_DSN", &config.Server.PostgresDsn)
	str("SQLITE_PATH", &config.Server.SqlitePath)
	str("REDIS_ADDR", &config.Server.RedisAddr)
	str("REDIS_PASSWORD", &config.Server.RedisPassword)
	num("REDIS_DB", &config.Server.RedisDB)
	str("TRACE_ENDPOINT", &config.Server.TraceEndpoint)
	if config.Server.TraceEndpoint != "" {
		config.Server.EnableTrace = true
	}
	str("JWT_SECRET", &config.Server.JwtSecret)
	str("LOG_LEVEL", &config.Server.LogLevel)

	str("LPR_TOKEN", &config.Gate.Token)
	num("LPR_COOLDOWN_SECONDS", &config.Gate.CooldownSeconds)
	if v, ok := lookup("LPR_ALLOWED_STATUSES"); ok && strings.TrimSpace(v) != "" {
		config.Gate.AllowedStatuses = SplitCSV(v)
	}
	if v, ok := lookup("LPR_ALLOW_REPEAT_AFTER_ENTERED"); ok {
		config.Gate.AllowRepeatAfterEntered = strings.TrimSpace(v) == "true"
	}
	str("TZ", &config.Gate.Timezone)

	num("NOTIFY_HEARTBEAT_SECONDS", &config.Notify.HeartbeatSeconds)
}

// SplitCSV splits a comma separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s Server) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
