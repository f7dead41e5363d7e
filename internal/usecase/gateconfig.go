package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/totegamma/passgate/internal/domain"
)

const settingsCacheKey = "gate:settings"

// SettingsInput is a partial update of the gate settings. Nil fields are
// left unchanged.
type SettingsInput struct {
	CooldownSeconds         *int
	AllowedStatuses         *string
	AllowRepeatAfterEntered *bool
	Timezone                *string
	GenerateNewToken        bool
}

type GateConfigUsecase struct {
	repo     SettingsRepository
	defaults domain.GateConfig
	envToken string
	cache    *cache.Cache
}

// NewGateConfigUsecase resolves gate policy from the settings store with
// defaults as fallback. A positive ttl caches the settings row in process.
func NewGateConfigUsecase(
	repo SettingsRepository,
	defaults domain.GateConfig,
	envToken string,
	ttl time.Duration,
) *GateConfigUsecase {
	uc := &GateConfigUsecase{
		repo:     repo,
		defaults: defaults,
		envToken: envToken,
	}
	if ttl > 0 {
		uc.cache = cache.New(ttl, 2*ttl)
	}
	return uc
}

// Defaults returns the environment-level policy.
func (uc *GateConfigUsecase) Defaults() domain.GateConfig {
	statuses := make([]string, len(uc.defaults.AllowedStatuses))
	copy(statuses, uc.defaults.AllowedStatuses)
	cfg := uc.defaults
	cfg.AllowedStatuses = statuses
	return cfg
}

// Get never fails: storage errors are logged and the defaults returned.
func (uc *GateConfigUsecase) Get(ctx context.Context) domain.GateConfig {
	settings, err := uc.latest(ctx)
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to load gate settings, using defaults",
			slog.String("error", err.Error()),
			slog.String("module", "gateconfig"),
		)
		return uc.Defaults()
	}
	return uc.merge(settings)
}

// Token returns the shared secret gate agents must present. The persisted
// token wins over the environment one; empty means none is configured.
func (uc *GateConfigUsecase) Token(ctx context.Context) string {
	settings, err := uc.latest(ctx)
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to load gate token, using environment",
			slog.String("error", err.Error()),
			slog.String("module", "gateconfig"),
		)
	}
	if settings != nil && settings.LprToken != nil && *settings.LprToken != "" {
		return *settings.LprToken
	}
	return uc.envToken
}

// Settings returns the stored settings row, seeding one from the defaults
// when none exists yet.
func (uc *GateConfigUsecase) Settings(ctx context.Context) (domain.GateSettings, error) {
	settings, err := uc.repo.Latest(ctx)
	if err != nil {
		return domain.GateSettings{}, errors.Wrap(err, "load gate settings")
	}
	if settings != nil {
		return uc.fill(*settings), nil
	}

	seeded, err := uc.seed(SettingsInput{})
	if err != nil {
		return domain.GateSettings{}, err
	}
	created, err := uc.repo.Create(ctx, seeded)
	if err != nil {
		return domain.GateSettings{}, errors.Wrap(err, "seed gate settings")
	}
	uc.Invalidate()
	return uc.fill(created), nil
}

// Save applies a partial update to the latest settings row, creating it
// when none exists.
func (uc *GateConfigUsecase) Save(ctx context.Context, input SettingsInput) (domain.GateSettings, error) {
	if err := validateSettings(input); err != nil {
		return domain.GateSettings{}, err
	}

	existing, err := uc.repo.Latest(ctx)
	if err != nil {
		return domain.GateSettings{}, errors.Wrap(err, "load gate settings")
	}

	if existing == nil {
		seeded, err := uc.seed(input)
		if err != nil {
			return domain.GateSettings{}, err
		}
		created, err := uc.repo.Create(ctx, seeded)
		if err != nil {
			return domain.GateSettings{}, errors.Wrap(err, "create gate settings")
		}
		uc.Invalidate()
		return uc.fill(created), nil
	}

	updated := *existing
	if input.GenerateNewToken {
		token, err := GenerateToken()
		if err != nil {
			return domain.GateSettings{}, err
		}
		updated.LprToken = &token
	}
	if input.CooldownSeconds != nil {
		updated.CooldownSeconds = input.CooldownSeconds
	}
	if input.AllowedStatuses != nil {
		updated.AllowedStatuses = input.AllowedStatuses
	}
	if input.AllowRepeatAfterEntered != nil {
		updated.AllowRepeatAfterEntered = input.AllowRepeatAfterEntered
	}
	if input.Timezone != nil {
		updated.Timezone = input.Timezone
	}

	saved, err := uc.repo.Update(ctx, updated)
	if err != nil {
		return domain.GateSettings{}, errors.Wrap(err, "update gate settings")
	}
	uc.Invalidate()
	return uc.fill(saved), nil
}

// Invalidate drops the cached settings row.
func (uc *GateConfigUsecase) Invalidate() {
	if uc.cache != nil {
		uc.cache.Delete(settingsCacheKey)
	}
}

func (uc *GateConfigUsecase) latest(ctx context.Context) (*domain.GateSettings, error) {
	if uc.cache != nil {
		if x, found := uc.cache.Get(settingsCacheKey); found {
			return x.(*domain.GateSettings), nil
		}
	}

	settings, err := uc.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		uc.cache.Set(settingsCacheKey, settings, cache.DefaultExpiration)
	}
	return settings, nil
}

func (uc *GateConfigUsecase) merge(settings *domain.GateSettings) domain.GateConfig {
	cfg := uc.Defaults()
	if settings == nil {
		return cfg
	}
	if settings.CooldownSeconds != nil && *settings.CooldownSeconds > 0 {
		cfg.CooldownSeconds = *settings.CooldownSeconds
	}
	if settings.AllowedStatuses != nil {
		if statuses := splitStatuses(*settings.AllowedStatuses); len(statuses) > 0 {
			cfg.AllowedStatuses = statuses
		}
	}
	if settings.AllowRepeatAfterEntered != nil {
		cfg.AllowRepeatAfterEntered = *settings.AllowRepeatAfterEntered
	}
	if settings.Timezone != nil && *settings.Timezone != "" {
		cfg.Timezone = *settings.Timezone
	}
	return cfg
}

// seed builds a new settings row from defaults overlaid with input.
func (uc *GateConfigUsecase) seed(input SettingsInput) (domain.GateSettings, error) {
	token := uc.envToken
	if token == "" || input.GenerateNewToken {
		generated, err := GenerateToken()
		if err != nil {
			return domain.GateSettings{}, err
		}
		token = generated
	}

	defaults := uc.Defaults()
	cooldown := defaults.CooldownSeconds
	statuses := strings.Join(defaults.AllowedStatuses, ",")
	repeat := defaults.AllowRepeatAfterEntered
	timezone := defaults.Timezone

	if input.CooldownSeconds != nil {
		cooldown = *input.CooldownSeconds
	}
	if input.AllowedStatuses != nil {
		statuses = *input.AllowedStatuses
	}
	if input.AllowRepeatAfterEntered != nil {
		repeat = *input.AllowRepeatAfterEntered
	}
	if input.Timezone != nil {
		timezone = *input.Timezone
	}

	return domain.GateSettings{
		LprToken:                &token,
		CooldownSeconds:         &cooldown,
		AllowedStatuses:         &statuses,
		AllowRepeatAfterEntered: &repeat,
		Timezone:                &timezone,
	}, nil
}

// fill resolves nil fields against the defaults for display.
func (uc *GateConfigUsecase) fill(settings domain.GateSettings) domain.GateSettings {
	cfg := uc.merge(&settings)
	statuses := strings.Join(cfg.AllowedStatuses, ",")
	token := ""
	if settings.LprToken != nil {
		token = *settings.LprToken
	}
	settings.LprToken = &token
	settings.CooldownSeconds = &cfg.CooldownSeconds
	settings.AllowedStatuses = &statuses
	settings.AllowRepeatAfterEntered = &cfg.AllowRepeatAfterEntered
	settings.Timezone = &cfg.Timezone
	return settings
}

func validateSettings(input SettingsInput) error {
	verr := &domain.ValidationError{}
	if input.CooldownSeconds != nil && (*input.CooldownSeconds < 1 || *input.CooldownSeconds > 3600) {
		verr.Add("cooldown_seconds", "must be between 1 and 3600 seconds")
	}
	if input.AllowedStatuses != nil {
		for _, status := range splitStatuses(*input.AllowedStatuses) {
			if !domain.PassStatus(status).Valid() {
				verr.Add("allowed_statuses", "unknown status "+status)
			}
		}
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil || *input.Timezone == "" {
			verr.Add("timezone", "unknown time zone")
		}
	}
	return verr.Err()
}

func splitStatuses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GenerateToken returns 32 random bytes, hex encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	return hex.EncodeToString(buf), nil
}

// location resolves a time zone name, falling back to UTC.
func location(ctx context.Context, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.WarnContext(
			ctx, "unknown time zone, using UTC",
			slog.String("timezone", name),
			slog.String("module", "gateconfig"),
		)
		return time.UTC
	}
	return loc
}
