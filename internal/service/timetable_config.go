package service

import (
	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
)

// ResolveTimeConfig layers the student override on top of the career configuration,
// falling back to the built-in defaults. The returned source names the outermost layer
// that contributed.
func ResolveTimeConfig(fallback models.TimeConfig, career *models.Career, override *models.TimeConfigOverride) (models.TimeConfig, string) {
	cfg := fallback
	source := dto.ConfigSourceDefault

	if career != nil && career.FirstStart != "" {
		cfg = models.TimeConfig{
			FirstStart:  career.FirstStart,
			DurationMin: career.DurationMin,
			BreakMin:    career.BreakMin,
		}
		source = dto.ConfigSourceCareer
	}

	if !override.IsEmpty() {
		if override.FirstStart != nil {
			cfg.FirstStart = *override.FirstStart
		}
		if override.DurationMin != nil {
			cfg.DurationMin = *override.DurationMin
		}
		if override.BreakMin != nil {
			cfg.BreakMin = *override.BreakMin
		}
		source = dto.ConfigSourceOverride
	}
	return cfg, source
}

// OverrideFromConfig stores every field of cfg as an explicit override.
func OverrideFromConfig(cfg models.TimeConfig) *models.TimeConfigOverride {
	firstStart, duration, brk := cfg.FirstStart, cfg.DurationMin, cfg.BreakMin
	return &models.TimeConfigOverride{FirstStart: &firstStart, DurationMin: &duration, BreakMin: &brk}
}
