package srs

import (
	"github.com/lumolearn/lumo-core/internal/domain"
)

// Params defines all configurable parameters for the SRS algorithm.
// Thresholds are passed in explicitly rather than read from ambient process
// state, so scheduling behavior is reproducible in tests.
type Params struct {
	// Core limits
	MinEaseFactor float64

	// PassThreshold is the first grade that counts as a pass. Grades below
	// it reset the repetition streak.
	PassThreshold domain.Grade

	// Interval ladder
	InitialIntervalDays float64
	SecondIntervalDays  float64

	// Mastery thresholds: an item is mastered once repetitions exceed
	// MasteryRepetitions AND the interval exceeds MasteryIntervalDays.
	MasteryRepetitions  int
	MasteryIntervalDays float64

	// HistoryLimit bounds the per-item review log.
	HistoryLimit int

	// LapsedAfterDays is how far past due an item must be before it is
	// classified as lapsed instead of merely due.
	LapsedAfterDays float64
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the defaults.
type ParamsConfig struct {
	MinEaseFactor       float64
	PassThreshold       int
	InitialIntervalDays float64
	SecondIntervalDays  float64
	MasteryRepetitions  int
	MasteryIntervalDays float64
	HistoryLimit        int
	LapsedAfterDays     float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: domain.MinEaseFactor,
		PassThreshold: 3,

		InitialIntervalDays: 1,
		SecondIntervalDays:  6,

		MasteryRepetitions:  8,
		MasteryIntervalDays: 60,

		HistoryLimit: domain.ReviewHistoryLimit,

		LapsedAfterDays: 14,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.PassThreshold > 0 {
		params.PassThreshold = domain.Grade(config.PassThreshold)
	}
	if config.InitialIntervalDays > 0 {
		params.InitialIntervalDays = config.InitialIntervalDays
	}
	if config.SecondIntervalDays > 0 {
		params.SecondIntervalDays = config.SecondIntervalDays
	}
	if config.MasteryRepetitions > 0 {
		params.MasteryRepetitions = config.MasteryRepetitions
	}
	if config.MasteryIntervalDays > 0 {
		params.MasteryIntervalDays = config.MasteryIntervalDays
	}
	if config.HistoryLimit > 0 {
		params.HistoryLimit = config.HistoryLimit
	}
	if config.LapsedAfterDays > 0 {
		params.LapsedAfterDays = config.LapsedAfterDays
	}

	return params
}
