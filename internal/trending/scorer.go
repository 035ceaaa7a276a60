// Package trending ranks entities from their engagement counters.
package trending

import (
	"fmt"
	"strconv"
	"time"

	"canopy/internal/config"
	"canopy/internal/models"
)

// Config holds the scoring weights, the activity window and the badge thresholds.
type Config struct {
	PopularityWeight    float64
	ActivityWeight      float64
	ActivityWindow      time.Duration
	ActivityThreshold   int64
	PopularityThreshold int64
}

// DefaultConfig weighs recent activity above lifetime popularity.
func DefaultConfig() Config {
	return Config{
		PopularityWeight:    0.3,
		ActivityWeight:      0.7,
		ActivityWindow:      7 * 24 * time.Hour,
		ActivityThreshold:   10,
		PopularityThreshold: 50,
	}
}

// ConfigFrom reads the TRENDING_* settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		PopularityWeight:    cfg.TrendingPopularityWeight,
		ActivityWeight:      cfg.TrendingActivityWeight,
		ActivityWindow:      cfg.ActivityWindow(),
		ActivityThreshold:   cfg.TrendingActivityThreshold,
		PopularityThreshold: cfg.TrendingPopularityThreshold,
	}
}

// Counters are the inputs to a score.
type Counters struct {
	// Popularity is the lifetime LIKE, SHARE and BOOKMARK count.
	Popularity int64
	// Activity is the same count restricted to the activity window.
	Activity int64
}

// Flags are the trending badges shown next to an entity.
type Flags struct {
	TrendingActivity   bool
	TrendingPopularity bool
}

// Scorer computes scores and badges. It holds no mutable state.
type Scorer struct {
	cfg Config
	now func() time.Time
}

// NewScorer returns a scorer using the wall clock.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of s reading time from now.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	cp := *s
	cp.now = now
	return &cp
}

// Config returns the scorer's settings.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score is PopularityWeight*popularity + ActivityWeight*activity. With
// non-negative weights it is non-decreasing in both counters.
func (s *Scorer) Score(c Counters) float64 {
	return s.cfg.PopularityWeight*float64(c.Popularity) + s.cfg.ActivityWeight*float64(c.Activity)
}

// Flags compares the counters against the configured thresholds.
func (s *Scorer) Flags(c Counters) Flags {
	return Flags{
		TrendingActivity:   c.Activity > s.cfg.ActivityThreshold,
		TrendingPopularity: c.Popularity > s.cfg.PopularityThreshold,
	}
}

// Since is the start of the activity window. It is aligned to the hour so
// repeated queries within a browsing session count the same interactions.
func (s *Scorer) Since() time.Time {
	return s.now().UTC().Truncate(time.Hour).Add(-s.cfg.ActivityWindow)
}

// SQLExpr renders Score over two SQL expressions yielding the counters.
func (s *Scorer) SQLExpr(popularity, activity string) string {
	return fmt.Sprintf("(%s * (%s) + %s * (%s))",
		formatWeight(s.cfg.PopularityWeight), popularity,
		formatWeight(s.cfg.ActivityWeight), activity)
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// Decorate sets the badge flags on stats loaded from the database.
func (s *Scorer) Decorate(stats *models.Stats) {
	flags := s.Flags(Counters{Popularity: stats.PopularityCount, Activity: stats.ActivityCount})
	stats.TrendingActivity = flags.TrendingActivity
	stats.TrendingPopularity = flags.TrendingPopularity
}
