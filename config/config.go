// Package config holds the single validated configuration record for the
// ranking blend weights and the builder tuning constants, loaded from YAML
// via gopkg.in/yaml.v3. §4.8 requires every weight group to sum to 1.0
// within 1e-5 and for startup to fail otherwise; Validate enforces that.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigInvalid marks a scoring configuration whose weight groups do not
// sum to 1.0 within tolerance.
var ErrConfigInvalid = fmt.Errorf("config: scoring weights must each sum to 1.0 (+/- %v)", weightTolerance)

const weightTolerance = 1e-5

// Importance is the small lookup table from posting.Important() to a
// TF-IDF importance multiplier.
type Importance struct {
	Untagged  float64 `yaml:"untagged"`
	Important float64 `yaml:"important"`
}

// Weight picks the multiplier for a posting's importance bit.
func (im Importance) Weight(important bool) float64 {
	if important {
		return im.Important
	}
	return im.Untagged
}

// RelevanceWeights blends the normalized TF-IDF sum and cosine-similarity
// vectors into net relevance.
type RelevanceWeights struct {
	TFIDF  float64 `yaml:"tfidf"`
	Cosine float64 `yaml:"cosine"`
}

// QualityWeights blends the three static link-graph quality signals.
type QualityWeights struct {
	PageRank float64 `yaml:"pagerank"`
	Hub      float64 `yaml:"hub"`
	Auth     float64 `yaml:"auth"`
}

// ScoreWeights blends net relevance and net quality into the final score.
type ScoreWeights struct {
	Relevance float64 `yaml:"relevance"`
	Quality   float64 `yaml:"quality"`
}

// BuilderTuning holds the SPIMI builder's tunable constants as config
// fields, settable through the global --config flag. The builder reads
// FlushPeriod and DedupDequeSize; SimhashThreshold is not read anywhere,
// and the near-duplicate check always uses duphash.SimilarityThreshold (3).
type BuilderTuning struct {
	FlushPeriod      int `yaml:"flush_period"`
	DedupDequeSize   int `yaml:"dedup_deque_size"`
	SimhashThreshold int `yaml:"simhash_threshold"`
}

// Scoring is the complete, validated configuration record.
type Scoring struct {
	Importance Importance        `yaml:"importance"`
	Relevance  RelevanceWeights  `yaml:"relevance_weights"`
	Quality    QualityWeights    `yaml:"quality_weights"`
	Score      ScoreWeights      `yaml:"score_weights"`
	Builder    BuilderTuning     `yaml:"builder"`
	TopK       int               `yaml:"top_k"`
	NoiseFloor float64           `yaml:"noise_floor"`
}

// Default returns the spec-mandated default configuration.
func Default() Scoring {
	return Scoring{
		Importance: Importance{Untagged: 0.8, Important: 3.5},
		Relevance:  RelevanceWeights{TFIDF: 0.73, Cosine: 0.27},
		Quality:    QualityWeights{PageRank: 0.59, Hub: 0.23, Auth: 0.18},
		Score:      ScoreWeights{Relevance: 0.61, Quality: 0.39},
		Builder: BuilderTuning{
			FlushPeriod:      100,
			DedupDequeSize:   200,
			SimhashThreshold: 3,
		},
		TopK:       10,
		NoiseFloor: 0.01,
	}
}

// Load reads a YAML configuration file, falling back to field-by-field
// defaults for anything the file omits, and validates the result.
func Load(path string) (Scoring, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Scoring{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Scoring{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that every weight group sums to 1.0 within tolerance.
// It is called at startup; on failure the CLI must not proceed.
func (s Scoring) Validate() error {
	groups := []float64{
		s.Relevance.TFIDF + s.Relevance.Cosine,
		s.Quality.PageRank + s.Quality.Hub + s.Quality.Auth,
		s.Score.Relevance + s.Score.Quality,
	}
	for _, sum := range groups {
		if math.Abs(sum-1.0) > weightTolerance {
			return ErrConfigInvalid
		}
	}
	if s.Builder.FlushPeriod <= 0 {
		return fmt.Errorf("%w: flush_period must be > 0", ErrConfigInvalid)
	}
	if s.Builder.DedupDequeSize <= 0 {
		return fmt.Errorf("%w: dedup_deque_size must be > 0", ErrConfigInvalid)
	}
	return nil
}
