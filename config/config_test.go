package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadRelevanceWeights(t *testing.T) {
	cfg := Default()
	cfg.Relevance.TFIDF = 0.5
	cfg.Relevance.Cosine = 0.6
	require.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestValidateRejectsBadQualityWeights(t *testing.T) {
	cfg := Default()
	cfg.Quality.PageRank = 1
	require.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestValidateRejectsBadScoreWeights(t *testing.T) {
	cfg := Default()
	cfg.Score.Relevance = 0.5
	cfg.Score.Quality = 0.4
	require.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
top_k: 25
builder:
  flush_period: 50
  dedup_deque_size: 200
  simhash_threshold: 3
relevance_weights:
  tfidf: 0.73
  cosine: 0.27
quality_weights:
  pagerank: 0.59
  hub: 0.23
  auth: 0.18
score_weights:
  relevance: 0.61
  quality: 0.39
importance:
  untagged: 0.8
  important: 3.5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 25, cfg.TopK)
	require.Equal(t, 50, cfg.Builder.FlushPeriod)
}

func TestLoadRejectsInvalidWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("score_weights:\n  relevance: 0.5\n  quality: 0.2\n"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrConfigInvalid)
}
