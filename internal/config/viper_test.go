package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

func TestPolicyOverlay(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(KeyPolicyMetric, "log2_fold_change")
	viper.Set(KeyPolicyThreshold, 1.0)

	p, err := Policy(compare.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, compare.Log2FoldChange, p.Metric)
	assert.InDelta(t, 1.0, p.Threshold, 1e-12)
	assert.Equal(t, compare.DefaultPolicy().MinCells, p.MinCells)
}

func TestPolicyOverlayInvalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(KeyPolicyThreshold, -1)
	_, err := Policy(compare.DefaultPolicy())
	assert.Error(t, err)
}

func TestTarget(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	g, err := Target()
	require.NoError(t, err)
	assert.Empty(t, g)

	viper.Set(KeyTarget, "Normal")
	g, err = Target()
	require.NoError(t, err)
	assert.Equal(t, expression.Normal, g)
}

func TestDatasetPath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(KeyDataset, "from-config.yaml")
	t.Setenv("CTCLATLAS_DATASET", "")
	assert.Equal(t, "from-config.yaml", DatasetPath())

	t.Setenv("CTCLATLAS_DATASET", "from-env.yaml")
	assert.Equal(t, "from-env.yaml", DatasetPath())
}
