package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/pkg/logger"
)

func TestLoadStrategy_ShippedConfig(t *testing.T) {
	orig := strategyFile
	strategyFile = filepath.Join("..", "..", "..", "config", "strategy", "treasury_basis_v1.yaml")
	defer func() { strategyFile = orig }()

	strategy, hash, err := loadStrategy(logger.Nop())
	require.NoError(t, err)

	assert.Len(t, strategy.Tenors, 5)
	assert.Len(t, hash, 64)
}

func TestLoadStrategy_MissingFile(t *testing.T) {
	orig := strategyFile
	strategyFile = filepath.Join(t.TempDir(), "nope.yaml")
	defer func() { strategyFile = orig }()

	_, _, err := loadStrategy(logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load strategy config")
}
