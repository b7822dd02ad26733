package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func stage(id uint, order int, deps ...uint) Stage {
	return Stage{
		Model:     gorm.Model{ID: id},
		Order:     order,
		Name:      "stage",
		DependsOn: deps,
	}
}

func TestValidateStageGraph(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		stages := []Stage{stage(1, 1), stage(2, 2, 1), stage(3, 3, 1, 2)}
		require.NoError(t, ValidateStageGraph(stages))
	})

	t.Run("duplicate order", func(t *testing.T) {
		stages := []Stage{stage(1, 1), stage(2, 1)}
		err := ValidateStageGraph(stages)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate stage order")
	})

	t.Run("dependency on later stage", func(t *testing.T) {
		stages := []Stage{stage(1, 1, 2), stage(2, 2)}
		err := ValidateStageGraph(stages)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "may not depend on later stage")
	})

	t.Run("dependency on unknown stage", func(t *testing.T) {
		stages := []Stage{stage(1, 1, 99)}
		err := ValidateStageGraph(stages)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown stage")
	})

	t.Run("order below one", func(t *testing.T) {
		stages := []Stage{stage(1, 0)}
		require.Error(t, ValidateStageGraph(stages))
	})
}

func TestRequirementValidateFile(t *testing.T) {
	req := DocumentRequirement{
		Name:            "Passport Copy",
		AcceptedFormats: "pdf,jpg,png",
		MaxSizeMB:       2,
	}

	assert.NoError(t, req.ValidateFile("passport.pdf", 1024*1024))
	assert.NoError(t, req.ValidateFile("passport.JPG", 1024))

	err := req.ValidateFile("passport.exe", 1024)
	require.Error(t, err)

	err = req.ValidateFile("passport.pdf", 3*1024*1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2MB")

	err = req.ValidateFile("passport", 1024)
	require.Error(t, err)
}

func TestTracksOriginal(t *testing.T) {
	legal := DocumentRequirement{Category: CategoryLegal}
	financial := DocumentRequirement{Category: CategoryFinancial}
	assert.True(t, legal.TracksOriginal())
	assert.False(t, financial.TracksOriginal())
}
