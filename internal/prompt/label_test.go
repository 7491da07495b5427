package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/apperr"
	"github.com/promptdeck/promptdeck/internal/models"
)

func TestValidateLabel(t *testing.T) {
	valid := []string{"0.0.1", "1.0.0", "0.10.0", "12.34.56"}
	for _, label := range valid {
		assert.NoError(t, ValidateLabel(label), label)
	}

	invalid := []string{"", "1.0", "v1.0.0", "1.0.0-beta", "1.0.0.0", "1.a.0", " 1.0.0"}
	for _, label := range invalid {
		assert.ErrorIs(t, ValidateLabel(label), apperr.ErrInvalidLabel, label)
	}
}

func TestValidateLabelBoundsComponents(t *testing.T) {
	// Components past uint64 would be accepted by the pattern but are
	// unorderable, so validation rejects them.
	assert.ErrorIs(t, ValidateLabel("99999999999999999999.0.0"), apperr.ErrInvalidLabel)
	assert.ErrorIs(t, ValidateLabel("01.0.0"), apperr.ErrInvalidLabel)

	assert.NoError(t, ValidateLabel("18446744073709551615.0.0"))
}

func TestLatestVersionOrdersEveryValidLabel(t *testing.T) {
	versions := []models.Version{
		{Label: "18446744073709551615.0.0"},
		{Label: "1.0.0"},
	}
	require.NoError(t, ValidateLabel(versions[0].Label))

	latest := LatestVersion(versions)
	require.NotNil(t, latest)
	assert.Equal(t, "18446744073709551615.0.0", latest.Label)
}

func TestCompareLabels(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"0.9.0", "0.10.0", -1},
		{"0.10.0", "0.9.0", 1},
		{"1.0.0", "0.99.99", 1},
		{"2.0.0", "10.0.0", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareLabels(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestLatestVersion(t *testing.T) {
	versions := []models.Version{
		{Label: "0.2.0"},
		{Label: "0.10.0"},
		{Label: "0.9.0"},
	}

	latest := LatestVersion(versions)
	require.NotNil(t, latest)
	assert.Equal(t, "0.10.0", latest.Label)
}

func TestLatestVersionEmpty(t *testing.T) {
	assert.Nil(t, LatestVersion(nil))
}
