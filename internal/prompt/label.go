package prompt

import (
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/promptdeck/promptdeck/internal/apperr"
	"github.com/promptdeck/promptdeck/internal/models"
)

// Labels are exactly three dot-separated non-negative integers. No
// prerelease or build suffixes, no "v" prefix.
var labelPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func ValidateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return apperr.ErrInvalidLabel
	}
	// The same parser CompareLabels uses. Keeping both on one parser
	// means every label the store accepts is also orderable: components
	// past uint64 (or with leading zeros) are rejected here instead of
	// silently sorting first later.
	if _, err := semver.StrictNewVersion(label); err != nil {
		return apperr.ErrInvalidLabel
	}
	return nil
}

// CompareLabels orders two valid labels by their numeric components,
// so "0.10.0" sorts after "0.9.0". Invalid labels sort first.
func CompareLabels(a, b string) int {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}

// LatestVersion picks the version with the numerically greatest label.
// Returns nil for an empty slice.
func LatestVersion(versions []models.Version) *models.Version {
	var latest *models.Version
	for i := range versions {
		if latest == nil || CompareLabels(versions[i].Label, latest.Label) > 0 {
			latest = &versions[i]
		}
	}
	return latest
}
