package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildDisplayID(t *testing.T) {
	assert.Equal(t, "SD.37.1", ChildDisplayID("SD.37", 0))
	assert.Equal(t, "SD.37.3", ChildDisplayID("SD.37", 2))
	assert.Equal(t, "FE.2.1.4", ChildDisplayID("FE.2.1", 3))
}

func TestSectionNumber(t *testing.T) {
	tests := []struct {
		displayID string
		want      int
	}{
		{"SD.37", 37},
		{"SD.37.1", 1},
		{"FE.2.1.12", 12},
		{"SD", -1},
		{"SD.x", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SectionNumber(tt.displayID), tt.displayID)
	}
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "SD37", NormalizeQuery("sd37"))
	assert.Equal(t, "SD37", NormalizeQuery("SD.37"))
	assert.Equal(t, "SD371", NormalizeQuery("sd-37.1"))
	assert.Equal(t, "", NormalizeQuery("..."))
}

func TestPriorityFromLegacy(t *testing.T) {
	one, two, three, nine := 1, 2, 3, 9
	assert.Equal(t, PriorityCritical, PriorityFromLegacy(&one))
	assert.Equal(t, PriorityHigh, PriorityFromLegacy(&two))
	assert.Equal(t, PriorityMedium, PriorityFromLegacy(&three))
	assert.Equal(t, PriorityMedium, PriorityFromLegacy(nil))
	assert.Equal(t, PriorityMedium, PriorityFromLegacy(&nine))
}

func TestValidArea(t *testing.T) {
	for _, code := range []string{"SD", "FE", "BE", "FUT"} {
		assert.True(t, ValidArea(code), code)
	}
	assert.False(t, ValidArea("XX"))
	assert.False(t, ValidArea("sd"))
}

func TestTBCFields(t *testing.T) {
	full := []string{"do the thing"}

	// All populated: no gaps.
	assert.Empty(t, TBCFields(full, full, full))

	// Empty slices are gaps.
	missing := TBCFields(nil, full, full)
	assert.Equal(t, []string{"keyRequirements"}, missing)

	// A lone "TBC" marker is a gap, case-insensitive.
	missing = TBCFields(full, []string{"tbc"}, []string{"TBC"})
	assert.Equal(t, []string{"filesToChange", "testing"}, missing)

	// "TBC" alongside real content is not a gap.
	assert.Empty(t, TBCFields(full, []string{"TBC", "src/main.go"}, full))
}

func TestNormalizeTags(t *testing.T) {
	tags := NormalizeTags([]string{"Urgent", "urgent", "a_b-c", "bad tag", "-lead", "x1"})
	assert.Equal(t, []string{"urgent", "a_b-c", "x1"}, tags)
}

func TestValidTag(t *testing.T) {
	assert.True(t, ValidTag("urgent"))
	assert.True(t, ValidTag("v2-api_x"))
	assert.False(t, ValidTag(""))
	assert.False(t, ValidTag("-leading"))
	assert.False(t, ValidTag("has space"))
	assert.False(t, ValidTag("é"))
}
