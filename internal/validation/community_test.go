package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Go Developers":      "go-developers",
		"  Rust & Friends  ": "rust-friends",
		"already-a-slug":     "already-a-slug",
		"Mixed CASE 42":      "mixed-case-42",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input))
	}
}

func TestValidateCommunitySlug(t *testing.T) {
	assert.NoError(t, ValidateCommunitySlug("go-developers"))
	assert.Error(t, ValidateCommunitySlug("ab"), "too short")
	assert.Error(t, ValidateCommunitySlug("Has-Caps"))
	assert.Error(t, ValidateCommunitySlug("admin"), "reserved")
	assert.Error(t, ValidateCommunitySlug("-leading"))
}
