// Package validation holds input validation rules shared by handlers and services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var communitySlugRegex = regexp.MustCompile(`^[a-z0-9-]{3,140}$`)

var reservedCommunitySlugs = map[string]struct{}{
	"admin":          {},
	"api":            {},
	"communities":    {},
	"create":         {},
	"discover":       {},
	"invite":         {},
	"join":           {},
	"leave":          {},
	"metrics":        {},
	"my-communities": {},
	"notifications":  {},
	"popular":        {},
	"recommended":    {},
	"users":          {},
	"ws":             {},
}

// ValidateCommunitySlug validates slug format and reserved names.
func ValidateCommunitySlug(slug string) error {
	if !communitySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 3-140 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedCommunitySlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

var slugCleanupRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a community name. The result is
// lowercase so slug uniqueness is effectively case-insensitive.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugCleanupRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 140 {
		slug = strings.Trim(slug[:140], "-")
	}
	return slug
}
