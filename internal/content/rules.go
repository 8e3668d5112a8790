package content

import "github.com/MFaiqKhan/SocialSpark/internal/domain"

// Rules describe how a platform constrains post text and images.
type Rules struct {
	Platform        domain.Platform
	MaxTextLength   int
	HashtagTemplate string // "{}" is replaced with the tag text
	ImageRequired   bool
	MaxImages       int
}

// DefaultRules returns the built-in per-platform constraints.
func DefaultRules() map[domain.Platform]Rules {
	return map[domain.Platform]Rules{
		domain.PlatformTwitter: {
			Platform:        domain.PlatformTwitter,
			MaxTextLength:   280,
			HashtagTemplate: "#{}",
			MaxImages:       4,
		},
		domain.PlatformFacebook: {
			Platform:        domain.PlatformFacebook,
			MaxTextLength:   5000,
			HashtagTemplate: "#{}",
		},
		domain.PlatformInstagram: {
			Platform:        domain.PlatformInstagram,
			MaxTextLength:   2200,
			HashtagTemplate: "#{}",
			ImageRequired:   true,
		},
		domain.PlatformLinkedIn: {
			Platform:        domain.PlatformLinkedIn,
			MaxTextLength:   3000,
			HashtagTemplate: "#{}",
		},
	}
}
