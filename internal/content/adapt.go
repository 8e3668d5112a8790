// Package content adapts raw post text to per-platform constraints:
// hashtag extraction and formatting, word-boundary truncation, and image
// requirement checks. Everything here is pure.
package content

import (
	"regexp"
	"strings"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags returns the hashtags found in text, without the # symbol,
// in order of appearance.
func ExtractHashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// FormatHashtags renders tags through the platform's template, where "{}"
// stands for the tag text.
func FormatHashtags(tags []string, template string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, strings.Replace(template, "{}", tag, 1))
	}
	return out
}

// TruncateWords shortens text to at most max characters, cutting at the last
// word boundary and appending "..." when anything was removed.
func TruncateWords(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max < 0 {
		max = 0
	}
	truncated := string(runes[:max])
	if last := strings.LastIndex(truncated, " "); last > 0 {
		truncated = truncated[:last]
	}
	if len([]rune(truncated)) < len(runes) {
		truncated += "..."
	}
	return truncated
}

// Adapt renders raw text for one platform. Hashtags are pulled out of the
// text, reformatted, and appended at the end; the remaining text is truncated
// to what the platform allows. When the hashtags alone blow the budget, the
// text gets half the platform limit and the hashtags ride along anyway.
func Adapt(rawText, imageRef string, platform domain.Platform, rules Rules) domain.PlatformContent {
	tags := ExtractHashtags(rawText)
	formatted := FormatHashtags(tags, rules.HashtagTemplate)
	cleanText := strings.TrimSpace(hashtagRe.ReplaceAllString(rawText, ""))

	var adapted string
	if len(tags) > 0 {
		hashtagText := strings.Join(formatted, " ")
		// Reserve room for the hashtags plus a separating space.
		budget := rules.MaxTextLength - len(hashtagText) - 1
		if budget < 0 {
			budget = rules.MaxTextLength / 2
		}
		truncated := TruncateWords(cleanText, budget)
		switch {
		case truncated != "" && hashtagText != "":
			adapted = truncated + " " + hashtagText
		case truncated != "":
			adapted = truncated
		default:
			adapted = hashtagText
		}
	} else {
		adapted = TruncateWords(cleanText, rules.MaxTextLength)
	}

	pc := domain.PlatformContent{
		Text:     adapted,
		ImageRef: imageRef,
		Hashtags: tags,
	}

	if platform == domain.PlatformInstagram && rules.ImageRequired && imageRef == "" {
		pc.Warnings = append(pc.Warnings, "Instagram requires an image for posts")
	}
	if platform == domain.PlatformTwitter && imageRef != "" && rules.MaxImages > 0 {
		pc.Extra = map[string]string{"images_count": "1"}
	}

	return pc
}
