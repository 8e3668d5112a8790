package domain

import "time"

// Platform identifies a publishing destination.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
)

// ContentKind classifies what a post carries.
type ContentKind string

const (
	ContentText      ContentKind = "text"
	ContentImage     ContentKind = "image"
	ContentTextImage ContentKind = "text_image"
)

// PostStatus represents the publication states of a scheduled post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
	PostCanceled  PostStatus = "canceled"
)

// PlatformContent is the per-platform rendering of a post's raw text.
type PlatformContent struct {
	Text     string            `json:"text" bson:"text"`
	ImageRef string            `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	Hashtags []string          `json:"hashtags,omitempty" bson:"hashtags,omitempty"`
	Warnings []string          `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// ScheduledPost is a piece of content queued for publication on one or more
// platforms at a point in time.
type ScheduledPost struct {
	ID              string                         `json:"id" bson:"_id"`
	UserID          string                         `json:"user_id" bson:"user_id"`
	RawText         string                         `json:"raw_text" bson:"raw_text"`
	ContentKind     ContentKind                    `json:"content_kind" bson:"content_kind"`
	ImageRef        string                         `json:"image_ref,omitempty" bson:"image_ref,omitempty"`
	Platforms       []Platform                     `json:"platforms" bson:"platforms"`
	ScheduleTime    time.Time                      `json:"schedule_time" bson:"schedule_time"`
	Status          PostStatus                     `json:"status" bson:"status"`
	Content         map[Platform]PlatformContent   `json:"content,omitempty" bson:"content,omitempty"`
	PlatformPostIDs map[Platform]string            `json:"platform_post_ids,omitempty" bson:"platform_post_ids,omitempty"`
	PlatformErrors  map[Platform]string            `json:"platform_errors,omitempty" bson:"platform_errors,omitempty"`
	Credentials     map[Platform]map[string]string `json:"credentials,omitempty" bson:"credentials,omitempty"`
	CreatedAt       time.Time                      `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at" bson:"updated_at"`
}

// RecordPlatformPostID stores the platform-assigned id for a successful
// publication and bumps UpdatedAt.
func (p *ScheduledPost) RecordPlatformPostID(platform Platform, postID string) {
	if p.PlatformPostIDs == nil {
		p.PlatformPostIDs = make(map[Platform]string)
	}
	p.PlatformPostIDs[platform] = postID
	p.UpdatedAt = time.Now().UTC()
}

// RecordPlatformError stores a per-platform failure and bumps UpdatedAt.
func (p *ScheduledPost) RecordPlatformError(platform Platform, msg string) {
	if p.PlatformErrors == nil {
		p.PlatformErrors = make(map[Platform]string)
	}
	p.PlatformErrors[platform] = msg
	p.UpdatedAt = time.Now().UTC()
}

// AllPlatformsReported returns true once every target platform has either a
// post id or an error recorded.
func (p *ScheduledPost) AllPlatformsReported() bool {
	for _, pl := range p.Platforms {
		if _, ok := p.PlatformPostIDs[pl]; ok {
			continue
		}
		if _, ok := p.PlatformErrors[pl]; ok {
			continue
		}
		return false
	}
	return true
}

// ParsePlatform validates a platform value received over the wire.
func ParsePlatform(s string) (Platform, error) {
	switch v := Platform(s); v {
	case PlatformTwitter, PlatformFacebook, PlatformInstagram, PlatformLinkedIn:
		return v, nil
	default:
		return "", &ValidationError{Field: "platforms", Reason: "unknown platform " + s}
	}
}
