// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package journal manages journal submissions and their review lifecycle.

A journal moves through a small state machine:

	DRAFT -> UNDER_REVIEW -> {PUBLISHED, REJECTED, REVISIONS_NEEDED}
	REJECTED, REVISIONS_NEEDED -> UNDER_REVIEW (author resubmission)

Who may see or change a journal is decided in one place, policy.go, and
the listing query applies the same visibility rule in SQL.
*/
package journal

import "time"

// # Domain Enums

// ReviewStatus is the position of a journal in the review lifecycle.
type ReviewStatus string

const (
	// StatusDraft is the initial state. Only here may the author edit.
	StatusDraft ReviewStatus = "DRAFT"

	// StatusUnderReview waits for an administrator.
	StatusUnderReview ReviewStatus = "UNDER_REVIEW"

	// StatusPublished is terminal in practice.
	StatusPublished ReviewStatus = "PUBLISHED"

	// StatusRejected may be resubmitted by the author.
	StatusRejected ReviewStatus = "REJECTED"

	// StatusRevisionsNeeded may be resubmitted by the author.
	StatusRevisionsNeeded ReviewStatus = "REVISIONS_NEEDED"
)

// IsValid reports whether s is a recognised [ReviewStatus].
func (s ReviewStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusUnderReview, StatusPublished, StatusRejected, StatusRevisionsNeeded:
		return true
	}
	return false
}

// IsResubmittable reports whether the author may send the journal back to review.
func (s ReviewStatus) IsResubmittable() bool {
	return s == StatusRejected || s == StatusRevisionsNeeded
}

// reviewOutcomes are the statuses an administrator may set.
var reviewOutcomes = []string{
	string(StatusUnderReview),
	string(StatusPublished),
	string(StatusRejected),
	string(StatusRevisionsNeeded),
}

// # Core Entities

// Journal is a submitted manuscript and its review record.
type Journal struct {
	ID            string       `json:"id"`
	AuthorID      string       `json:"authorId"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Abstract      string       `json:"abstract"`
	ManuscriptURL string       `json:"manuscriptUrl,omitempty"`
	ReviewStatus  ReviewStatus `json:"reviewStatus"`
	IsPublished   bool         `json:"isPublished"`

	// # Review record
	ReviewerID      *string    `json:"reviewerId,omitempty"`
	ReviewNotes     *string    `json:"reviewNotes,omitempty"`
	ReviewDate      *time.Time `json:"reviewDate,omitempty"`
	Price           *float64   `json:"price,omitempty"`
	PublicationDate *time.Time `json:"publicationDate,omitempty"`

	ViewCount int64     `json:"viewCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPubliclyVisible reports whether anyone, signed in or not, may read the journal.
func (j *Journal) IsPubliclyVisible() bool {
	return j.IsPublished && j.ReviewStatus == StatusPublished
}

// Contact is the addressable identity of a journal's author.
type Contact struct {
	Email string
	Name  string
}

// # Query Types

// Visibility restricts a listing to what the viewer may see.
type Visibility int

const (
	// VisibilityPublished shows only publicly visible journals.
	VisibilityPublished Visibility = iota

	// VisibilityPublishedOrOwn adds the viewer's own journals in any state.
	VisibilityPublishedOrOwn

	// VisibilityAll shows every journal.
	VisibilityAll
)

// Filter narrows a journal listing.
type Filter struct {
	// Visibility and ViewerID are set by the service, never from the request.
	Visibility Visibility
	ViewerID   string

	AuthorID string
	Status   []ReviewStatus
	Query    string

	// Sort is one of the Sort* keys; anything else orders by creation time.
	Sort       string
	Descending bool
}
