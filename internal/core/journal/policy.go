// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

import (
	"strings"
	"time"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/platform/validate"
	"github.com/taibuivan/quire/pkg/pointer"
)

// # Access Table
//
//	operation        | ADMIN  | owner                         | anyone else
//	-----------------+--------+-------------------------------+------------
//	view             | always | always                        | published only
//	edit / delete    | always | DRAFT only (else 400)         | 403
//	submit           | 403    | DRAFT only (else 400)         | 403
//	resubmit         | 403    | REJECTED/REVISIONS_NEEDED     | 403
//	review           | always | 403 unless ADMIN              | 403
//
// Every function here is pure: no I/O, and a failed check leaves the journal untouched.

// isOwner reports whether actor authored the journal.
func isOwner(journal *Journal, actor *sec.Principal) bool {
	return actor != nil && actor.ID == journal.AuthorID
}

// CanView reports whether actor (nil for anonymous) may read the journal.
func CanView(journal *Journal, actor *sec.Principal) bool {
	if journal.IsPubliclyVisible() {
		return true
	}
	return isOwner(journal, actor) || actor.IsAdmin()
}

/*
AuthorizeEdit decides whether actor may change the journal's content.

Returns:
  - error: 403 for a non-owner, 400 (state conflict) for the owner after submission
*/
func AuthorizeEdit(journal *Journal, actor *sec.Principal) error {
	if actor.IsAdmin() {
		return nil
	}
	if !isOwner(journal, actor) {
		return apperr.Forbidden("Not authorized to modify this journal")
	}
	if journal.ReviewStatus != StatusDraft {
		return apperr.StateConflict("Only draft journals can be modified")
	}
	return nil
}

// CanEdit is the boolean form of [AuthorizeEdit].
func CanEdit(journal *Journal, actor *sec.Principal) bool {
	return AuthorizeEdit(journal, actor) == nil
}

// CanDelete follows the same rule as editing.
func CanDelete(journal *Journal, actor *sec.Principal) bool {
	return CanEdit(journal, actor)
}

// ScopeFor returns the listing visibility matching [CanView] for actor.
func ScopeFor(actor *sec.Principal) Visibility {
	switch {
	case actor == nil:
		return VisibilityPublished
	case actor.IsAdmin():
		return VisibilityAll
	default:
		return VisibilityPublishedOrOwn
	}
}

// # Transitions

// SubmitForReview moves an owned DRAFT to UNDER_REVIEW.
func SubmitForReview(journal *Journal, actor *sec.Principal) error {
	if !isOwner(journal, actor) {
		return apperr.Forbidden("Only the author can submit this journal")
	}
	if journal.ReviewStatus != StatusDraft {
		return apperr.StateConflict("Only draft journals can be submitted for review")
	}

	journal.ReviewStatus = StatusUnderReview
	return nil
}

// Resubmit sends a REJECTED or REVISIONS_NEEDED journal back to review.
func Resubmit(journal *Journal, actor *sec.Principal) error {
	if !isOwner(journal, actor) {
		return apperr.Forbidden("Only the author can resubmit this journal")
	}
	if !journal.ReviewStatus.IsResubmittable() {
		return apperr.StateConflict("Only rejected journals or journals needing revisions can be resubmitted")
	}

	journal.ReviewStatus = StatusUnderReview
	return nil
}

// ReviewInput is an administrator's decision on a journal.
type ReviewInput struct {
	ReviewStatus string
	ReviewNotes  *string
	Price        *float64

	// IsPublished may hold back a PUBLISHED journal (false). It cannot publish
	// a journal in any other status.
	IsPublished *bool
}

/*
ApplyReview records an administrator's decision.

Description: The whole input is validated before the journal is touched,
so any error leaves it exactly as it was. publicationDate is stamped only
when the journal enters PUBLISHED.

Parameters:
  - journal: *Journal
  - actor: *sec.Principal (Must be ADMIN)
  - input: ReviewInput
  - now: time.Time

Returns:
  - error: Forbidden (403) or ValidationError (400)
*/
func ApplyReview(journal *Journal, actor *sec.Principal, input ReviewInput, now time.Time) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only administrators can review journals")
	}

	status := ReviewStatus(strings.TrimSpace(input.ReviewStatus))

	validator := &validate.Validator{}
	validator.Required(FieldReviewStatus, string(status)).
		OneOf(FieldReviewStatus, string(status), reviewOutcomes...).
		NonNegative(FieldPrice, input.Price).
		Decimal(FieldPrice, input.Price, PriceMax, PriceMaxPlaces)
	if input.ReviewNotes != nil {
		validator.MaxLen(FieldReviewNotes, *input.ReviewNotes, ReviewNotesMaxLength)
	}
	if input.IsPublished != nil {
		validator.Custom(FieldIsPublished, pointer.Val(input.IsPublished) && status != StatusPublished,
			"Only a PUBLISHED journal can be made public")
	}
	if err := validator.Err(); err != nil {
		return err
	}

	// Mutation starts here.
	enteringPublished := status == StatusPublished && journal.ReviewStatus != StatusPublished

	journal.ReviewerID = pointer.To(actor.ID)
	journal.ReviewDate = pointer.To(now)
	journal.ReviewStatus = status

	// An explicit false holds a PUBLISHED journal back from the public listing.
	journal.IsPublished = status == StatusPublished && pointer.Fallback(input.IsPublished, true)

	if input.ReviewNotes != nil {
		journal.ReviewNotes = pointer.To(strings.TrimSpace(*input.ReviewNotes))
	}
	if input.Price != nil {
		journal.Price = pointer.To(*input.Price)
	}
	if enteringPublished {
		journal.PublicationDate = pointer.To(now)
	}

	return nil
}
