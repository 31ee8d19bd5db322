// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/ctxutil"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/platform/validate"
	"github.com/taibuivan/quire/pkg/slug"
	"github.com/taibuivan/quire/pkg/uuid"
)

// # Service Layer

// Events receives journal outcomes for metrics. [*metrics.Registry] implements it.
type Events interface {
	JournalReviewed(status string)
}

// Service orchestrates journal submission, review and discovery.
//
// Authorization decisions are delegated to the pure functions in policy.go;
// the service only loads, applies and persists.
type Service struct {
	repository Repository
	notifier   Notifier
	events     Events
	now        func() time.Time
}

// NewService constructs a new [Service].
func NewService(repository Repository, notifier Notifier, events Events) *Service {
	return &Service{
		repository: repository,
		notifier:   notifier,
		events:     events,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source (used by tests).
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Lookups

/*
List returns the page of journals the actor may see.

Parameters:
  - context: context.Context
  - actor: *sec.Principal (Nil for anonymous)
  - filter: Filter (Visibility fields are overwritten)
  - limit: int
  - offset: int

Returns:
  - []*Journal: Page of journals
  - int: Total count
  - error: Storage failures
*/
func (service *Service) List(context context.Context, actor *sec.Principal, filter Filter, limit, offset int) ([]*Journal, int, error) {
	filter.Visibility = ScopeFor(actor)
	filter.ViewerID = ""
	if actor != nil {
		filter.ViewerID = actor.ID
	}

	return service.repository.List(context, filter, limit, offset)
}

/*
Get returns a journal the actor may see and counts the view.

Description: Views by the journal's own author are not counted. A failed
counter update is logged and does not fail the read.

Parameters:
  - context: context.Context
  - id: string
  - actor: *sec.Principal (Nil for anonymous)

Returns:
  - *Journal: The journal
  - error: NotFound (404), Forbidden (403)
*/
func (service *Service) Get(context context.Context, id string, actor *sec.Principal) (*Journal, error) {
	journal, err := service.repository.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	if !CanView(journal, actor) {
		return nil, apperr.Forbidden("Not authorized to view this journal")
	}

	if !isOwner(journal, actor) {
		if err := service.repository.IncrementViewCount(context, journal.ID, 1); err != nil {
			ctxutil.GetLogger(context).WarnContext(context, "journal_view_count_failed",
				slog.String("journal_id", journal.ID),
				slog.Any("error", err),
			)
		} else {
			journal.ViewCount++
		}
	}

	return journal, nil
}

// # Authoring

// CreateInput carries a new journal's content.
type CreateInput struct {
	Title         string
	Abstract      string
	ManuscriptURL string

	// Submit moves the journal straight to UNDER_REVIEW.
	Submit bool
}

/*
Create stores a new DRAFT journal owned by actor.

Parameters:
  - context: context.Context
  - actor: *sec.Principal
  - input: CreateInput

Returns:
  - *Journal: The created journal
  - error: Validation or storage failures
*/
func (service *Service) Create(context context.Context, actor *sec.Principal, input CreateInput) (*Journal, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	journal := &Journal{
		ID:            uuid.New(),
		AuthorID:      actor.ID,
		Title:         strings.TrimSpace(input.Title),
		Abstract:      strings.TrimSpace(input.Abstract),
		ManuscriptURL: strings.TrimSpace(input.ManuscriptURL),
		ReviewStatus:  StatusDraft,
	}

	if err := validateContent(journal); err != nil {
		return nil, err
	}
	journal.Slug = slugFor(journal)

	if input.Submit {
		if err := SubmitForReview(journal, actor); err != nil {
			return nil, err
		}
	}

	if err := service.repository.Create(context, journal); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "journal_created",
		slog.String("journal_id", journal.ID),
		slog.String("status", string(journal.ReviewStatus)),
	)

	return journal, nil
}

// UpdateInput carries a partial content change. Nil fields are left alone.
type UpdateInput struct {
	Title         *string
	Abstract      *string
	ManuscriptURL *string
}

/*
Update changes a journal's content.

Parameters:
  - context: context.Context
  - id: string
  - actor: *sec.Principal
  - input: UpdateInput

Returns:
  - *Journal: The updated journal
  - error: Forbidden (403), state conflict (400), validation or storage failures
*/
func (service *Service) Update(context context.Context, id string, actor *sec.Principal, input UpdateInput) (*Journal, error) {
	journal, err := service.repository.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	if err := AuthorizeEdit(journal, actor); err != nil {
		return nil, err
	}

	if input.Title != nil {
		journal.Title = strings.TrimSpace(*input.Title)
		journal.Slug = slugFor(journal)
	}
	if input.Abstract != nil {
		journal.Abstract = strings.TrimSpace(*input.Abstract)
	}
	if input.ManuscriptURL != nil {
		journal.ManuscriptURL = strings.TrimSpace(*input.ManuscriptURL)
	}

	if err := validateContent(journal); err != nil {
		return nil, err
	}

	if err := service.repository.Update(context, journal, journal.ReviewStatus); err != nil {
		return nil, err
	}

	return journal, nil
}

// Delete soft-deletes a journal.
func (service *Service) Delete(context context.Context, id string, actor *sec.Principal) error {
	journal, err := service.repository.FindByID(context, id)
	if err != nil {
		return err
	}

	if err := AuthorizeEdit(journal, actor); err != nil {
		return err
	}

	if err := service.repository.SoftDelete(context, journal.ID); err != nil {
		return err
	}

	ctxutil.GetLogger(context).InfoContext(context, "journal_deleted", slog.String("journal_id", journal.ID))
	return nil
}

// # Lifecycle

// Submit sends an owned DRAFT to review.
func (service *Service) Submit(context context.Context, id string, actor *sec.Principal) (*Journal, error) {
	return service.transition(context, id, func(journal *Journal) error {
		return SubmitForReview(journal, actor)
	})
}

// Resubmit sends a REJECTED or REVISIONS_NEEDED journal back to review.
func (service *Service) Resubmit(context context.Context, id string, actor *sec.Principal) (*Journal, error) {
	return service.transition(context, id, func(journal *Journal) error {
		return Resubmit(journal, actor)
	})
}

/*
Review records an administrator's decision and notifies the author.

Description: A failed notification is logged; the review itself stands.

Parameters:
  - context: context.Context
  - id: string
  - actor: *sec.Principal (Must be ADMIN)
  - input: ReviewInput

Returns:
  - *Journal: The reviewed journal
  - error: Forbidden (403), validation (400) or storage failures
*/
func (service *Service) Review(context context.Context, id string, actor *sec.Principal, input ReviewInput) (*Journal, error) {
	journal, err := service.transition(context, id, func(journal *Journal) error {
		return ApplyReview(journal, actor, input, service.now())
	})
	if err != nil {
		return nil, err
	}

	logger := ctxutil.GetLogger(context)
	logger.InfoContext(context, "journal_reviewed",
		slog.String("journal_id", journal.ID),
		slog.String("reviewer_id", actor.ID),
		slog.String("status", string(journal.ReviewStatus)),
		slog.Bool("is_published", journal.IsPublished),
	)
	service.events.JournalReviewed(string(journal.ReviewStatus))

	service.notifyAuthor(context, journal)
	return journal, nil
}

// # Helpers

// transition loads a journal, applies a policy step and persists it guarded by
// the status that was read.
func (service *Service) transition(context context.Context, id string, apply func(*Journal) error) (*Journal, error) {
	journal, err := service.repository.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	previous := journal.ReviewStatus
	if err := apply(journal); err != nil {
		return nil, err
	}

	if err := service.repository.Update(context, journal, previous); err != nil {
		return nil, err
	}
	return journal, nil
}

func (service *Service) notifyAuthor(context context.Context, journal *Journal) {
	logger := ctxutil.GetLogger(context)

	contact, err := service.repository.AuthorContact(context, journal.AuthorID)
	if err != nil {
		logger.WarnContext(context, "journal_author_lookup_failed",
			slog.String("journal_id", journal.ID),
			slog.Any("error", err),
		)
		return
	}

	if err := service.notifier.Notify(context, contact.Email, contact.Name, reviewSubject(journal), journal.ID); err != nil {
		logger.WarnContext(context, "journal_notification_failed",
			slog.String("journal_id", journal.ID),
			slog.Any("error", err),
		)
	}
}

func validateContent(journal *Journal) error {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, journal.Title).
		MaxLen(FieldTitle, journal.Title, TitleMaxLength).
		MaxLen(FieldAbstract, journal.Abstract, AbstractMaxLength).
		MaxLen(FieldManuscriptURL, journal.ManuscriptURL, ManuscriptURLMaxLength)

	if journal.ManuscriptURL != "" {
		parsed, err := url.ParseRequestURI(journal.ManuscriptURL)
		validator.Custom(FieldManuscriptURL,
			err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https"),
			"Must be an http or https URL")
	}

	return validator.Err()
}

// slugFor derives the URL slug from the title. Titles with no Latin letters
// or digits fall back to a prefix of the id.
func slugFor(journal *Journal) string {
	if derived := slug.From(journal.Title); derived != "" {
		return derived
	}
	return "journal-" + journal.ID[:8]
}
