// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

import "context"

// # Journal Data Access

// Repository defines the data access contract for journals.
type Repository interface {
	/*
		List returns a filtered, paginated slice of journals and the total count.

		Parameters:
		  - context: context.Context
		  - filter: Filter (Visibility is applied in the query)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Journal: Matching journals
		  - int: Total count matching the filter
		  - error: Database failures
	*/
	List(context context.Context, filter Filter, limit, offset int) ([]*Journal, int, error)

	// FindByID returns a journal that has not been deleted.
	FindByID(context context.Context, id string) (*Journal, error)

	// Create persists a new journal.
	Create(context context.Context, journal *Journal) error

	/*
		Update persists every mutable column of the journal.

		Parameters:
		  - context: context.Context
		  - journal: *Journal
		  - expected: ReviewStatus (The status the caller read; the write fails with 409 if it changed)

		Returns:
		  - error: NotFound, Conflict or storage failures
	*/
	Update(context context.Context, journal *Journal, expected ReviewStatus) error

	// SoftDelete marks a journal as deleted.
	SoftDelete(context context.Context, id string) error

	// IncrementViewCount atomically adds delta to the view counter.
	IncrementViewCount(context context.Context, id string, delta int64) error

	// AuthorContact returns the email and name of the journal's author.
	AuthorContact(context context.Context, authorID string) (*Contact, error)
}
