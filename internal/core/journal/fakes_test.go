// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/taibuivan/quire/internal/core/journal"
	"github.com/taibuivan/quire/internal/platform/apperr"
)

// # In-memory repository

type memoryJournals struct {
	mu       sync.Mutex
	rows     map[string]*journal.Journal
	deleted  map[string]bool
	contacts map[string]journal.Contact
	lists    []journal.Filter
}

func newMemoryJournals() *memoryJournals {
	return &memoryJournals{
		rows:     make(map[string]*journal.Journal),
		deleted:  make(map[string]bool),
		contacts: make(map[string]journal.Contact),
	}
}

func (repository *memoryJournals) visible(row *journal.Journal, filter journal.Filter) bool {
	switch filter.Visibility {
	case journal.VisibilityAll:
		return true
	case journal.VisibilityPublishedOrOwn:
		return row.IsPubliclyVisible() || row.AuthorID == filter.ViewerID
	default:
		return row.IsPubliclyVisible()
	}
}

func (repository *memoryJournals) List(_ context.Context, filter journal.Filter, limit, offset int) ([]*journal.Journal, int, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.lists = append(repository.lists, filter)

	matches := []*journal.Journal{}
	for id, row := range repository.rows {
		if repository.deleted[id] || !repository.visible(row, filter) {
			continue
		}
		if filter.AuthorID != "" && row.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(row.Title), strings.ToLower(filter.Query)) {
			continue
		}
		clone := *row
		matches = append(matches, &clone)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	total := len(matches)
	if offset >= total {
		return []*journal.Journal{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

func (repository *memoryJournals) FindByID(_ context.Context, id string) (*journal.Journal, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	row, found := repository.rows[id]
	if !found || repository.deleted[id] {
		return nil, apperr.NotFound("Journal")
	}
	clone := *row
	return &clone, nil
}

func (repository *memoryJournals) Create(_ context.Context, row *journal.Journal) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	clone := *row
	repository.rows[row.ID] = &clone
	return nil
}

func (repository *memoryJournals) Update(_ context.Context, row *journal.Journal, expected journal.ReviewStatus) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, found := repository.rows[row.ID]
	if !found || repository.deleted[row.ID] {
		return apperr.NotFound("Journal")
	}
	if stored.ReviewStatus != expected {
		return apperr.Conflict("Journal was changed by another request")
	}
	clone := *row
	repository.rows[row.ID] = &clone
	return nil
}

func (repository *memoryJournals) SoftDelete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.deleted[id] = true
	return nil
}

func (repository *memoryJournals) IncrementViewCount(_ context.Context, id string, delta int64) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.rows[id].ViewCount += delta
	return nil
}

func (repository *memoryJournals) AuthorContact(_ context.Context, authorID string) (*journal.Contact, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	contact, found := repository.contacts[authorID]
	if !found {
		return nil, apperr.NotFound("Author")
	}
	return &contact, nil
}

func (repository *memoryJournals) stored(id string) journal.Journal {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return *repository.rows[id]
}

// # Recording collaborators

type notification struct {
	email, name, subject, contextID string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (notifier *recordingNotifier) Notify(_ context.Context, email, name, subject, contextID string) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.sent = append(notifier.sent, notification{email, name, subject, contextID})
	return nil
}

type recordingEvents struct {
	reviewed []string
}

func (events *recordingEvents) JournalReviewed(status string) {
	events.reviewed = append(events.reviewed, status)
}
