// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/database/schema"
	"github.com/taibuivan/quire/internal/platform/dberr"
	"github.com/taibuivan/quire/pkg/query"
)

// # PostgreSQL Repository

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed journal store.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// journalColumns is the select list with the "j." alias, in scan order.
var journalColumns = func() string {
	columns := schema.CoreJournal.Columns()
	qualified := make([]string, len(columns))
	for index, column := range columns {
		qualified[index] = "j." + column
	}
	return strings.Join(qualified, ", ")
}()

// publiclyVisible is the SQL form of [Journal.IsPubliclyVisible].
var publiclyVisible = fmt.Sprintf("(j.%s AND j.%s = '%s')",
	schema.CoreJournal.IsPublished, schema.CoreJournal.ReviewStatus, StatusPublished)

func scanJournal(row pgx.Row, extra ...any) (*Journal, error) {
	journal := &Journal{}
	targets := []any{
		&journal.ID,
		&journal.AuthorID,
		&journal.Title,
		&journal.Slug,
		&journal.Abstract,
		&journal.ManuscriptURL,
		&journal.ReviewStatus,
		&journal.IsPublished,
		&journal.ReviewerID,
		&journal.ReviewNotes,
		&journal.ReviewDate,
		&journal.Price,
		&journal.PublicationDate,
		&journal.ViewCount,
		&journal.CreatedAt,
		&journal.UpdatedAt,
	}
	if err := row.Scan(append(targets, extra...)...); err != nil {
		return nil, err
	}
	return journal, nil
}

/*
List returns a filtered, paginated slice of journals.

Description: Visibility is part of the WHERE clause. A non-admin viewer gets
"published OR mine", never a published-only filter, and rows they may not see
are never read. COUNT(*) OVER() returns the total without a second query.

Parameters:
  - context: context.Context
  - filter: Filter
  - limit: int
  - offset: int

Returns:
  - []*Journal: Page of journals
  - int: Total count
  - error: Database failures
*/
func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]*Journal, int, error) {
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s j
		WHERE j.%s IS NULL`,
		journalColumns, schema.CoreJournal.Table, schema.CoreJournal.DeletedAt,
	))

	// Visibility
	switch filter.Visibility {
	case VisibilityAll:
	case VisibilityPublishedOrOwn:
		queryBuilder.WriteString(fmt.Sprintf(" AND (%s OR j.%s = $%d)", publiclyVisible, schema.CoreJournal.AuthorID, argID))
		args = append(args, filter.ViewerID)
		argID++
	default:
		queryBuilder.WriteString(" AND " + publiclyVisible)
	}

	// Author Filtering
	if filter.AuthorID != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND j.%s = $%d", schema.CoreJournal.AuthorID, argID))
		args = append(args, filter.AuthorID)
		argID++
	}

	// Status Filtering
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for index, status := range filter.Status {
			statuses[index] = string(status)
		}
		queryBuilder.WriteString(fmt.Sprintf(" AND j.%s = ANY($%d)", schema.CoreJournal.ReviewStatus, argID))
		args = append(args, statuses)
		argID++
	}

	// Title search
	if filter.Query != "" {
		queryBuilder.WriteString(fmt.Sprintf(` AND j.%s ILIKE '%%' || $%d || '%%' ESCAPE '\'`, schema.CoreJournal.Title, argID))
		args = append(args, query.EscapeLike(filter.Query))
		argID++
	}

	// Sorting
	sort := schema.CoreJournal.CreatedAt
	switch filter.Sort {
	case SortPopular:
		sort = schema.CoreJournal.ViewCount
	case SortTitle:
		sort = schema.CoreJournal.Title
	}

	sortDir := "ASC"
	if filter.Descending {
		sortDir = "DESC"
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY j.%s %s, j.%s DESC", sort, sortDir, schema.CoreJournal.ID))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, resourceJournal)
	}
	defer rows.Close()

	journals := []*Journal{}
	var totalCount int

	for rows.Next() {
		journal, err := scanJournal(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_scan_journal_failed: %w", err)
		}
		journals = append(journals, journal)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, resourceJournal)
	}

	return journals, totalCount, nil
}

// FindByID returns a journal that has not been deleted.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Journal, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s j WHERE j.%s = $1 AND j.%s IS NULL`,
		journalColumns, schema.CoreJournal.Table, schema.CoreJournal.ID, schema.CoreJournal.DeletedAt,
	)

	journal, err := scanJournal(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceJournal)
	}
	return journal, nil
}

// Create persists a new journal.
func (repository *PostgresRepository) Create(context context.Context, journal *Journal) error {
	columns := schema.CoreJournal.Columns()
	placeholders := make([]string, len(columns))
	for index := range columns {
		placeholders[index] = fmt.Sprintf("$%d", index+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		schema.CoreJournal.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	now := time.Now().UTC()
	journal.CreatedAt = now
	journal.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		journal.ID,
		journal.AuthorID,
		journal.Title,
		journal.Slug,
		journal.Abstract,
		journal.ManuscriptURL,
		journal.ReviewStatus,
		journal.IsPublished,
		journal.ReviewerID,
		journal.ReviewNotes,
		journal.ReviewDate,
		journal.Price,
		journal.PublicationDate,
		journal.ViewCount,
		journal.CreatedAt,
		journal.UpdatedAt,
	)

	return dberr.Wrap(err, resourceJournal)
}

/*
Update persists the journal's mutable columns.

Description: The write is conditional on the status the caller read, so a
review and an author edit racing on the same row cannot both win.

Parameters:
  - context: context.Context
  - journal: *Journal
  - expected: ReviewStatus

Returns:
  - error: NotFound (404), Conflict (409) or storage failures
*/
func (repository *PostgresRepository) Update(context context.Context, journal *Journal, expected ReviewStatus) error {
	table := schema.CoreJournal
	query := fmt.Sprintf(`
		UPDATE %s SET
			%s = $3, %s = $4, %s = $5, %s = $6,
			%s = $7, %s = $8, %s = $9, %s = $10,
			%s = $11, %s = $12, %s = $13, %s = NOW()
		WHERE %s = $1 AND %s = $2 AND %s IS NULL
		RETURNING %s`,
		table.Table,
		table.Title, table.Slug, table.Abstract, table.ManuscriptURL,
		table.ReviewStatus, table.IsPublished, table.ReviewerID, table.ReviewNotes,
		table.ReviewDate, table.Price, table.PublicationDate, table.UpdatedAt,
		table.ID, table.ReviewStatus, table.DeletedAt,
		table.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		journal.ID,
		expected,
		journal.Title,
		journal.Slug,
		journal.Abstract,
		journal.ManuscriptURL,
		journal.ReviewStatus,
		journal.IsPublished,
		journal.ReviewerID,
		journal.ReviewNotes,
		journal.ReviewDate,
		journal.Price,
		journal.PublicationDate,
	).Scan(&journal.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a vanished row from a lost race.
		if _, findErr := repository.FindByID(context, journal.ID); findErr != nil {
			return findErr
		}
		return apperr.Conflict("Journal was changed by another request")
	}

	return dberr.Wrap(err, resourceJournal)
}

// SoftDelete marks a journal as deleted.
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.CoreJournal.Table, schema.CoreJournal.DeletedAt, schema.CoreJournal.ID, schema.CoreJournal.DeletedAt,
	)

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, resourceJournal)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceJournal)
	}
	return nil
}

// IncrementViewCount atomically adds delta to the view counter.
func (repository *PostgresRepository) IncrementViewCount(context context.Context, id string, delta int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $2 WHERE %s = $1`,
		schema.CoreJournal.Table, schema.CoreJournal.ViewCount, schema.CoreJournal.ViewCount, schema.CoreJournal.ID,
	)

	_, err := repository.pool.Exec(context, query, id, delta)
	return dberr.Wrap(err, resourceJournal)
}

// AuthorContact reads the author's email and name from the account table.
func (repository *PostgresRepository) AuthorContact(context context.Context, authorID string) (*Contact, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = $1`,
		schema.UserAccount.Email, schema.UserAccount.Name, schema.UserAccount.Table, schema.UserAccount.ID,
	)

	contact := &Contact{}
	if err := repository.pool.QueryRow(context, query, authorID).Scan(&contact.Email, &contact.Name); err != nil {
		return nil, dberr.Wrap(err, "Author")
	}
	return contact, nil
}
