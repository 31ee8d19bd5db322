// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import "github.com/taibuivan/quire/internal/platform/constants"

// CoreJournalTable represents the 'core.journal' table
type CoreJournalTable struct {
	Table           string
	ID              string
	AuthorID        string
	Title           string
	Slug            string
	Abstract        string
	ManuscriptURL   string
	ReviewStatus    string
	IsPublished     string
	ReviewerID      string
	ReviewNotes     string
	ReviewDate      string
	Price           string
	PublicationDate string
	ViewCount       string
	CreatedAt       string
	UpdatedAt       string
	DeletedAt       string
}

// CoreJournal is the schema definition for core.journal
var CoreJournal = CoreJournalTable{
	Table:           constants.SchemaCore + ".journal",
	ID:              "id",
	AuthorID:        "authorid",
	Title:           "title",
	Slug:            "slug",
	Abstract:        "abstract",
	ManuscriptURL:   "manuscripturl",
	ReviewStatus:    "reviewstatus",
	IsPublished:     "ispublished",
	ReviewerID:      "reviewerid",
	ReviewNotes:     "reviewnotes",
	ReviewDate:      "reviewdate",
	Price:           "price",
	PublicationDate: "publicationdate",
	ViewCount:       "viewcount",
	CreatedAt:       "createdat",
	UpdatedAt:       "updatedat",
	DeletedAt:       "deletedat",
}

// Columns returns the columns selected when hydrating a journal, in scan order.
func (t CoreJournalTable) Columns() []string {
	return []string{
		t.ID, t.AuthorID, t.Title, t.Slug, t.Abstract, t.ManuscriptURL,
		t.ReviewStatus, t.IsPublished, t.ReviewerID, t.ReviewNotes, t.ReviewDate,
		t.Price, t.PublicationDate, t.ViewCount, t.CreatedAt, t.UpdatedAt,
	}
}
