// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

// # Validation Limits

const (
	TitleMaxLength         = 300
	AbstractMaxLength      = 5000
	ManuscriptURLMaxLength = 2048
	ReviewNotesMaxLength   = 5000
)

// Price bounds match the NUMERIC(12, 2) column.
const (
	PriceMax       = 9_999_999_999.99
	PriceMaxPlaces = 2
)

// # Field Names

const (
	FieldTitle         = "title"
	FieldAbstract      = "abstract"
	FieldManuscriptURL = "manuscriptUrl"
	FieldReviewStatus  = "reviewStatus"
	FieldReviewNotes   = "reviewNotes"
	FieldPrice         = "price"
	FieldIsPublished   = "isPublished"
)

// # Sorting

const (
	SortLatest  = "latest"
	SortPopular = "popular"
	SortTitle   = "title"
)

// resourceJournal names the entity in storage errors ("Journal not found").
const resourceJournal = "Journal"
