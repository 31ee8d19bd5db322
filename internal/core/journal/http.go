// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/middleware"
	requestutil "github.com/taibuivan/quire/internal/platform/request"
	"github.com/taibuivan/quire/internal/platform/respond"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/pkg/pagination"
	"github.com/taibuivan/quire/pkg/query"
	"github.com/taibuivan/quire/pkg/slice"
	"github.com/taibuivan/quire/pkg/uuid"
)

// # Handler Implementation

// Handler implements the /journals HTTP endpoints.
type Handler struct {
	service              *Service
	authenticate         func(http.Handler) http.Handler
	optionalAuthenticate func(http.Handler) http.Handler
}

// NewHandler constructs a journal [Handler].
//
// Reads go through optionalAuthenticate so anonymous visitors see published
// journals; every mutation goes through authenticate.
func NewHandler(service *Service, authenticate, optionalAuthenticate func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service:              service,
		authenticate:         authenticate,
		optionalAuthenticate: optionalAuthenticate,
	}
}

// Routes returns a [chi.Router] configured with the journal endpoints.
//
// # Endpoints
//   - GET    /               : Visible journals (optional auth).
//   - GET    /{id}           : One journal, counts the view (optional auth).
//   - POST   /               : Create (AUTHOR).
//   - PATCH  /{id}           : Edit content (owner while DRAFT, or ADMIN).
//   - DELETE /{id}           : Soft delete (owner while DRAFT, or ADMIN).
//   - POST   /{id}/submit    : DRAFT to UNDER_REVIEW (owner).
//   - POST   /{id}/resubmit  : REJECTED or REVISIONS_NEEDED to UNDER_REVIEW (owner).
//   - POST   /{id}/review    : Review decision (ADMIN).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Discovery
	router.Group(func(public chi.Router) {
		public.Use(handler.optionalAuthenticate)
		public.Get("/", handler.list)
		public.Get("/{id}", handler.get)
	})

	// ## Authoring and review
	router.Group(func(private chi.Router) {
		private.Use(handler.authenticate)

		private.With(middleware.RequireRole(sec.RoleAuthor)).Post("/", handler.create)
		private.Patch("/{id}", handler.update)
		private.Delete("/{id}", handler.delete)
		private.Post("/{id}/submit", handler.submit)
		private.Post("/{id}/resubmit", handler.resubmit)
		private.With(middleware.RequireRole(sec.RoleAdmin)).Post("/{id}/review", handler.review)
	})

	return router
}

// # Payloads

type createRequest struct {
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	ManuscriptURL string `json:"manuscriptUrl"`
	Submit        bool   `json:"submit"`
}

type updateRequest struct {
	Title         *string `json:"title"`
	Abstract      *string `json:"abstract"`
	ManuscriptURL *string `json:"manuscriptUrl"`
}

type reviewRequest struct {
	ReviewStatus string   `json:"reviewStatus"`
	ReviewNotes  *string  `json:"reviewNotes"`
	Price        *float64 `json:"price"`
	IsPublished  *bool    `json:"isPublished"`
}

type journalResponse struct {
	Journal *Journal `json:"journal"`
}

// # Discovery Endpoints

/*
GET /api/v1/journals.

Request:
  - q: string (Title search)
  - status: []string (Repeated or comma separated)
  - author: string (Author id)
  - mine: bool (Only the caller's journals)
  - sort: string (latest, popular, title)
  - dir: string (asc, desc)
  - page, limit: int

Response:
  - 200: []Journal the caller may see
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request, SortLatest, SortPopular, SortTitle)
	queryParams := request.URL.Query()
	principal := requestutil.Principal(request)

	filter := Filter{
		Query:      strings.TrimSpace(queryParams.Get("q")),
		AuthorID:   queryParams.Get("author"),
		Sort:       paginationParams.Sort,
		Descending: paginationParams.Descending,
	}

	statuses := slice.Map(query.List(queryParams, "status"), func(raw string) ReviewStatus {
		return ReviewStatus(strings.ToUpper(raw))
	})
	filter.Status = slice.Filter(statuses, ReviewStatus.IsValid)

	if query.Bool(queryParams, "mine") {
		if principal == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		filter.AuthorID = principal.ID
	}

	if filter.AuthorID != "" && !uuid.IsValid(filter.AuthorID) {
		respond.Paginated(writer, []*Journal{}, paginationParams.Meta(0))
		return
	}

	journals, total, err := handler.service.List(request.Context(), principal, filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, journals, paginationParams.Meta(total))
}

/*
GET /api/v1/journals/{id}.

Response:
  - 200: {journal}
  - 403: Not visible to the caller
  - 404: Unknown journal
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	id, err := journalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	journal, err := handler.service.Get(request.Context(), id, requestutil.Principal(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, journalResponse{Journal: journal})
}

// # Authoring Endpoints

/*
POST /api/v1/journals.

Response:
  - 201: {journal} in DRAFT, or UNDER_REVIEW when submit is true
  - 400: Validation failure
  - 403: Caller is not an AUTHOR
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	journal, err := handler.service.Create(request.Context(), principal, CreateInput{
		Title:         input.Title,
		Abstract:      input.Abstract,
		ManuscriptURL: input.ManuscriptURL,
		Submit:        input.Submit,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, journalResponse{Journal: journal})
}

// PATCH /api/v1/journals/{id}.
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	principal, id, err := principalAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	journal, err := handler.service.Update(request.Context(), id, principal, UpdateInput{
		Title:         input.Title,
		Abstract:      input.Abstract,
		ManuscriptURL: input.ManuscriptURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, journalResponse{Journal: journal})
}

// DELETE /api/v1/journals/{id}.
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	principal, id, err := principalAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), id, principal); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// POST /api/v1/journals/{id}/submit.
func (handler *Handler) submit(writer http.ResponseWriter, request *http.Request) {
	handler.lifecycle(writer, request, handler.service.Submit)
}

// POST /api/v1/journals/{id}/resubmit.
func (handler *Handler) resubmit(writer http.ResponseWriter, request *http.Request) {
	handler.lifecycle(writer, request, handler.service.Resubmit)
}

// # Review Endpoint

/*
POST /api/v1/journals/{id}/review.

Request:
  - reviewStatus: string (UNDER_REVIEW, PUBLISHED, REJECTED, REVISIONS_NEEDED)
  - reviewNotes: string (Optional)
  - price: number (Optional, >= 0)
  - isPublished: bool (Optional; false holds back a PUBLISHED journal)

Response:
  - 200: {journal}
  - 400: Invalid reviewStatus or negative price; the journal is unchanged
  - 403: Caller is not an ADMIN
*/
func (handler *Handler) review(writer http.ResponseWriter, request *http.Request) {
	principal, id, err := principalAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input reviewRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	journal, err := handler.service.Review(request.Context(), id, principal, ReviewInput{
		ReviewStatus: input.ReviewStatus,
		ReviewNotes:  input.ReviewNotes,
		Price:        input.Price,
		IsPublished:  input.IsPublished,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, journalResponse{Journal: journal})
}

// # Helpers

// lifecycle runs a status transition that takes no request body.
func (handler *Handler) lifecycle(writer http.ResponseWriter, request *http.Request, step func(context.Context, string, *sec.Principal) (*Journal, error)) {
	principal, id, err := principalAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	journal, err := step(request.Context(), id, principal)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, journalResponse{Journal: journal})
}

// journalID reads the {id} path parameter. A malformed id cannot exist, so it is a 404.
func journalID(request *http.Request) (string, error) {
	id := requestutil.ID(request, "id")
	if !uuid.IsValid(id) {
		return "", apperr.NotFound(resourceJournal)
	}
	return id, nil
}

func principalAndID(request *http.Request) (*sec.Principal, string, error) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		return nil, "", err
	}
	id, err := journalID(request)
	if err != nil {
		return nil, "", err
	}
	return principal, id, nil
}
