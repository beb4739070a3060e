package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/auth"
	"github.com/sakif/momo-server/internal/model"
	"github.com/sakif/momo-server/internal/service"
)

// UserHandler serves /user: public profiles, collections, and the caller's
// own meta.
type UserHandler struct {
	identity    *service.IdentityService
	collections *service.CollectionService
	logger      *slog.Logger
}

func NewUserHandler(identity *service.IdentityService, collections *service.CollectionService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		identity:    identity,
		collections: collections,
		logger:      logger,
	}
}

// CollectionsBody is both the request and the response of the collection
// endpoints.
type CollectionsBody struct {
	Collections []CollectionItem `json:"collections"`
}

// CollectionItem is one entry as clients send it.
type CollectionItem struct {
	ItemID string                `json:"itemId"`
	State  model.CollectionState `json:"state"`
}

type collectionsResponse struct {
	Collections []model.CollectionEntry `json:"collections"`
}

// HandleProfile returns the public profile of a user.
//
// HTTP: GET /user/{userId}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.identity.PublicProfile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleListCollections returns every entry of a user's collection.
//
// HTTP: GET /user/{userId}/collections
func (h *UserHandler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	entries, err := h.collections.List(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionsResponse{Collections: nonNil(entries)})
}

// HandleUpsertCollections merges entries into the caller's own collection.
//
// HTTP: PUT /user/{userId}/collections
// Auth: required, caller must own {userId}
// REQUEST BODY: {"collections": [{"itemId": "a", "state": "owned"}]}
func (h *UserHandler) HandleUpsertCollections(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized(apperror.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var req CollectionsBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	entries := make([]model.CollectionEntry, len(req.Collections))
	for i, c := range req.Collections {
		entries[i] = model.CollectionEntry{ItemID: c.ItemID, State: c.State}
	}

	merged, err := h.collections.UpsertAs(r.Context(), caller, chi.URLParam(r, "userId"), entries)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionsResponse{Collections: merged})
}

// HandleUpdateSelf merges an arbitrary JSON object into the caller's meta
// and returns their profile.
//
// HTTP: PUT /user/self
// Auth: required
func (h *UserHandler) HandleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized(apperror.CodeNotAuthenticated, "bearer token required"))
		return
	}

	var patch model.Meta
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if patch == nil {
		writeError(w, r, h.logger, apperror.ValidationFailed("body", "request body must be a JSON object"))
		return
	}

	if _, err := h.identity.UpdateMeta(r.Context(), model.ByInternalUserID(caller.InternalUserID), patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	profile, err := h.identity.ResolveProfile(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func nonNil(entries []model.CollectionEntry) []model.CollectionEntry {
	if entries == nil {
		return []model.CollectionEntry{}
	}
	return entries
}
