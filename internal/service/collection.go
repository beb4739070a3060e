package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/momo-server/internal/apperror"
	"github.com/sakif/momo-server/internal/metrics"
	"github.com/sakif/momo-server/internal/model"
	"github.com/sakif/momo-server/internal/repository"
	"github.com/sakif/momo-server/internal/sanitize"
)

// CollectionService reads and writes per-user item states.
type CollectionService struct {
	users   repository.UserRepository
	entries repository.CollectionRepository
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewCollectionService wires a CollectionService. users is consulted to
// check the collection's owner exists; entries holds the collection rows.
func NewCollectionService(
	users repository.UserRepository,
	entries repository.CollectionRepository,
	rec metrics.Recorder,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{
		users:   users,
		entries: entries,
		metrics: rec,
		logger:  logger,
	}
}

// List returns every entry of the user with the given public userId.
func (s *CollectionService) List(ctx context.Context, rawUserID string) ([]model.CollectionEntry, error) {
	userID, err := sanitize.UserID(rawUserID)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindUser(ctx, model.ByUserID(userID))
	if err != nil {
		return nil, fmt.Errorf("service/collection: finding user %s: %w", userID, err)
	}
	if u == nil {
		return nil, apperror.New(apperror.ErrValidation, apperror.CodeUserNotFound, "user not found")
	}

	entries, err := s.entries.ListCollection(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/collection: listing %s: %w", userID, err)
	}
	return entries, nil
}

// UpsertAs writes entries into the collection named by rawUserID on behalf
// of caller. Only the owner may write.
func (s *CollectionService) UpsertAs(ctx context.Context, caller *model.UserAccount, rawUserID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	userID, err := sanitize.UserID(rawUserID)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.UserID != userID {
		return nil, apperror.Forbidden("only the owner may change this collection")
	}
	return s.Upsert(ctx, userID, entries)
}

// Upsert sets the state of each entry for userID in one atomic write.
//
// Duplicate item ids collapse to one: the last state wins and the item keeps
// the position of its first occurrence. The result holds one entry per
// distinct item in that order. Existing items not in the batch are left
// alone. An empty batch returns an empty result without touching storage.
func (s *CollectionService) Upsert(ctx context.Context, userID string, entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	if len(entries) == 0 {
		return []model.CollectionEntry{}, nil
	}

	normalized, err := normalizeEntries(entries)
	if err != nil {
		return nil, err
	}

	stored, err := s.entries.UpsertCollection(ctx, userID, normalized)
	if err != nil {
		return nil, fmt.Errorf("service/collection: upserting for %s: %w", userID, err)
	}

	byItem := make(map[string]model.CollectionEntry, len(stored))
	for _, e := range stored {
		byItem[e.ItemID] = e
	}

	out := make([]model.CollectionEntry, 0, len(normalized))
	for _, n := range normalized {
		e, ok := byItem[n.ItemID]
		if !ok {
			return nil, apperror.Inconsistency("upsert for %s returned no row for item %s", userID, n.ItemID)
		}
		out = append(out, e)
	}

	s.metrics.RecordEntriesUpserted(len(out))
	s.logger.Debug("collection upserted", slog.String("userID", userID), slog.Int("entries", len(out)))
	return out, nil
}

// normalizeEntries validates entries and collapses duplicate item ids.
func normalizeEntries(entries []model.CollectionEntry) ([]model.CollectionEntry, error) {
	out := make([]model.CollectionEntry, 0, len(entries))
	pos := make(map[string]int, len(entries))

	for _, raw := range entries {
		e, err := sanitize.CollectionEntry(raw.ItemID, raw.State)
		if err != nil {
			return nil, err
		}
		if i, seen := pos[e.ItemID]; seen {
			out[i].State = e.State
			continue
		}
		pos[e.ItemID] = len(out)
		out = append(out, e)
	}
	return out, nil
}
