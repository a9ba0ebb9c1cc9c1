package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sjlee133/academyradar/internal/adapter"
)

// SaveOutcome classifies what Save did with one raw post.
type SaveOutcome string

const (
	// OutcomeSaved means a new row was inserted.
	OutcomeSaved SaveOutcome = "saved"
	// OutcomeDuplicate means the post already existed with counts at
	// least as high as the incoming ones.
	OutcomeDuplicate SaveOutcome = "duplicate"
	// OutcomeUpdated means the post existed but a count grew.
	OutcomeUpdated SaveOutcome = "updated"
)

// SaveResult reports the outcome and the affected post.
type SaveResult struct {
	Outcome SaveOutcome
	Post    *Post
}

// Deduplicator persists raw posts exactly once per canonical identity and
// ratchets view/comment counts upward on re-encounters.
type Deduplicator struct {
	store Store
}

// NewDeduplicator creates a Deduplicator over the given store
func NewDeduplicator(s Store) *Deduplicator {
	return &Deduplicator{store: s}
}

// Save persists one raw post for a (source, target) pair.
//
// The canonical key is the post URL when present, otherwise a composite of
// source type, title and raw posted-at, so URL-less strategy output still
// deduplicates. Counts only move up: a re-encountered post with lower
// counts is a duplicate, with higher counts an update. An insert losing a
// unique-key race is recovered as a duplicate.
func (d *Deduplicator) Save(ctx context.Context, raw adapter.RawPost, sourceID, targetID uuid.UUID) (*SaveResult, error) {
	key := CanonicalKey(raw)

	existing, err := d.store.GetPostByCanonicalURL(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up post: %w", err)
	}

	if existing != nil {
		return d.merge(ctx, existing, raw)
	}

	post := &Post{
		ID:           uuid.New(),
		SourceID:     sourceID,
		TargetID:     targetID,
		Keyword:      raw.Keyword,
		Title:        raw.Title,
		Content:      raw.Content,
		Author:       raw.Author,
		CanonicalURL: key,
		ViewCount:    raw.ViewCount,
		CommentCount: raw.CommentCount,
		PostedAt:     raw.PostedAt,
		CollectedAt:  collectedAt(raw),
		SourceType:   SourceType(raw.Source),
		IsSample:     raw.IsSample,
	}

	err = d.store.InsertPost(ctx, post)
	if errors.Is(err, ErrDuplicateKey) {
		// Lost the insert race; whoever won holds the row.
		return &SaveResult{Outcome: OutcomeDuplicate, Post: post}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return &SaveResult{Outcome: OutcomeSaved, Post: post}, nil
}

func (d *Deduplicator) merge(ctx context.Context, existing *Post, raw adapter.RawPost) (*SaveResult, error) {
	newView := max(existing.ViewCount, raw.ViewCount)
	newComment := max(existing.CommentCount, raw.CommentCount)

	if newView == existing.ViewCount && newComment == existing.CommentCount {
		return &SaveResult{Outcome: OutcomeDuplicate, Post: existing}, nil
	}

	if err := d.store.UpdatePostCounts(ctx, existing.ID, newView, newComment); err != nil {
		return nil, fmt.Errorf("failed to update post counts: %w", err)
	}
	existing.ViewCount = newView
	existing.CommentCount = newComment
	return &SaveResult{Outcome: OutcomeUpdated, Post: existing}, nil
}

// CanonicalKey derives the deduplication key for a raw post.
func CanonicalKey(raw adapter.RawPost) string {
	if raw.URL != "" {
		return raw.URL
	}
	return fmt.Sprintf("%s|%s|%s", raw.Source, raw.Title, raw.PostedAtRaw)
}

func collectedAt(raw adapter.RawPost) time.Time {
	if !raw.CollectedAt.IsZero() {
		return raw.CollectedAt
	}
	return time.Now()
}
