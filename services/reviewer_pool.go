package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"protocol-review-api/models"
)

// ReviewerSource lists reviewer candidates from personnel data.
type ReviewerSource interface {
	ListReviewerCandidates(ctx context.Context) ([]models.ReviewerCandidate, error)
}

// ReviewerDirectory provides the active reviewer pool. refresh bypasses any cache.
type ReviewerDirectory interface {
	ActiveReviewers(ctx context.Context, refresh bool) ([]models.ReviewerCandidate, error)
}

const defaultReviewerTTL = 5 * time.Minute

// ReviewerPool caches active reviewer candidates for a fixed TTL.
type ReviewerPool struct {
	source ReviewerSource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	cached    []models.ReviewerCandidate
	fetchedAt time.Time
}

// NewReviewerPool returns a cache over source. A non-positive ttl uses five minutes.
func NewReviewerPool(source ReviewerSource, ttl time.Duration) *ReviewerPool {
	if ttl <= 0 {
		ttl = defaultReviewerTTL
	}
	return &ReviewerPool{source: source, ttl: ttl, now: time.Now}
}

// ActiveReviewers returns the active board members, reloading when the cache is stale or refresh is set.
func (p *ReviewerPool) ActiveReviewers(ctx context.Context, refresh bool) ([]models.ReviewerCandidate, error) {
	p.mu.RLock()
	cached, fetchedAt := p.cached, p.fetchedAt
	p.mu.RUnlock()

	if cached != nil && !refresh && p.now().Sub(fetchedAt) < p.ttl {
		return cached, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && !refresh && p.now().Sub(p.fetchedAt) < p.ttl {
		return p.cached, nil
	}

	rows, err := p.source.ListReviewerCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviewer candidates: %w", err)
	}

	active := make([]models.ReviewerCandidate, 0, len(rows))
	for _, candidate := range rows {
		if candidate.ActiveBoardMember {
			active = append(active, candidate)
		}
	}

	p.cached = active
	p.fetchedAt = p.now()
	return active, nil
}

// Clear invalidates the cached pool.
func (p *ReviewerPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}
