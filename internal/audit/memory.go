package audit

import (
	"context"
	"sync"

	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// MemoryRepository keeps the audit chain in memory. Used in tests and
// for local runs without a database.
type MemoryRepository struct {
	mu       sync.Mutex
	entries  []*Entry
	lastHash string
}

// NewMemoryRepository creates an empty in-memory audit repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Initialize is a no-op for the in-memory repository
func (r *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

// Append appends a new audit entry (thread-safe)
func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Sequence = int64(len(r.entries)) + 1
	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()

	r.entries = append(r.entries, entry)
	r.lastHash = entry.Hash

	return nil
}

// FindByID finds an audit entry by ID
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, nil
		}
	}

	return nil, errors.NotFound("audit entry", id.String())
}

// List lists audit entries with filters, newest first
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	var matched []*Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]

		if filter.ActorID != nil && entry.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.CaseID != nil && (entry.CaseID == nil || *entry.CaseID != *filter.CaseID) {
			continue
		}
		if filter.StartTime != nil && entry.Timestamp.Before(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && entry.Timestamp.After(*filter.EndTime) {
			continue
		}

		matched = append(matched, entry)
	}

	total := len(matched)

	if filter.Offset >= len(matched) {
		return []*Entry{}, total, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, total, nil
}

// GetByCase gets audit entries for a specific case, newest first
func (r *MemoryRepository) GetByCase(ctx context.Context, caseID types.ID, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	entries, _, err := r.List(ctx, ListFilter{CaseID: &caseID, Limit: limit})
	return entries, err
}

// VerifyChain verifies the integrity of the audit chain
func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	// Newest first, matching the other backends
	var entries []*Entry
	for i := len(r.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, r.entries[i])
	}

	return verifyEntries(entries, includeDetails), nil
}

// GetLastHash returns the last hash in the chain
func (r *MemoryRepository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// Count returns the total number of audit entries
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}
