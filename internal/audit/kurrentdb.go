package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	"github.com/perito-digital/platform/internal/shared/config"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

const (
	// AuditStreamName is the stream where all audit entries are stored
	AuditStreamName = "$audit"
	// AuditEventType is the event type for audit entries
	AuditEventType = "AuditEntry"
)

// KurrentDBRepository provides append-only audit log operations using KurrentDB.
// KurrentDB is inherently append-only - events cannot be modified or deleted,
// which makes it a natural backend for the tamper-evident trail.
type KurrentDBRepository struct {
	client   *esdb.Client
	mu       sync.Mutex
	lastHash string
	sequence int64
}

// NewKurrentDBRepository creates a new KurrentDB-based audit repository
func NewKurrentDBRepository(client *esdb.Client) *KurrentDBRepository {
	return &KurrentDBRepository{client: client}
}

// ConnectKurrentDB builds an esdb client from config
func ConnectKurrentDB(cfg config.KurrentDBConfig) (*esdb.Client, error) {
	scheme := "esdb"
	query := "tls=true"
	if cfg.Insecure {
		query = "tls=false"
	}

	connStr := fmt.Sprintf("%s://%s:%d?%s", scheme, cfg.Host, cfg.Port, query)
	if cfg.Username != "" {
		connStr = fmt.Sprintf("%s://%s:%s@%s:%d?%s", scheme, cfg.Username, cfg.Password, cfg.Host, cfg.Port, query)
	}

	settings, err := esdb.ParseConnectionString(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid kurrentdb connection string")
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kurrentdb client")
	}

	return client, nil
}

// Initialize loads the last hash and sequence from KurrentDB
func (r *KurrentDBRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, AuditStreamName, opts, 1)
	if err != nil {
		// Stream doesn't exist yet - that's OK
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				r.lastHash = ""
				r.sequence = 0
				return nil
			}
		}
		return errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		// No events yet
		r.lastHash = ""
		r.sequence = 0
		return nil
	}

	if event.Event != nil && event.Event.EventType == AuditEventType {
		var entry Entry
		if err := json.Unmarshal(event.Event.Data, &entry); err == nil {
			r.lastHash = entry.Hash
			r.sequence = entry.Sequence
		}
	}

	return nil
}

// Append appends a new audit entry (thread-safe)
func (r *KurrentDBRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	entry.Sequence = r.sequence
	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit entry")
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		EventType:   AuditEventType,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		Metadata: []byte(fmt.Sprintf(`{"sequence":%d,"hash":"%s"}`,
			entry.Sequence, entry.Hash)),
	}

	_, err = r.client.AppendToStream(ctx, AuditStreamName, esdb.AppendToStreamOptions{}, eventData)
	if err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	r.lastHash = entry.Hash

	return nil
}

// readEntries reads up to maxEvents entries from the stream, newest first
func (r *KurrentDBRepository) readEntries(ctx context.Context, maxEvents uint64) ([]*Entry, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, AuditStreamName, opts, maxEvents)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return nil, nil
			}
		}
		return nil, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	var entries []*Entry
	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}

		if event.Event != nil && event.Event.EventType == AuditEventType {
			var entry Entry
			if err := json.Unmarshal(event.Event.Data, &entry); err == nil {
				entries = append(entries, &entry)
			}
		}
	}

	return entries, nil
}

// FindByID finds an audit entry by ID.
// Reads the full stream - fine for the volumes a case file produces,
// a projection would be needed beyond that.
func (r *KurrentDBRepository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	entries, err := r.readEntries(ctx, 10000)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.ID == id {
			return entry, nil
		}
	}

	return nil, errors.NotFound("audit entry", id.String())
}

// List lists audit entries with filters, newest first
func (r *KurrentDBRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	maxEvents := uint64(1000)
	if filter.Limit > 0 {
		maxEvents = uint64(filter.Limit+filter.Offset) + 100 // Read extra to account for filtering
	}

	all, err := r.readEntries(ctx, maxEvents)
	if err != nil {
		return nil, 0, err
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	var entries []*Entry
	total := 0

	for _, entry := range all {
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

		total++

		if filter.Offset > 0 && total <= filter.Offset {
			continue
		}
		if len(entries) >= limit {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, total, nil
}

// GetByCase gets all audit entries for a specific case, newest first
func (r *KurrentDBRepository) GetByCase(ctx context.Context, caseID types.ID, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	entries, _, err := r.List(ctx, ListFilter{CaseID: &caseID, Limit: limit})
	return entries, err
}

// VerifyChain verifies the integrity of the audit chain
func (r *KurrentDBRepository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	entries, err := r.readEntries(ctx, uint64(limit))
	if err != nil {
		return nil, err
	}

	return verifyEntries(entries, includeDetails), nil
}

// GetLastHash returns the last hash in the chain
func (r *KurrentDBRepository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// Count returns the total number of audit entries
func (r *KurrentDBRepository) Count(ctx context.Context) (int, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Forwards,
		From:      esdb.Start{},
	}

	stream, err := r.client.ReadStream(ctx, AuditStreamName, opts, 100000)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return 0, nil
			}
		}
		return 0, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	count := 0
	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}
		if event.Event != nil && event.Event.EventType == AuditEventType {
			count++
		}
	}

	return count, nil
}
