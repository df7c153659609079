// Package postgres implements the activity store on PostgreSQL with tenant row-level security.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/babylog/internal/domain"
	"example.com/babylog/internal/events"
	"example.com/babylog/internal/observability"
)

const activityColumns = `activity_id, tenant_id, subject_id, kind, start_time, end_time, payload, note, recorded_at, updated_at`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// inTenant runs fn in a transaction scoped to tenantID by the app.tenant_id setting.
func (r *Repository) inTenant(ctx context.Context, tenantID string, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListOverlapping returns every activity of the subject that intersects [start, end].
func (r *Repository) ListOverlapping(ctx context.Context, subject domain.Subject, start, end time.Time) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + `
        FROM activities
        WHERE tenant_id=$1 AND subject_id=$2
          AND start_time <= $4
          AND (end_time IS NULL OR end_time >= $3)
        ORDER BY start_time, activity_id`

	var results []domain.Activity
	err := r.inTenant(ctx, subject.TenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, subject.TenantID, subject.ID, start, end)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				return err
			}
			results = append(results, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Get retrieves an activity by ID. A missing record yields (nil, nil).
func (r *Repository) Get(ctx context.Context, subject domain.Subject, activityID string) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE tenant_id=$1 AND subject_id=$2 AND activity_id=$3`

	var found *domain.Activity
	err := r.inTenant(ctx, subject.TenantID, func(tx pgx.Tx) error {
		a, err := scanActivity(tx.QueryRow(ctx, query, subject.TenantID, subject.ID, activityID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Create persists the activity and records its change event inside a single transaction.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) error {
	payload, err := domain.EncodePayload(activity.Payload)
	if err != nil {
		return err
	}

	const insert = `INSERT INTO activities (activity_id, tenant_id, subject_id, kind, start_time, end_time, payload, note, recorded_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	err = r.inTenant(ctx, activity.TenantID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insert,
			activity.ID,
			activity.TenantID,
			activity.SubjectID,
			string(activity.Kind),
			activity.StartTime,
			activity.EndTime,
			payload,
			activity.Note,
			activity.RecordedAt,
			activity.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events.TypeActivityRecorded, nil, &activity)
	})
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(activity.UpdatedAt)
	return nil
}

// Update replaces the stored record and returns the version it replaced.
func (r *Repository) Update(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	payload, err := domain.EncodePayload(activity.Payload)
	if err != nil {
		return nil, err
	}

	lock := `SELECT ` + activityColumns + ` FROM activities WHERE tenant_id=$1 AND subject_id=$2 AND activity_id=$3 FOR UPDATE`
	const update = `UPDATE activities
        SET kind=$4, start_time=$5, end_time=$6, payload=$7, note=$8, updated_at=$9
        WHERE tenant_id=$1 AND subject_id=$2 AND activity_id=$3`

	var previous domain.Activity
	err = r.inTenant(ctx, activity.TenantID, func(tx pgx.Tx) error {
		prev, err := scanActivity(tx.QueryRow(ctx, lock, activity.TenantID, activity.SubjectID, activity.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrActivityNotFound
		}
		if err != nil {
			return err
		}
		previous = prev

		if _, err := tx.Exec(ctx, update,
			activity.TenantID,
			activity.SubjectID,
			activity.ID,
			string(activity.Kind),
			activity.StartTime,
			activity.EndTime,
			payload,
			activity.Note,
			activity.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, events.TypeActivityRevised, &previous, &activity)
	})
	if err != nil {
		return nil, err
	}
	observability.RecordActivityPersisted(activity.UpdatedAt)
	return &previous, nil
}

// Delete removes the record and returns it.
func (r *Repository) Delete(ctx context.Context, subject domain.Subject, activityID string) (*domain.Activity, error) {
	remove := `DELETE FROM activities WHERE tenant_id=$1 AND subject_id=$2 AND activity_id=$3 RETURNING ` + activityColumns

	var removed domain.Activity
	err := r.inTenant(ctx, subject.TenantID, func(tx pgx.Tx) error {
		a, err := scanActivity(tx.QueryRow(ctx, remove, subject.TenantID, subject.ID, activityID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrActivityNotFound
		}
		if err != nil {
			return err
		}
		removed = a
		return insertOutbox(ctx, tx, events.TypeActivityRemoved, &removed, nil)
	})
	if err != nil {
		return nil, err
	}
	observability.RecordActivityPersisted(time.Now().UTC())
	return &removed, nil
}

// scanActivity decodes one row; the payload is turned into its typed variant here and nowhere else.
func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a       domain.Activity
		kind    string
		payload []byte
	)
	if err := row.Scan(&a.ID, &a.TenantID, &a.SubjectID, &kind, &a.StartTime, &a.EndTime, &payload, &a.Note, &a.RecordedAt, &a.UpdatedAt); err != nil {
		return domain.Activity{}, err
	}
	k, err := domain.ParseKind(kind)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	a.Kind = k
	if a.Payload, err = domain.DecodePayload(k, payload); err != nil {
		return domain.Activity{}, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	return a, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType string, previous, current *domain.Activity) error {
	ref := current
	if ref == nil {
		ref = previous
	}

	body, err := json.Marshal(events.ActivityChanged{
		ActivityID: ref.ID,
		TenantID:   ref.TenantID,
		SubjectID:  ref.SubjectID,
		Previous:   events.SpanOf(previous),
		Current:    events.SpanOf(current),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		ref.TenantID,
		"activity",
		ref.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(*ref),
		body,
		fmt.Sprintf("%s:%s:%d", ref.ID, eventType, time.Now().UnixNano()),
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Activity) string
}

// ChangesTopic carries every activity change event.
const ChangesTopic = "babylog_activity_changes"

// All change events of a subject share a partition so consumers see them in write order.
func subjectPartitionKey(a domain.Activity) string {
	return fmt.Sprintf("%s:%s", a.TenantID, a.SubjectID)
}

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityRecorded: {Topic: ChangesTopic, SchemaSubject: ChangesTopic + "-value", PartitionKeyFn: subjectPartitionKey},
	events.TypeActivityRevised:  {Topic: ChangesTopic, SchemaSubject: ChangesTopic + "-value", PartitionKeyFn: subjectPartitionKey},
	events.TypeActivityRemoved:  {Topic: ChangesTopic, SchemaSubject: ChangesTopic + "-value", PartitionKeyFn: subjectPartitionKey},
}
