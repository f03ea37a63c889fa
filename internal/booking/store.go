package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var storeTracer = otel.Tracer("psycare.internal.booking.store")

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps appointments in Postgres. The unique index on
// (therapist_id, appointment_time) arbitrates concurrent bookings.
type PostgresStore struct {
	db rowQuerier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db rowQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Exists(ctx context.Context, therapistID string, at time.Time) (bool, error) {
	ctx, span := storeTracer.Start(ctx, "booking.exists")
	defer span.End()

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE therapist_id = $1 AND appointment_time = $2)`,
		therapistID, at.UTC()).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("booking: check slot: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, appt Appointment) (bool, error) {
	ctx, span := storeTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(attribute.String("booking.therapist_id", appt.TherapistID))

	query := `
		INSERT INTO appointments (id, student_id, therapist_id, appointment_time, duration_minutes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (therapist_id, appointment_time) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query,
		appt.ID, appt.StudentID, appt.TherapistID, appt.AppointmentTime.UTC(),
		appt.DurationMinutes, appt.Status, appt.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("booking: insert appointment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

type slotKey struct {
	therapistID string
	at          int64
}

// MemoryStore is an in-process appointment store.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[slotKey]Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[slotKey]Appointment)}
}

func (m *MemoryStore) Exists(ctx context.Context, therapistID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[slotKey{therapistID, at.UTC().UnixNano()}]
	return ok, nil
}

func (m *MemoryStore) Create(ctx context.Context, appt Appointment) (bool, error) {
	key := slotKey{appt.TherapistID, appt.AppointmentTime.UTC().UnixNano()}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.slots[key]; taken {
		return false, nil
	}
	m.slots[key] = appt
	return true, nil
}

// Appointments returns all stored appointments in no particular order.
func (m *MemoryStore) Appointments() []Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Appointment, 0, len(m.slots))
	for _, a := range m.slots {
		out = append(out, a)
	}
	return out
}
