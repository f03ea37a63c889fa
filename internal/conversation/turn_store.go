package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SeveritySuicidal tags turns written by the crisis path.
const SeveritySuicidal = "suicidal"

// Turn is one persisted exchange. Turns are append-only.
type Turn struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Message     string    `json:"message"`
	Reply       string    `json:"reply"`
	Escalated   bool      `json:"escalated"`
	SeverityTag *string   `json:"severityTag,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TurnStore persists the conversation log.
type TurnStore interface {
	Append(ctx context.Context, turn Turn) (Turn, error)
	ListOrdered(ctx context.Context, userID string) ([]Turn, error)
}

func prepareTurn(turn Turn) Turn {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	return turn
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresTurnStore stores turns in the conversation_turns table.
type PostgresTurnStore struct {
	db     pgQuerier
	tracer trace.Tracer
}

// NewPostgresTurnStore creates a store backed by a pgx pool.
func NewPostgresTurnStore(pool *pgxpool.Pool) *PostgresTurnStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return newPostgresTurnStoreWithQuerier(pool)
}

func newPostgresTurnStoreWithQuerier(db pgQuerier) *PostgresTurnStore {
	return &PostgresTurnStore{db: db, tracer: otel.Tracer("psycare.internal.conversation.turns")}
}

func (s *PostgresTurnStore) Append(ctx context.Context, turn Turn) (Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.append_turn")
	defer span.End()

	turn = prepareTurn(turn)
	severity := ""
	if turn.SeverityTag != nil {
		severity = *turn.SeverityTag
	}
	span.SetAttributes(attribute.Bool("turn.escalated", turn.Escalated))

	query := `
		INSERT INTO conversation_turns (id, user_id, message, reply, escalated, severity_tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, query, turn.ID, turn.UserID, turn.Message, turn.Reply, turn.Escalated, severity, turn.CreatedAt); err != nil {
		span.RecordError(err)
		return Turn{}, fmt.Errorf("conversation: append turn: %w", err)
	}
	return turn, nil
}

func (s *PostgresTurnStore) ListOrdered(ctx context.Context, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.list_turns")
	defer span.End()

	query := `
		SELECT id, user_id, message, reply, escalated, severity_tag, created_at
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var severity string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Message, &t.Reply, &t.Escalated, &severity, &t.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: scan turn: %w", err)
		}
		if severity != "" {
			tag := severity
			t.SeverityTag = &tag
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: iterate turns: %w", err)
	}
	return turns, nil
}

// MemoryTurnStore keeps turns in process memory for development and tests.
type MemoryTurnStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func NewMemoryTurnStore() *MemoryTurnStore {
	return &MemoryTurnStore{turns: make(map[string][]Turn)}
}

func (s *MemoryTurnStore) Append(ctx context.Context, turn Turn) (Turn, error) {
	turn = prepareTurn(turn)
	if turn.SeverityTag != nil {
		tag := *turn.SeverityTag
		turn.SeverityTag = &tag
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	return turn, nil
}

func (s *MemoryTurnStore) ListOrdered(ctx context.Context, userID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.turns[userID]
	out := make([]Turn, len(stored))
	for i, t := range stored {
		if t.SeverityTag != nil {
			tag := *t.SeverityTag
			t.SeverityTag = &tag
		}
		out[i] = t
	}
	return out, nil
}
