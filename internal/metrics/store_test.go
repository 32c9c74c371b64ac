package metrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"smartplanner/internal/shared"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE execution_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_name TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		timestamp TIMESTAMP NOT NULL
	)`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return NewStore(db)
}

func TestRecordAndDailyUsage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		err := store.Record(ctx, ExecutionMetric{
			AgentName:        "RecipeDraft",
			Model:            "openai/gpt-3.5-turbo",
			PromptTokens:     100,
			CompletionTokens: 50,
			LatencyMS:        800,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected 1 day of usage, got %d", len(usage))
	}
	if usage[0].TotalPrompt != 300 || usage[0].TotalCompletion != 150 || usage[0].TotalExecution != 3 {
		t.Errorf("Unexpected totals: %+v", usage[0])
	}
}

func TestRecordMetaSkipsEmptyUsage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.RecordMeta(ctx, shared.AgentMeta{AgentName: "Clipper"})
	if err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 0 {
		t.Errorf("Expected no rows for empty usage, got %+v", usage)
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	old := ExecutionMetric{AgentName: "RecipeDraft", Model: "m", Timestamp: time.Now().AddDate(0, 0, -60)}
	recent := ExecutionMetric{AgentName: "RecipeDraft", Model: "m", Timestamp: time.Now()}
	for _, m := range []ExecutionMetric{old, recent} {
		if err := store.Record(ctx, m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	affected, err := store.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("Expected 1 row removed, got %d", affected)
	}
}
