package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	assertStatus := func(step string, version int64, applied, pending int) {
		t.Helper()
		status, err := store.Status(ctx)
		if err != nil {
			t.Fatalf("%s: status: %v", step, err)
		}
		if status.Version != version || status.Applied != applied || len(status.Pending) != pending {
			t.Fatalf("%s: unexpected status version=%d applied=%d pending=%d",
				step, status.Version, status.Applied, len(status.Pending))
		}
	}

	if err := store.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("migrate down reset: %v", err)
	}
	assertStatus("after reset", 0, 0, 2)

	if err := store.MigrateUp(ctx, 1); err != nil {
		t.Fatalf("migrate up one step: %v", err)
	}
	assertStatus("after up 1", 1, 1, 1)

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	assertStatus("after up all", 2, 2, 0)

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("idempotent migrate up: %v", err)
	}
	assertStatus("after idempotent up", 2, 2, 0)

	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	assertStatus("after down default", 1, 1, 1)

	if err := store.MigrateDown(ctx, 5); err != nil {
		t.Fatalf("migrate down rest: %v", err)
	}
	assertStatus("after down rest", 0, 0, 2)

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down on empty should be no-op: %v", err)
	}

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
}
