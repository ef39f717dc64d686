package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// ============================================================================
// Normalize Tests
// ============================================================================

func TestNormalize_RecordIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Normalize(models.RecordID{Table: "events", ID: "abc"}))
	assert.Equal(t, uint64(42), Normalize(models.RecordID{Table: "events", ID: uint64(42)}))
	assert.Equal(t, "abc", Normalize(&models.RecordID{Table: "events", ID: "abc"}))
	assert.Nil(t, Normalize((*models.RecordID)(nil)))
}

func TestNormalize_Datetimes(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 1, 19, 0, 0, 0, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "2025-01-01T10:00:00Z", Normalize(models.CustomDateTime{Time: at}))
	assert.Equal(t, "2025-01-01T10:00:00Z", Normalize(at))
	assert.Nil(t, Normalize(models.CustomDateTime{}))
}

func TestNormalize_Nested(t *testing.T) {
	t.Parallel()

	in := []interface{}{
		map[string]interface{}{
			"id":         models.RecordID{Table: "notes", ID: "n1"},
			"event_id":   models.RecordID{Table: "events", ID: uint64(7)},
			"created_at": models.CustomDateTime{Time: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
			"content":    "bring id",
			"tags":       []interface{}{"a", map[interface{}]interface{}{"k": 1}},
		},
	}
	out := Normalize(in).([]interface{})
	row := out[0].(map[string]interface{})
	assert.Equal(t, "n1", row["id"])
	assert.Equal(t, uint64(7), row["event_id"])
	assert.Equal(t, "2025-03-01T00:00:00Z", row["created_at"])
	assert.Equal(t, "bring id", row["content"])
	tags := row["tags"].([]interface{})
	assert.Equal(t, map[string]interface{}{"k": 1}, tags[1])
}

// ============================================================================
// Disconnected Tests
// ============================================================================

func TestSurrealDB_NotConnected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := NewSurrealDB(Config{Endpoint: "ws://localhost:0/rpc"})

	assert.True(t, errors.Is(db.Ping(ctx), ErrConnection))
	_, err := db.Query(ctx, "RETURN 1", nil)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, db.Authenticate(ctx, "token"), ErrConnection)
	assert.NoError(t, db.Close())
}
