package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"identities", "bookings", "messages"} {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Identity store tests ---

func TestIdentityUpsert_OverwritesName(t *testing.T) {
	db := testDB(t)
	ids := NewIdentityStore(db)

	require.NoError(t, ids.Upsert("5511999999999", "Maria"))
	require.NoError(t, ids.Upsert("+55 (11) 99999-9999", "Maria Silva"))

	id, err := ids.Get("5511999999999")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "Maria Silva", id.Name)
	assert.Nil(t, id.LastHumanContactAt)
}

func TestIdentityGet_Unknown(t *testing.T) {
	db := testDB(t)
	ids := NewIdentityStore(db)

	id, err := ids.Get("5511888888888")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestIdentityUpsert_EmptyPhone(t *testing.T) {
	db := testDB(t)
	ids := NewIdentityStore(db)
	assert.Error(t, ids.Upsert("abc", "Maria"))
}

func TestIdentityTouchHumanContact(t *testing.T) {
	db := testDB(t)
	ids := NewIdentityStore(db)
	require.NoError(t, ids.Upsert("5511999999999", "Maria"))

	at := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	require.NoError(t, ids.TouchHumanContact("5511999999999", at))

	id, err := ids.Get("5511999999999")
	require.NoError(t, err)
	require.NotNil(t, id.LastHumanContactAt)
	assert.True(t, id.LastHumanContactAt.Equal(at))
}

// --- Booking store tests ---

func TestBookingUpsert_IdempotentOnEventID(t *testing.T) {
	db := testDB(t)
	loc := testLoc(t)
	bs := NewBookingStore(db, loc)

	start := time.Date(2026, 9, 1, 14, 0, 0, 0, loc)
	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "evt1", OwnerPhone: "5511999999999", StartTime: start, Description: "Limpeza",
	}))
	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "evt1", OwnerPhone: "5511999999999", StartTime: start.Add(time.Hour), Description: "Limpeza",
	}))

	b, err := bs.GetByEventID("evt1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.StartTime.Equal(start.Add(time.Hour)))

	var count int
	require.NoError(t, db.sql.QueryRow("SELECT COUNT(*) FROM bookings").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestBookingFindFlexible_SuffixContainment(t *testing.T) {
	db := testDB(t)
	loc := testLoc(t)
	bs := NewBookingStore(db, loc)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, loc)
	future := now.AddDate(0, 0, 5)

	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "evt1", OwnerPhone: "55119999999999", StartTime: future,
	}))
	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "evt2", OwnerPhone: "888888888", StartTime: future,
	}))

	b, err := bs.FindFlexible("999999999", now)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "evt1", b.EventID)

	b, err = bs.FindFlexible("777777777", now)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBookingFindFlexible_EarliestFutureOnly(t *testing.T) {
	db := testDB(t)
	loc := testLoc(t)
	bs := NewBookingStore(db, loc)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, loc)

	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "past", OwnerPhone: "5511999999999", StartTime: now.AddDate(0, 0, -1),
	}))
	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "later", OwnerPhone: "5511999999999", StartTime: now.AddDate(0, 0, 10),
	}))
	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "sooner", OwnerPhone: "5511999999999", StartTime: now.AddDate(0, 0, 3),
	}))

	b, err := bs.FindFlexible("5511999999999", now)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "sooner", b.EventID)
}

func TestBookingDelete(t *testing.T) {
	db := testDB(t)
	loc := testLoc(t)
	bs := NewBookingStore(db, loc)

	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "evt1", OwnerPhone: "5511999999999", StartTime: time.Now().Add(time.Hour),
	}))
	require.NoError(t, bs.Delete("evt1"))
	// Deleting again is fine.
	require.NoError(t, bs.Delete("evt1"))

	b, err := bs.GetByEventID("evt1")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBookingUpdateStartTime(t *testing.T) {
	db := testDB(t)
	loc := testLoc(t)
	bs := NewBookingStore(db, loc)

	start := time.Date(2026, 9, 1, 14, 0, 0, 0, loc)
	require.NoError(t, bs.Upsert(domain.Booking{
		EventID: "evt1", OwnerPhone: "5511999999999", StartTime: start,
	}))

	moved := start.AddDate(0, 0, 2)
	require.NoError(t, bs.UpdateStartTime("evt1", moved))

	b, err := bs.GetByEventID("evt1")
	require.NoError(t, err)
	assert.True(t, b.StartTime.Equal(moved))
}

// --- Message store tests ---

func TestMessageHistory_WindowAndOrder(t *testing.T) {
	db := testDB(t)
	ms := NewMessageStore(db)

	for i := 0; i < 5; i++ {
		require.NoError(t, ms.Append("5511999999999", domain.RoleUser, string(rune('a'+i))))
	}

	msgs, err := ms.History("5511999999999", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// Most recent three, oldest first.
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "d", msgs[1].Content)
	assert.Equal(t, "e", msgs[2].Content)
}

func TestMessageHistory_IsolatedByPhone(t *testing.T) {
	db := testDB(t)
	ms := NewMessageStore(db)

	require.NoError(t, ms.Append("5511999999999", domain.RoleUser, "oi"))
	require.NoError(t, ms.Append("5511888888888", domain.RoleUser, "olá"))

	msgs, err := ms.History("5511999999999", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "oi", msgs[0].Content)
}
