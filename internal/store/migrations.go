package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create identities and bookings",
		SQL: `
			CREATE TABLE identities (
				phone                 TEXT PRIMARY KEY,
				name                  TEXT NOT NULL DEFAULT '',
				last_human_contact_at TEXT,
				created_at            TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE bookings (
				event_id    TEXT PRIMARY KEY,
				owner_phone TEXT NOT NULL,
				start_time  TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_bookings_phone ON bookings (owner_phone);
			CREATE INDEX idx_bookings_start ON bookings (start_time);
		`,
	},
	{
		Version: 2,
		Name:    "create conversation messages",
		SQL: `
			CREATE TABLE messages (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				phone      TEXT NOT NULL,
				role       TEXT NOT NULL,
				content    TEXT NOT NULL,
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_phone ON messages (phone, id);
		`,
	},
}
