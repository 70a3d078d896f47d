package migrations

// Schema is the full database schema. Statements are idempotent so the
// schema can be applied on every startup.
//
// messages.seq is the append order at the store and the tie-break for
// messages sharing a created_at timestamp; history pagination and
// unread counts are keyed on it. read_markers advances only forward
// (enforced by the upsert in the queries package, not the schema).
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	participant_key TEXT NOT NULL,
	last_msg_text TEXT,
	last_msg_sender_id TEXT,
	last_msg_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_participant_key
	ON conversations(participant_key);

CREATE TABLE IF NOT EXISTS conversation_participants (
	conversation_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (conversation_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_participants_user
	ON conversation_participants(user_id);

CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	conversation_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	text TEXT NOT NULL,
	client_temp_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq
	ON messages(conversation_id, seq);

CREATE TABLE IF NOT EXISTS read_markers (
	conversation_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	message_seq INTEGER NOT NULL,
	marked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (conversation_id, user_id)
);
`

// GetSchema returns the initial database schema.
func GetSchema() string {
	return Schema
}
