package database

// Conversation queries
const (
	insertConversationQuery = `
		INSERT INTO conversations (id, title, participant_key, created_at)
		VALUES (?, ?, ?, ?)
	`

	insertParticipantQuery = `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES (?, ?)
	`

	selectConversationByIDQuery = `
		SELECT id, title, participant_key, last_msg_text, last_msg_sender_id,
		       last_msg_at, created_at
		FROM conversations
		WHERE id = ?
	`

	selectConversationsByParticipantKeyQuery = `
		SELECT id, title, participant_key, last_msg_text, last_msg_sender_id,
		       last_msg_at, created_at
		FROM conversations
		WHERE participant_key = ?
		ORDER BY created_at, id
	`

	selectConversationsForUserQuery = `
		SELECT c.id, c.title, c.participant_key, c.last_msg_text,
		       c.last_msg_sender_id, c.last_msg_at, c.created_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.created_at, c.id
	`

	selectParticipantsQuery = `
		SELECT user_id
		FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY user_id
	`

	updateLastMessageQuery = `
		UPDATE conversations
		SET last_msg_text = ?, last_msg_sender_id = ?, last_msg_at = ?
		WHERE id = ?
	`
)

// Message queries
const (
	insertMessageQuery = `
		INSERT INTO messages (id, conversation_id, sender_id, text, client_temp_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectMessageByIDQuery = `
		SELECT seq, id, conversation_id, sender_id, text, client_temp_id, created_at
		FROM messages
		WHERE id = ?
	`

	selectMessagesAfterSeqQuery = `
		SELECT seq, id, conversation_id, sender_id, text, client_temp_id, created_at
		FROM messages
		WHERE conversation_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?
	`

	selectRecentMessagesQuery = `
		SELECT seq, id, conversation_id, sender_id, text, client_temp_id, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`

	countMessagesAfterSeqQuery = `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = ? AND seq > ?
	`
)

// Read marker queries. The upsert only moves a marker forward; a stale
// or regressive update affects zero rows.
const (
	upsertReadMarkerQuery = `
		INSERT INTO read_markers (conversation_id, user_id, message_id, message_seq, marked_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(conversation_id, user_id) DO UPDATE SET
			message_id = excluded.message_id,
			message_seq = excluded.message_seq,
			marked_at = excluded.marked_at
		WHERE excluded.message_seq > read_markers.message_seq
	`

	selectReadMarkerQuery = `
		SELECT conversation_id, user_id, message_id, message_seq, marked_at
		FROM read_markers
		WHERE conversation_id = ? AND user_id = ?
	`
)
