package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"chatsync/internal/migrations"
	"chatsync/internal/models"
	"chatsync/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed conversation and message store. It is
// the single source of truth: message inserts are serialized by the
// store so every conversation log has a total order (created_at with
// the AUTOINCREMENT seq as tie-break).
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if err := security.ValidatePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return newWithDB(db)
}

// NewInMemory opens a throwaway in-memory store, used by tests.
func NewInMemory() (*Database, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newWithDB(db)
}

func newWithDB(db *sql.DB) (*Database, error) {
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(migrations.GetSchema()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := newEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// CreateConversation inserts a conversation together with its
// participant rows in one transaction.
func (d *Database) CreateConversation(ctx context.Context, conv *models.Conversation, participantKey string) error {
	return retryableDBOperation(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, insertConversationQuery,
			conv.ID, conv.Title, participantKey, conv.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}

		for _, userID := range conv.ParticipantIDs {
			if _, err := tx.ExecContext(ctx, insertParticipantQuery, conv.ID, userID); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		return tx.Commit()
	}, "create conversation")
}

// GetConversation returns a conversation with participants loaded, or
// nil when no row matches.
func (d *Database) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	row := d.db.QueryRowContext(ctx, selectConversationByIDQuery, id)
	conv, err := d.scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if err := d.loadParticipants(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversationsByParticipantKey returns every conversation with
// exactly the given normalized participant set, oldest first.
func (d *Database) GetConversationsByParticipantKey(ctx context.Context, key string) ([]*models.Conversation, error) {
	rows, err := d.db.QueryContext(ctx, selectConversationsByParticipantKeyQuery, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations by participant key: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return d.collectConversations(ctx, rows)
}

// GetConversationsForUser returns every conversation the user
// participates in, in creation order. Activity ordering is applied by
// the conversation manager.
func (d *Database) GetConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	rows, err := d.db.QueryContext(ctx, selectConversationsForUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations for user: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return d.collectConversations(ctx, rows)
}

// InsertMessage appends a message to its conversation log and refreshes
// the conversation's last-message summary in the same transaction.
// The assigned seq is written back to msg.
func (d *Database) InsertMessage(ctx context.Context, msg *models.Message) error {
	encryptedText, err := d.encryptor.EncryptIfEnabled(msg.Text)
	if err != nil {
		return fmt.Errorf("failed to encrypt message text: %w", err)
	}

	return retryableDBOperation(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, insertMessageQuery,
			msg.ID, msg.ConversationID, msg.SenderID, encryptedText,
			msg.ClientTempID, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		seq, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read message seq: %w", err)
		}
		msg.Seq = seq

		if _, err := tx.ExecContext(ctx, updateLastMessageQuery,
			encryptedText, msg.SenderID, msg.CreatedAt, msg.ConversationID); err != nil {
			return fmt.Errorf("failed to update last message summary: %w", err)
		}

		return tx.Commit()
	}, "insert message")
}

// GetMessageByID returns a message, or nil when no row matches.
func (d *Database) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	row := d.db.QueryRowContext(ctx, selectMessageByIDQuery, id)
	msg, err := d.scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListMessagesAfterSeq returns up to limit messages with seq strictly
// greater than afterSeq, in append order.
func (d *Database) ListMessagesAfterSeq(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx, selectMessagesAfterSeqQuery, conversationID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return d.collectMessages(rows)
}

// ListRecentMessages returns the newest limit messages in append order.
func (d *Database) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx, selectRecentMessagesQuery, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs, err := d.collectMessages(rows)
	if err != nil {
		return nil, err
	}

	// Query returns newest-first; callers want append order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CountMessagesAfterSeq counts messages newer than the given seq.
func (d *Database) CountMessagesAfterSeq(ctx context.Context, conversationID string, afterSeq int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, countMessagesAfterSeqQuery, conversationID, afterSeq).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// SaveReadMarker advances a user's read marker. Returns false when the
// marker was not newer than the stored one (the update is a no-op).
func (d *Database) SaveReadMarker(ctx context.Context, marker *models.ReadMarker) (bool, error) {
	var advanced bool
	err := retryableDBOperation(ctx, func() error {
		res, err := d.db.ExecContext(ctx, upsertReadMarkerQuery,
			marker.ConversationID, marker.UserID, marker.MessageID, marker.MessageSeq)
		if err != nil {
			return fmt.Errorf("failed to save read marker: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		advanced = affected > 0
		return nil
	}, "save read marker")
	return advanced, err
}

// GetReadMarker returns the user's marker, or nil when none is set.
func (d *Database) GetReadMarker(ctx context.Context, conversationID, userID string) (*models.ReadMarker, error) {
	marker := &models.ReadMarker{}
	err := d.db.QueryRowContext(ctx, selectReadMarkerQuery, conversationID, userID).Scan(
		&marker.ConversationID, &marker.UserID, &marker.MessageID,
		&marker.MessageSeq, &marker.MarkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get read marker: %w", err)
	}
	return marker, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var participantKey string
	var lastText, lastSender sql.NullString
	var lastAt sql.NullTime

	if err := row.Scan(&conv.ID, &conv.Title, &participantKey,
		&lastText, &lastSender, &lastAt, &conv.CreatedAt); err != nil {
		return nil, err
	}

	if lastAt.Valid {
		text, err := d.encryptor.DecryptIfEnabled(lastText.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt last message text: %w", err)
		}
		conv.LastMessage = &models.MessageSummary{
			Text:      text,
			SenderID:  lastSender.String,
			Timestamp: lastAt.Time,
		}
	}
	return conv, nil
}

func (d *Database) collectConversations(ctx context.Context, rows *sql.Rows) ([]*models.Conversation, error) {
	var convs []*models.Conversation
	for rows.Next() {
		conv, err := d.scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	for _, conv := range convs {
		if err := d.loadParticipants(ctx, conv); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (d *Database) loadParticipants(ctx context.Context, conv *models.Conversation) error {
	rows, err := d.db.QueryContext(ctx, selectParticipantsQuery, conv.ID)
	if err != nil {
		return fmt.Errorf("failed to query participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	conv.ParticipantIDs = conv.ParticipantIDs[:0]
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		conv.ParticipantIDs = append(conv.ParticipantIDs, userID)
	}
	return rows.Err()
}

func (d *Database) scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var encryptedText string
	if err := row.Scan(&msg.Seq, &msg.ID, &msg.ConversationID, &msg.SenderID,
		&encryptedText, &msg.ClientTempID, &msg.CreatedAt); err != nil {
		return nil, err
	}
	text, err := d.encryptor.DecryptIfEnabled(encryptedText)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message text: %w", err)
	}
	msg.Text = text
	return msg, nil
}

func (d *Database) collectMessages(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		msg, err := d.scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}
