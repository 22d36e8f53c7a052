package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/dbx"
	"github.com/dmitrijs2005/docchat/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID, title string, first models.Message) (*models.Chat, error) {
	query := `
		WITH c AS (
			INSERT INTO chats (user_id, title) VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		)
		INSERT INTO chat_messages (chat_id, role, content)
		SELECT c.id, $3, $4 FROM c
		RETURNING chat_id, id, created_at, (SELECT created_at FROM c), (SELECT updated_at FROM c)
	`
	chat := &models.Chat{UserID: userID, Title: title}
	msg := first
	err := r.db.QueryRowContext(ctx, query, userID, title, first.Role, first.Content).
		Scan(&chat.ID, &msg.ID, &msg.CreatedAt, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	msg.ChatID = chat.ID
	chat.Messages = []models.Message{msg}
	return chat, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.ChatSummary, error) {
	query := `
		SELECT c.id, c.title, c.created_at, c.updated_at,
			(SELECT count(*) FROM chat_messages m WHERE m.chat_id = c.id),
			lm.id, lm.role, lm.content, lm.created_at
		FROM chats c
		LEFT JOIN LATERAL (
			SELECT id, role, content, created_at FROM chat_messages m
			WHERE m.chat_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) lm ON true
		WHERE c.user_id = $1
		ORDER BY c.updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ChatSummary
	for rows.Next() {
		var (
			s                    models.ChatSummary
			msgID, role, content sql.NullString
			msgAt                sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount,
			&msgID, &role, &content, &msgAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if msgID.Valid {
			s.LastMessage = &models.Message{
				ID: msgID.String, ChatID: s.ID, Role: role.String, Content: content.String, CreatedAt: msgAt.Time,
			}
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat := &models.Chat{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = $1 AND user_id = $2`,
		chatID, userID).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages WHERE chat_id = $1 ORDER BY created_at, id`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := models.Message{ChatID: chat.ID}
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		chat.Messages = append(chat.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return chat, nil
}

func (r *PostgresRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chats SET title = $3, updated_at = now() WHERE id = $1 AND user_id = $2`,
		chatID, userID, title)
	return affectedOne(res, err)
}

func (r *PostgresRepository) AppendMessage(ctx context.Context, userID, chatID string, msg models.Message) (*models.Message, error) {
	query := `
		WITH c AS (
			UPDATE chats SET updated_at = now() WHERE id = $1 AND user_id = $2
			RETURNING id
		)
		INSERT INTO chat_messages (chat_id, role, content)
		SELECT c.id, $3, $4 FROM c
		RETURNING id, created_at
	`
	out := msg
	out.ChatID = chatID
	err := r.db.QueryRowContext(ctx, query, chatID, userID, msg.Role, msg.Content).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

// Delete removes the chat; its messages go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, userID, chatID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID)
	return affectedOne(res, err)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
