package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ repository.ChatRepository = (*PgChatRepository)(nil)

var errNilPool = errors.New("PgChatRepository: nil pool")

const (
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const conversationColumns = `c.id::text, c.adopter_id::text, c.shelter_id::text, c.pet_id::text,
	c.status::text, c.last_message_at, c.created_at, c.updated_at`

// summaryQuery selects enriched conversations. The unread expression and the filter
// are filled in by the caller; the last message comes from a lateral subquery.
const summaryQuery = `
	SELECT ` + conversationColumns + `,
		a.id::text, a.name, a.email, a.image_url,
		s.id::text, s.name, s.logo_url, s.city,
		p.id::text, p.name, p.species, p.breed, p.image_url,
		lm.id::text, lm.sender_id::text, lm.content, lm.status::text, lm.read_at, lm.created_at, lm.updated_at,
		su.id::text, su.name, su.email, su.image_url,
		%s AS unread_count
	FROM conversations c
	JOIN users a ON a.id = c.adopter_id
	JOIN shelters s ON s.id = c.shelter_id
	LEFT JOIN pets p ON p.id = c.pet_id
	LEFT JOIN LATERAL (
		SELECT m.id, m.sender_id, m.content, m.status, m.read_at, m.created_at, m.updated_at
		FROM messages m
		WHERE m.conversation_id = c.id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1
	) lm ON true
	LEFT JOIN users su ON su.id = lm.sender_id
	WHERE %s
	ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`

const unreadForViewer = `(
		SELECT count(*) FROM messages m
		WHERE m.conversation_id = c.id AND m.status = 'sent' AND m.sender_id <> $2::uuid
	)`

func participantColumn(v chat.Viewer) string {
	if v.Role == chat.RoleShelter {
		return "c.shelter_id"
	}
	return "c.adopter_id"
}

func (r *PgChatRepository) ListConversationSummaries(ctx context.Context, viewer chat.Viewer) ([]chat.ConversationSummary, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	q := fmt.Sprintf(summaryQuery, unreadForViewer, participantColumn(viewer)+" = $1::uuid")
	rows, err := r.pool.Query(ctx, q, viewer.ParticipantID(), viewer.UserID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	summaries := make([]chat.ConversationSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return summaries, nil
}

func (r *PgChatRepository) GetConversationSummary(ctx context.Context, conversationID string) (*chat.ConversationSummary, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	q := fmt.Sprintf(summaryQuery, "0", "c.id = $1::uuid")
	s, err := scanSummary(r.pool.QueryRow(ctx, q, conversationID))
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	c, err := scanConversation(r.pool.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations c WHERE c.id = $1::uuid", conversationID))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// FindOrCreateConversation relies on conversations_participants_pet_key: a concurrent
// insert of the same triple loses the race, inserts nothing, and re-reads the winner.
func (r *PgChatRepository) FindOrCreateConversation(ctx context.Context, key chat.ConversationKey) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	const findQuery = "SELECT " + conversationColumns + ` FROM conversations c
		WHERE c.adopter_id = $1::uuid AND c.shelter_id = $2::uuid AND c.pet_id IS NOT DISTINCT FROM $3::uuid`

	c, err := scanConversation(r.pool.QueryRow(ctx, findQuery, key.AdopterID, key.ShelterID, key.PetID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err)
	}

	c, err = scanConversation(r.pool.QueryRow(ctx, `
		INSERT INTO conversations AS c (adopter_id, shelter_id, pet_id)
		VALUES ($1::uuid, $2::uuid, $3::uuid)
		ON CONFLICT DO NOTHING
		RETURNING `+conversationColumns,
		key.AdopterID, key.ShelterID, key.PetID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err)
	}

	c, err = scanConversation(r.pool.QueryRow(ctx, findQuery, key.AdopterID, key.ShelterID, key.PetID))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	saved := m
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, sender_id, content, status, created_at, updated_at)
			VALUES ($1::uuid, $2::uuid, $3, 'sent', $4, $4)
			RETURNING id::text
		`, m.ConversationID, m.SenderID, m.Content, m.CreatedAt).Scan(&saved.ID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE conversations
			SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
			    updated_at = GREATEST(updated_at, $2)
			WHERE id = $1::uuid
		`, m.ConversationID, m.CreatedAt); err != nil {
			return err
		}

		var sender chat.UserProfile
		if err := tx.QueryRow(ctx,
			"SELECT id::text, name, email, image_url FROM users WHERE id = $1::uuid", m.SenderID,
		).Scan(&sender.ID, &sender.Name, &sender.Email, &sender.ImageURL); err != nil {
			return err
		}
		saved.Sender = &sender
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	saved.Status = chat.MessageStatusSent
	saved.ReadAt = nil
	saved.UpdatedAt = saved.CreatedAt
	return &saved, nil
}

func (r *PgChatRepository) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.id::text, m.conversation_id::text, m.sender_id::text, m.content, m.status::text,
		       m.read_at, m.created_at, m.updated_at,
		       u.id::text, u.name, u.email, u.image_url
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1::uuid
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0, limit)
	for rows.Next() {
		var (
			msg    chat.Message
			status string
			sender nullableUser
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &status,
			&msg.ReadAt, &msg.CreatedAt, &msg.UpdatedAt,
			&sender.ID, &sender.Name, &sender.Email, &sender.ImageURL); err != nil {
			return nil, err
		}
		msg.Status = chat.MessageStatus(status)
		msg.Sender = sender.profile()
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return msgs, nil
}

func (r *PgChatRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errNilPool
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET status = 'read', read_at = $3, updated_at = $3
		WHERE conversation_id = $1::uuid AND status = 'sent' AND sender_id <> $2::uuid
	`, conversationID, readerID, at)
	if err != nil {
		return 0, mapError(err)
	}
	return ct.RowsAffected(), nil
}

func (r *PgChatRepository) CountUnread(ctx context.Context, viewer chat.Viewer) (int, error) {
	if r == nil || r.pool == nil {
		return 0, errNilPool
	}
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE `+participantColumn(viewer)+` = $1::uuid AND m.status = 'sent' AND m.sender_id <> $2::uuid
	`, viewer.ParticipantID(), viewer.UserID).Scan(&n)
	if err != nil {
		return 0, mapError(err)
	}
	return int(n), nil
}

func (r *PgChatRepository) UpdateConversationStatus(ctx context.Context, conversationID string, status chat.ConversationStatus, at time.Time) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	c, err := scanConversation(r.pool.QueryRow(ctx, `
		UPDATE conversations AS c
		SET status = $2::conversation_status, updated_at = $3
		WHERE c.id = $1::uuid
		RETURNING `+conversationColumns,
		conversationID, string(status), at))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *PgChatRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	return r.pool.Ping(ctx)
}

// mapError turns missing rows, dangling foreign keys and malformed ids into chat.ErrNotFound.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation, pgInvalidTextRepr:
			return fmt.Errorf("%w: %s", chat.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var (
		c      chat.Conversation
		status string
	)
	if err := row.Scan(&c.ID, &c.AdopterID, &c.ShelterID, &c.PetID,
		&status, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = chat.ConversationStatus(status)
	return &c, nil
}

type nullableUser struct {
	ID       *string
	Name     *string
	Email    *string
	ImageURL *string
}

func (u nullableUser) profile() *chat.UserProfile {
	if u.ID == nil {
		return nil
	}
	p := chat.UserProfile{ID: *u.ID, Email: u.Email, ImageURL: u.ImageURL}
	if u.Name != nil {
		p.Name = *u.Name
	}
	return &p
}

func scanSummary(row pgx.Row) (chat.ConversationSummary, error) {
	var (
		s          chat.ConversationSummary
		convStatus string
		petID      *string
		petName    *string
		pet        chat.PetProfile
		lastID     *string
		lastSender *string
		lastBody   *string
		lastStatus *string
		lastAt     *time.Time
		lastUpdAt  *time.Time
		last       chat.Message
		lastAuthor nullableUser
		unread     int64
	)
	err := row.Scan(
		&s.ID, &s.AdopterID, &s.ShelterID, &s.PetID,
		&convStatus, &s.LastMessageAt, &s.CreatedAt, &s.UpdatedAt,
		&s.Adopter.ID, &s.Adopter.Name, &s.Adopter.Email, &s.Adopter.ImageURL,
		&s.Shelter.ID, &s.Shelter.Name, &s.Shelter.LogoURL, &s.Shelter.City,
		&petID, &petName, &pet.Species, &pet.Breed, &pet.ImageURL,
		&lastID, &lastSender, &lastBody, &lastStatus, &last.ReadAt, &lastAt, &lastUpdAt,
		&lastAuthor.ID, &lastAuthor.Name, &lastAuthor.Email, &lastAuthor.ImageURL,
		&unread,
	)
	if err != nil {
		return s, err
	}
	s.Status = chat.ConversationStatus(convStatus)
	s.UnreadCount = int(unread)

	if petID != nil {
		pet.ID = *petID
		if petName != nil {
			pet.Name = *petName
		}
		s.Pet = &pet
	}
	if lastID != nil {
		last.ID = *lastID
		last.ConversationID = s.ID
		last.SenderID = deref(lastSender)
		last.Content = deref(lastBody)
		last.Status = chat.MessageStatus(deref(lastStatus))
		last.Sender = lastAuthor.profile()
		if lastAt != nil {
			last.CreatedAt = *lastAt
		}
		if lastUpdAt != nil {
			last.UpdatedAt = *lastUpdAt
		}
		s.LastMessage = &last
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
