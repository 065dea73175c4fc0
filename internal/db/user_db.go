package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

const userColumns = `
	u.id, u.email, u.password_hash, u.first_name, u.last_name, u.avatar_url,
	r.name, u.swap_credits, u.notification_prefs, u.created_at, u.updated_at
`

// NewUser holds the fields needed to register an account
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         models.Role
	SwapCredits  int
}

// CreateUser inserts a new account. A taken email returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u NewUser) (*models.UserProfile, error) {
	prefs, err := json.Marshal(models.DefaultNotificationPrefs())
	if err != nil {
		return nil, fmt.Errorf("encode prefs: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_profile (id, email, password_hash, first_name, last_name, role_id, swap_credits, notification_prefs)
		VALUES ($1, $2, $3, $4, $5, (SELECT id FROM roles WHERE name = $6), $7, $8)
	`, id, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.SwapCredits, prefs)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByEmail looks an account up by its email (case-insensitive)
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM user_profile u JOIN roles r ON r.id = u.role_id
		WHERE u.email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// GetUserByID looks an account up by id
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM user_profile u JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`, id)
	return scanUser(row)
}

// SetUserRole changes the role of the account with the given email
func (s *Store) SetUserRole(ctx context.Context, email string, role models.Role) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_profile
		SET role_id = (SELECT id FROM roles WHERE name = $2), updated_at = NOW()
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)), string(role))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAdminIDs returns the ids of all admin accounts
func (s *Store) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id FROM user_profile u JOIN roles r ON r.id = u.role_id WHERE r.name = 'admin'
	`)
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// CountUsers returns the number of accounts
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_profile`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// ListSignupTimes returns the creation time of accounts created in [from, to)
func (s *Store) ListSignupTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT created_at FROM user_profile WHERE created_at >= $1 AND created_at < $2
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query signups: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

// CreatePasswordReset stores the hash of a reset token
func (s *Store) CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password hash in one transaction.
// An unknown, used or expired token returns ErrNotFound.
func (s *Store) ResetPassword(ctx context.Context, tokenHash, passwordHash string) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE password_resets SET used_at = NOW()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		RETURNING user_id
	`, tokenHash).Scan(&userID)
	if err != nil {
		return uuid.Nil, notFound(err)
	}

	if _, err = tx.Exec(ctx, `
		UPDATE user_profile SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, passwordHash); err != nil {
		return uuid.Nil, fmt.Errorf("update password: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// GetNotificationPrefs returns the notification settings of an account
func (s *Store) GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (models.NotificationPrefs, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT notification_prefs FROM user_profile WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		return models.NotificationPrefs{}, notFound(err)
	}
	return decodePrefs(raw)
}

// UpdateNotificationPrefs replaces the notification settings of an account
func (s *Store) UpdateNotificationPrefs(ctx context.Context, userID uuid.UUID, prefs models.NotificationPrefs) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_profile SET notification_prefs = $2, updated_at = NOW() WHERE id = $1
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("update prefs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DigestRecipient is an account that receives unread-notification digests
type DigestRecipient struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Unread int
}

// ListDigestRecipients returns accounts with email enabled, the given digest frequency
// and at least one unread notification
func (s *Store) ListDigestRecipients(ctx context.Context, digest string) ([]DigestRecipient, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, TRIM(u.first_name || ' ' || u.last_name), COUNT(n.id)
		FROM user_profile u
		JOIN notifications n ON n.user_id = u.id AND n.read_status = FALSE
		WHERE COALESCE((u.notification_prefs->>'email')::boolean, TRUE)
		  AND COALESCE(u.notification_prefs->>'digest', 'daily') = $1
		GROUP BY u.id, u.email, u.first_name, u.last_name
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query digest recipients: %w", err)
	}
	defer rows.Close()

	var list []DigestRecipient
	for rows.Next() {
		var r DigestRecipient
		if err := rows.Scan(&r.UserID, &r.Email, &r.Name, &r.Unread); err != nil {
			return nil, fmt.Errorf("scan digest recipient: %w", err)
		}
		if r.Name == "" {
			r.Name = r.Email
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func scanUser(row pgx.Row) (*models.UserProfile, error) {
	var u models.UserProfile
	var role string
	var prefs []byte
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.AvatarURL,
		&role, &u.SwapCredits, &prefs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	u.Role = models.Role(role)
	if u.Prefs, err = decodePrefs(prefs); err != nil {
		return nil, err
	}
	return &u, nil
}

// decodePrefs fills missing keys with their defaults
func decodePrefs(raw []byte) (models.NotificationPrefs, error) {
	prefs := models.DefaultNotificationPrefs()
	if len(raw) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return prefs, fmt.Errorf("decode prefs: %w", err)
	}
	return prefs, nil
}
