package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	users "github.com/AdamBeresnev/tourney-registration/internal/user"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery        = "SELECT * FROM users WHERE user_id = ?"
	upsertOsuUserQuery = `
		INSERT INTO users (user_id, username, country_code, avatar_url, global_rank, country_rank)
		VALUES (:user_id, :username, :country_code, :avatar_url, :global_rank, :country_rank)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			country_code = excluded.country_code,
			avatar_url = excluded.avatar_url,
			global_rank = excluded.global_rank,
			country_rank = excluded.country_rank,
			updated_at = CURRENT_TIMESTAMP
	`
	updateRanksQuery = `
		UPDATE users SET
			global_rank = ?,
			country_rank = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`
	listRegisteredUsersQuery = "SELECT * FROM users WHERE registered = 1 ORDER BY user_id"
	setDiscordQuery          = `
		UPDATE users SET
			discord_id = ?,
			discord_username = ?,
			discord_avatar_url = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`
	setRegistrationQuery = `
		UPDATE users SET
			registered = ?,
			wants_captain = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`

	getCredentialQuery    = "SELECT * FROM credentials WHERE user_id = ? AND provider = ?"
	upsertCredentialQuery = `
		INSERT INTO credentials (user_id, provider, access_token, refresh_token, expires_at, issued_at)
		VALUES (:user_id, :provider, :access_token, :refresh_token, :expires_at, :issued_at)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			issued_at = excluded.issued_at
	`
	deleteCredentialQuery  = "DELETE FROM credentials WHERE user_id = ? AND provider = ?"
	deleteCredentialsQuery = "DELETE FROM credentials WHERE user_id = ?"

	getRoleByNameQuery = "SELECT * FROM roles WHERE name = ? LIMIT 1"
	ensureRoleQuery    = `
		INSERT INTO roles (name, is_system) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET is_system = excluded.is_system, updated_at = CURRENT_TIMESTAMP
		RETURNING *
	`
	assignRoleQuery = `
		INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`
	revokeRoleQuery   = "DELETE FROM user_roles WHERE user_id = ? AND role_id = ?"
	getUserRolesQuery = `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY r.name
	`
	hasRoleQuery = `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = ? AND r.name = ?
		)
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserQuery, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertOsuUser creates the user or refreshes the osu! profile fields. Discord
// and registration state are left untouched.
func (s *UserStore) UpsertOsuUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, upsertOsuUserQuery, user)
	return err
}

func (s *UserStore) UpdateRanks(ctx context.Context, userID string, globalRank, countryRank *int) error {
	res, err := s.db.ExecContext(ctx, updateRanksQuery, globalRank, countryRank, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UserStore) ListRegisteredUsers(ctx context.Context) ([]users.User, error) {
	var list []users.User
	err := s.db.SelectContext(ctx, &list, listRegisteredUsersQuery)
	return list, err
}

// SetDiscord links (or with all nils, unlinks) the Discord identity.
func (s *UserStore) SetDiscord(ctx context.Context, userID string, discordID, username, avatarURL *string) error {
	res, err := s.db.ExecContext(ctx, setDiscordQuery, discordID, username, avatarURL, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UserStore) SetRegistration(ctx context.Context, userID string, registered, wantsCaptain bool) error {
	res, err := s.db.ExecContext(ctx, setRegistrationQuery, registered, wantsCaptain, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UserStore) GetCredential(ctx context.Context, userID string, provider users.Provider) (*users.Credential, error) {
	var cred users.Credential
	err := s.db.GetContext(ctx, &cred, getCredentialQuery, userID, provider)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *UserStore) UpsertCredential(ctx context.Context, cred *users.Credential) error {
	row := *cred
	row.ExpiresAt = row.ExpiresAt.UTC()
	row.IssuedAt = row.IssuedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, upsertCredentialQuery, row)
	return err
}

func (s *UserStore) DeleteCredential(ctx context.Context, userID string, provider users.Provider) error {
	_, err := s.db.ExecContext(ctx, deleteCredentialQuery, userID, provider)
	return err
}

func (s *UserStore) DeleteCredentials(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, deleteCredentialsQuery, userID)
	return err
}

func (s *UserStore) GetRoleByName(ctx context.Context, name users.RoleName) (*users.Role, error) {
	var role users.Role
	err := s.db.GetContext(ctx, &role, getRoleByNameQuery, name)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *UserStore) EnsureRole(ctx context.Context, name users.RoleName, isSystem bool) (*users.Role, error) {
	var role users.Role
	err := s.db.GetContext(ctx, &role, ensureRoleQuery, name, isSystem)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *UserStore) AssignRole(ctx context.Context, userID string, name users.RoleName) error {
	role, err := s.GetRoleByName(ctx, name)
	if err != nil {
		return fmt.Errorf("role %q: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, assignRoleQuery, userID, role.ID)
	return err
}

// RevokeRole is a no-op for unknown role names.
func (s *UserStore) RevokeRole(ctx context.Context, userID string, name users.RoleName) error {
	role, err := s.GetRoleByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, revokeRoleQuery, userID, role.ID)
	return err
}

func (s *UserStore) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	roles := []string{}
	err := s.db.SelectContext(ctx, &roles, getUserRolesQuery, userID)
	return roles, err
}

func (s *UserStore) HasRole(ctx context.Context, userID string, name users.RoleName) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, hasRoleQuery, userID, name)
	return exists, err
}
