package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/persistence"
)

// RoleRepository encapsulates role and membership persistence.
type RoleRepository interface {
	Insert(ctx context.Context, q persistence.Queryable, role *domain.Role) error
	UpdateMask(ctx context.Context, q persistence.Queryable, guildID, roleID string, permissions uint64) error
	Delete(ctx context.Context, q persistence.Queryable, guildID, roleID string) error
	GetByID(ctx context.Context, q persistence.Queryable, guildID, roleID string) (*domain.Role, error)
	ListByGuild(ctx context.Context, q persistence.Queryable, guildID string) ([]domain.Role, error)
	AddMember(ctx context.Context, q persistence.Queryable, member *domain.RoleMember) error
	RemoveMember(ctx context.Context, q persistence.Queryable, guildID, roleID, userID string) (bool, error)
	MasksForUser(ctx context.Context, q persistence.Queryable, guildID, userID string) ([]uint64, error)
}

type roleRepository struct{}

// NewRoleRepository instantiates repository.
func NewRoleRepository() RoleRepository {
	return &roleRepository{}
}

func (r *roleRepository) Insert(ctx context.Context, q persistence.Queryable, role *domain.Role) error {
	const query = `
        INSERT INTO roles (id, guild_id, name, permissions, is_default)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return q.QueryRow(ctx, query,
		role.ID,
		role.GuildID,
		role.Name,
		int64(role.Permissions),
		role.IsDefault,
	).Scan(&role.CreatedAt, &role.UpdatedAt)
}

func (r *roleRepository) UpdateMask(ctx context.Context, q persistence.Queryable, guildID, roleID string, permissions uint64) error {
	const query = `
        UPDATE roles SET permissions=$1, updated_at=NOW()
        WHERE guild_id=$2 AND id=$3`
	cmd, err := q.Exec(ctx, query, int64(permissions), guildID, roleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, q persistence.Queryable, guildID, roleID string) error {
	const query = `DELETE FROM roles WHERE guild_id=$1 AND id=$2`
	cmd, err := q.Exec(ctx, query, guildID, roleID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, q persistence.Queryable, guildID, roleID string) (*domain.Role, error) {
	const query = `
        SELECT id, guild_id, name, permissions, is_default, created_at, updated_at
        FROM roles WHERE guild_id=$1 AND id=$2`
	var role domain.Role
	var mask int64
	if err := q.QueryRow(ctx, query, guildID, roleID).Scan(
		&role.ID,
		&role.GuildID,
		&role.Name,
		&mask,
		&role.IsDefault,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	role.Permissions = uint64(mask)
	return &role, nil
}

func (r *roleRepository) ListByGuild(ctx context.Context, q persistence.Queryable, guildID string) ([]domain.Role, error) {
	const query = `
        SELECT id, guild_id, name, permissions, is_default, created_at, updated_at
        FROM roles WHERE guild_id=$1 ORDER BY name ASC`
	rows, err := q.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		var role domain.Role
		var mask int64
		if err := rows.Scan(
			&role.ID,
			&role.GuildID,
			&role.Name,
			&mask,
			&role.IsDefault,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, err
		}
		role.Permissions = uint64(mask)
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *roleRepository) AddMember(ctx context.Context, q persistence.Queryable, member *domain.RoleMember) error {
	const query = `
        INSERT INTO role_members (guild_id, role_id, user_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (guild_id, role_id, user_id) DO NOTHING`
	_, err := q.Exec(ctx, query, member.GuildID, member.RoleID, member.UserID)
	return err
}

func (r *roleRepository) RemoveMember(ctx context.Context, q persistence.Queryable, guildID, roleID, userID string) (bool, error) {
	const query = `DELETE FROM role_members WHERE guild_id=$1 AND role_id=$2 AND user_id=$3`
	cmd, err := q.Exec(ctx, query, guildID, roleID, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *roleRepository) MasksForUser(ctx context.Context, q persistence.Queryable, guildID, userID string) ([]uint64, error) {
	const query = `
        SELECT r.permissions
        FROM role_members m
        JOIN roles r ON r.guild_id = m.guild_id AND r.id = m.role_id
        WHERE m.guild_id=$1 AND m.user_id=$2`
	rows, err := q.Query(ctx, query, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var masks []uint64
	for rows.Next() {
		var mask int64
		if err := rows.Scan(&mask); err != nil {
			return nil, err
		}
		masks = append(masks, uint64(mask))
	}
	return masks, rows.Err()
}
