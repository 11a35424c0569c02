package repository

import (
	"context"

	"github.com/spec-kit/guild-tickets/internal/domain"
	"github.com/spec-kit/guild-tickets/internal/persistence"
)

// GuildRepository encapsulates tenant persistence.
type GuildRepository interface {
	Insert(ctx context.Context, q persistence.Queryable, guild *domain.Guild) error
	GetByID(ctx context.Context, q persistence.Queryable, id string) (*domain.Guild, error)
	UpdateAPIKeyHash(ctx context.Context, q persistence.Queryable, id, hash string) error
}

type guildRepository struct{}

// NewGuildRepository instantiates repository.
func NewGuildRepository() GuildRepository {
	return &guildRepository{}
}

func (r *guildRepository) Insert(ctx context.Context, q persistence.Queryable, guild *domain.Guild) error {
	const query = `
        INSERT INTO guilds (id, owner_id, name, api_key_hash)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return q.QueryRow(ctx, query,
		guild.ID,
		guild.OwnerID,
		guild.Name,
		guild.APIKeyHash,
	).Scan(&guild.CreatedAt, &guild.UpdatedAt)
}

func (r *guildRepository) GetByID(ctx context.Context, q persistence.Queryable, id string) (*domain.Guild, error) {
	const query = `
        SELECT id, owner_id, name, api_key_hash, created_at, updated_at
        FROM guilds WHERE id=$1`
	var guild domain.Guild
	if err := q.QueryRow(ctx, query, id).Scan(
		&guild.ID,
		&guild.OwnerID,
		&guild.Name,
		&guild.APIKeyHash,
		&guild.CreatedAt,
		&guild.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &guild, nil
}

func (r *guildRepository) UpdateAPIKeyHash(ctx context.Context, q persistence.Queryable, id, hash string) error {
	const query = `UPDATE guilds SET api_key_hash=$1, updated_at=NOW() WHERE id=$2`
	_, err := q.Exec(ctx, query, hash, id)
	return err
}
