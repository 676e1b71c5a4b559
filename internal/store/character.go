package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"avatarlab.app/studio/core/db"
	"avatarlab.app/studio/internal/model"
)

type characterStore struct {
	q db.Querier
}

const characterColumns = `id, user_id, name, description, avatar_url, nsfw, created_at, updated_at`

func (s *characterStore) GetOwned(ctx context.Context, userID, id int64) (*model.Character, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanCharacter(row)
}

func (s *characterStore) Create(ctx context.Context, character *model.Character) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO characters (id, user_id, name, description, avatar_url, nsfw)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+characterColumns,
		character.ID, character.UserID, character.Name, character.Description, character.AvatarURL, character.NSFW)

	created, err := scanCharacter(row)
	if err != nil {
		return err
	}
	*character = *created
	return nil
}

func (s *characterStore) Update(ctx context.Context, character *model.Character) error {
	row := s.q.QueryRow(ctx, `
		UPDATE characters
		SET name = $3, description = $4, avatar_url = $5, nsfw = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+characterColumns,
		character.ID, character.UserID, character.Name, character.Description, character.AvatarURL, character.NSFW)

	updated, err := scanCharacter(row)
	if err != nil {
		return err
	}
	*character = *updated
	return nil
}

func (s *characterStore) Delete(ctx context.Context, userID, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM characters WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *characterStore) ListByUser(ctx context.Context, userID int64) ([]model.Character, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Character, 0)
	for rows.Next() {
		var c model.Character
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.AvatarURL, &c.NSFW, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanCharacter(row pgx.Row) (*model.Character, error) {
	var c model.Character
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.AvatarURL, &c.NSFW, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
