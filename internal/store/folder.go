package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"avatarlab.app/studio/core/db"
	"avatarlab.app/studio/internal/model"
)

type folderStore struct {
	q db.Querier
}

const folderColumns = `id, user_id, character_id, name, created_at, updated_at`

func (s *folderStore) GetOwned(ctx context.Context, userID, id int64) (*model.Folder, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanFolder(row)
}

func (s *folderStore) Create(ctx context.Context, folder *model.Folder) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO folders (id, user_id, character_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING `+folderColumns,
		folder.ID, folder.UserID, folder.CharacterID, folder.Name)

	created, err := scanFolder(row)
	if err != nil {
		return err
	}
	*folder = *created
	return nil
}

func (s *folderStore) Rename(ctx context.Context, userID, id int64, name string) (*model.Folder, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE folders
		SET name = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+folderColumns, id, userID, name)
	return scanFolder(row)
}

func (s *folderStore) Delete(ctx context.Context, userID, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *folderStore) ListByUser(ctx context.Context, userID int64) ([]model.Folder, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE user_id = $1
		ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Folder, 0)
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.CharacterID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func scanFolder(row pgx.Row) (*model.Folder, error) {
	var f model.Folder
	err := row.Scan(&f.ID, &f.UserID, &f.CharacterID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
