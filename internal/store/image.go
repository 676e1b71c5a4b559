package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"avatarlab.app/studio/core/db"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/view"
)

type imageStore struct {
	q db.Querier
}

const imageColumns = `id, user_id, character_id, folder_id, job_id, url, storage_key, prompt, favorite, nsfw, created_at, updated_at`

func (s *imageStore) GetOwned(ctx context.Context, userID, id int64) (*model.Image, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+imageColumns+`
		FROM images
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanImage(row)
}

func (s *imageStore) Create(ctx context.Context, image *model.Image) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO images (id, user_id, character_id, folder_id, job_id, url, storage_key, prompt, favorite, nsfw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+imageColumns,
		image.ID, image.UserID, image.CharacterID, image.FolderID, image.JobID,
		image.URL, image.StorageKey, image.Prompt, image.Favorite, image.NSFW)

	created, err := scanImage(row)
	if err != nil {
		return err
	}
	*image = *created
	return nil
}

func (s *imageStore) SetFavorite(ctx context.Context, userID, id int64, favorite bool) (*model.Image, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE images
		SET favorite = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+imageColumns, id, userID, favorite)
	return scanImage(row)
}

func (s *imageStore) Move(ctx context.Context, userID, id int64, folderID *int64) (*model.Image, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE images
		SET folder_id = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+imageColumns, id, userID, folderID)
	return scanImage(row)
}

func (s *imageStore) Delete(ctx context.Context, userID, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM images WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *imageStore) List(ctx context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error) {
	where, args := imageFilterClauses(userID, filter)

	var total int64
	countQuery := `SELECT count(*) FROM images WHERE ` + where
	if err := s.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM images
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, imageColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := make([]model.Image, 0)
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.CharacterID, &img.FolderID, &img.JobID,
			&img.URL, &img.StorageKey, &img.Prompt, &img.Favorite, &img.NSFW, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, img)
	}
	return result, total, rows.Err()
}

// imageFilterClauses mirrors view.Filter.Matches in SQL so the initial load
// and the event stream agree on membership.
func imageFilterClauses(userID int64, filter view.Filter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CharacterID != nil {
		clauses = append(clauses, "character_id = "+arg(*filter.CharacterID))
		switch {
		case filter.Folder.Unfiled:
			clauses = append(clauses, "folder_id IS NULL")
		case filter.Folder.ID != nil:
			clauses = append(clauses, "folder_id = "+arg(*filter.Folder.ID))
		}
	} else {
		switch {
		case filter.Folder.Unfiled:
			clauses = append(clauses, "folder_id IS NULL", "character_id IS NULL")
		case filter.Folder.ID != nil:
			clauses = append(clauses, "folder_id = "+arg(*filter.Folder.ID))
		}
	}

	if filter.FavoritesOnly {
		clauses = append(clauses, "favorite")
	}

	return strings.Join(clauses, " AND "), args
}

func scanImage(row pgx.Row) (*model.Image, error) {
	var img model.Image
	err := row.Scan(&img.ID, &img.UserID, &img.CharacterID, &img.FolderID, &img.JobID,
		&img.URL, &img.StorageKey, &img.Prompt, &img.Favorite, &img.NSFW, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}
