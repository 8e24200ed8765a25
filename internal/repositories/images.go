package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"kaderisasi-backend-go/internal/apperr"
	"kaderisasi-backend-go/internal/models"
	"kaderisasi-backend-go/internal/storage"
)

// ImageFilters narrow the verbose image listing. The zero value lists
// unprinted images for every group, which is what the printing workflow
// wants by default.
type ImageFilters struct {
	GroupID     int64
	ShowPrinted bool
}

// ImageUpdate is a metadata-only patch; it never touches the blob
// store.
type ImageUpdate struct {
	HasBeenPrinted *bool
	Filename       *string
}

type ImageRepo struct {
	db    *sqlx.DB
	store storage.Store
}

func NewImageRepo(db *sqlx.DB, store storage.Store) *ImageRepo {
	return &ImageRepo{db: db, store: store}
}

func (r *ImageRepo) Get(ctx context.Context, studentID int64) (models.Image, error) {
	var image models.Image
	err := r.db.GetContext(ctx, &image,
		`SELECT * FROM images WHERE student_id = ?`, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Image{}, apperr.NotFound("image not found")
	}
	if err != nil {
		return models.Image{}, err
	}
	return image, nil
}

// List returns images joined with their student and group for display,
// ordered by group then by nim.
func (r *ImageRepo) List(ctx context.Context, filters ImageFilters) ([]models.VerboseImage, error) {
	query := `
SELECT
  i.id, i.student_id, i.filename, i.has_been_printed, i.created_at,
  s.nickname AS student_name,
  g.name AS group_name
FROM images i
LEFT JOIN students s ON s.id = i.student_id
LEFT JOIN groups g ON g.id = s.group_id
`
	clauses := []string{}
	args := []interface{}{}
	if filters.GroupID != 0 {
		clauses = append(clauses, `g.id = ?`)
		args = append(args, filters.GroupID)
	}
	if !filters.ShowPrinted {
		clauses = append(clauses, `i.has_been_printed = 0`)
	}
	if len(clauses) > 0 {
		query += "WHERE " + strings.Join(clauses, " AND ") + "\n"
	}
	query += `ORDER BY s.group_id ASC, s.nim ASC`

	images := []models.VerboseImage{}
	if err := r.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, err
	}
	return images, nil
}

// Upload replaces the student's image in three ordered steps: write the
// blob, upsert the pointer row on the student_id key, then best-effort
// delete of the superseded blob. A failed blob write aborts before any
// database mutation; a failed upsert after a successful write leaves an
// orphaned blob, which is the accepted trade for never committing a
// pointer to unwritten bytes.
func (r *ImageRepo) Upload(ctx context.Context, studentID int64, filename string, data []byte) (models.Image, error) {
	key := r.store.Normalize(filename)
	if err := r.store.Put(ctx, key, data); err != nil {
		return models.Image{}, apperr.UploadFailed("failed to store image "+key, err)
	}

	image, previous, err := r.upsertPointer(ctx, studentID, key)
	if err != nil {
		return models.Image{}, apperr.UploadFailed("failed to record image "+key, err)
	}

	if previous != "" && previous != key {
		if err := r.store.Delete(ctx, previous); err != nil {
			log.Printf("images: could not remove superseded blob %s: %v", previous, err)
		}
	}
	return image, nil
}

func (r *ImageRepo) upsertPointer(ctx context.Context, studentID int64, key string) (models.Image, string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Image{}, "", err
	}
	defer func() { _ = tx.Rollback() }()

	var previous sql.NullString
	err = tx.GetContext(ctx, &previous,
		`SELECT filename FROM images WHERE student_id = ?`, studentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Image{}, "", err
	}

	var image models.Image
	err = tx.GetContext(ctx, &image, `
INSERT INTO images (student_id, filename)
VALUES (?, ?)
ON CONFLICT (student_id) DO UPDATE SET filename = excluded.filename
RETURNING *
`, studentID, key)
	if err != nil {
		return models.Image{}, "", apperr.FromSQLite(err, "upsert image")
	}
	if err := tx.Commit(); err != nil {
		return models.Image{}, "", err
	}
	return image, previous.String, nil
}

// Update patches image metadata. No blob interaction: the pointer's
// state machine only moves through Upload and Delete.
func (r *ImageRepo) Update(ctx context.Context, studentID int64, input ImageUpdate) (models.Image, error) {
	sets := []string{}
	args := []interface{}{}
	if input.HasBeenPrinted != nil {
		sets = append(sets, `has_been_printed = ?`)
		args = append(args, boolToInt(*input.HasBeenPrinted))
	}
	if input.Filename != nil {
		sets = append(sets, `filename = ?`)
		args = append(args, *input.Filename)
	}
	if len(sets) == 0 {
		return r.Get(ctx, studentID)
	}
	args = append(args, studentID)

	var image models.Image
	err := r.db.GetContext(ctx, &image,
		`UPDATE images SET `+strings.Join(sets, ", ")+` WHERE student_id = ? RETURNING *`,
		args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Image{}, apperr.NotFound("image not found")
	}
	if err != nil {
		return models.Image{}, apperr.FromSQLite(err, "update image")
	}
	return image, nil
}

// Delete removes the pointer row first and only then the blob, so a
// crash mid-operation can orphan a blob but never leave a pointer to a
// missing one. Returns the deleted row.
func (r *ImageRepo) Delete(ctx context.Context, studentID int64) (models.Image, error) {
	var image models.Image
	err := r.db.GetContext(ctx, &image,
		`DELETE FROM images WHERE student_id = ? RETURNING *`, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Image{}, apperr.NotFound("image not found")
	}
	if err != nil {
		return models.Image{}, err
	}

	if err := r.store.Delete(ctx, image.Filename); err != nil {
		log.Printf("images: could not remove blob %s for deleted pointer: %v", image.Filename, err)
	}
	return image, nil
}

// MarkPrinted flips has_been_printed for every given id in one
// statement. Unknown ids are ignored; the boolean reports whether any
// row changed.
func (r *ImageRepo) MarkPrinted(ctx context.Context, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	query, args, err := sqlx.In(`UPDATE images SET has_been_printed = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return false, err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
