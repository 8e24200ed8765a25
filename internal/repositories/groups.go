package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"

	"kaderisasi-backend-go/internal/apperr"
	"kaderisasi-backend-go/internal/models"
	"kaderisasi-backend-go/internal/storage"
)

type GroupRepo struct {
	db    *sqlx.DB
	store storage.Store
}

func NewGroupRepo(db *sqlx.DB, store storage.Store) *GroupRepo {
	return &GroupRepo{db: db, store: store}
}

func (r *GroupRepo) Get(ctx context.Context, id int64) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name FROM groups WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, apperr.NotFound("group not found")
	}
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// List returns groups ascending by name, optionally narrowed by a
// substring match.
func (r *GroupRepo) List(ctx context.Context, search string) ([]models.Group, error) {
	query := `SELECT id, name FROM groups`
	args := []interface{}{}
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` ORDER BY name ASC`

	groups := []models.Group{}
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupRepo) Create(ctx context.Context, name string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group,
		`INSERT INTO groups (name) VALUES (?) RETURNING id, name`, strings.TrimSpace(name))
	if err != nil {
		return models.Group{}, apperr.FromSQLite(err, "insert group")
	}
	return group, nil
}

// UploadImage runs the shared blob-then-pointer protocol for the group
// image slot: write the blob, upsert the pointer row on the group_id
// key, then best-effort delete of whatever filename it superseded.
func (r *GroupRepo) UploadImage(ctx context.Context, groupID int64, filename string, data []byte) (models.GroupImage, error) {
	key := r.store.Normalize(filename)
	if err := r.store.Put(ctx, key, data); err != nil {
		return models.GroupImage{}, apperr.UploadFailed("failed to store group image "+key, err)
	}

	image, previous, err := upsertGroupPointer(ctx, r.db, groupID, key)
	if err != nil {
		// The fresh blob is orphaned here; accepted in exchange for never
		// committing a pointer to bytes that were not written.
		return models.GroupImage{}, apperr.UploadFailed("failed to record group image "+key, err)
	}

	if previous != "" && previous != key {
		if err := r.store.Delete(ctx, previous); err != nil {
			log.Printf("groups: could not remove superseded blob %s: %v", previous, err)
		}
	}
	return image, nil
}

func upsertGroupPointer(ctx context.Context, db *sqlx.DB, groupID int64, key string) (models.GroupImage, string, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return models.GroupImage{}, "", err
	}
	defer func() { _ = tx.Rollback() }()

	var previous sql.NullString
	err = tx.GetContext(ctx, &previous,
		`SELECT filename FROM group_images WHERE group_id = ?`, groupID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.GroupImage{}, "", err
	}

	var image models.GroupImage
	err = tx.GetContext(ctx, &image, `
INSERT INTO group_images (group_id, filename)
VALUES (?, ?)
ON CONFLICT (group_id) DO UPDATE SET filename = excluded.filename
RETURNING *
`, groupID, key)
	if err != nil {
		return models.GroupImage{}, "", apperr.FromSQLite(err, "upsert group image")
	}
	if err := tx.Commit(); err != nil {
		return models.GroupImage{}, "", err
	}
	return image, previous.String, nil
}

// GetImage returns the pointer row for the group's image slot.
func (r *GroupRepo) GetImage(ctx context.Context, groupID int64) (models.GroupImage, error) {
	var image models.GroupImage
	err := r.db.GetContext(ctx, &image,
		`SELECT * FROM group_images WHERE group_id = ?`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupImage{}, apperr.NotFound("group image not found")
	}
	if err != nil {
		return models.GroupImage{}, err
	}
	return image, nil
}

// Verbose returns one row per group, ascending by name, with the bonded
// and member counts, the bonding percentage and the group image
// filename. Soft-deleted students are excluded from both counts; groups
// with no students still appear, at zero.
func (r *GroupRepo) Verbose(ctx context.Context) ([]models.VerboseGroup, error) {
	groups := []models.VerboseGroup{}
	err := r.db.SelectContext(ctx, &groups, `
SELECT
  g.id,
  g.name,
  COUNT(s.id) AS student_count,
  COALESCE(SUM(s.has_bonded_with), 0) AS bonded_count,
  gi.filename AS image_filename
FROM groups g
LEFT JOIN students s ON s.group_id = g.id AND s.deleted_at IS NULL
LEFT JOIN group_images gi ON gi.group_id = g.id
GROUP BY g.id, g.name, gi.filename
ORDER BY g.name ASC
`)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Percentage = bondingPercentage(groups[i].BondedCount, groups[i].StudentCount)
	}
	return groups, nil
}

// bondingPercentage never divides by zero; an empty group is 0%.
func bondingPercentage(bonded, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(bonded) / float64(total)))
}
