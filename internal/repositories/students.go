// Package repositories implements the data-consistency core: roster,
// group and image persistence over one shared SQLite handle, plus the
// blob-store coordination for image uploads.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"kaderisasi-backend-go/internal/apperr"
	"kaderisasi-backend-go/internal/models"
)

// PrintedFilter narrows a listing by the printed flag of the joined
// image row.
type PrintedFilter string

const (
	PrintedAny  PrintedFilter = ""
	PrintedOnly PrintedFilter = "printed"
	NotPrinted  PrintedFilter = "not_printed"
)

// StudentFilters are independent and conjunctive; the zero value lists
// every student that is not soft-deleted.
type StudentFilters struct {
	// Query matches name or nickname as a case-insensitive substring.
	Query string
	// NIM matches by suffix, since the visible tail of the id is what
	// gets searched.
	NIM string
	// GroupName is an exact match.
	GroupName string
	// Bonded filters on has_bonded_with when set.
	Bonded *bool
	// Printed filters on the joined image's printed flag.
	Printed PrintedFilter
	// WithTrashed includes soft-deleted rows.
	WithTrashed bool
}

type StudentInput struct {
	GroupID         int64
	Name            string
	Nickname        *string
	Hobby           *string
	NIM             *string
	InstagramHandle *string
	DateOfBirth     *string
	PlaceOfBirth    *string
	BloodType       *string
	Address         *string
	HasBondedWith   bool
}

type StudentRepo struct {
	db *sqlx.DB
}

func NewStudentRepo(db *sqlx.DB) *StudentRepo {
	return &StudentRepo{db: db}
}

const verboseStudentColumns = `
s.id, s.group_id, s.name, s.nickname, s.hobby, s.nim, s.instagram_handle,
s.date_of_birth, s.place_of_birth, s.blood_type, s.address,
s.has_bonded_with, s.deleted_at,
g.name AS group_name,
i.filename AS image_filename
`

func (r *StudentRepo) Get(ctx context.Context, id int64) (models.Student, error) {
	var student models.Student
	err := r.db.GetContext(ctx, &student, `SELECT * FROM students WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Student{}, apperr.NotFound("student not found")
	}
	if err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// GetVerbose returns the student joined with its group name and image
// filename. Soft-deleted rows are still returned; soft delete hides a
// student from listings, not from direct reads.
func (r *StudentRepo) GetVerbose(ctx context.Context, id int64) (models.VerboseStudent, error) {
	var student models.VerboseStudent
	err := r.db.GetContext(ctx, &student, `
SELECT `+verboseStudentColumns+`
FROM students s
LEFT JOIN groups g ON g.id = s.group_id
LEFT JOIN images i ON i.student_id = s.id
WHERE s.id = ?
`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VerboseStudent{}, apperr.NotFound("student not found")
	}
	if err != nil {
		return models.VerboseStudent{}, err
	}
	return student, nil
}

// List returns the verbose roster ordered ascending by nim. Rows with a
// NULL or empty nim sort first. An empty result is a normal result.
func (r *StudentRepo) List(ctx context.Context, filters StudentFilters) ([]models.VerboseStudent, error) {
	query := `
SELECT ` + verboseStudentColumns + `
FROM students s
LEFT JOIN groups g ON g.id = s.group_id
LEFT JOIN images i ON i.student_id = s.id
`
	clauses := []string{}
	args := []interface{}{}

	if !filters.WithTrashed {
		clauses = append(clauses, `s.deleted_at IS NULL`)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		clauses = append(clauses, `(LOWER(s.name) LIKE ? OR LOWER(s.nickname) LIKE ?)`)
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}
	if filters.NIM != "" {
		clauses = append(clauses, `s.nim LIKE ?`)
		args = append(args, "%"+filters.NIM)
	}
	if filters.GroupName != "" {
		clauses = append(clauses, `g.name = ?`)
		args = append(args, filters.GroupName)
	}
	if filters.Bonded != nil {
		clauses = append(clauses, `s.has_bonded_with = ?`)
		args = append(args, boolToInt(*filters.Bonded))
	}
	switch filters.Printed {
	case PrintedOnly:
		clauses = append(clauses, `i.has_been_printed = 1`)
	case NotPrinted:
		clauses = append(clauses, `i.has_been_printed = 0`)
	}

	if len(clauses) > 0 {
		query += "WHERE " + strings.Join(clauses, " AND ") + "\n"
	}
	query += `ORDER BY s.nim ASC`

	students := []models.VerboseStudent{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, err
	}
	return students, nil
}

// Create inserts a new student. The group must exist; the foreign key
// rejects anything else as a constraint violation.
func (r *StudentRepo) Create(ctx context.Context, input StudentInput) (models.Student, error) {
	dob, err := normalizeDateOfBirth(input.DateOfBirth)
	if err != nil {
		return models.Student{}, err
	}
	var student models.Student
	err = r.db.GetContext(ctx, &student, `
INSERT INTO students (
  group_id, name, nickname, hobby, nim, instagram_handle,
  date_of_birth, place_of_birth, blood_type, address, has_bonded_with
) VALUES (?,?,?,?,?,?,?,?,?,?,?)
RETURNING *
`, input.GroupID, input.Name, input.Nickname, input.Hobby, input.NIM,
		input.InstagramHandle, dob, input.PlaceOfBirth, input.BloodType,
		input.Address, boolToInt(input.HasBondedWith))
	if err != nil {
		return models.Student{}, apperr.FromSQLite(err, "insert student")
	}
	return student, nil
}

// Update replaces the full editable field set; cleared optional fields
// are stored as NULL, not skipped.
func (r *StudentRepo) Update(ctx context.Context, id int64, input StudentInput) (models.Student, error) {
	dob, err := normalizeDateOfBirth(input.DateOfBirth)
	if err != nil {
		return models.Student{}, err
	}
	var student models.Student
	err = r.db.GetContext(ctx, &student, `
UPDATE students SET
  group_id = ?, name = ?, nickname = ?, hobby = ?, nim = ?,
  instagram_handle = ?, date_of_birth = ?, place_of_birth = ?,
  blood_type = ?, address = ?, has_bonded_with = ?
WHERE id = ?
RETURNING *
`, input.GroupID, input.Name, input.Nickname, input.Hobby, input.NIM,
		input.InstagramHandle, dob, input.PlaceOfBirth, input.BloodType,
		input.Address, boolToInt(input.HasBondedWith), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Student{}, apperr.NotFound("student not found")
	}
	if err != nil {
		return models.Student{}, apperr.FromSQLite(err, "update student")
	}
	return student, nil
}

// SoftDelete marks the student as removed. A false result means the id
// did not exist, which is a normal negative, not an error.
func (r *StudentRepo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE students SET deleted_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// HardDelete removes the row; the images foreign key cascades.
func (r *StudentRepo) HardDelete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// normalizeDateOfBirth canonicalizes any parseable date into a UTC
// RFC 3339 string before storage.
func normalizeDateOfBirth(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			normalized := parsed.UTC().Format(time.RFC3339)
			return &normalized, nil
		}
	}
	return nil, apperr.ConstraintViolation("invalid date of birth: "+value, nil)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
