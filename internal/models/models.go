package models

import "time"

type Group struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Student struct {
	ID              int64      `db:"id" json:"id"`
	GroupID         int64      `db:"group_id" json:"group_id"`
	Name            string     `db:"name" json:"name"`
	Nickname        *string    `db:"nickname" json:"nickname"`
	Hobby           *string    `db:"hobby" json:"hobby"`
	NIM             *string    `db:"nim" json:"nim"`
	InstagramHandle *string    `db:"instagram_handle" json:"instagram_handle"`
	DateOfBirth     *string    `db:"date_of_birth" json:"date_of_birth"`
	PlaceOfBirth    *string    `db:"place_of_birth" json:"place_of_birth"`
	BloodType       *string    `db:"blood_type" json:"blood_type"`
	Address         *string    `db:"address" json:"address"`
	HasBondedWith   bool       `db:"has_bonded_with" json:"has_bonded_with"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at"`
}

// VerboseStudent is the display join: the base row plus the group name
// and the current image filename, when present.
type VerboseStudent struct {
	Student
	GroupName     *string `db:"group_name" json:"group_name"`
	ImageFilename *string `db:"image_filename" json:"image_filename"`
}

type Image struct {
	ID             int64     `db:"id" json:"id"`
	StudentID      int64     `db:"student_id" json:"student_id"`
	Filename       string    `db:"filename" json:"filename"`
	HasBeenPrinted bool      `db:"has_been_printed" json:"has_been_printed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type VerboseImage struct {
	Image
	StudentName *string `db:"student_name" json:"student_name"`
	GroupName   *string `db:"group_name" json:"group_name"`
}

type GroupImage struct {
	ID             int64     `db:"id" json:"id"`
	GroupID        int64     `db:"group_id" json:"group_id"`
	Filename       string    `db:"filename" json:"filename"`
	HasBeenPrinted bool      `db:"has_been_printed" json:"has_been_printed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// VerboseGroup carries the per-group participation statistics.
type VerboseGroup struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	BondedCount   int     `db:"bonded_count" json:"bonded_count"`
	StudentCount  int     `db:"student_count" json:"student_count"`
	Percentage    int     `json:"percentage"`
	ImageFilename *string `db:"image_filename" json:"image_filename"`
}
