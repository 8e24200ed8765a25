package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kaderisasi-backend-go/internal/repositories"
)

type StudentRequest struct {
	GroupID         int64   `json:"group_id"`
	Name            string  `json:"name"`
	Nickname        *string `json:"nickname"`
	Hobby           *string `json:"hobby"`
	NIM             *string `json:"nim"`
	InstagramHandle *string `json:"instagram_handle"`
	DateOfBirth     *string `json:"date_of_birth"`
	PlaceOfBirth    *string `json:"place_of_birth"`
	BloodType       *string `json:"blood_type"`
	Address         *string `json:"address"`
	HasBondedWith   bool    `json:"has_bonded_with"`
}

func (req StudentRequest) toInput() repositories.StudentInput {
	return repositories.StudentInput{
		GroupID:         req.GroupID,
		Name:            strings.TrimSpace(req.Name),
		Nickname:        req.Nickname,
		Hobby:           req.Hobby,
		NIM:             req.NIM,
		InstagramHandle: req.InstagramHandle,
		DateOfBirth:     req.DateOfBirth,
		PlaceOfBirth:    req.PlaceOfBirth,
		BloodType:       req.BloodType,
		Address:         req.Address,
		HasBondedWith:   req.HasBondedWith,
	}
}

func (s *Server) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repositories.StudentFilters{
		Query:       q.Get("q"),
		NIM:         q.Get("nim"),
		GroupName:   q.Get("group"),
		WithTrashed: q.Get("withTrashed") == "true",
	}
	switch q.Get("bonded") {
	case "true":
		bonded := true
		filters.Bonded = &bonded
	case "false":
		bonded := false
		filters.Bonded = &bonded
	}
	switch q.Get("printed") {
	case "printed":
		filters.Printed = repositories.PrintedOnly
	case "not_printed":
		filters.Printed = repositories.NotPrinted
	}

	students, err := s.Students.List(r.Context(), filters)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, students)
}

func (s *Server) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	if r.URL.Query().Get("verbose") == "true" {
		student, err := s.Students.GetVerbose(r.Context(), id)
		if err != nil {
			WriteRepoError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, student)
		return
	}
	student, err := s.Students.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, student)
}

func (s *Server) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.GroupID == 0 {
		WriteError(w, http.StatusBadRequest, "Name and group are required")
		return
	}
	student, err := s.Students.Create(r.Context(), req.toInput())
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, student)
}

func (s *Server) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	student, err := s.Students.Update(r.Context(), id, req.toInput())
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, student)
}

func (s *Server) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	var (
		deleted bool
		err     error
	)
	if r.URL.Query().Get("hard") == "true" {
		deleted, err = s.Students.HardDelete(r.Context(), id)
	} else {
		deleted, err = s.Students.SoftDelete(r.Context(), id)
	}
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
