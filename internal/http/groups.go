package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type CreateGroupRequest struct {
	Name string `json:"name"`
}

func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Groups.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

func (s *Server) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "groupId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	group, err := s.Groups.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, group)
}

func (s *Server) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}
	group, err := s.Groups.Create(r.Context(), req.Name)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, group)
}

func (s *Server) VerboseGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Groups.Verbose(r.Context())
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

func (s *Server) UploadGroupImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "groupId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	group, err := s.Groups.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	data, contentType, ok := readMultipartImage(w, r)
	if !ok {
		return
	}
	filename := strings.ToLower(strings.TrimSpace(group.Name) + extensionFor(contentType))
	image, err := s.Groups.UploadImage(r.Context(), id, filename, data)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, image)
}
