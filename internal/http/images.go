package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kaderisasi-backend-go/internal/models"
	"kaderisasi-backend-go/internal/repositories"
)

const maxUploadBytes = 8 << 20

type UpdateImageRequest struct {
	HasBeenPrinted *bool `json:"has_been_printed"`
}

type MarkPrintedRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) ListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repositories.ImageFilters{
		GroupID:     int64(parseInt(q.Get("group"), 0)),
		ShowPrinted: q.Get("showPrinted") == "true",
	}
	images, err := s.Images.List(r.Context(), filters)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, images)
}

func (s *Server) GetStudentImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	image, err := s.Images.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, image)
}

func (s *Server) UploadStudentImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	student, err := s.Students.GetVerbose(r.Context(), id)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	data, contentType, ok := readMultipartImage(w, r)
	if !ok {
		return
	}
	image, err := s.Images.Upload(r.Context(), id, studentImageFilename(student, contentType), data)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, image)
}

func (s *Server) UpdateStudentImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	var req UpdateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	image, err := s.Images.Update(r.Context(), id, repositories.ImageUpdate{
		HasBeenPrinted: req.HasBeenPrinted,
	})
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, image)
}

func (s *Server) DeleteStudentImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "studentId"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	image, err := s.Images.Delete(r.Context(), id)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, image)
}

func (s *Server) MarkImagesPrinted(w http.ResponseWriter, r *http.Request) {
	var req MarkPrintedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	marked, err := s.Images.MarkPrinted(r.Context(), req.IDs)
	if err != nil {
		WriteRepoError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"marked": marked})
}

func (s *Server) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "filename")
	if key == "" || strings.ContainsAny(key, "/\\") {
		WriteError(w, http.StatusBadRequest, "Invalid filename")
		return
	}
	http.ServeFile(w, r, s.Store.Resolve(key))
}

// readMultipartImage pulls the uploaded file out of the "image" form
// field. Size and media-type checks happen here, before the core is
// called.
func readMultipartImage(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart payload")
		return nil, "", false
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Image file is required")
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		WriteError(w, http.StatusBadRequest, "Only image uploads are accepted")
		return nil, "", false
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Could not read upload")
		return nil, "", false
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "Uploaded file is empty")
		return nil, "", false
	}
	return data, contentType, true
}

// studentImageFilename derives the canonical, deterministic target name
// <group>.<nim-suffix>-<nickname>.<ext>, lower-cased, so a re-upload
// for the same student supersedes rather than accumulates.
func studentImageFilename(student models.VerboseStudent, contentType string) string {
	nimSuffix := "xxx"
	if student.NIM != nil && *student.NIM != "" {
		nim := *student.NIM
		if len(nim) > 3 {
			nim = nim[len(nim)-3:]
		}
		nimSuffix = nim
	}
	groupName := ""
	if student.GroupName != nil {
		groupName = strings.TrimSpace(*student.GroupName)
	}
	nickname := ""
	if student.Nickname != nil {
		nickname = strings.TrimSpace(*student.Nickname)
	}
	name := fmt.Sprintf("%s.%s-%s%s", groupName, nimSuffix, nickname, extensionFor(contentType))
	return strings.ToLower(name)
}

// extensionFor maps the declared MIME type onto a file extension, the
// same way the upload form's media types split.
func extensionFor(contentType string) string {
	parts := strings.SplitN(contentType, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return "." + strings.ToLower(parts[1])
}
