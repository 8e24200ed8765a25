// Package httpapi is the thin HTTP surface over the repository core.
// It validates and types incoming parameters, calls one repository
// operation and renders the result; no invariant lives here.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"kaderisasi-backend-go/internal/config"
	"kaderisasi-backend-go/internal/repositories"
	"kaderisasi-backend-go/internal/services"
	"kaderisasi-backend-go/internal/storage"
)

type Server struct {
	DB         *sqlx.DB
	Config     config.Config
	Students   *repositories.StudentRepo
	Groups     *repositories.GroupRepo
	Images     *repositories.ImageRepo
	Store      *storage.FileStore
	MetricsHub *services.MetricsHub
}

func NewServer(db *sqlx.DB, cfg config.Config, hub *services.MetricsHub) *Server {
	store := storage.NewFileStore(cfg.ImageStoragePath)
	return &Server{
		DB:         db,
		Config:     cfg,
		Students:   repositories.NewStudentRepo(db),
		Groups:     repositories.NewGroupRepo(db, store),
		Images:     repositories.NewImageRepo(db, store),
		Store:      store,
		MetricsHub: hub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/students", func(students chi.Router) {
			students.Get("/", s.ListStudents)
			students.Post("/", s.CreateStudent)
			students.Get("/{studentId}", s.GetStudent)
			students.Put("/{studentId}", s.UpdateStudent)
			students.Delete("/{studentId}", s.DeleteStudent)
			students.Get("/{studentId}/image", s.GetStudentImage)
			students.Post("/{studentId}/image", s.UploadStudentImage)
			students.Put("/{studentId}/image", s.UpdateStudentImage)
			students.Delete("/{studentId}/image", s.DeleteStudentImage)
		})
		api.Route("/groups", func(groups chi.Router) {
			groups.Get("/", s.ListGroups)
			groups.Post("/", s.CreateGroup)
			groups.Get("/verbose", s.VerboseGroups)
			groups.Get("/{groupId}", s.GetGroup)
			groups.Post("/{groupId}/image", s.UploadGroupImage)
		})
		api.Route("/images", func(images chi.Router) {
			images.Get("/", s.ListImages)
			images.Post("/mark-printed", s.MarkImagesPrinted)
		})
		api.Get("/metrics/history", s.MetricsHistory)
		api.Get("/metrics/ws", s.MetricsSocket)
	})
	r.Get("/images/{filename}", s.ServeImage)

	return r
}
