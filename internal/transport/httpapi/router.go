package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

type RouterOptions struct {
	Backups   BackupService
	Scheduler SchedulerStatus
	Auth      *Authenticator
	Metrics   Metrics
	Logger    Logger

	// DriveOAuth is mounted only when set.
	DriveOAuth *DriveOAuth
}

func NewRouter(opts RouterOptions) *mux.Router {
	h := &Handler{
		backups:   opts.Backups,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
	}

	r := mux.NewRouter()
	r.Use(requestID, observe(opts.Logger, opts.Metrics))

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	if opts.DriveOAuth != nil {
		opts.DriveOAuth.Register(r)
	}

	api := r.PathPrefix("/api/backups").Subrouter()
	api.Use(opts.Auth.Middleware)

	// fixed paths before {filename}
	api.HandleFunc("", h.list).Methods(http.MethodGet)
	api.HandleFunc("", h.create).Methods(http.MethodPost)
	api.HandleFunc("/prune", h.prune).Methods(http.MethodPost)
	api.HandleFunc("/scheduler", h.schedulerStatus).Methods(http.MethodGet)
	api.HandleFunc("/{filename}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/{filename}", h.delete).Methods(http.MethodDelete)
	api.HandleFunc("/{filename}/download", h.download).Methods(http.MethodGet)
	api.HandleFunc("/{filename}/restore", h.restore).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	return r
}
