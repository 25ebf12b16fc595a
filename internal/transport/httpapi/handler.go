package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/infrastructure/scheduler"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Metrics interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	Handler() http.Handler
}

// BackupService is the subset of usecase.Backup exposed over HTTP.
type BackupService interface {
	Create(ctx context.Context) (*domain.Backup, error)
	Restore(ctx context.Context, filename string) error
	List(ctx context.Context) ([]domain.Backup, error)
	Get(ctx context.Context, filename string) (*domain.Backup, error)
	Delete(ctx context.Context, filename string) error
	Prune(ctx context.Context) (int, error)
}

type SchedulerStatus interface {
	State() scheduler.State
	NextRun() (time.Time, bool)
	Spec() string
}

type Handler struct {
	backups   BackupService
	scheduler SchedulerStatus
	logger    Logger
}

type backupView struct {
	domain.Backup
	SizeFormatted string `json:"sizeFormatted"`
}

func newBackupView(b domain.Backup) backupView {
	return backupView{Backup: b, SizeFormatted: domain.FormatSize(b.Size)}
}

type schedulerView struct {
	State    string     `json:"state"`
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"nextRun,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "OK", nil)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]backupView, 0, len(backups))
	for _, b := range backups {
		views = append(views, newBackupView(b))
	}
	writeData(w, http.StatusOK, "", views)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	backup, err := h.backups.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "Backup created successfully", newBackupView(*backup))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	backup, err := h.backups.Get(r.Context(), mux.Vars(r)["filename"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", newBackupView(*backup))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	backup, err := h.backups.Get(r.Context(), mux.Vars(r)["filename"])
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(backup.FilePath)
	if err != nil {
		writeError(w, fmt.Errorf("failed to open backup: %w", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.Filename))
	http.ServeContent(w, r, backup.Filename, backup.CreatedAt, f)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.Delete(r.Context(), mux.Vars(r)["filename"]); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Backup deleted successfully", nil)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		h.logger.Warnf("Restore of %s requested by %s (%s)", filename, claims.Email, claims.Role)
	}

	if err := h.backups.Restore(r.Context(), filename); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Database restored successfully", nil)
}

func (h *Handler) prune(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.backups.Prune(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]int{"deleted": deleted})
}

func (h *Handler) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	view := schedulerView{
		State:    h.scheduler.State().String(),
		Schedule: h.scheduler.Spec(),
	}
	if next, ok := h.scheduler.NextRun(); ok {
		view.NextRun = &next
	}
	writeData(w, http.StatusOK, "", view)
}
