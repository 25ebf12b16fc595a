package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// DriveOAuth walks an operator through the Google consent screen once so the
// refresh token can be copied into the gdrive upload target.
type DriveOAuth struct {
	config *oauth2.Config
	logger Logger
	state  string
}

func NewDriveOAuth(config *oauth2.Config, logger Logger) *DriveOAuth {
	return &DriveOAuth{
		config: config,
		logger: logger,
		state:  uuid.New().String(),
	}
}

func (o *DriveOAuth) Register(r *mux.Router) {
	r.HandleFunc("/auth/google/drive", o.start).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", o.callback).Methods(http.MethodGet)
	o.logger.Infof("Google Drive OAuth helper mounted at /auth/google/drive")
}

func (o *DriveOAuth) start(w http.ResponseWriter, r *http.Request) {
	authURL := o.config.AuthCodeURL(o.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

func (o *DriveOAuth) callback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("state") != o.state {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	token, err := o.config.Exchange(r.Context(), code)
	if err != nil {
		o.logger.Errorf("Drive token exchange failed: %v", err)
		http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
		return
	}

	if token.RefreshToken == "" {
		fmt.Fprintln(w, "No refresh token returned. Revoke app access and re-authorize.")
		return
	}

	tokenJSON, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		http.Error(w, "failed to marshal token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Refresh token (set as refresh_token on the gdrive target):\n%s\n\nFull token JSON:\n%s\n", token.RefreshToken, tokenJSON)
}
