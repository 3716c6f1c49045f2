package server

import (
	"bytes"
	"encoding/json"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/export"
	"github.com/jonathan/application-tracker/internal/importer"
	"github.com/jonathan/application-tracker/internal/tracker"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboard returns stats, breakdowns and the most recent applications
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, dash)
}

// handleListApplications lists every application, newest first unless ?order=oldest
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	opts := db.ListOptions{Order: db.OrderNewest}
	if r.URL.Query().Get("order") == "oldest" {
		opts.Order = db.OrderOldest
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}

	apps, err := s.store.ListApplications(r.Context(), opts)
	if err != nil {
		s.fail(w, err)
		return
	}
	if apps == nil {
		apps = []db.Application{}
	}
	s.jsonResponse(w, http.StatusOK, apps)
}

// handleCreateApplication adds a manually entered application
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var in tracker.ApplicationInput
	if err := decodeInput(w, r, &in); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	app, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, app)
}

// handleGetApplication returns one application
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	app, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

// handleUpdateApplication replaces an application with the submitted fields
func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	var in tracker.ApplicationInput
	if err := decodeInput(w, r, &in); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	app, err := s.service.Update(r.Context(), id, in)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

// handleDeleteApplication removes an application
func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	if err := s.service.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.messageResponse(w, "Application deleted.")
}

// handleExport downloads every application as CSV
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	// Buffer so that a store error can still become a JSON error response.
	var buf bytes.Buffer
	if _, err := export.WriteCSV(r.Context(), s.store, &buf); err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[server] Error writing CSV export: %v", err)
	}
}

// handleImport runs the portal crawl in a child process and reports its outcome
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var creds importer.Credentials
	if err := decodeInput(w, r, &creds); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	msg, err := s.importer.Run(r.Context(), creds)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.messageResponse(w, msg)
}

// fail writes err with the status and message chosen by HTTPStatus and PublicMessage.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[server] Internal error: %v", err)
	}
	s.errorResponse(w, status, PublicMessage(err))
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ErrInvalidID{Raw: raw}
	}
	return id, nil
}

// decodeInput reads a JSON body, or an HTML form body, into dst.
// Form fields are matched against dst's json tags.
func decodeInput(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	switch mediaType {
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
	case "multipart/form-data":
		err = r.ParseMultipartForm(maxBodyBytes)
	default:
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err != nil {
		return err
	}

	fields := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		fields[k] = r.PostForm.Get(k)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
