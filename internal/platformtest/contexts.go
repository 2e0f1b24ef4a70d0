package platformtest

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helixdata/helix-go/pkg/models"
)

type contextCollection struct {
	Items []models.Context `json:"items"`
}

// filterPattern matches the eq(name,"...") filter used by by-name lookups.
var filterPattern = regexp.MustCompile(`^eq\(name,\s*"(.*)"\)$`)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) listContexts(store *[]*models.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		items := make([]models.Context, 0, len(*store))
		filter := r.URL.Query().Get("filter")
		for _, c := range *store {
			if filter != "" {
				m := filterPattern.FindStringSubmatch(filter)
				if m == nil || c.Name != m[1] {
					continue
				}
			}
			items = append(items, *c)
		}
		writeJSON(w, http.StatusOK, contextCollection{Items: items})
	}
}

func (s *Server) createContext(store *[]*models.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c models.Context
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
			return
		}
		if c.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name is required"})
			return
		}

		s.mu.Lock()
		for _, existing := range *store {
			if existing.Name == c.Name {
				s.mu.Unlock()
				writeJSON(w, http.StatusConflict, map[string]string{"message": "name already in use"})
				return
			}
		}
		c.ID = uuid.NewString()
		c.Version = 1
		c.CreatedBy = s.Username
		stored := c
		*store = append(*store, &stored)
		s.etags[stored.ID] = uuid.NewString()
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, stored)
	}
}

func (s *Server) getContext(store *[]*models.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range *store {
			if c.ID == id {
				w.Header().Set("ETag", s.etags[id])
				writeJSON(w, http.StatusOK, *c)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "context not found"})
	}
}

func (s *Server) updateContext(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update models.Context
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.compute {
		if c.ID != id {
			continue
		}
		if match := r.Header.Get("If-Match"); match != s.etags[id] {
			writeJSON(w, http.StatusPreconditionFailed, map[string]string{"message": "etag mismatch"})
			return
		}
		update.ID = id
		update.Version = c.Version + 1
		s.compute[i] = &update
		s.etags[id] = uuid.NewString()
		w.Header().Set("ETag", s.etags[id])
		writeJSON(w, http.StatusOK, update)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "context not found"})
}

func (s *Server) deleteContext(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.compute {
		if c.ID != id {
			continue
		}
		deleted := *c
		s.compute = append(s.compute[:i], s.compute[i+1:]...)
		delete(s.etags, id)
		writeJSON(w, http.StatusOK, deleted)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "context not found"})
}
