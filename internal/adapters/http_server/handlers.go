// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"palmera_listings/internal/app"
	"palmera_listings/internal/cache"
	"palmera_listings/internal/domain"
)

type Handlers struct {
	Catalog *app.CatalogService
	Leads   *app.LeadService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/properties", h.listProperties)
	s.mux.Get("/v1/properties/{id}", h.getProperty)
	s.mux.Get("/v1/zones", h.listZones)
	s.mux.Get("/v1/blog", h.listBlog)
	s.mux.Post("/v1/leads", h.submitLead)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCollection renders a read-path response. Read failures never become
// hard errors for the page: the caller passes whatever (possibly empty,
// possibly stale) collection the service produced.
func writeCollection(w http.ResponseWriter, r *http.Request, v any, st cache.Status) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Cache-Status", st.String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write collection body")
	}
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	items, st, err := h.Catalog.Properties(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("property catalog unavailable")
	}
	writeCollection(w, r, items, st)
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	p, err := h.Catalog.Property(r.Context(), id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("failed to write property body")
	}
}

func (h *Handlers) listZones(w http.ResponseWriter, r *http.Request) {
	items, st, err := h.Catalog.Zones(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("zone list unavailable")
	}
	writeCollection(w, r, items, st)
}

func (h *Handlers) listBlog(w http.ResponseWriter, r *http.Request) {
	items, st, err := h.Catalog.Blog(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("blog feed unavailable")
	}
	writeCollection(w, r, items, st)
}

type leadRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	Property string `json:"property"`
	Budget   string `json:"budget"`
	MoveIn   string `json:"move_in"`
	Channel  string `json:"channel"`
	Label    string `json:"label"`
}

// submitLead is the one write path, and the one place an upstream failure
// must reach the end user as an actionable message.
func (h *Handlers) submitLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be JSON")
		return
	}
	if req.Name == "" || (req.Email == "" && req.Phone == "") {
		writeProblem(w, http.StatusBadRequest, "Missing Fields", "name and one of email/phone are required")
		return
	}

	form := domain.LeadForm{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Message:  req.Message,
		Property: req.Property,
		Budget:   req.Budget,
		MoveIn:   req.MoveIn,
	}
	contactID, err := h.Leads.Submit(r.Context(), form, req.Channel, req.Label)
	if err != nil {
		log.Error().Err(err).Msg("lead submission failed")
		writeProblem(w, http.StatusBadGateway, "Submission Failed", "we could not record your request, please retry")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]int64{"contact_id": contactID})
}
