package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"campus_coffee/internal/app"
	"campus_coffee/internal/domain"
)

type Handlers struct {
	Reviews  *app.ReviewService
	WriteRPS int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

const maxBodyBytes = 64 << 10

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api/reviews", func(r chi.Router) {
		r.Get("/", h.listReviews)
		r.Get("/filter", h.filterReviews)
		r.Get("/{id}", h.getReview)

		r.Group(func(w chi.Router) {
			w.Use(RateLimit(h.WriteRPS))
			w.Post("/", h.createReview)
			w.Put("/{id}", h.updateReview)
			w.Put("/{id}/approve", h.approveReview)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemKind(w, status, title, detail, "")
}

func writeProblemKind(w http.ResponseWriter, status int, title, detail, kind string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Kind: kind}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps workflow errors onto problem responses. Validation
// failures are the caller's fault (400); anything else is ours (500).
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeProblemKind(w, http.StatusBadRequest, "Validation Failed", ve.Error(), string(ve.Kind))
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// writeCached serves v with a weak ETag, answering 304 on a matching If-None-Match.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func decodeReview(w http.ResponseWriter, r *http.Request) (domain.Review, bool) {
	var in reviewDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be a review JSON object")
		return domain.Review{}, false
	}
	rv, err := in.toDomain()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return domain.Review{}, false
	}
	return rv, true
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Reviews.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, fromDomainList(rs))
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rv, err := h.Reviews.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrReferenceNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeCached(w, r, fromDomain(rv))
}

func (h *Handlers) filterReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posID, err := strconv.ParseInt(q.Get("pos_id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid pos_id", "pos_id must be a number")
		return
	}
	approved, err := strconv.ParseBool(q.Get("approved"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid approved", "approved must be true or false")
		return
	}
	rs, err := h.Reviews.Filter(r.Context(), posID, approved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, fromDomainList(rs))
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	rv, ok := decodeReview(w, r)
	if !ok {
		return
	}
	rv.ID = 0 // creation never targets an existing review
	out, err := h.Reviews.Upsert(r.Context(), rv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/reviews/"+strconv.FormatInt(out.ID, 10))
	writeJSON(w, http.StatusCreated, fromDomain(out))
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rv, ok := decodeReview(w, r)
	if !ok {
		return
	}
	rv.ID = id
	out, err := h.Reviews.Upsert(r.Context(), rv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDomain(out))
}

func (h *Handlers) approveReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid user_id", "user_id must be a number")
		return
	}
	out, err := h.Reviews.Approve(r.Context(), domain.Review{ID: id}, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDomain(out))
}
