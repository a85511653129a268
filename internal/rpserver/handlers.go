package rpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tcfw/siop/pkg/errs"
	"github.com/tcfw/siop/pkg/siop"
	"github.com/tcfw/siop/pkg/storage"
)

type CreateRequestResponse struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	RequestURI string `json:"request_uri"`
	Nonce      string `json:"nonce"`
	State      string `json:"state"`
}

type CallbackResponse struct {
	DID   string `json:"did"`
	State string `json:"state"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	nonce, err := s.newNonce()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err)
		return
	}

	// the state doubles as the record id so the callback can find it
	id := uuid.New().String()
	requestURI := s.baseURL + RequestsPath + "/" + id

	req, err := s.rp.CreateAuthenticationRequest(ctx, siop.RequestParams{
		Nonce:        nonce,
		State:        id,
		ReferenceURI: requestURI,
	})
	if err != nil {
		log.WithError(err).Error("creating authentication request")
		writeError(w, http.StatusInternalServerError, string(errs.KindOf(err)), err)
		return
	}

	now := s.now()
	rec := &storage.RequestRecord{
		ID:          id,
		JWT:         req.JWT,
		Nonce:       req.Payload.Nonce,
		State:       req.Payload.State,
		RedirectURI: req.Payload.RedirectURI,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, rec); err != nil {
		log.WithError(err).Error("storing request")
		writeError(w, http.StatusInternalServerError, "server_error", err)
		return
	}

	log.WithField("id", id).Debug("created request")

	writeJSON(w, http.StatusCreated, &CreateRequestResponse{
		ID:         id,
		URI:        req.EncodedURI,
		RequestURI: requestURI,
		Nonce:      rec.Nonce,
		State:      rec.State,
	})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		log.WithError(err).WithField("id", id).Error("getting request")
		writeError(w, http.StatusInternalServerError, "server_error", err)
		return
	}

	etag, err := rec.ContentID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err)
		return
	}
	etag = `"` + etag + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Expires", rec.ExpiresAt.UTC().Format(http.TimeFormat))

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/jwt")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rec.JWT)); err != nil {
		log.WithError(err).Debug("writing request object")
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, string(errs.BadParams), err)
		return
	}

	idToken := r.PostForm.Get("id_token")
	state := r.PostForm.Get("state")

	if idToken == "" || state == "" {
		writeError(w, http.StatusBadRequest, string(errs.BadParams), errs.New(errs.BadParams, "id_token and state required"))
		return
	}

	rec, err := s.store.Get(ctx, state)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "unknown_state", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err)
		return
	}

	// claim the record first so one state can only ever be answered once
	if err := s.store.Delete(ctx, rec.ID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "unknown_state", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err)
		return
	}

	res, err := s.rp.VerifyAuthenticationResponseJWT(ctx, idToken, siop.ResponseParams{
		Nonce:    rec.Nonce,
		State:    rec.State,
		Audience: rec.RedirectURI,
	})
	if err != nil {
		log.WithError(err).WithField("state", state).Debug("rejected response")
		writeError(w, http.StatusBadRequest, string(errs.KindOf(err)), err)
		return
	}

	log.WithField("did", res.Issuer).WithField("took", s.now().Sub(rec.CreatedAt).Round(time.Millisecond)).Debug("verified response")

	writeJSON(w, http.StatusOK, &CallbackResponse{DID: res.Issuer, State: rec.State})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("writing response")
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	if code == "" {
		code = "server_error"
	}
	writeJSON(w, status, &errorResponse{Error: code, Description: err.Error()})
}
