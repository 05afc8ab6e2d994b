package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/waqiti-dev/deeplink"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// linkRequest is the body of POST /v1/links/route and /v1/links/resume.
type linkRequest struct {
	URL      string               `json:"url"`
	Source   string               `json:"source,omitempty"`
	Campaign string               `json:"campaign,omitempty"`
	Referrer string               `json:"referrer,omitempty"`
	Device   *dispatch.DeviceInfo `json:"device,omitempty"`
}

func (req linkRequest) partial() (dispatch.Partial, error) {
	src, err := dispatch.ParseSource(req.Source)
	if err != nil {
		return dispatch.Partial{}, err
	}
	return dispatch.Partial{
		Source:   src,
		Campaign: req.Campaign,
		Referrer: req.Referrer,
		Device:   req.Device,
	}, nil
}

// generateRequest is the body of POST /v1/links/generate.
type generateRequest struct {
	Pattern   string            `json:"pattern"`
	Params    map[string]any    `json:"params,omitempty"`
	Source    string            `json:"source,omitempty"`
	Campaign  string            `json:"campaign,omitempty"`
	UTM       map[string]string `json:"utm,omitempty"`
	Universal bool              `json:"universal,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"hostReady": s.manager.Ready(),
	})
}

// handleRoute routes a link. Routing outcomes, failures included, are
// reported in the Result with status 200; only malformed requests are 4xx.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	p, err := req.partial()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.manager.Handle(r.Context(), req.URL, p))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := s.decode(w, r, &req, true); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := req.partial()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, ok := s.manager.ResumePending(r.Context(), p)
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("no pending link"))
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Pattern == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("pattern is required"))
		return
	}

	link, err := s.manager.GenerateURL(req.Pattern, req.Params, deeplink.GenerateOptions{
		Source:    req.Source,
		Campaign:  req.Campaign,
		UTMParams: req.UTM,
		Universal: req.Universal,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("url query parameter is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.manager.TestURL(raw))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.GetRoutes())
}

// decode reads a JSON body into v. An empty body is accepted when optional.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
