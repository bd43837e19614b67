// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data. Handlers accept either an HTML form post (the HTMX UI) or a JSON
// body (scripting), and both shapes funnel through the same parsers.

package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"notas/internal/core"
)

// maxRequestBody caps JSON bodies. Signatures are small PNGs, so 2 MiB
// leaves plenty of headroom.
const maxRequestBody = 2 << 20

// noteRequest is the wire shape of a service note submission.
type noteRequest struct {
	ID                   string `json:"id"`
	ClientID             string `json:"client_id"`
	ProjectID            string `json:"project_id"`
	ConsultantID         string `json:"consultant_id"`
	Format               string `json:"format"`
	Date                 string `json:"date"`
	Start                string `json:"start"`
	End                  string `json:"end"`
	ClientRepresentative string `json:"client_representative"`
	Description          string `json:"description"`
	ConsultantSignature  string `json:"consultant_signature"`
	ClientSignature      string `json:"client_signature"`
}

// ParseNoteRequest extracts a service note from a form or JSON request.
// Field-level validation stays in core; this only decodes the transport.
func ParseNoteRequest(r *http.Request) (core.ServiceNote, error) {
	req, err := decodeNoteRequest(r)
	if err != nil {
		return core.ServiceNote{}, err
	}

	note := core.ServiceNote{
		ID:                   strings.TrimSpace(req.ID),
		ClientID:             strings.TrimSpace(req.ClientID),
		ProjectID:            strings.TrimSpace(req.ProjectID),
		ConsultantID:         strings.TrimSpace(req.ConsultantID),
		Format:               core.Format(strings.TrimSpace(req.Format)),
		ClientRepresentative: sanitizeInput(req.ClientRepresentative),
		Description:          sanitizeInput(req.Description),
	}

	if v := strings.TrimSpace(req.Date); v != "" {
		date, err := core.ParseDate(v)
		if err != nil {
			return core.ServiceNote{}, fmt.Errorf("date: %w", err)
		}
		note.Date = date
	}
	if v := strings.TrimSpace(req.Start); v != "" {
		start, err := core.ParseClock(v)
		if err != nil {
			return core.ServiceNote{}, fmt.Errorf("start time: %w", err)
		}
		note.Start = start
	}
	if v := strings.TrimSpace(req.End); v != "" {
		end, err := core.ParseClock(v)
		if err != nil {
			return core.ServiceNote{}, fmt.Errorf("end time: %w", err)
		}
		note.End = end
	}

	if note.ConsultantSignature, err = decodeSignature(req.ConsultantSignature); err != nil {
		return core.ServiceNote{}, fmt.Errorf("consultant signature: %w", err)
	}
	if note.ClientSignature, err = decodeSignature(req.ClientSignature); err != nil {
		return core.ServiceNote{}, fmt.Errorf("client signature: %w", err)
	}

	return note, nil
}

func decodeNoteRequest(r *http.Request) (noteRequest, error) {
	var req noteRequest

	if isJSONRequest(r) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			return req, fmt.Errorf("read request body: %w", err)
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, fmt.Errorf("invalid JSON body: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("invalid form data: %w", err)
	}
	req = noteRequest{
		ID:                   r.Form.Get("id"),
		ClientID:             r.Form.Get("client_id"),
		ProjectID:            r.Form.Get("project_id"),
		ConsultantID:         r.Form.Get("consultant_id"),
		Format:               r.Form.Get("format"),
		Date:                 r.Form.Get("date"),
		Start:                r.Form.Get("start"),
		End:                  r.Form.Get("end"),
		ClientRepresentative: r.Form.Get("client_representative"),
		Description:          r.Form.Get("description"),
		ConsultantSignature:  r.Form.Get("consultant_signature"),
		ClientSignature:      r.Form.Get("client_signature"),
	}
	return req, nil
}

// decodeSignature turns the canvas export into raw PNG bytes. Browsers send
// a data URL; a bare base64 payload is accepted too.
func decodeSignature(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if idx := strings.Index(v, ","); idx >= 0 && strings.HasPrefix(v, "data:") {
		v = v[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}

// referenceRequest is the wire shape of a client/project/consultant record.
type referenceRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TaxID    string `json:"tax_id"`
	ClientID string `json:"client_id"`
}

// ParseReferenceRequest extracts a reference-list entry from a form or JSON
// request. The TaxID and ClientID fields only matter for some kinds; the
// handlers pick what they need.
func ParseReferenceRequest(r *http.Request) (referenceRequest, error) {
	var req referenceRequest

	if isJSONRequest(r) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			return req, fmt.Errorf("read request body: %w", err)
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, fmt.Errorf("invalid JSON body: %w", err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("invalid form data: %w", err)
		}
		req = referenceRequest{
			ID:       r.Form.Get("id"),
			Name:     r.Form.Get("name"),
			TaxID:    r.Form.Get("tax_id"),
			ClientID: r.Form.Get("client_id"),
		}
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = sanitizeInput(req.Name)
	req.TaxID = sanitizeInput(req.TaxID)
	req.ClientID = strings.TrimSpace(req.ClientID)
	return req, nil
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
