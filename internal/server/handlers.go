package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/events"
	"github.com/raaihank/data-sentinel/internal/policy"
)

const maxRequestBody = 4 << 20

// ScrubRequest is the body of POST /v1/scrub. Exactly one of Text or
// Record must be set.
type ScrubRequest struct {
	Text           string            `json:"text,omitempty"`
	Record         map[string]string `json:"record,omitempty"`
	Dataset        string            `json:"dataset,omitempty"`
	Role           string            `json:"role,omitempty"`
	Field          string            `json:"field,omitempty"`
	ReturnFindings bool              `json:"return_findings,omitempty"`
}

// FindingView is the findings projection returned to callers. The matched
// value itself is deliberately absent.
type FindingView struct {
	Type       string  `json:"type"`
	Field      string  `json:"field,omitempty"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Detector   string  `json:"detector"`
}

// ScrubResponse is the reply to POST /v1/scrub.
type ScrubResponse struct {
	RunID    string            `json:"run_id"`
	Output   string            `json:"output,omitempty"`
	Record   map[string]string `json:"record,omitempty"`
	Audit    []audit.Entry     `json:"audit"`
	Findings []FindingView     `json:"findings,omitempty"`
	CacheHit bool              `json:"cache_hit,omitempty"`
}

func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	var req ScrubRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request: %v", err))
		return
	}
	if (req.Text == "" && len(req.Record) == 0) || (req.Text != "" && len(req.Record) > 0) {
		writeError(w, http.StatusBadRequest, "exactly one of text or record must be set")
		return
	}

	rctx := policy.Context{Dataset: req.Dataset, Role: req.Role, Field: req.Field}
	resp := ScrubResponse{}

	if req.Text != "" {
		result, err := s.orchestrator.ProcessText(r.Context(), req.Text, rctx)
		if err != nil {
			s.logger.Error("scrub failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "scrub failed")
			return
		}
		resp.RunID = result.RunID
		resp.Output = result.Output
		resp.Audit = result.Entries
		resp.CacheHit = result.CacheHit
		if req.ReturnFindings {
			resp.Findings = projectFindings(result.Findings)
		}
	} else {
		result, err := s.orchestrator.ProcessRecord(r.Context(), req.Record, rctx)
		if err != nil {
			s.logger.Error("scrub failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "scrub failed")
			return
		}
		resp.RunID = result.RunID
		resp.Record = result.Record
		resp.Audit = result.Entries
	}

	if resp.Audit == nil {
		resp.Audit = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	model := s.policies.Current()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        model.Name,
		"version":     model.Version,
		"fingerprint": model.Fingerprint(),
		"fail_closed": model.FailClosed,
		"rules":       len(model.Rules()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	detectors := make([]string, 0)
	for _, d := range s.registry.Detectors() {
		detectors = append(detectors, d.ID())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "data-sentinel",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"policy":    s.policies.Current().Fingerprint(),
		"detectors": detectors,
	})
}

// systemStatus feeds the event hub's periodic system_status broadcasts.
func (s *Server) systemStatus() events.SystemStatus {
	return events.SystemStatus{
		Status:              "healthy",
		Uptime:              time.Since(s.started).Round(time.Second).String(),
		ActivePolicy:        s.policies.Current().Fingerprint(),
		RegisteredDetectors: len(s.registry.Detectors()),
		ConnectedClients:    s.hub.ActiveClients(),
	}
}

func projectFindings(findings []detect.Finding) []FindingView {
	views := make([]FindingView, len(findings))
	for i, f := range findings {
		views[i] = FindingView{
			Type:       f.Type,
			Field:      f.Field,
			Start:      f.Span.Start,
			End:        f.Span.End,
			Confidence: f.Confidence,
			Detector:   f.Detector,
		}
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
