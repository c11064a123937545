package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/convolab/convoscope/internal/auth"
	"github.com/convolab/convoscope/internal/conv"
	"github.com/convolab/convoscope/internal/filter"
	"github.com/convolab/convoscope/internal/intelligence"
	"github.com/convolab/convoscope/internal/metrics"
	"github.com/convolab/convoscope/internal/search"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeDomainError maps a domain error to its HTTP status.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filter.ErrFilter):
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
	case errors.Is(err, conv.ErrDataFormat):
		writeError(w, http.StatusBadRequest, "data_format", err.Error())
	case errors.Is(err, auth.ErrAuth):
		writeError(w, http.StatusUnauthorized, "auth_failed", err.Error())
	case errors.Is(err, intelligence.ErrCredential):
		writeError(w, http.StatusServiceUnavailable, "credential_missing", err.Error())
	case errors.Is(err, intelligence.ErrAgent):
		writeError(w, http.StatusBadGateway, "agent_error", err.Error())
	default:
		s.logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Unexpected failure")
	}
}

// parseFilter builds a filter from query parameters: start, end
// (YYYY-MM-DD), region (repeatable or comma-separated), q, role,
// hour_start, hour_end.
func parseFilter(r *http.Request) (filter.Filter, error) {
	var f filter.Filter
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"start", &f.Start}, {"end", &f.End}} {
		if v := q.Get(p.name); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return f, eris.Wrapf(filter.ErrFilter, "%s must be YYYY-MM-DD", p.name)
			}
			*p.dst = &t
		}
	}

	for _, v := range q["region"] {
		for _, region := range strings.Split(v, ",") {
			if region = strings.TrimSpace(region); region != "" {
				f.Regions = append(f.Regions, region)
			}
		}
	}

	f.Keyword = q.Get("q")
	f.Role = conv.Role(q.Get("role"))

	for _, p := range []struct {
		name string
		dst  **int
	}{{"hour_start", &f.HourStart}, {"hour_end", &f.HourEnd}} {
		if v := q.Get(p.name); v != "" {
			h, err := strconv.Atoi(v)
			if err != nil {
				return f, eris.Wrapf(filter.ErrFilter, "%s must be an hour 0-23", p.name)
			}
			*p.dst = &h
		}
	}

	return f, f.Validate()
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token on success.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// handleLogin authenticates a user and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be JSON with username and password")
		return
	}

	sess, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Warn("login failed", "remote_addr", r.RemoteAddr)
		s.writeDomainError(w, err)
		return
	}

	token, err := s.sessions.Issue(sess)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("login", "username", sess.Username, "role", sess.Role)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Username: sess.Username,
		Role:     string(sess.Role),
	})
}

// handleLogout revokes the current session token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Revoke(bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// StatsResponse wraps a metrics snapshot with the dataset context.
type StatsResponse struct {
	Regions []string         `json:"regions"`
	Dropped int              `json:"dropped_rows"`
	Stats   metrics.Snapshot `json:"stats"`
}

// handleStats computes aggregate statistics over the filtered view.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ds := s.dataset()
	v, err := filter.Apply(ds, f)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Regions: ds.Regions(),
		Dropped: ds.Dropped,
		Stats:   metrics.Compute(v),
	})
}

// LatencyResponse carries reply-latency statistics.
type LatencyResponse struct {
	ThresholdSeconds float64              `json:"threshold_seconds"`
	Stats            metrics.LatencyStats `json:"stats"`
}

// handleLatency computes reply-latency statistics over the filtered view.
func (s *Server) handleLatency(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	v, err := filter.Apply(s.dataset(), f)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	threshold := s.cfg.Metrics.LatencyThresholdSeconds
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			writeError(w, http.StatusBadRequest, "invalid_threshold", "threshold must be a non-negative number of seconds")
			return
		}
		threshold = t
	}

	writeJSON(w, http.StatusOK, LatencyResponse{
		ThresholdSeconds: threshold,
		Stats:            metrics.ComputeLatency(metrics.Latencies(v), threshold),
	})
}

// ThreadSummary represents a thread in list responses.
type ThreadSummary struct {
	ID       string `json:"id"`
	Region   string `json:"region"`
	Messages int    `json:"messages"`
	First    string `json:"first"`
	Last     string `json:"last"`
}

// ThreadDetail represents a full transcript response.
type ThreadDetail struct {
	ThreadSummary
	Transcript []conv.Message `json:"transcript"`
}

const timeLayout = "2006-01-02T15:04:05Z"

func summarize(t conv.Thread) ThreadSummary {
	return ThreadSummary{
		ID:       t.ID,
		Region:   t.Region(),
		Messages: len(t.Messages),
		First:    t.First().UTC().Format(timeLayout),
		Last:     t.Last().UTC().Format(timeLayout),
	}
}

// handleListThreads returns a paginated thread list over the filtered view.
func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	v, err := filter.Apply(s.dataset(), f)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	threads := v.Threads()
	total := len(threads)
	offset := (page - 1) * pageSize
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	summaries := make([]ThreadSummary, 0, end-offset)
	for _, t := range threads[offset:end] {
		summaries = append(summaries, summarize(t))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"threads":   summaries,
	})
}

// handleGetThread returns a single thread transcript.
func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t := s.dataset().Thread(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "not_found", "Thread not found")
		return
	}

	writeJSON(w, http.StatusOK, ThreadDetail{
		ThreadSummary: summarize(*t),
		Transcript:    t.Messages,
	})
}

// handleSearch searches messages. The query parameter accepts either a
// plain keyword (q) or a full query expression with operators (query).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	if expr := q.Get("query"); expr != "" {
		res, err := search.RunQuery(s.dataset(), search.Parse(expr), limit)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := search.Run(s.dataset(), search.Options{
		Keyword:       q.Get("q"),
		CaseSensitive: q.Get("case_sensitive") == "true",
		Role:          conv.Role(q.Get("role")),
		Region:        q.Get("region"),
		Limit:         limit,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// IntelligenceRequest is one natural-language question.
type IntelligenceRequest struct {
	Question string `json:"question"`
}

// IntelligenceResponse relays the agent's answer verbatim.
type IntelligenceResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// handleIntelligence forwards a question about the dataset to the agent.
func (s *Server) handleIntelligence(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		s.writeDomainError(w, intelligence.ErrCredential)
		return
	}

	var req IntelligenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be JSON with a non-empty question")
		return
	}

	answer, err := s.agent.Answer(r.Context(), s.dataset(), req.Question)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IntelligenceResponse{Question: req.Question, Answer: answer})
}

// UploadResponse reports on a replaced dataset.
type UploadResponse struct {
	Messages int `json:"messages"`
	Threads  int `json:"threads"`
	Dropped  int `json:"dropped_rows"`
}

// handleUploadDataset replaces the loaded dataset with a CSV body.
func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := conv.Load(r.Body)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Uploads honor the same launch-date floor as the startup load.
	if s.cfg.Data.MinDate != "" {
		if min, err := time.Parse("2006-01-02", s.cfg.Data.MinDate); err == nil {
			ds = filter.ApplyMinDate(ds, min)
		}
	}

	s.swapDataset(ds)

	sess, _ := sessionFrom(r.Context())
	s.logger.Info("dataset replaced",
		"username", sess.Username,
		"messages", len(ds.Messages),
		"threads", len(ds.Threads()),
		"dropped", ds.Dropped,
	)

	writeJSON(w, http.StatusOK, UploadResponse{
		Messages: len(ds.Messages),
		Threads:  len(ds.Threads()),
		Dropped:  ds.Dropped,
	})
}
