package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/monitoring"
	"github.com/sells-group/complaint-cli/internal/pipeline"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/internal/store"
)

// maxBodyBytes bounds a submitted complaint.
const maxBodyBytes = 1 << 20

type submitRequest struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"external_id"`
	Source          string    `json:"source"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ConsumerName    string    `json:"consumer_name"`
	ConsumerContact string    `json:"consumer_contact"`
	CompanyName     string    `json:"company_name"`
	Channel         string    `json:"channel"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	ProductCategory string    `json:"product_category"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r submitRequest) record() *model.ComplaintRecord {
	kind, ok := model.ParseSourceKind(r.Source)
	if !ok {
		kind = model.SourceKind(r.Source)
	}
	return &model.ComplaintRecord{
		ID:              r.ID,
		ExternalID:      r.ExternalID,
		Source:          kind,
		Title:           r.Title,
		Description:     r.Description,
		ConsumerName:    r.ConsumerName,
		ConsumerContact: r.ConsumerContact,
		CompanyName:     r.CompanyName,
		Channel:         r.Channel,
		City:            r.City,
		State:           r.State,
		ProductCategory: r.ProductCategory,
		CreatedAt:       r.CreatedAt,
	}
}

type submitResponse struct {
	State     *model.WorkflowState `json:"state"`
	Duplicate bool                 `json:"duplicate"`
}

type dispatchResponse struct {
	Op    dispatch.Op          `json:"op"`
	State *model.WorkflowState `json:"state"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, resilience.NewValidationError("body", "invalid JSON"))
		return
	}

	sub, err := s.svc.Submit(r.Context(), req.record())
	if err != nil {
		writeError(w, err)
		return
	}

	if !sub.State.Status.Halted() {
		s.disp.Go(s.base, dispatch.Request{ID: sub.State.ComplaintID, Op: dispatch.OpProcess})
	}
	writeJSON(w, http.StatusAccepted, submitResponse{State: sub.State, Duplicate: sub.Duplicate})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.GetState(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	limit, err := s.limit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	evs, err := s.svc.Events(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if evs == nil {
		evs = []model.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) resume(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, dispatch.Request{ID: chi.URLParam(r, "id"), Op: dispatch.OpResume})
}

func (s *Server) reprocess(w http.ResponseWriter, r *http.Request) {
	supersede := false
	if v := r.URL.Query().Get("supersede_ticket"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, resilience.NewValidationError("supersede_ticket", "must be a boolean"))
			return
		}
		supersede = b
	}
	s.dispatch(w, r, dispatch.Request{
		ID:        chi.URLParam(r, "id"),
		Op:        dispatch.OpReprocess,
		Reprocess: pipeline.ReprocessOptions{SupersedeTicket: supersede},
	})
}

// dispatch starts req in the background after checking that the complaint
// exists and is not running a different operation.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req dispatch.Request) {
	st, err := s.svc.GetState(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if op, ok := s.disp.InFlight(req.ID); ok && op != req.Op {
		writeError(w, eris.Wrapf(dispatch.ErrInFlight, "%s running for %s", op, req.ID))
		return
	}
	s.disp.Go(s.base, req)
	writeJSON(w, http.StatusAccepted, dispatchResponse{Op: req.Op, State: st})
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.StateFilter{}

	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := model.Status(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				writeError(w, resilience.NewValidationError("status", "unknown status "+part))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := q.Get("source"); raw != "" {
		kind, ok := model.ParseSourceKind(raw)
		if !ok {
			writeError(w, resilience.NewValidationError("source", "unknown source kind "+raw))
			return
		}
		filter.Source = kind
	}
	limit, err := s.limit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter.Limit = limit

	states, err := s.svc.ListPending(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if states == nil {
		states = []model.WorkflowState{}
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, resilience.NewValidationError("limit", "must be a non-negative integer")
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	return n, nil
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.Collect(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Uptime   string                 `json:"uptime"`
	Active   int                    `json:"active_runs"`
	Capacity int                    `json:"max_concurrent"`
	Alerts   *monitoring.AlertState `json:"alerts,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.started).Truncate(time.Second).String(),
		Active:   s.disp.Active(),
		Capacity: s.disp.Limit(),
	}
	if s.alerter != nil {
		st := s.alerter.State()
		resp.Alerts = &st
		if !st.Healthy {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
