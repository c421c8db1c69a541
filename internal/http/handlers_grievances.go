package httpx

import (
	"errors"
	"net/http"
	"strings"

	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/domain/model"
	"github.com/civicconnect/portal/internal/service"
)

// GrievanceHandlers serves the grievance form API and the dashboards.
type GrievanceHandlers struct {
	Grievances *service.GrievanceService
	Drafts     *service.DraftService
}

// CreateDraft opens a new grievance draft for the caller.
// POST /api/grievances/drafts.
func (h *GrievanceHandlers) CreateDraft(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	d, err := h.Drafts.Create(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, "create_failed", err)
		return
	}
	WriteJSON(w, http.StatusCreated, d)
}

// DraftLocation returns the location currently selected on a draft.
// GET /api/grievances/drafts/{id}/location.
func (h *GrievanceHandlers) DraftLocation(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	loc, err := h.Drafts.Location(r.Context(), r.PathValue("id"), sess.UserID)
	if err != nil {
		writeServiceError(w, "get_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, loc)
}

// DiscardDraft abandons one of the caller's drafts.
// DELETE /api/grievances/drafts/{id}.
func (h *GrievanceHandlers) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.Drafts.Discard(r.Context(), r.PathValue("id"), mustSession(r).UserID); err != nil {
		writeServiceError(w, "delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit files a grievance at the draft's selected location.
// POST /api/grievances.
func (h *GrievanceHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.CreateGrievanceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	g, err := h.Grievances.Submit(r.Context(), *mustSession(r), req)
	if err != nil {
		writeServiceError(w, "create_failed", err)
		return
	}
	WriteJSON(w, http.StatusCreated, g)
}

// ListMine lists the caller's grievances, newest first.
// GET /api/grievances?limit=&offset=.
func (h *GrievanceHandlers) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, offset := listPage(r)
	items, err := h.Grievances.ListMine(r.Context(), mustSession(r).UserID, limit, offset)
	if err != nil {
		writeServiceError(w, "list_failed", err)
		return
	}
	if items == nil {
		items = []*model.Grievance{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"grievances": items,
		"limit":      limit,
		"offset":     offset,
	})
}

// ListAll lists every grievance for reviewers, optionally by status.
// GET /api/admin/grievances?status=&limit=&offset=.
func (h *GrievanceHandlers) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, offset := listPage(r)
	opts := model.GrievanceListOptions{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := model.ParseGrievanceStatus(raw)
		if !ok {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation_failed",
				Err:     errors.New("status must be one of: pending, in_progress, resolved, rejected, closed"),
				Field:   "status",
			})
			return
		}
		opts.Status = &status
	}

	items, err := h.Grievances.ListAll(r.Context(), opts)
	if err != nil {
		writeServiceError(w, "list_failed", err)
		return
	}
	if items == nil {
		items = []*model.Grievance{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"grievances": items,
		"limit":      limit,
		"offset":     offset,
	})
}

// Edit changes the caller's own grievance while it is still pending.
// PUT /api/grievances/{id}.
func (h *GrievanceHandlers) Edit(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateGrievanceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	g, err := h.Grievances.Edit(r.Context(), *mustSession(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, "update_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// UpdateStatus moves a grievance through review.
// PUT /api/admin/grievances/{id}/status.
func (h *GrievanceHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	g, err := h.Grievances.UpdateStatus(r.Context(), *mustSession(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, "update_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// Track looks a grievance up by its tracking number. Only reviewers see
// grievances filed by someone else.
// GET /api/grievances/track/{tracking}.
func (h *GrievanceHandlers) Track(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	g, err := h.Grievances.Track(r.Context(), strings.TrimSpace(r.PathValue("tracking")))
	if err != nil {
		writeServiceError(w, "get_failed", err)
		return
	}
	if !visibleTo(sess, g) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("grievance not found")})
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// Dashboard sends the visitor to the dashboard for their role.
// GET /dashboard.
func (h *GrievanceHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, service.LandingPath(mustSession(r).Role), http.StatusSeeOther)
}

// CitizenDashboard summarises the caller's own grievances.
// GET /dashboard/citizen.
func (h *GrievanceHandlers) CitizenDashboard(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	summary, err := h.Grievances.Summary(r.Context(), &sess.UserID)
	if err != nil {
		writeServiceError(w, "summary_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, dashboardView{User: userOf(*sess), Summary: summary})
}

// AdminDashboard summarises every grievance.
// GET /dashboard/admin.
func (h *GrievanceHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Grievances.Summary(r.Context(), nil)
	if err != nil {
		writeServiceError(w, "summary_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, dashboardView{User: userOf(*mustSession(r)), Summary: summary})
}

// visibleTo reports whether sess may read g: reporters see their own,
// reviewers see all.
func visibleTo(sess *domainauth.Session, g *model.Grievance) bool {
	return g.ReporterID == sess.UserID || reviewerRoles.Contains(sess.Role)
}

type dashboardView struct {
	User    sessionUser               `json:"user"`
	Summary *service.GrievanceSummary `json:"summary"`
}

// mustSession returns the session RequireAccess put on the request.
// Handlers using it are only ever mounted behind RequireAccess.
func mustSession(r *http.Request) *domainauth.Session {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		panic("httpx: handler mounted without RequireAccess")
	}
	return sess
}
