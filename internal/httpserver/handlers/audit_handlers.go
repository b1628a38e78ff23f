package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"backoffice/internal/audit"
	"backoffice/internal/auth"
)

// parseAuditFilter reads the optional, conjunctive query filters. Tenant
// scope is not parsed here; the recorder injects it from the actor.
func parseAuditFilter(r *http.Request) audit.Filter {
	q := r.URL.Query()
	var f audit.Filter
	if v := q.Get("company_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.CompanyID = &id
		}
	}
	if v := q.Get("author_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.AuthorID = &id
		}
	}
	f.Action = q.Get("action")
	f.Search = q.Get("q")
	if v := q.Get("from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &ts
		}
	}
	if v := q.Get("to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &ts
		}
	}
	return f
}

// ListAuditLogs returns matching audit rows plus the total count for paging.
func ListAuditLogs(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFromContext(r.Context())
		f := parseAuditFilter(r)
		var p audit.Page
		p.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
		p.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

		logs, total, err := rec.List(r.Context(), actor, f, p)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"logs": logs, "total": total})
	}
}

// AuditStats summarizes activity within the caller's visible scope.
func AuditStats(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFromContext(r.Context())
		stats, err := rec.QueryStats(r.Context(), actor, parseAuditFilter(r))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, stats)
	}
}
