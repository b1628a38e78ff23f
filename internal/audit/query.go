package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backoffice/internal/authz"
	"backoffice/internal/models"
)

// Filter narrows an audit query. Every field is optional; set fields are
// combined with AND.
type Filter struct {
	CompanyID *uuid.UUID
	AuthorID  *uuid.UUID
	Action    string
	From      *time.Time
	To        *time.Time
	Search    string
}

// Page bounds a listing. Limit defaults to 50 and is capped at 200.
type Page struct {
	Limit  int
	Offset int
}

// Stats summarizes audit activity within the caller's visible scope.
type Stats struct {
	TotalEvents     int64            `json:"total_events"`
	RecentEvents    int64            `json:"recent_events_24h"`
	DistinctAuthors int64            `json:"distinct_active_authors"`
	ByAction        map[string]int64 `json:"events_by_action_type"`
}

// scoped builds a fresh query with tenant scope and filters applied. Tenant
// scope is injected at the SQL layer for non-SUPER_ADMIN callers before any
// explicit filter is considered.
func (r *Recorder) scoped(ctx context.Context, actor authz.Actor, f Filter) (*gorm.DB, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLog{})
	q = authz.ScopeToCompany(actor, q, "company_id")
	if f.CompanyID != nil {
		if err := authz.CanAccessCompany(actor, *f.CompanyID); err != nil {
			return nil, err
		}
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.AuthorID != nil {
		q = q.Where("author_id = ?", *f.AuthorID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		q = q.Where("(action ILIKE ? OR details::text ILIKE ?)", pat, pat)
	}
	return q, nil
}

// List returns matching audit rows, newest first, plus the total match count.
func (r *Recorder) List(ctx context.Context, actor authz.Actor, f Filter, p Page) ([]models.AuditLog, int64, error) {
	q, err := r.scoped(ctx, actor, f)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}

	q, err = r.scoped(ctx, actor, f)
	if err != nil {
		return nil, 0, err
	}
	var logs []models.AuditLog
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// QueryStats aggregates totals, last-24h activity, distinct authors, and a
// per-action breakdown for the caller's visible scope.
func (r *Recorder) QueryStats(ctx context.Context, actor authz.Actor, f Filter) (Stats, error) {
	out := Stats{ByAction: map[string]int64{}}

	q, err := r.scoped(ctx, actor, f)
	if err != nil {
		return Stats{}, err
	}
	if err := q.Count(&out.TotalEvents).Error; err != nil {
		return Stats{}, err
	}

	q, _ = r.scoped(ctx, actor, f)
	since := time.Now().Add(-24 * time.Hour)
	if err := q.Where("created_at >= ?", since).Count(&out.RecentEvents).Error; err != nil {
		return Stats{}, err
	}

	q, _ = r.scoped(ctx, actor, f)
	if err := q.Where("author_id IS NOT NULL").Distinct("author_id").Count(&out.DistinctAuthors).Error; err != nil {
		return Stats{}, err
	}

	q, _ = r.scoped(ctx, actor, f)
	var rows []struct {
		Action string
		Count  int64
	}
	if err := q.Select("action, COUNT(*) as count").Group("action").Scan(&rows).Error; err != nil {
		return Stats{}, err
	}
	for _, row := range rows {
		out.ByAction[row.Action] = row.Count
	}
	return out, nil
}
