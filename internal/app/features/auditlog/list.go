// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// entityHistoryLimit bounds GET /entity/{id}.
const entityHistoryLimit = 100

// parseFilter reads ?category, ?eventType, ?actorId, ?entityId, ?startDate
// and ?endDate. Dates are whole UTC days, both ends inclusive.
func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	var f audit.QueryFilter

	f.Category = normalize.FilterID(q.Get("category"))
	if f.Category != "" && eventTypesForCategory(f.Category) == nil {
		return f, apierr.Validation("Invalid category.", map[string]string{"category": "must be auth or admin"})
	}
	f.EventType = normalize.FilterID(q.Get("eventType"))
	if f.EventType != "" && !validEventType(f.Category, f.EventType) {
		return f, apierr.Validation("Invalid event type.", map[string]string{"eventType": "unknown event type for this category"})
	}

	var err error
	if f.ActorID, err = inputval.OptionalObjectID("actorId", q.Get("actorId")); err != nil {
		return f, err
	}
	if f.EntityID, err = inputval.OptionalObjectID("entityId", q.Get("entityId")); err != nil {
		return f, err
	}

	if s := normalize.QueryParam(q.Get("startDate")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apierr.Validation("Invalid start date.", map[string]string{"startDate": "must be YYYY-MM-DD"})
		}
		f.StartTime = &t
	}
	if s := normalize.QueryParam(q.Get("endDate")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apierr.Validation("Invalid end date.", map[string]string{"endDate": "must be YYYY-MM-DD"})
		}
		end := endOfDay(t)
		f.EndTime = &end
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return f, apierr.Validation("Invalid date range.", map[string]string{"endDate": "must not be before startDate"})
	}
	return f, nil
}

// ServeList returns audit events newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p := paging.Parse(r)
	f.Limit = int64(p.Limit)
	f.Offset = p.Skip()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit.list")
	defer cancel()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	total, err := h.Events.Count(ctx, f)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	respond.OK(w, "", Page{Items: h.withActorNames(ctx, events), Pagination: paging.Build(p, total)})
}

// ServeEntity returns the recent history of one chit, member, payment or
// transaction.
func (h *Handler) ServeEntity(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.ObjectID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit.entity")
	defer cancel()

	events, err := h.Events.ForEntity(ctx, id, entityHistoryLimit)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "", h.withActorNames(ctx, events))
}

// ServeCategories lists the filter options.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, "", allCategories())
}

// withActorNames resolves actor ids to admin names. Lookup failures leave
// the name blank; the id is still in the event.
func (h *Handler) withActorNames(ctx context.Context, events []audit.Event) []Item {
	names := make(map[primitive.ObjectID]string)
	items := make([]Item, 0, len(events))
	for _, e := range events {
		item := Item{Event: e}
		if e.ActorID != nil {
			name, ok := names[*e.ActorID]
			if !ok {
				if a, err := h.Admins.GetByID(ctx, *e.ActorID); err == nil {
					name = a.Name
				} else {
					h.Log.Debug("audit actor lookup failed", zap.String("actor_id", e.ActorID.Hex()), zap.Error(err))
				}
				names[*e.ActorID] = name
			}
			item.ActorName = name
		}
		items = append(items, item)
	}
	return items
}
