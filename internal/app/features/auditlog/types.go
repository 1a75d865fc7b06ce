// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
)

// Item is one audit event with the actor's name resolved.
type Item struct {
	audit.Event
	ActorName string `json:"actorName,omitempty"`
}

// Page is one page of audit events, newest first.
type Page struct {
	Items      []Item            `json:"items"`
	Pagination paging.Pagination `json:"pagination"`
}

// Category is a filter option with the event types it groups.
type Category struct {
	Value      string   `json:"value"`
	Label      string   `json:"label"`
	EventTypes []string `json:"eventTypes"`
}

// dateLayout is the format of ?startDate and ?endDate.
const dateLayout = "2006-01-02"

func allCategories() []Category {
	return []Category{
		{Value: audit.CategoryAuth, Label: "Authentication", EventTypes: eventTypesForCategory(audit.CategoryAuth)},
		{Value: audit.CategoryAdmin, Label: "Administration", EventTypes: eventTypesForCategory(audit.CategoryAdmin)},
	}
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUnknownEmail,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
		audit.EventResetCodeSent,
		audit.EventResetCodeFailed,
		audit.EventPasswordReset,
	}

	adminEvents := []string{
		audit.EventPaymentCreated,
		audit.EventPaymentConfirmed,
		audit.EventChitCreated,
		audit.EventChitUpdated,
		audit.EventChitDeleted,
		audit.EventMemberCreated,
		audit.EventMemberUpdated,
		audit.EventMemberDeleted,
		audit.EventTransactionCreated,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return all
	default:
		return nil
	}
}

func validEventType(category, eventType string) bool {
	for _, et := range eventTypesForCategory(category) {
		if et == eventType {
			return true
		}
	}
	return false
}

// endOfDay is the last instant of the UTC day t falls on.
func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}
