package inputval

import (
	"strings"

	"github.com/dalemusser/chitfund/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidObjectID reports whether s (trimmed) is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidPaymentMode accepts "cash" or "online", case-insensitive.
func IsValidPaymentMode(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case models.PaymentModeCash, models.PaymentModeOnline:
		return true
	}
	return false
}

// IsValidEmail performs a structural check of a bare address (no display
// name). Single-label domains such as "localhost" are allowed.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>\"") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if !dotAtomOK(local) || !dotAtomOK(domain) {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		for _, r := range label {
			if !(r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

func dotAtomOK(s string) bool {
	return s != "" && !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".") && !strings.Contains(s, "..")
}
