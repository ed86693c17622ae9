package billing

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
)

// normalizeStatus maps a processor subscription status to the stored value.
// Unknown values are kept verbatim so a new processor state is not lost.
func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "":
		return models.BillingStatusIncomplete
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue,
		models.BillingStatusUnpaid, models.BillingStatusCanceled, models.BillingStatusIncomplete,
		models.BillingStatusIncompleteExpired, models.BillingStatusPaused:
		return s
	default:
		log.Warnf("[Billing] Unknown subscription status %q stored as-is", s)
		return s
	}
}

func normalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
