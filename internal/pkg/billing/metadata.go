package billing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// legacy camelCase keys written by older checkout flows
var metadataAliases = map[string]string{
	MetadataUserID:      "userId",
	MetadataListingID:   "listingId",
	MetadataServiceType: "serviceType",
	MetadataTierType:    "tierType",
	MetadataIsAnnual:    "isAnnual",
}

func metadataValue(md map[string]string, key string) string {
	if v := strings.TrimSpace(md[key]); v != "" {
		return v
	}
	if alias, ok := metadataAliases[key]; ok {
		return strings.TrimSpace(md[alias])
	}
	return ""
}

// ParseCheckoutMetadata validates the listing purchase context of a checkout
// session.
func ParseCheckoutMetadata(md map[string]string) (*CheckoutMetadata, error) {
	st, err := ParseServiceType(metadataValue(md, MetadataServiceType))
	if err != nil {
		return nil, fmt.Errorf("checkout metadata: %w", err)
	}
	out := &CheckoutMetadata{
		UserID:      metadataValue(md, MetadataUserID),
		ListingID:   metadataValue(md, MetadataListingID),
		ServiceType: st,
		TierType:    normalizeTier(metadataValue(md, MetadataTierType)),
		IsAnnual:    parseBool(metadataValue(md, MetadataIsAnnual)),
	}
	if err := validate.Struct(out); err != nil {
		return nil, fmt.Errorf("checkout metadata: %w", err)
	}
	return out, nil
}

func (m CheckoutMetadata) asMap() map[string]string {
	return map[string]string{
		MetadataUserID:      m.UserID,
		MetadataListingID:   m.ListingID,
		MetadataServiceType: string(m.ServiceType),
		MetadataTierType:    m.TierType,
		MetadataIsAnnual:    strconv.FormatBool(m.IsAnnual),
	}
}
