package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCheckoutMetadata(t *testing.T) {
	md, err := ParseCheckoutMetadata(map[string]string{
		MetadataUserID:      "u1",
		MetadataListingID:   "l1",
		MetadataServiceType: "photoVideo",
		MetadataTierType:    " Premium ",
		MetadataIsAnnual:    "true",
	})
	require.NoError(t, err)
	assert.Equal(t, &CheckoutMetadata{
		UserID:      "u1",
		ListingID:   "l1",
		ServiceType: ServicePhotoVideo,
		TierType:    "premium",
		IsAnnual:    true,
	}, md)
}

func TestParseCheckoutMetadataAcceptsCamelCaseKeys(t *testing.T) {
	md, err := ParseCheckoutMetadata(map[string]string{
		"userId":      "u1",
		"listingId":   "l1",
		"serviceType": "weddingPlanner",
		"tierType":    "basic",
		"isAnnual":    "false",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", md.UserID)
	assert.Equal(t, ServiceWeddingPlanner, md.ServiceType)
	assert.False(t, md.IsAnnual)
}

func TestParseCheckoutMetadataRejectsIncompleteMetadata(t *testing.T) {
	valid := map[string]string{
		MetadataUserID:      "u1",
		MetadataListingID:   "l1",
		MetadataServiceType: "venue",
		MetadataTierType:    "basic",
	}

	for _, key := range []string{MetadataUserID, MetadataListingID, MetadataServiceType, MetadataTierType} {
		t.Run(key, func(t *testing.T) {
			md := map[string]string{}
			for k, v := range valid {
				if k != key {
					md[k] = v
				}
			}
			_, err := ParseCheckoutMetadata(md)
			assert.Error(t, err)
		})
	}
}

func TestCheckoutMetadataRoundTripsThroughMap(t *testing.T) {
	in := CheckoutMetadata{UserID: "u1", ListingID: "l1", ServiceType: ServiceDJ, TierType: "premium", IsAnnual: true}
	out, err := ParseCheckoutMetadata(in.asMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}
