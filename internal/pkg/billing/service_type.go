package billing

import (
	"fmt"
	"strings"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
)

// ServiceType is the vendor category a listing belongs to. Each category has
// its own listing table.
type ServiceType string

const (
	ServiceVenue          ServiceType = "venue"
	ServiceHairMakeup     ServiceType = "hairMakeup"
	ServicePhotoVideo     ServiceType = "photoVideo"
	ServiceDJ             ServiceType = "dj"
	ServiceWeddingPlanner ServiceType = "weddingPlanner"
)

// AllServiceTypes lists every category in display order.
var AllServiceTypes = []ServiceType{
	ServiceVenue,
	ServiceHairMakeup,
	ServicePhotoVideo,
	ServiceDJ,
	ServiceWeddingPlanner,
}

// ParseServiceType accepts the camelCase form used in metadata as well as
// snake_case and kebab-case spellings.
func ParseServiceType(raw string) (ServiceType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "venue":
		return ServiceVenue, nil
	case "hairmakeup":
		return ServiceHairMakeup, nil
	case "photovideo":
		return ServicePhotoVideo, nil
	case "dj":
		return ServiceDJ, nil
	case "weddingplanner":
		return ServiceWeddingPlanner, nil
	default:
		return "", fmt.Errorf("unknown service type %q", raw)
	}
}

// listingModel returns the GORM model whose table holds listings of this
// category.
func (s ServiceType) listingModel() (interface{}, error) {
	switch s {
	case ServiceVenue:
		return &models.VenueListing{}, nil
	case ServiceHairMakeup:
		return &models.HairMakeupListing{}, nil
	case ServicePhotoVideo:
		return &models.PhotoVideoListing{}, nil
	case ServiceDJ:
		return &models.DJListing{}, nil
	case ServiceWeddingPlanner:
		return &models.WeddingPlannerListing{}, nil
	default:
		return nil, fmt.Errorf("unknown service type %q", string(s))
	}
}

// EnvKey is the upper-case token used in price configuration keys.
func (s ServiceType) EnvKey() string {
	switch s {
	case ServiceHairMakeup:
		return "HAIR_MAKEUP"
	case ServicePhotoVideo:
		return "PHOTO_VIDEO"
	case ServiceWeddingPlanner:
		return "WEDDING_PLANNER"
	default:
		return strings.ToUpper(string(s))
	}
}
