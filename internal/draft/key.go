package draft

import "strings"

const (
	keyPrefix       = "draft"
	markerSuffix    = "_submittedAt"
	unknownSegment  = "unknown"
	keySeparator    = "_"
	maxSegmentBytes = 190
)

// Key is the composite identity of one inspection run, derived from the
// upstream site selection.
type Key struct {
	Organization string
	BusinessUnit string
	Brand        string
	Site         string
}

// String renders the draft record key. Absent segments collapse to
// "unknown" so a partially resolved selection still produces a stable key.
func (k Key) String() string {
	segments := []string{
		keyPrefix,
		segmentOrUnknown(k.Organization),
		segmentOrUnknown(k.BusinessUnit),
		segmentOrUnknown(k.Brand),
		segmentOrUnknown(k.Site),
	}
	return strings.Join(segments, keySeparator)
}

// MarkerKey renders the sibling submitted-marker record key.
func (k Key) MarkerKey() string {
	return k.String() + markerSuffix
}

func segmentOrUnknown(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return unknownSegment
	}
	if len(trimmed) > maxSegmentBytes {
		trimmed = trimmed[:maxSegmentBytes]
	}
	return trimmed
}

// SiteSelection is the handoff record written when a site is chosen
// upstream; the run session reads it to resolve its identity.
type SiteSelection struct {
	Organization string `json:"organization"`
	BusinessUnit string `json:"business_unit"`
	Brand        string `json:"brand"`
	SiteID       string `json:"site_id"`
	SiteLabel    string `json:"site_label"`
	BrandLabel   string `json:"brand_label"`
}

// Key derives the draft key for the selected site.
func (s SiteSelection) Key() Key {
	return Key{
		Organization: s.Organization,
		BusinessUnit: s.BusinessUnit,
		Brand:        s.Brand,
		Site:         s.SiteID,
	}
}
