package domain

import (
	"strings"
	"time"
)

// MomentType categorises a capture for scoring
type MomentType string

const (
	MomentTypeStandard  MomentType = "STANDARD"
	MomentTypeSponsored MomentType = "SPONSORED"
	MomentTypeEmotional MomentType = "EMOTIONAL"
	MomentTypeHistoric  MomentType = "HISTORIC"
)

// ParseMomentType converts a client-supplied value into a MomentType.
// Anything that is not one of the four known values becomes STANDARD.
func ParseMomentType(raw string) MomentType {
	switch mt := MomentType(strings.ToUpper(strings.TrimSpace(raw))); mt {
	case MomentTypeStandard, MomentTypeSponsored, MomentTypeEmotional, MomentTypeHistoric:
		return mt
	default:
		return MomentTypeStandard
	}
}

// MomentTypes lists every moment type in display order
func MomentTypes() []MomentType {
	return []MomentType{MomentTypeStandard, MomentTypeSponsored, MomentTypeEmotional, MomentTypeHistoric}
}

// Capture scoring constants
const (
	// MaxCaptionLength is the longest caption accepted, in runes
	MaxCaptionLength = 280

	// CaptureBaseConstant is the flat value multiplied into every capture score
	CaptureBaseConstant = 10

	// MomentOfGameBonusBase is the crown bonus before the significance multiplier
	MomentOfGameBonusBase = 100
)

// Capture represents a fan photo posted during a live event
type Capture struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	UserID         string     `json:"user_id"`
	ImageRef       string     `json:"image_ref"`
	Caption        *string    `json:"caption,omitempty"`
	MomentType     MomentType `json:"moment_type"`
	IsInStadium    bool       `json:"is_in_stadium"`
	BasePoints     int        `json:"base_points"`
	RallyCount     int        `json:"rally_count"`
	TotalPoints    int        `json:"total_points"`
	IsMomentOfGame bool       `json:"is_moment_of_game"`
	IsReported     bool       `json:"is_reported"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PostCaptureRequest represents a capture submission
type PostCaptureRequest struct {
	EventID     string  `json:"-"`
	UserID      string  `json:"-"`
	ImageRef    string  `json:"image_ref"`
	Caption     *string `json:"caption,omitempty"`
	MomentType  string  `json:"moment_type,omitempty"`
	IsInStadium *bool   `json:"is_in_stadium,omitempty"`
}

// PostCaptureResult represents the response after posting a capture
type PostCaptureResult struct {
	Capture       *Capture `json:"capture"`
	PointsAwarded int      `json:"points_awarded"`
}
