package facilities

// Candidate is a referral facility returned by the directory.
type Candidate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Specialties []string `json:"specialties"`
	// TraumaLevel is the trauma-capability level, 0 meaning none.
	TraumaLevel int `json:"trauma_level"`
	// ETAMinutes is the estimated time to reach the facility.
	ETAMinutes float64 `json:"eta_min"`
}

// Ranked is a scored referral suggestion. Derived, never stored.
type Ranked struct {
	FacilityID string   `json:"facility_id"`
	Name       string   `json:"name"`
	Score      float64  `json:"score"`
	Why        []string `json:"why"`
}

// SearchRequest is the directory search payload.
type SearchRequest struct {
	Location        string `json:"location"`
	RadiusKm        int    `json:"radius_km"`
	SpecialtyNeeded string `json:"specialty_needed,omitempty"`
	Urgency         string `json:"urgency"`
}

type searchResponse struct {
	Facilities []Candidate `json:"facilities"`
}

// Capabilities describes one facility's capability details.
type Capabilities struct {
	FacilityID   string   `json:"facility_id"`
	Specialties  []string `json:"specialties"`
	TraumaLevel  int      `json:"trauma_level"`
	Beds         int      `json:"beds,omitempty"`
	EmergencyDpt bool     `json:"emergency_department,omitempty"`
}
