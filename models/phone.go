package models

// Confidence is how directly a phone number was tied to a contact mechanism.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Weight orders confidences; unknown values weigh 0.
func (c Confidence) Weight() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// MaxConfidence returns the stronger of a and b.
func MaxConfidence(a, b Confidence) Confidence {
	if b.Weight() > a.Weight() {
		return b
	}
	return a
}

// PhoneDetail is one normalized number with its provenance.
type PhoneDetail struct {
	PhonePtBr  string     `json:"phone_pt_br"`
	PhoneE164  string     `json:"phone_e164"`
	Confidence Confidence `json:"confidence"`
	Sources    []string   `json:"sources"`
}

// PhoneSet is the phone extraction output for one profile.
type PhoneSet struct {
	PhonesPtBr        []string      `json:"phones_pt_br"`
	PhonesE164        []string      `json:"phones_e164"`
	Details           []PhoneDetail `json:"details"`
	PrimaryPtBr       string        `json:"primary_pt_br,omitempty"`
	PrimaryE164       string        `json:"primary_e164,omitempty"`
	PrimaryConfidence Confidence    `json:"primary_confidence,omitempty"`
}
