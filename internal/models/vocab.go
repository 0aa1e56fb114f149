package models

// Location is where the pain is felt.
type Location string

const (
	LocationLeftSide    Location = "Left Side"
	LocationRightSide   Location = "Right Side"
	LocationBothSides   Location = "Both Sides"
	LocationFront       Location = "Front"
	LocationBack        Location = "Back"
	LocationBehindEyes  Location = "Behind Eyes"
	LocationUnspecified Location = "Unspecified"
)

var Locations = []Location{
	LocationLeftSide,
	LocationRightSide,
	LocationBothSides,
	LocationFront,
	LocationBack,
	LocationBehindEyes,
	LocationUnspecified,
}

var Symptoms = []string{
	"Nausea",
	"Light Sensitivity",
	"Sound Sensitivity",
	"Aura",
	"Dizziness",
	"Fatigue",
	"Neck Pain",
}

var Triggers = []string{
	"Stress",
	"Lack of Sleep",
	"Weather",
	"Food",
	"Dehydration",
	"Screen Time",
	"Hormones",
	"Exercise",
}

func (l Location) Valid() bool {
	for _, v := range Locations {
		if l == v {
			return true
		}
	}
	return false
}

func IsSymptom(s string) bool { return contains(Symptoms, s) }

func IsTrigger(s string) bool { return contains(Triggers, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
