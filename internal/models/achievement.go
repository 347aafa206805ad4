package models

// Achievement ids
const (
	AchievementFirstRide  = "first-ride"
	AchievementTenRides   = "ten-rides"
	AchievementFiveShared = "five-shared"
	AchievementNightRide  = "night-ride"
)

// Achievement is a static catalog entry. A rider's earned set lives
// on the Rider document and is write-once per id.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AchievementsList is the static unlock catalog.
var AchievementsList = []Achievement{
	{ID: AchievementFirstRide, Name: "First Journey", Description: "Complete your first ride."},
	{ID: AchievementTenRides, Name: "Campus Veteran", Description: "Complete 10 rides in total."},
	{ID: AchievementFiveShared, Name: "Eco Warrior", Description: "Take 5 shared rides."},
	{ID: AchievementNightRide, Name: "Night Owl", Description: "Complete a ride between 10 PM and 5 AM."},
}

// AchievementByID returns the catalog entry for an id, if present.
func AchievementByID(id string) (Achievement, bool) {
	for _, a := range AchievementsList {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
