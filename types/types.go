// Package types defines the domain records shared across the data layer.
package types

import "time"

// TravelStyle is how a user gets around.
type TravelStyle string

const (
	TravelBike    TravelStyle = "bike"
	TravelCar     TravelStyle = "car"
	TravelTrain   TravelStyle = "train"
	TravelWalking TravelStyle = "walking"
	TravelBicycle TravelStyle = "bicycle"
)

// ExperienceLevel is how familiar a user is with traveling the region.
type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "beginner"
	LevelIntermediate ExperienceLevel = "intermediate"
	LevelExpert       ExperienceLevel = "expert"
	LevelLocal        ExperienceLevel = "local"
)

// Interest tags a user's travel interests.
type Interest string

const (
	InterestOnsen       Interest = "onsen"
	InterestGourmet     Interest = "gourmet"
	InterestScenery     Interest = "scenery"
	InterestCulture     Interest = "culture"
	InterestCamping     Interest = "camping"
	InterestPhotography Interest = "photography"
	InterestOutdoor     Interest = "outdoor"
)

// Region identifies an area of Hokkaido.
type Region string

const (
	RegionAll    Region = "all"
	RegionDohoku Region = "dohoku"
	RegionDoou   Region = "doou"
	RegionDounan Region = "dounan"
	RegionDoutou Region = "doutou"
)

// PostType categorizes a post.
type PostType string

const (
	PostStatus PostType = "status"
	PostSpot   PostType = "spot"
	PostInfo   PostType = "info"
	PostHelp   PostType = "help"
	PostLog    PostType = "log"
)

// Visibility controls who can see a post or track.
// The "friends" level is modeled but no read path filters by it yet.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// User is the local user profile. Identity is immutable after creation;
// profile fields are mutable.
type User struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	AvatarURL            string          `json:"avatar_url,omitempty"`
	Bio                  string          `json:"bio,omitempty"`
	TravelStyle          []TravelStyle   `json:"travel_style"`
	ExperienceLevel      ExperienceLevel `json:"experience_level"`
	Interests            []Interest      `json:"interests"`
	LocationSharingLevel int             `json:"location_sharing_level"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Post is a user-authored content record. Append-only once saved.
type Post struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Content       string                 `json:"content"`
	Images        []string               `json:"images,omitempty"`
	PostType      PostType               `json:"post_type"`
	LocationName  string                 `json:"location_name,omitempty"`
	Lat           float64                `json:"lat,omitempty"`
	Lng           float64                `json:"lng,omitempty"`
	Region        Region                 `json:"region"`
	Tags          []string               `json:"tags"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Visibility    Visibility             `json:"visibility"`
	LikesCount    int                    `json:"likes_count"`
	CommentsCount int                    `json:"comments_count"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// SavedPost pairs a Post with the time it was written locally.
type SavedPost struct {
	Post
	SavedAt time.Time `json:"savedAt"`
}

// OfflinePost is a Post queued in the outbox for later transmission.
type OfflinePost struct {
	Post
	NeedsSync bool `json:"needsSync"`
}

// LocationPoint is a single geo-timestamped sample.
type LocationPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Altitude  float64 `json:"altitude,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
}

// TrackMetadata describes a recorded track.
type TrackMetadata struct {
	Name        string      `json:"name"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     time.Time   `json:"endTime"`
	Distance    float64     `json:"distance"`
	TravelStyle TravelStyle `json:"travelStyle"`
	Region      Region      `json:"region"`
}

// Track is an ordered sequence of points plus metadata.
type Track struct {
	Points   []LocationPoint `json:"points"`
	Metadata TrackMetadata   `json:"metadata"`
	SavedAt  time.Time       `json:"savedAt,omitempty"`
}

// SpotCategory classifies a spot.
type SpotCategory string

const (
	SpotAccommodation SpotCategory = "accommodation"
	SpotCamping       SpotCategory = "camping"
	SpotFuel          SpotCategory = "fuel"
	SpotFood          SpotCategory = "food"
	SpotSightseeing   SpotCategory = "sightseeing"
	SpotOnsen         SpotCategory = "onsen"
	SpotService       SpotCategory = "service"
	SpotShopping      SpotCategory = "shopping"
	SpotCommunication SpotCategory = "communication"
)

// Spot is a point of interest.
type Spot struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    SpotCategory `json:"category"`
	Subcategory string       `json:"subcategory,omitempty"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	Address     string       `json:"address,omitempty"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

// FavoriteSpot pairs a Spot with the time it was saved.
type FavoriteSpot struct {
	Spot
	SavedAt time.Time `json:"savedAt"`
}

// Theme is the UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Settings holds user preferences.
type Settings struct {
	Theme           Theme `json:"theme"`
	Notifications   bool  `json:"notifications"`
	LocationSharing int   `json:"locationSharing"`
	AutoBackup      bool  `json:"autoBackup"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		Theme:           ThemeLight,
		Notifications:   true,
		LocationSharing: 2,
		AutoBackup:      true,
	}
}
