package domain

import "time"

type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non-binary"
)

type BodyType string

const (
	BodySlim     BodyType = "slim"
	BodyAverage  BodyType = "average"
	BodyAthletic BodyType = "athletic"
	BodyCurvy    BodyType = "curvy"
	BodyPlus     BodyType = "plus-size"
)

type Ethnicity string

const (
	EthnicityAsian         Ethnicity = "asian"
	EthnicityBlack         Ethnicity = "black"
	EthnicityHispanic      Ethnicity = "hispanic"
	EthnicityMiddleEastern Ethnicity = "middle-eastern"
	EthnicityNativeAm      Ethnicity = "native-american"
	EthnicityPacific       Ethnicity = "pacific-islander"
	EthnicityWhite         Ethnicity = "white"
	EthnicityMixed         Ethnicity = "mixed"
	EthnicityOther         Ethnicity = "other"
)

// Personality holds the three questionnaire axes, each on a 1-7 scale.
type Personality struct {
	Spectrum int `json:"spectrum"`
	Balance  int `json:"balance"`
	Focus    int `json:"focus"`
}

type Location struct {
	Place string   `json:"place"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

// Preferences are the hard match filters a user configures.
type Preferences struct {
	Genders          []Gender    `json:"genders"`
	AgeMin           int         `json:"age_min"`
	AgeMax           int         `json:"age_max"`
	BodyTypes        []BodyType  `json:"body_types"`
	Ethnicities      []Ethnicity `json:"ethnicities"`
	MaxDistanceMiles *int        `json:"max_distance_miles"`
}

type Plan string

const (
	PlanStarter Plan = "STARTER"
	PlanSeeker  Plan = "SEEKER"
	PlanElite   Plan = "ELITE"
)

// Capacity returns the number of podcast participants the plan entitles
// the subscriber to. Unknown plans get the starter capacity.
func (p Plan) Capacity() int {
	switch p {
	case PlanSeeker:
		return 3
	case PlanElite:
		return 4
	default:
		return 2
	}
}

func (p Plan) Valid() bool {
	return p == PlanStarter || p == PlanSeeker || p == PlanElite
}

// Spotlights is the boost count granted on each paid period. The core
// treats it as an opaque counter.
func (p Plan) Spotlights() int {
	switch p {
	case PlanSeeker:
		return 2
	case PlanElite:
		return 3
	default:
		return 1
	}
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

type Subscription struct {
	Plan           Plan               `json:"plan"`
	Fee            float64            `json:"fee"`
	Status         SubscriptionStatus `json:"status"`
	StartedAt      *time.Time         `json:"started_at"`
	ExpiresAt      *time.Time         `json:"expires_at"`
	SpotlightsLeft int                `json:"spotlights_left"`
}

type User struct {
	ID                   int          `json:"id"`
	Email                string       `json:"email"`
	PasswordHash         string       `json:"-"`
	Name                 string       `json:"name"`
	Gender               Gender       `json:"gender"`
	BodyType             BodyType     `json:"body_type"`
	Ethnicity            Ethnicity    `json:"ethnicity"`
	DateOfBirth          *time.Time   `json:"date_of_birth"`
	Bio                  string       `json:"bio"`
	Interests            []string     `json:"interests"`
	Personality          Personality  `json:"personality"`
	Location             Location     `json:"location"`
	Preferences          Preferences  `json:"preferences"`
	CompatibilityAnswers []string     `json:"compatibility_answers"`
	SurveyAnswers        []string     `json:"survey_answers"`
	Subscription         Subscription `json:"subscription"`
	IsPodcastActive      bool         `json:"is_podcast_active"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// Age returns the user's whole-year age at the given instant, or 0 when
// the date of birth is unknown. The year count decrements when now's
// month/day precedes the birth month/day.
func (u *User) Age(now time.Time) int {
	if u.DateOfBirth == nil {
		return 0
	}
	dob := u.DateOfBirth.UTC()
	now = now.UTC()

	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// HasCoordinates reports whether the profile carries a usable location.
func (u *User) HasCoordinates() bool {
	return u.Location.Lat != nil && u.Location.Lon != nil
}

// ProfileComplete reports whether the profile carries enough free-text
// material to be embedded and surfaced to the matcher.
func (u *User) ProfileComplete() bool {
	return u.Bio != "" || len(u.Interests) > 0 || len(u.CompatibilityAnswers) > 0
}
