package profile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/embedding"
	"github.com/podlove/podlove-backend/internal/repository"
)

type ProfileUseCase struct {
	userRepo   repository.UserRepository
	embeddings *embedding.Service
	log        zerolog.Logger
}

func NewProfileUseCase(userRepo repository.UserRepository, embeddings *embedding.Service, log zerolog.Logger) *ProfileUseCase {
	return &ProfileUseCase{
		userRepo:   userRepo,
		embeddings: embeddings,
		log:        log.With().Str("component", "profile").Logger(),
	}
}

// UpdateProfileRequest represents profile update request
type UpdateProfileRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Gender      *string  `json:"gender" binding:"omitempty,oneof=male female non-binary"`
	BodyType    *string  `json:"body_type" binding:"omitempty,oneof=slim average athletic curvy plus-size"`
	Ethnicity   *string  `json:"ethnicity"`
	Bio         *string  `json:"bio" binding:"omitempty,max=2000"`
	Interests   []string `json:"interests" binding:"omitempty,max=20"`
	Personality *struct {
		Spectrum int `json:"spectrum" binding:"required,min=1,max=7"`
		Balance  int `json:"balance" binding:"required,min=1,max=7"`
		Focus    int `json:"focus" binding:"required,min=1,max=7"`
	} `json:"personality"`
	Location *struct {
		Place string  `json:"place" binding:"required"`
		Lat   float64 `json:"lat" binding:"min=-90,max=90"`
		Lon   float64 `json:"lon" binding:"min=-180,max=180"`
	} `json:"location"`
	Preferences *struct {
		Genders          []string `json:"genders"`
		AgeMin           int      `json:"age_min" binding:"omitempty,min=18,max=100"`
		AgeMax           int      `json:"age_max" binding:"omitempty,min=18,max=100"`
		BodyTypes        []string `json:"body_types"`
		Ethnicities      []string `json:"ethnicities"`
		MaxDistanceMiles *int     `json:"max_distance_miles" binding:"omitempty,min=1,max=10000"`
	} `json:"preferences"`
	CompatibilityAnswers []string `json:"compatibility_answers" binding:"omitempty,max=20"`
	SurveyAnswers        []string `json:"survey_answers" binding:"omitempty,max=50"`
}

func (uc *ProfileUseCase) Get(ctx context.Context, userID int) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

// Update applies the request to the stored profile and refreshes the
// user's vector index entry. The index sync is best-effort: its failure
// never fails the profile save.
func (uc *ProfileUseCase) Update(ctx context.Context, userID int, req *UpdateProfileRequest) (*domain.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyUpdate(user, req)

	if user.Preferences.AgeMin > 0 && user.Preferences.AgeMax > 0 &&
		user.Preferences.AgeMin > user.Preferences.AgeMax {
		return nil, domain.ErrInvalidInput
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if user.ProfileComplete() {
		// Sync logs and counts its own failures.
		_ = uc.embeddings.Sync(ctx, user)
	}

	return user, nil
}

// Delete removes the account and its index entry. The index delete is
// best-effort; a stale entry is filtered out at query time.
func (uc *ProfileUseCase) Delete(ctx context.Context, userID int) error {
	if err := uc.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	_ = uc.embeddings.Remove(ctx, userID)
	return nil
}

// RebuildIndex re-embeds every complete profile in rate-limited batches
// and returns the number synced.
func (uc *ProfileUseCase) RebuildIndex(ctx context.Context) (int, error) {
	users, err := uc.userRepo.ListComplete(ctx)
	if err != nil {
		return 0, err
	}
	return uc.embeddings.SyncAll(ctx, users), nil
}

func applyUpdate(user *domain.User, req *UpdateProfileRequest) {
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Gender != nil {
		user.Gender = domain.Gender(*req.Gender)
	}
	if req.BodyType != nil {
		user.BodyType = domain.BodyType(*req.BodyType)
	}
	if req.Ethnicity != nil {
		user.Ethnicity = domain.Ethnicity(*req.Ethnicity)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Interests != nil {
		user.Interests = req.Interests
	}
	if req.Personality != nil {
		user.Personality = domain.Personality{
			Spectrum: req.Personality.Spectrum,
			Balance:  req.Personality.Balance,
			Focus:    req.Personality.Focus,
		}
	}
	if req.Location != nil {
		lat, lon := req.Location.Lat, req.Location.Lon
		user.Location = domain.Location{Place: req.Location.Place, Lat: &lat, Lon: &lon}
	}
	if req.Preferences != nil {
		p := req.Preferences
		prefs := domain.Preferences{
			AgeMin:           p.AgeMin,
			AgeMax:           p.AgeMax,
			MaxDistanceMiles: p.MaxDistanceMiles,
		}
		for _, g := range p.Genders {
			prefs.Genders = append(prefs.Genders, domain.Gender(g))
		}
		for _, b := range p.BodyTypes {
			prefs.BodyTypes = append(prefs.BodyTypes, domain.BodyType(b))
		}
		for _, e := range p.Ethnicities {
			prefs.Ethnicities = append(prefs.Ethnicities, domain.Ethnicity(e))
		}
		user.Preferences = prefs
	}
	if req.CompatibilityAnswers != nil {
		user.CompatibilityAnswers = req.CompatibilityAnswers
	}
	if req.SurveyAnswers != nil {
		user.SurveyAnswers = req.SurveyAnswers
	}
}
