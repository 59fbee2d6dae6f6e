package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/repository"
)

const userColumns = `
	id, email, password_hash, name, gender, body_type, ethnicity,
	date_of_birth, bio, interests,
	personality_spectrum, personality_balance, personality_focus,
	location_place, location_lat, location_lon,
	pref_genders, pref_age_min, pref_age_max, pref_body_types,
	pref_ethnicities, pref_max_distance_miles,
	compatibility_answers, survey_answers,
	plan, plan_fee, sub_status, sub_started_at, sub_expires_at,
	spotlights_left, is_podcast_active, created_at, updated_at
`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			email, password_hash, name, gender, body_type, ethnicity,
			date_of_birth, bio, interests,
			personality_spectrum, personality_balance, personality_focus,
			location_place, location_lat, location_lon,
			pref_genders, pref_age_min, pref_age_max, pref_body_types,
			pref_ethnicities, pref_max_distance_miles,
			compatibility_answers, survey_answers,
			plan, plan_fee, sub_status, sub_started_at, sub_expires_at,
			spotlights_left, is_podcast_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		RETURNING id, created_at, updated_at
	`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Name,
		user.Gender, user.BodyType, user.Ethnicity,
		user.DateOfBirth, user.Bio, pq.Array(user.Interests),
		user.Personality.Spectrum, user.Personality.Balance, user.Personality.Focus,
		user.Location.Place, user.Location.Lat, user.Location.Lon,
		pq.Array(gendersToStrings(user.Preferences.Genders)),
		user.Preferences.AgeMin, user.Preferences.AgeMax,
		pq.Array(bodyTypesToStrings(user.Preferences.BodyTypes)),
		pq.Array(ethnicitiesToStrings(user.Preferences.Ethnicities)),
		user.Preferences.MaxDistanceMiles,
		pq.Array(user.CompatibilityAnswers), pq.Array(user.SurveyAnswers),
		user.Subscription.Plan, user.Subscription.Fee, user.Subscription.Status,
		user.Subscription.StartedAt, user.Subscription.ExpiresAt,
		user.Subscription.SpotlightsLeft, user.IsPodcastActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, gender = $2, body_type = $3, ethnicity = $4,
		    date_of_birth = $5, bio = $6, interests = $7,
		    personality_spectrum = $8, personality_balance = $9, personality_focus = $10,
		    location_place = $11, location_lat = $12, location_lon = $13,
		    pref_genders = $14, pref_age_min = $15, pref_age_max = $16,
		    pref_body_types = $17, pref_ethnicities = $18, pref_max_distance_miles = $19,
		    compatibility_answers = $20, survey_answers = $21,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $22
		RETURNING updated_at
	`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		user.Name, user.Gender, user.BodyType, user.Ethnicity,
		user.DateOfBirth, user.Bio, pq.Array(user.Interests),
		user.Personality.Spectrum, user.Personality.Balance, user.Personality.Focus,
		user.Location.Place, user.Location.Lat, user.Location.Lon,
		pq.Array(gendersToStrings(user.Preferences.Genders)),
		user.Preferences.AgeMin, user.Preferences.AgeMax,
		pq.Array(bodyTypesToStrings(user.Preferences.BodyTypes)),
		pq.Array(ethnicitiesToStrings(user.Preferences.Ethnicities)),
		user.Preferences.MaxDistanceMiles,
		pq.Array(user.CompatibilityAnswers), pq.Array(user.SurveyAnswers),
		user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListComplete(ctx context.Context) ([]*domain.User, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE bio <> '' OR cardinality(interests) > 0 OR cardinality(compatibility_answers) > 0
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) CompatibilityAnswers(ctx context.Context, userID int) ([]string, error) {
	var answers []string
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT compatibility_answers FROM users WHERE id = $1`, userID,
	).Scan(pq.Array(&answers))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get compatibility answers: %w", err)
	}
	return answers, nil
}

func (r *userRepository) UpdateSubscription(ctx context.Context, userID int, sub domain.Subscription) error {
	query := `
		UPDATE users
		SET plan = $1, plan_fee = $2, sub_status = $3,
		    sub_started_at = $4, sub_expires_at = $5, spotlights_left = $6,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
	`
	result, err := q(ctx, r.db).ExecContext(ctx, query,
		sub.Plan, sub.Fee, sub.Status, sub.StartedAt, sub.ExpiresAt, sub.SpotlightsLeft, userID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetPodcastActive(ctx context.Context, userID int, active bool) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET is_podcast_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		active, userID)
	if err != nil {
		return fmt.Errorf("failed to set podcast active flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user        domain.User
		prefGenders []string
		prefBodies  []string
		prefEths    []string
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.Gender, &user.BodyType, &user.Ethnicity,
		&user.DateOfBirth, &user.Bio, pq.Array(&user.Interests),
		&user.Personality.Spectrum, &user.Personality.Balance, &user.Personality.Focus,
		&user.Location.Place, &user.Location.Lat, &user.Location.Lon,
		pq.Array(&prefGenders), &user.Preferences.AgeMin, &user.Preferences.AgeMax,
		pq.Array(&prefBodies), pq.Array(&prefEths), &user.Preferences.MaxDistanceMiles,
		pq.Array(&user.CompatibilityAnswers), pq.Array(&user.SurveyAnswers),
		&user.Subscription.Plan, &user.Subscription.Fee, &user.Subscription.Status,
		&user.Subscription.StartedAt, &user.Subscription.ExpiresAt,
		&user.Subscription.SpotlightsLeft, &user.IsPodcastActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Preferences.Genders = stringsToGenders(prefGenders)
	user.Preferences.BodyTypes = stringsToBodyTypes(prefBodies)
	user.Preferences.Ethnicities = stringsToEthnicities(prefEths)
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func gendersToStrings(in []domain.Gender) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func bodyTypesToStrings(in []domain.BodyType) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func ethnicitiesToStrings(in []domain.Ethnicity) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func stringsToGenders(in []string) []domain.Gender {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Gender, len(in))
	for i, v := range in {
		out[i] = domain.Gender(v)
	}
	return out
}

func stringsToBodyTypes(in []string) []domain.BodyType {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.BodyType, len(in))
	for i, v := range in {
		out[i] = domain.BodyType(v)
	}
	return out
}

func stringsToEthnicities(in []string) []domain.Ethnicity {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Ethnicity, len(in))
	for i, v := range in {
		out[i] = domain.Ethnicity(v)
	}
	return out
}
