package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/repository"
)

const groupColumns = `
	id, primary_user_id, schedule_date, schedule_day, schedule_time,
	status, recording_url, room_code, created_at, updated_at
`

type podcastRepository struct {
	db *sqlx.DB
}

func NewPodcastRepository(db *sqlx.DB) repository.PodcastRepository {
	return &podcastRepository{db: db}
}

func (r *podcastRepository) Create(ctx context.Context, group *domain.PodcastGroup) error {
	query := `
		INSERT INTO podcast_groups (
			primary_user_id, schedule_date, schedule_day, schedule_time,
			status, recording_url, room_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		group.PrimaryUserID,
		group.Schedule.Date, group.Schedule.Day, group.Schedule.Time,
		group.Status, group.RecordingURL, group.RoomCode,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create podcast group: %w", err)
	}

	for i := range group.Participants {
		p := &group.Participants[i]
		_, err := q(ctx, r.db).ExecContext(ctx, `
			INSERT INTO podcast_participants (
				group_id, user_id, score, is_allow, is_request, is_question_answer
			)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, group.ID, p.UserID, p.Score, p.IsAllow, p.IsRequest, p.IsQuestionAnswer)
		if err != nil {
			return fmt.Errorf("failed to add participant %d: %w", p.UserID, err)
		}
	}
	return nil
}

func (r *podcastRepository) GetByID(ctx context.Context, id int) (*domain.PodcastGroup, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM podcast_groups WHERE id = $1`, id)
	group, err := scanGroup(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *podcastRepository) GetOpenByPrimaryUser(ctx context.Context, userID int) (*domain.PodcastGroup, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM podcast_groups
		 WHERE primary_user_id = $1 AND status <> $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, domain.StatusFinished)
	group, err := scanGroup(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *podcastRepository) HasOpenGroup(ctx context.Context, userID int) (bool, error) {
	var exists bool
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM podcast_groups
			WHERE primary_user_id = $1 AND status <> $2
		)`, userID, domain.StatusFinished,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open groups: %w", err)
	}
	return exists, nil
}

func (r *podcastRepository) GetUserGroups(ctx context.Context, userID int, limit, offset int) ([]*domain.PodcastGroup, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+groupColumns+` FROM podcast_groups
		 WHERE primary_user_id = $1
		    OR id IN (SELECT group_id FROM podcast_participants WHERE user_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.PodcastGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, group := range groups {
		if err := r.loadParticipants(ctx, group); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *podcastRepository) MarkRequested(ctx context.Context, id int) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE podcast_groups SET status = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND status = $3`,
		domain.StatusReqScheduled, id, domain.StatusNotScheduled)
	if err != nil {
		return fmt.Errorf("failed to mark group requested: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	_, err = q(ctx, r.db).ExecContext(ctx,
		`UPDATE podcast_participants SET is_request = true WHERE group_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to flag participants: %w", err)
	}
	return nil
}

func (r *podcastRepository) SetSchedule(ctx context.Context, id int, prev, next domain.Schedule) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE podcast_groups
		 SET schedule_date = $1, schedule_day = $2, schedule_time = $3,
		     status = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5
		   AND schedule_date = $6 AND schedule_day = $7 AND schedule_time = $8
		   AND status IN ($9, $10)`,
		next.Date, next.Day, next.Time,
		domain.StatusScheduled, id,
		prev.Date, prev.Day, prev.Time,
		domain.StatusNotScheduled, domain.StatusReqScheduled)
	if err != nil {
		return fmt.Errorf("failed to set schedule: %w", err)
	}
	if err := requireRow(result); err != nil {
		// Zero rows means either the group is gone or the guard failed.
		// Distinguish so a stale admin view gets a conflict, not a 404.
		var exists bool
		checkErr := q(ctx, r.db).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM podcast_groups WHERE id = $1)`, id,
		).Scan(&exists)
		if checkErr == nil && exists {
			return domain.ErrScheduleMismatch
		}
		return err
	}
	return nil
}

func (r *podcastRepository) StartWhereScheduleMatches(ctx context.Context, id int, schedule domain.Schedule) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE podcast_groups SET status = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2
		   AND schedule_date = $3 AND schedule_day = $4 AND schedule_time = $5
		   AND status = $6`,
		domain.StatusPlaying, id,
		schedule.Date, schedule.Day, schedule.Time,
		domain.StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to start podcast: %w", err)
	}
	return requireRow(result)
}

func (r *podcastRepository) SetRecording(ctx context.Context, id int, url string) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE podcast_groups
		 SET recording_url = $1, status = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3 AND status = $4`,
		url, domain.StatusFinished, id, domain.StatusPlaying)
	if err != nil {
		return fmt.Errorf("failed to set recording: %w", err)
	}
	return requireRow(result)
}

func (r *podcastRepository) loadParticipants(ctx context.Context, group *domain.PodcastGroup) error {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT user_id, score, is_allow, is_request, is_question_answer
		 FROM podcast_participants
		 WHERE group_id = $1
		 ORDER BY score DESC, user_id`,
		group.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	group.Participants = group.Participants[:0]
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.UserID, &p.Score, &p.IsAllow, &p.IsRequest, &p.IsQuestionAnswer); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		group.Participants = append(group.Participants, p)
	}
	return rows.Err()
}

func scanGroup(row rowScanner) (*domain.PodcastGroup, error) {
	var group domain.PodcastGroup
	err := row.Scan(
		&group.ID, &group.PrimaryUserID,
		&group.Schedule.Date, &group.Schedule.Day, &group.Schedule.Time,
		&group.Status, &group.RecordingURL, &group.RoomCode,
		&group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return &group, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}
