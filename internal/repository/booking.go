package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"tutorlane/backend/internal/booking"
	"tutorlane/backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// FindCourseEnrollment looks up the enrollment for a course title under one
// profile. Title matching is case-insensitive, mirroring the unique index.
func (r *Repository) FindCourseEnrollment(ctx context.Context, profileID, courseTitle string) (models.CourseEnrollment, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id::text, profile_id::text, course_title, status, sessions_total, sessions_remaining,
	amount_paid_cents, transaction_id, promo_code, discount_cents,
	first_session_date::text, first_session_time, created_at
FROM course_enrollments
WHERE profile_id = $1::uuid AND lower(course_title) = lower($2);`,
		strings.TrimSpace(profileID), strings.TrimSpace(courseTitle))
	out, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CourseEnrollment{}, booking.ErrEnrollmentNotFound
		}
		return models.CourseEnrollment{}, err
	}
	return out, nil
}

// AppendCourseEnrollment inserts one enrollment. A duplicate (profile,
// course title) pair trips the unique index and surfaces as
// booking.ErrEnrollmentExists so racing finalizations collapse onto the
// winner's record.
func (r *Repository) AppendCourseEnrollment(ctx context.Context, enrollment models.CourseEnrollment) (models.CourseEnrollment, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO course_enrollments (
	profile_id, course_title, status, sessions_total, sessions_remaining,
	amount_paid_cents, transaction_id, promo_code, discount_cents,
	first_session_date, first_session_time
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11)
RETURNING id::text, profile_id::text, course_title, status, sessions_total, sessions_remaining,
	amount_paid_cents, transaction_id, promo_code, discount_cents,
	first_session_date::text, first_session_time, created_at;`,
		strings.TrimSpace(enrollment.ProfileID),
		strings.TrimSpace(enrollment.CourseTitle),
		enrollment.Status,
		enrollment.SessionsTotal,
		enrollment.SessionsRemaining,
		enrollment.AmountPaidCents,
		enrollment.TransactionID,
		enrollment.PromoCode,
		enrollment.DiscountCents,
		enrollment.FirstSessionDate,
		enrollment.FirstSessionTime,
	)
	out, err := scanEnrollment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.CourseEnrollment{}, booking.ErrEnrollmentExists
		}
		return models.CourseEnrollment{}, err
	}
	return out, nil
}

// InsertSessionRequests persists one purchase's session batch in a single
// transaction.
func (r *Repository) InsertSessionRequests(ctx context.Context, requests []models.SessionRequest) error {
	if len(requests) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		for _, request := range requests {
			if _, err := tx.Exec(ctx, `
INSERT INTO session_requests (
	profile_id, course_title, subject, student_name, purchase_type,
	session_date, time_slot, payment_status, transaction_id,
	amount_paid_cents, promo_code
)
VALUES ($1::uuid, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11);`,
				strings.TrimSpace(request.ProfileID),
				strings.TrimSpace(request.CourseTitle),
				request.Subject,
				request.StudentName,
				request.PurchaseType,
				request.SessionDate,
				request.TimeSlot,
				request.PaymentStatus,
				request.TransactionID,
				request.AmountPaidCents,
				request.PromoCode,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSessionRequests returns the stored batch for one profile and course,
// ordered by date.
func (r *Repository) ListSessionRequests(ctx context.Context, profileID, courseTitle string) ([]models.SessionRequest, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, profile_id::text, course_title, subject, student_name, teacher_id::text,
	purchase_type, session_date::text, time_slot, payment_status, transaction_id,
	amount_paid_cents, promo_code, created_at
FROM session_requests
WHERE profile_id = $1::uuid AND lower(course_title) = lower($2)
ORDER BY session_date;`, strings.TrimSpace(profileID), strings.TrimSpace(courseTitle))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SessionRequest
	for rows.Next() {
		var request models.SessionRequest
		var teacherID sql.NullString
		if err := rows.Scan(
			&request.ID,
			&request.ProfileID,
			&request.CourseTitle,
			&request.Subject,
			&request.StudentName,
			&teacherID,
			&request.PurchaseType,
			&request.SessionDate,
			&request.TimeSlot,
			&request.PaymentStatus,
			&request.TransactionID,
			&request.AmountPaidCents,
			&request.PromoCode,
			&request.CreatedAt,
		); err != nil {
			return nil, err
		}
		if teacherID.Valid {
			request.TeacherID = &teacherID.String
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

func scanEnrollment(row pgx.Row) (models.CourseEnrollment, error) {
	var out models.CourseEnrollment
	if err := row.Scan(
		&out.ID,
		&out.ProfileID,
		&out.CourseTitle,
		&out.Status,
		&out.SessionsTotal,
		&out.SessionsRemaining,
		&out.AmountPaidCents,
		&out.TransactionID,
		&out.PromoCode,
		&out.DiscountCents,
		&out.FirstSessionDate,
		&out.FirstSessionTime,
		&out.CreatedAt,
	); err != nil {
		return out, err
	}
	return out, nil
}
