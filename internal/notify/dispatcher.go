package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tutorlane/backend/internal/booking"
)

const (
	sendTimeout  = 30 * time.Second
	sendAttempts = 3
)

// Dispatcher sends booking confirmation emails as detached tasks. A failed
// send is logged and dropped; it never reaches the finalize caller, because
// the booking is already durably committed by the time a confirmation is
// dispatched.
type Dispatcher struct {
	sender     EmailSender
	logger     *slog.Logger
	retryDelay time.Duration
	wg         sync.WaitGroup
}

// NewDispatcher creates dispatcher.
func NewDispatcher(sender EmailSender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger, retryDelay: time.Second}
}

// SendBookingConfirmation implements booking.Notifier. It returns
// immediately; delivery happens on a detached goroutine with its own timeout.
func (d *Dispatcher) SendBookingConfirmation(confirmation booking.Confirmation) {
	if confirmation.Profile.Email == "" {
		d.logger.Warn("booking_confirmation", "status", "no_recipient", "profile_id", confirmation.Profile.ID)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		d.deliver(ctx, confirmation)
	}()
}

// Wait blocks until in-flight sends finish. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, confirmation booking.Confirmation) {
	subject := fmt.Sprintf("Booking confirmed: %s", confirmation.Enrollment.CourseTitle)
	body := renderConfirmation(confirmation)

	delay := d.retryDelay
	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		err = d.sender.SendEmail(ctx, confirmation.Profile.Email, subject, body)
		if err == nil {
			d.logger.Info("booking_confirmation", "status", "sent", "profile_id", confirmation.Profile.ID, "course", confirmation.Enrollment.CourseTitle, "attempt", attempt)
			return
		}
		if attempt < sendAttempts {
			d.logger.Warn("booking_confirmation", "status", "retrying", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				d.logger.Error("booking_confirmation", "status", "timed_out", "profile_id", confirmation.Profile.ID, "error", ctx.Err())
				return
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	d.logger.Error("booking_confirmation", "status", "failed", "profile_id", confirmation.Profile.ID, "error", err)
}

func renderConfirmation(confirmation booking.Confirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", confirmation.Profile.FullName)
	fmt.Fprintf(&b, "Your booking for %s is confirmed.\n\n", confirmation.Enrollment.CourseTitle)
	fmt.Fprintf(&b, "Sessions booked: %d\n", confirmation.Enrollment.SessionsTotal)
	fmt.Fprintf(&b, "Amount paid: $%.2f\n\n", float64(confirmation.Enrollment.AmountPaidCents)/100)
	b.WriteString("Session schedule:\n")
	for _, s := range confirmation.Sessions {
		fmt.Fprintf(&b, "  %s  %s\n", s.SessionDate, s.TimeSlot)
	}
	b.WriteString("\nYour tutor will be assigned shortly and you will receive the class link by email.\n")
	return b.String()
}
