package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"calshare-server/internal/models"
	"calshare-server/internal/repositories"
	"calshare-server/internal/utils"
)

const (
	// shareCodeBytes gives 48 bits of entropy, hex-encoded to 12 characters.
	shareCodeBytes = 6

	// DefaultShareTTLDays is how long a freshly issued code stays valid.
	DefaultShareTTLDays = 30

	shareCodeIssueAttempts = 5
)

// ShareCodeRegistry issues and validates the opaque codes that gate all
// access to a shared calendar.
type ShareCodeRegistry struct {
	calendars repositories.CalendarRepository
	now       func() time.Time
}

func NewShareCodeRegistry(calendars repositories.CalendarRepository) *ShareCodeRegistry {
	return &ShareCodeRegistry{
		calendars: calendars,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Issue stamps a fresh share code and expiry onto the calendar and marks it
// shared. The caller persists the calendar. A code currently bound to another
// calendar is never handed out.
func (r *ShareCodeRegistry) Issue(ctx context.Context, calendar *models.Calendar, ttlDays int) (string, error) {
	if ttlDays <= 0 {
		ttlDays = DefaultShareTTLDays
	}

	for attempt := 0; attempt < shareCodeIssueAttempts; attempt++ {
		code, err := generateShareCode()
		if err != nil {
			return "", err
		}

		inUse, err := r.calendars.ShareCodeInUse(ctx, code, calendar.ID)
		if err != nil {
			return "", err
		}
		if inUse {
			continue
		}

		expire := r.now().Add(time.Duration(ttlDays) * 24 * time.Hour)
		calendar.ShareCode = &code
		calendar.ShareExpire = &expire
		calendar.IsShared = true
		return code, nil
	}

	return "", fmt.Errorf("failed to issue a unique share code after %d attempts", shareCodeIssueAttempts)
}

// Validate resolves a share code to its calendar. Expiry is evaluated here at
// access time; nothing is deleted when a code lapses.
func (r *ShareCodeRegistry) Validate(ctx context.Context, code string) (*models.Calendar, error) {
	calendar, err := r.calendars.GetByShareCode(ctx, code)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrCalendarNotFound
		}
		return nil, err
	}

	if !calendar.ShareCodeValid(r.now()) {
		return nil, ErrShareCodeExpired
	}
	return calendar, nil
}

// CheckPassword reports whether the supplied password opens the calendar for
// mutation. A calendar without a password is open to everyone.
func (r *ShareCodeRegistry) CheckPassword(calendar *models.Calendar, supplied string) bool {
	if !calendar.RequiresPassword() {
		return true
	}
	return utils.CheckEditPassword(*calendar.EditPassword, supplied)
}

func generateShareCode() (string, error) {
	buf := make([]byte, shareCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
