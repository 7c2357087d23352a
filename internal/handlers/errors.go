package handlers

import (
	"errors"
	"log"
	"net/http"

	"calshare-server/internal/services"
	"calshare-server/pkg/response"
)

// writeServiceError maps core error taxonomy onto HTTP statuses. NotFound and
// Expired stay distinct so clients can tell "check your code" from "request a
// new code". Anything unrecognized is a store-level failure: the caller gets
// a generic message and may safely retry the whole batch.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCalendarNotFound):
		response.NotFound(w, "Shared calendar not found, please check the share code")
	case errors.Is(err, services.ErrShareCodeExpired):
		response.Gone(w, "Share code has expired")
	case errors.Is(err, services.ErrPasswordMismatch):
		response.Forbidden(w, "Incorrect password, calendar cannot be modified")
	case errors.Is(err, services.ErrScheduleNotFound):
		response.NotFound(w, "Schedule not found")
	case errors.Is(err, services.ErrDeviceRequired):
		response.BadRequest(w, "deviceId is required")
	case errors.Is(err, services.ErrInvalidDeviceToken):
		response.Unauthorized(w, "Invalid device token")
	default:
		log.Printf("internal error: %v", err)
		response.InternalError(w, "Internal server error")
	}
}
