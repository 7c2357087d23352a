package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"calshare-server/internal/services"
	"calshare-server/pkg/response"
)

// CalendarHandler is the share-code-scoped CRUD surface the mobile clients
// use between full syncs: calendar metadata and single schedule items.
type CalendarHandler struct {
	access *services.ShareAccessService
}

func NewCalendarHandler(access *services.ShareAccessService) *CalendarHandler {
	return &CalendarHandler{access: access}
}

type metadataRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Password    string  `json:"password"`
	DeviceID    string  `json:"deviceId"`
	DeviceName  string  `json:"deviceName"`
	Platform    string  `json:"platform"`
	DeviceToken string  `json:"deviceToken"`
}

type scheduleRequest struct {
	services.ChangeRecord
	Password    string `json:"password"`
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	Platform    string `json:"platform"`
	DeviceToken string `json:"deviceToken"`
}

func (r scheduleRequest) descriptor() services.DeviceDescriptor {
	return services.DeviceDescriptor{
		DeviceID:    r.DeviceID,
		DeviceName:  r.DeviceName,
		Platform:    r.Platform,
		DeviceToken: r.DeviceToken,
	}
}

// Metadata returns the calendar projection without schedules.
// GET /api/calendars/{shareCode}
func (h *CalendarHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	projection, err := h.access.Metadata(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Calendar retrieved", projection)
}

// UpdateMetadata applies a password-gated last-write-wins metadata patch.
// PUT /api/calendars/{shareCode}
func (h *CalendarHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	var req metadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	projection, err := h.access.UpdateMetadata(r.Context(), code,
		services.CalendarPatch{
			Title:       req.Title,
			Description: req.Description,
			Color:       req.Color,
		},
		req.Password,
		services.DeviceDescriptor{
			DeviceID:    req.DeviceID,
			DeviceName:  req.DeviceName,
			Platform:    req.Platform,
			DeviceToken: req.DeviceToken,
		},
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Calendar updated", projection)
}

// ListSchedules returns the live schedules ordered by start time.
// GET /api/calendars/{shareCode}/schedules
func (h *CalendarHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	schedules, err := h.access.ListSchedules(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Schedules retrieved", map[string]interface{}{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

// AddSchedule creates one schedule through the upsert path.
// POST /api/calendars/{shareCode}/schedules
func (h *CalendarHandler) AddSchedule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	schedule, err := h.access.AddSchedule(r.Context(), code, req.ChangeRecord, req.Password, req.descriptor())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, "Schedule created", schedule)
}

// UpdateSchedule overwrites one schedule by localId.
// PUT /api/calendars/{shareCode}/schedules/{localId}
func (h *CalendarHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")
	localID := chi.URLParam(r, "localId")

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	schedule, err := h.access.UpdateSchedule(r.Context(), code, localID, req.ChangeRecord, req.Password, req.descriptor())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Schedule updated", schedule)
}

// DeleteSchedule tombstones one schedule by localId. The password travels in
// the query string since DELETE bodies are unreliable across proxies.
// DELETE /api/calendars/{shareCode}/schedules/{localId}
func (h *CalendarHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")
	localID := chi.URLParam(r, "localId")

	descriptor := services.DeviceDescriptor{
		DeviceID:    r.URL.Query().Get("deviceId"),
		DeviceToken: r.URL.Query().Get("deviceToken"),
	}

	err := h.access.DeleteSchedule(r.Context(), code, localID, r.URL.Query().Get("password"), descriptor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Schedule deleted", nil)
}
