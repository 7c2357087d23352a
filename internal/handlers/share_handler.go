package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"calshare-server/internal/services"
	"calshare-server/pkg/response"
)

// ShareHandler exposes the four share operations: publish, read, import, and
// sync.
type ShareHandler struct {
	publisher    *services.CalendarPublisher
	access       *services.ShareAccessService
	validate     *validator.Validate
	shareBaseURL string
}

func NewShareHandler(publisher *services.CalendarPublisher, access *services.ShareAccessService, shareBaseURL string) *ShareHandler {
	return &ShareHandler{
		publisher:    publisher,
		access:       access,
		validate:     validator.New(),
		shareBaseURL: shareBaseURL,
	}
}

type publishRequest struct {
	DeviceID     string                     `json:"deviceId" validate:"required"`
	DeviceName   string                     `json:"deviceName"`
	Platform     string                     `json:"platform"`
	DeviceToken  string                     `json:"deviceToken"`
	Calendar     *services.CalendarSnapshot `json:"calendar" validate:"required"`
	Schedules    []services.ChangeRecord    `json:"schedules"`
	EditPassword string                     `json:"editPassword"`
}

type syncRequest struct {
	DeviceID    string                  `json:"deviceId" validate:"required"`
	DeviceName  string                  `json:"deviceName"`
	Platform    string                  `json:"platform"`
	DeviceToken string                  `json:"deviceToken"`
	Schedules   []services.ChangeRecord `json:"schedules" validate:"required"`
	Password    string                  `json:"password"`
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	Color       *string                 `json:"color"`
}

type importRequest struct {
	DeviceID   string `json:"deviceId" validate:"required"`
	DeviceName string `json:"deviceName"`
	Platform   string `json:"platform"`
}

// Publish uploads a local calendar and returns its projection plus a share
// URL. POST /api/share
func (h *ShareHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Missing required fields: deviceId and calendar")
		return
	}

	result, err := h.publisher.Publish(r.Context(), services.PublishInput{
		DeviceID:     req.DeviceID,
		DeviceName:   req.DeviceName,
		Platform:     req.Platform,
		DeviceToken:  req.DeviceToken,
		Calendar:     *req.Calendar,
		Schedules:    req.Schedules,
		EditPassword: req.EditPassword,
		BaseURL:      h.baseURL(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, "Calendar shared successfully", result)
}

// Read returns the calendar and its live schedules.
// GET /api/share/{shareCode}
func (h *ShareHandler) Read(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	view, err := h.access.Get(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Shared calendar retrieved", view)
}

// Import hands the calendar to a joining device.
// POST /api/share/{shareCode}/import
func (h *ShareHandler) Import(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Missing required field: deviceId")
		return
	}

	result, err := h.access.Import(r.Context(), code, services.DeviceDescriptor{
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		Platform:   req.Platform,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Shared calendar imported", result)
}

// Sync merges a change batch and an optional metadata patch.
// POST /api/share/{shareCode}/sync
func (h *ShareHandler) Sync(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Missing required fields: deviceId and schedules")
		return
	}

	outcome, err := h.access.Sync(r.Context(), code, services.SyncInput{
		Device: services.DeviceDescriptor{
			DeviceID:    req.DeviceID,
			DeviceName:  req.DeviceName,
			Platform:    req.Platform,
			DeviceToken: req.DeviceToken,
		},
		Password: req.Password,
		Changes:  req.Schedules,
		Metadata: &services.CalendarPatch{
			Title:       req.Title,
			Description: req.Description,
			Color:       req.Color,
		},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, "Calendar synced successfully", outcome)
}

func (h *ShareHandler) baseURL(r *http.Request) string {
	if h.shareBaseURL != "" {
		return h.shareBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
