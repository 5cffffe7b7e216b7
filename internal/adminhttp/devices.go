package adminhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/registry"
)

const maxBodyBytes = 1 << 16

var errInvalidBody = errors.New("invalid request body")

// DevicesHandler exposes the registry over HTTP.
type DevicesHandler struct {
	store DeviceStore
}

func NewDevicesHandler(store DeviceStore) *DevicesHandler {
	return &DevicesHandler{store: store}
}

func (h *DevicesHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/devices", h.List).Methods(http.MethodGet)
	api.HandleFunc("/devices", h.Add).Methods(http.MethodPost)
}

type deviceDTO struct {
	MAC      string `json:"mac"`
	User     string `json:"user"`
	Model    string `json:"model"`
	Presence bool   `json:"presence"`
}

// addDeviceRequest leaves Presence optional; an omitted value means tracked.
type addDeviceRequest struct {
	MAC      string `json:"mac"`
	User     string `json:"user"`
	Model    string `json:"model"`
	Presence *bool  `json:"presence"`
}

func toDTO(e registry.Entry) deviceDTO {
	return deviceDTO{MAC: e.MAC, User: e.Device.User, Model: e.Device.Model, Presence: e.Device.Presence}
}

// List returns every registered device ordered by MAC.
func (h *DevicesHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.store.All()

	list := make([]deviceDTO, 0, len(entries))
	for _, e := range entries {
		list = append(list, toDTO(e))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"devices": list,
		"count":   len(list),
	})
}

// Add registers a device: 201 when added, 409 when the MAC is already known.
func (h *DevicesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		jsonError(w, r, http.StatusBadRequest, errInvalidBody)

		return
	}

	if !registry.ValidMAC(req.MAC) {
		jsonError(w, r, http.StatusBadRequest, customerrors.ErrInvalidMACWithValue(req.MAC))

		return
	}

	device := registry.Device{Presence: true, User: req.User, Model: req.Model}
	if req.Presence != nil {
		device.Presence = *req.Presence
	}

	added, err := h.store.Register(req.MAC, device)

	switch {
	case errors.Is(err, customerrors.ErrInvalidMAC), errors.Is(err, customerrors.ErrDeviceUserRequired):
		jsonError(w, r, http.StatusBadRequest, err)

		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("mac", req.MAC).Msg("register device")
		jsonError(w, r, http.StatusInternalServerError, err)

		return
	}

	dto := toDTO(registry.Entry{MAC: registry.NormalizeMAC(req.MAC), Device: device})

	if !added {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]any{
			"error":  "device already registered",
			"device": dto,
		})

		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("mac", dto.MAC).
		Str("user", dto.User).
		Bool("presence", dto.Presence).
		Msg("device registered")

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, dto)
}
