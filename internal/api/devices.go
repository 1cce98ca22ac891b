package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gidon31/IOTdeviceSim/internal/device"
)

// handleListDevices returns all valid devices as a JSON array.
//
// Corrupted records are skipped by the repository, so one bad device
// never fails the whole listing.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.repo.ListDevices(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.repo.FetchDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCommand applies a command to a device.
//
// The request body is a flat field-to-value mapping. Unknown fields are
// dropped during sanitising; a body with nothing left afterwards is a
// client error. The response carries the pipeline's outcome, including
// the idempotent no-op message when nothing changed.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var cmd device.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.pipeline.ApplyCommand(r.Context(), id, cmd)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrEmptyCommand):
			writeBadRequest(w, "command has no valid fields")
		default:
			s.logger.Error("command failed",
				"device_id", id,
				"error", err,
			)
			writeInternalError(w, "failed to apply command")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
