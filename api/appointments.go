package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/perimetrix/fieldclinic/appointments"
	errs "github.com/perimetrix/fieldclinic/errors"
)

func (h *Handler) ListAppointments(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Store.Snapshot().Appointments)
}

func (h *Handler) CreateAppointment(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var appointment appointments.Appointment
	if err := ec.Bind(&appointment); err != nil {
		return errs.BadRequest
	}

	created, err := w.Sync.AddAppointment(ec.Request().Context(), appointment)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateAppointment(ec echo.Context, appointmentId string) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var patch appointments.Patch
	if err := ec.Bind(&patch); err != nil {
		return errs.BadRequest
	}

	updated, err := w.Sync.UpdateAppointment(ec.Request().Context(), appointmentId, patch)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteAppointment(ec echo.Context, appointmentId string) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Sync.DeleteAppointment(ec.Request().Context(), appointmentId); err != nil {
		return err
	}
	return ec.NoContent(http.StatusNoContent)
}
