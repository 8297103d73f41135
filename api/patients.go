package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/patients"
)

func (h *Handler) ListPatients(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Store.Snapshot().Patients)
}

func (h *Handler) CreatePatient(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var patient patients.Patient
	if err := ec.Bind(&patient); err != nil {
		return errs.BadRequest
	}

	created, err := w.Sync.AddPatient(ec.Request().Context(), patient)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdatePatient(ec echo.Context, patientId string) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var patch patients.Patch
	if err := ec.Bind(&patch); err != nil {
		return errs.BadRequest
	}

	updated, err := w.Sync.UpdatePatient(ec.Request().Context(), patientId, patch)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePatient(ec echo.Context, patientId string) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Sync.DeletePatient(ec.Request().Context(), patientId); err != nil {
		return err
	}
	return ec.NoContent(http.StatusNoContent)
}
