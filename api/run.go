package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/results"
)

type RunSetup struct {
	PatientId     string                `json:"patientId"`
	Configuration results.Configuration `json:"configuration"`
}

func (h *Handler) GetRun(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Runner.Status())
}

func (h *Handler) SetupRun(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var setup RunSetup
	if err := ec.Bind(&setup); err != nil {
		return errs.BadRequest
	}

	for _, p := range w.Store.Snapshot().Patients {
		if p.Id == setup.PatientId {
			if err := w.Runner.Setup(p, setup.Configuration); err != nil {
				return err
			}
			return ec.JSON(http.StatusOK, w.Runner.Status())
		}
	}
	return errs.NotFound
}

func (h *Handler) StartRun(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Runner.Start(ec.Request().Context()); err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Runner.Status())
}

func (h *Handler) PauseRun(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Runner.Pause(); err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Runner.Status())
}

func (h *Handler) ResumeRun(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Runner.Resume(); err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Runner.Status())
}

func (h *Handler) StopRun(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Runner.Stop(); err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Runner.Status())
}
