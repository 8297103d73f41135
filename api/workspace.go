package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/perimetrix/fieldclinic/dashboard"
	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/preferences"
)

type FrequencyPreference struct {
	Frequency preferences.Frequency `json:"frequency"`
}

func (h *Handler) GetWorkspace(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, w.Store.Snapshot())
}

// ReloadWorkspace retries the bulk load. A failed load is reported in the returned state.
func (h *Handler) ReloadWorkspace(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	if err := w.Reload(ec.Request().Context()); err != nil {
		h.logger.Warnw("workspace reload failed", "userId", w.Store.UserId(), "error", err)
	}
	return ec.JSON(http.StatusOK, w.Store.Snapshot())
}

func (h *Handler) GetDashboardFrequency(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, FrequencyPreference{Frequency: w.Store.Snapshot().DashboardFrequency})
}

func (h *Handler) SetDashboardFrequency(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var body struct {
		Frequency string `json:"frequency"`
	}
	if err := ec.Bind(&body); err != nil {
		return errs.BadRequest
	}
	frequency, err := preferences.ParseFrequency(body.Frequency)
	if err != nil {
		return err
	}
	if err := w.Store.SetDashboardFrequency(frequency); err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, FrequencyPreference{Frequency: frequency})
}

func (h *Handler) GetDashboard(ec echo.Context, params GetDashboardParams) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	snapshot := w.Store.Snapshot()
	frequency := snapshot.DashboardFrequency
	if params.Frequency != nil {
		if frequency, err = preferences.ParseFrequency(*params.Frequency); err != nil {
			return err
		}
	}
	return ec.JSON(http.StatusOK, dashboard.Summarize(snapshot, frequency, h.now()))
}
