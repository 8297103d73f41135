package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/pointer"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
)

func (h *Handler) ListResults(ec echo.Context, params ListResultsParams) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, filterResults(w.Store.Snapshot(), params))
}

func (h *Handler) CreateResult(ec echo.Context) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	var result results.TestResult
	if err := ec.Bind(&result); err != nil {
		return errs.BadRequest
	}

	created, err := w.Sync.AddTestResult(ec.Request().Context(), result)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusCreated, created)
}

func (h *Handler) ExportResults(ec echo.Context, params ListResultsParams) error {
	w, err := h.workspace(ec)
	if err != nil {
		return err
	}

	snapshot := w.Store.Snapshot()
	names := make(map[string]string, len(snapshot.Patients))
	for _, p := range snapshot.Patients {
		names[p.Id] = p.FullName()
	}

	workbook, err := results.Export(filterResults(snapshot, params), names)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("test-results-%s.xlsx", h.now().UTC().Format("20060102"))
	ec.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	ec.Response().Header().Set(echo.HeaderContentType, results.ExportContentType)
	ec.Response().WriteHeader(http.StatusOK)
	return workbook.Write(ec.Response())
}

func filterResults(snapshot state.State, params ListResultsParams) []results.TestResult {
	patientId := pointer.ToString(params.PatientId)
	if patientId == "" {
		return snapshot.TestResults
	}
	filtered := make([]results.TestResult, 0)
	for _, r := range snapshot.TestResults {
		if r.PatientId == patientId {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
