package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

type ServerInterface interface {
	// (POST /auth/signup)
	SignUp(ctx echo.Context) error
	// (POST /auth/signin)
	SignIn(ctx echo.Context) error
	// (POST /auth/signout)
	SignOut(ctx echo.Context) error
	// (GET /auth/session)
	GetSession(ctx echo.Context) error

	// (GET /v1/patients)
	ListPatients(ctx echo.Context) error
	// (POST /v1/patients)
	CreatePatient(ctx echo.Context) error
	// (PATCH /v1/patients/{patientId})
	UpdatePatient(ctx echo.Context, patientId string) error
	// (DELETE /v1/patients/{patientId})
	DeletePatient(ctx echo.Context, patientId string) error

	// (GET /v1/results)
	ListResults(ctx echo.Context, params ListResultsParams) error
	// (POST /v1/results)
	CreateResult(ctx echo.Context) error
	// (GET /v1/results/export)
	ExportResults(ctx echo.Context, params ListResultsParams) error

	// (GET /v1/appointments)
	ListAppointments(ctx echo.Context) error
	// (POST /v1/appointments)
	CreateAppointment(ctx echo.Context) error
	// (PATCH /v1/appointments/{appointmentId})
	UpdateAppointment(ctx echo.Context, appointmentId string) error
	// (DELETE /v1/appointments/{appointmentId})
	DeleteAppointment(ctx echo.Context, appointmentId string) error

	// (GET /v1/workspace)
	GetWorkspace(ctx echo.Context) error
	// (POST /v1/workspace/reload)
	ReloadWorkspace(ctx echo.Context) error
	// (GET /v1/preferences/dashboard-frequency)
	GetDashboardFrequency(ctx echo.Context) error
	// (PUT /v1/preferences/dashboard-frequency)
	SetDashboardFrequency(ctx echo.Context) error
	// (GET /v1/dashboard)
	GetDashboard(ctx echo.Context, params GetDashboardParams) error

	// (GET /v1/run)
	GetRun(ctx echo.Context) error
	// (PUT /v1/run/setup)
	SetupRun(ctx echo.Context) error
	// (POST /v1/run/start)
	StartRun(ctx echo.Context) error
	// (POST /v1/run/pause)
	PauseRun(ctx echo.Context) error
	// (POST /v1/run/resume)
	ResumeRun(ctx echo.Context) error
	// (POST /v1/run/stop)
	StopRun(ctx echo.Context) error
}

type ListResultsParams struct {
	PatientId *string `form:"patientId,omitempty" json:"patientId,omitempty"`
}

type GetDashboardParams struct {
	Frequency *string `form:"frequency,omitempty" json:"frequency,omitempty"`
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) pathParameter(ctx echo.Context, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return value, nil
}

func (w *ServerInterfaceWrapper) UpdatePatient(ctx echo.Context) error {
	patientId, err := w.pathParameter(ctx, "patientId")
	if err != nil {
		return err
	}
	return w.Handler.UpdatePatient(ctx, patientId)
}

func (w *ServerInterfaceWrapper) DeletePatient(ctx echo.Context) error {
	patientId, err := w.pathParameter(ctx, "patientId")
	if err != nil {
		return err
	}
	return w.Handler.DeletePatient(ctx, patientId)
}

func (w *ServerInterfaceWrapper) UpdateAppointment(ctx echo.Context) error {
	appointmentId, err := w.pathParameter(ctx, "appointmentId")
	if err != nil {
		return err
	}
	return w.Handler.UpdateAppointment(ctx, appointmentId)
}

func (w *ServerInterfaceWrapper) DeleteAppointment(ctx echo.Context) error {
	appointmentId, err := w.pathParameter(ctx, "appointmentId")
	if err != nil {
		return err
	}
	return w.Handler.DeleteAppointment(ctx, appointmentId)
}

func (w *ServerInterfaceWrapper) listResultsParams(ctx echo.Context) (ListResultsParams, error) {
	var params ListResultsParams
	if err := runtime.BindQueryParameter("form", true, false, "patientId", ctx.QueryParams(), &params.PatientId); err != nil {
		return params, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter patientId: %s", err))
	}
	return params, nil
}

func (w *ServerInterfaceWrapper) ListResults(ctx echo.Context) error {
	params, err := w.listResultsParams(ctx)
	if err != nil {
		return err
	}
	return w.Handler.ListResults(ctx, params)
}

func (w *ServerInterfaceWrapper) ExportResults(ctx echo.Context) error {
	params, err := w.listResultsParams(ctx)
	if err != nil {
		return err
	}
	return w.Handler.ExportResults(ctx, params)
}

func (w *ServerInterfaceWrapper) GetDashboard(ctx echo.Context) error {
	var params GetDashboardParams
	if err := runtime.BindQueryParameter("form", true, false, "frequency", ctx.QueryParams(), &params.Frequency); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter frequency: %s", err))
	}
	return w.Handler.GetDashboard(ctx, params)
}

type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

func RegisterHandlers(router EchoRouter, si ServerInterface) {
	w := &ServerInterfaceWrapper{Handler: si}

	router.POST("/auth/signup", si.SignUp)
	router.POST("/auth/signin", si.SignIn)
	router.POST("/auth/signout", si.SignOut)
	router.GET("/auth/session", si.GetSession)

	router.GET("/v1/patients", si.ListPatients)
	router.POST("/v1/patients", si.CreatePatient)
	router.PATCH("/v1/patients/:patientId", w.UpdatePatient)
	router.DELETE("/v1/patients/:patientId", w.DeletePatient)

	router.GET("/v1/results", w.ListResults)
	router.POST("/v1/results", si.CreateResult)
	router.GET("/v1/results/export", w.ExportResults)

	router.GET("/v1/appointments", si.ListAppointments)
	router.POST("/v1/appointments", si.CreateAppointment)
	router.PATCH("/v1/appointments/:appointmentId", w.UpdateAppointment)
	router.DELETE("/v1/appointments/:appointmentId", w.DeleteAppointment)

	router.GET("/v1/workspace", si.GetWorkspace)
	router.POST("/v1/workspace/reload", si.ReloadWorkspace)
	router.GET("/v1/preferences/dashboard-frequency", si.GetDashboardFrequency)
	router.PUT("/v1/preferences/dashboard-frequency", si.SetDashboardFrequency)
	router.GET("/v1/dashboard", w.GetDashboard)

	router.GET("/v1/run", si.GetRun)
	router.PUT("/v1/run/setup", si.SetupRun)
	router.POST("/v1/run/start", si.StartRun)
	router.POST("/v1/run/pause", si.PauseRun)
	router.POST("/v1/run/resume", si.ResumeRun)
	router.POST("/v1/run/stop", si.StopRun)
}
