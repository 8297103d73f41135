package api

import (
	"github.com/brpaz/echozap"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echomiddleware "github.com/oapi-codegen/echo-middleware"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/authz"
	"github.com/perimetrix/fieldclinic/errors"
)

func NewServer(handler *Handler, healthCheck *HealthCheck, authorizer authz.RequestAuthorizer, authenticator auth.Authenticator, logger *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	swagger, err := GetSwagger()
	if err != nil {
		return nil, err
	}

	// Do not validate servers in the open api spec
	swagger.Servers = nil

	// Skip auth for the readiness probe and the sign up and sign in routes
	publicSkipper := RouteSkipper(PublicRoutes)
	// Skip validation and logging for the readiness probe
	probeSkipper := RouteSkipper(ProbeRoutes)

	authMiddleware := auth.NewAuthMiddleware(authenticator, auth.AuthMiddlewareOpts{
		Skipper: publicSkipper,
	})
	requestValidator := echomiddleware.OapiRequestValidatorWithOptions(swagger, &echomiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: authorizer.Authorize,
		},
		Skipper: probeSkipper,
	})

	e.Use(middleware.Recover())
	e.Use(skip(probeSkipper, echozap.ZapLogger(logger)))
	e.Use(authMiddleware)
	e.Use(requestValidator)

	e.HTTPErrorHandler = errors.CustomHTTPErrorHandler

	e.GET("/ready", healthCheck.Ready)
	RegisterHandlers(e, handler)

	return e, nil
}

func skip(skipper middleware.Skipper, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := mw(next)
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}
			return wrapped(c)
		}
	}
}
