package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/auth"
	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/workspace"
)

type Handler struct {
	gateway       *gateway.Gateway
	workspaces    *workspace.Registry
	authenticator auth.Authenticator
	logger        *zap.SugaredLogger
	now           func() time.Time
}

var _ ServerInterface = &Handler{}

type Params struct {
	fx.In

	Gateway       *gateway.Gateway
	Workspaces    *workspace.Registry
	Authenticator auth.Authenticator
	Logger        *zap.SugaredLogger
}

func NewHandler(p Params) *Handler {
	return &Handler{
		gateway:       p.Gateway,
		workspaces:    p.Workspaces,
		authenticator: p.Authenticator,
		logger:        p.Logger,
		now:           time.Now,
	}
}

// workspace returns the workspace of the authenticated user.
func (h *Handler) workspace(ec echo.Context) (*workspace.Workspace, error) {
	authData := auth.GetAuthData(ec.Request().Context())
	if !auth.IsAuthenticated(authData) {
		return nil, errs.Unauthorized
	}
	return h.workspaces.Get(ec.Request().Context(), authData.SubjectId), nil
}
