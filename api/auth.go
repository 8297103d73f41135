package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/perimetrix/fieldclinic/auth"
	errs "github.com/perimetrix/fieldclinic/errors"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignUp(ec echo.Context) error {
	var credentials Credentials
	if err := ec.Bind(&credentials); err != nil {
		return errs.BadRequest
	}

	session, err := h.gateway.SignUp(ec.Request().Context(), credentials.Email, credentials.Password)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, session)
}

func (h *Handler) SignIn(ec echo.Context) error {
	var credentials Credentials
	if err := ec.Bind(&credentials); err != nil {
		return errs.BadRequest
	}

	session, err := h.gateway.SignIn(ec.Request().Context(), credentials.Email, credentials.Password)
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, session)
}

func (h *Handler) SignOut(ec echo.Context) error {
	ctx := ec.Request().Context()
	token := auth.GetSessionToken(ec.Request())
	if err := h.gateway.SignOut(ctx, token); err != nil {
		return err
	}
	h.authenticator.Invalidate(token)

	if authData := auth.GetAuthData(ctx); auth.IsAuthenticated(authData) {
		h.workspaces.Discard(authData.SubjectId)
		h.logger.Infow("signed out", "userId", authData.SubjectId)
	}
	return ec.NoContent(http.StatusNoContent)
}

func (h *Handler) GetSession(ec echo.Context) error {
	session, err := h.gateway.GetSession(ec.Request().Context(), auth.GetSessionToken(ec.Request()))
	if err != nil {
		return err
	}
	return ec.JSON(http.StatusOK, session)
}
