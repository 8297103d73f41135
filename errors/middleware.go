package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type validationResponse struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`
}

// CustomHTTPErrorHandler maps HttpError sentinels to their status code. Field
// validation failures are returned with the offending fields.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		if e := c.JSON(http.StatusBadRequest, validationResponse{Message: validation.Error(), Fields: validation.Fields}); e != nil {
			c.Logger().Error(e)
		}
		return
	}

	e := HttpError{}
	if errors.As(err, &e) {
		c.Echo().DefaultHTTPErrorHandler(echo.NewHTTPError(e.Code, err.Error()), c)
		return
	}
	c.Echo().DefaultHTTPErrorHandler(err, c)
}
