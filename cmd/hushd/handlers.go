package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hushmod/hush/moderation/engine"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GenericStatus struct {
	Status  string `json:"status"`
	Daemon  string `json:"daemon"`
	Message string `json:"msg,omitempty"`
}

// Text is a pointer so an absent field can be told apart from an empty message.
type CheckMessageRequest struct {
	UserID string  `json:"userId"`
	Text   *string `json:"text"`
}

type CheckMessageResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	// length of a temporary mute installed by this message, if any
	MuteSeconds int64 `json:"muteSeconds,omitempty"`
}

type UserRequest struct {
	UserID string `json:"userId"`
}

type TempMuteRequest struct {
	UserID  string `json:"userId"`
	Minutes int    `json:"minutes"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("hushd-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "hushd", Message: errorMessage})
}

// maps engine errors on to HTTP responses
func (srv *Server) engineError(c echo.Context, err error) error {
	if errors.Is(err, engine.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, GenericError{
			Error:   "InvalidInput",
			Message: err.Error(),
		})
	}
	srv.logger.Error("moderation engine failure", "err", err, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, GenericError{
		Error:   "InternalError",
		Message: "moderation engine failure",
	})
}

func invalidInput(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, GenericError{
		Error:   "InvalidInput",
		Message: msg,
	})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "hushd"})
}

func (srv *Server) HandleCheckMessage(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "CheckMessage")
	defer span.End()

	var body CheckMessageRequest
	if err := c.Bind(&body); err != nil {
		return invalidInput(c, fmt.Sprintf("invalid request body: %s", err))
	}
	if body.UserID == "" || body.Text == nil {
		return invalidInput(c, "userId and text are required")
	}

	d, err := srv.engine.Evaluate(ctx, body.UserID, *body.Text)
	if err != nil {
		span.RecordError(err)
		return srv.engineError(c, err)
	}
	span.SetAttributes(attribute.String("outcome", d.Label()))
	messagesChecked.WithLabelValues("http", d.Label()).Inc()

	return c.JSON(http.StatusOK, CheckMessageResponse{
		Accepted:    d.Accepted,
		Reason:      d.Reason,
		MuteSeconds: int64(d.MuteDuration.Seconds()),
	})
}

func (srv *Server) HandleAdminMute(c echo.Context) error {
	var body UserRequest
	if err := c.Bind(&body); err != nil {
		return invalidInput(c, fmt.Sprintf("invalid request body: %s", err))
	}
	if err := srv.engine.Mute(c.Request().Context(), body.UserID); err != nil {
		return srv.engineError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (srv *Server) HandleAdminUnmute(c echo.Context) error {
	var body UserRequest
	if err := c.Bind(&body); err != nil {
		return invalidInput(c, fmt.Sprintf("invalid request body: %s", err))
	}
	if err := srv.engine.Unmute(c.Request().Context(), body.UserID); err != nil {
		return srv.engineError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (srv *Server) HandleAdminTempMute(c echo.Context) error {
	var body TempMuteRequest
	if err := c.Bind(&body); err != nil {
		return invalidInput(c, fmt.Sprintf("invalid request body: %s", err))
	}
	if err := srv.engine.TempMute(c.Request().Context(), body.UserID, body.Minutes); err != nil {
		return srv.engineError(c, err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (srv *Server) HandleAdminStatus(c echo.Context) error {
	st, err := srv.engine.Status(c.Request().Context(), c.QueryParam("userId"))
	if err != nil {
		return srv.engineError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
