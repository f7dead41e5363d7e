package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/passgate"
	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/internal/present/rest/middleware"
	"github.com/totegamma/passgate/internal/present/rest/presenter"
	"github.com/totegamma/passgate/internal/service"
	"github.com/totegamma/passgate/internal/usecase"
)

type Handler struct {
	decision *usecase.DecisionUsecase
	event    *usecase.EventUsecase
	eventLog *usecase.EventLog
	pass     *usecase.PassUsecase
	gate     *usecase.GateConfigUsecase
	hub      *service.Hub
	auth     *middleware.AuthMiddleware
}

func NewHandler(
	decision *usecase.DecisionUsecase,
	event *usecase.EventUsecase,
	eventLog *usecase.EventLog,
	pass *usecase.PassUsecase,
	gate *usecase.GateConfigUsecase,
	hub *service.Hub,
	auth *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		decision: decision,
		event:    event,
		eventLog: eventLog,
		pass:     pass,
		gate:     gate,
		hub:      hub,
		auth:     auth,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	staff := middleware.RequireRoles(domain.RoleSecurity, domain.RoleAdmin)
	anyone := middleware.RequireRoles()

	e.GET("/healthz", h.handleHealth)

	lpr := e.Group("/api/lpr")
	lpr.POST("/check", h.handleCheck, h.auth.RequireLprToken)
	lpr.POST("/event", h.handleEvent, h.auth.RequireLprToken)
	lpr.GET("/events", h.handleEvents, h.auth.IdentifyRequester, staff)

	passes := e.Group("/api/passes", h.auth.IdentifyRequester)
	passes.GET("/stream", h.handleStream, staff)
	passes.GET("/realtime", h.handleRealtime, staff)
	passes.GET("/all", h.handlePassListAll, staff)
	passes.GET("", h.handlePassListMine, anyone)
	passes.GET("/:id", h.handlePassGet, anyone)
	passes.POST("", h.handlePassCreate, middleware.RequireRoles(domain.RoleUser, domain.RoleAdmin))
	passes.PUT("/:id", h.handlePassUpdate, anyone)
	passes.DELETE("/:id", h.handlePassDelete, anyone)

	settings := e.Group("/api/settings", h.auth.IdentifyRequester, middleware.RequireRoles(domain.RoleAdmin))
	settings.GET("/lpr", h.handleSettingsGet)
	settings.POST("/lpr", h.handleSettingsSave)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok", "clients": h.hub.Count()})
}

// handleCheck answers 200 with a decision for every well-formed request.
func (h *Handler) handleCheck(c echo.Context) error {
	ctx := c.Request().Context()

	var req passgate.CheckRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	verr := &domain.ValidationError{}
	if req.Plate == "" {
		verr.Add("plate", "plate is required")
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		verr.Add("confidence", "must be between 0 and 1")
	}
	if len(verr.Fields) > 0 {
		return presenter.Invalid(c, verr)
	}

	gateID := req.GateID
	if gateID == "" {
		gateID = passgate.DefaultGateID
	}

	decision := h.decision.Decide(ctx, usecase.CheckInput{
		Plate:      req.Plate,
		GateID:     gateID,
		CapturedAt: req.CapturedAt,
		Confidence: req.Confidence,
	})

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("requestId", decision.RequestID),
		attribute.String("reason", string(decision.Reason)),
	)

	return presenter.OK(c, passgate.CheckResponse{
		Allowed:         decision.Allowed,
		Reason:          string(decision.Reason),
		PlateNorm:       decision.PlateNorm,
		PassID:          decision.PassID,
		CooldownSeconds: decision.CooldownSeconds,
		RequestID:       decision.RequestID,
	})
}

func (h *Handler) handleEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var req passgate.EventRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	verr := &domain.ValidationError{}
	if strings.TrimSpace(req.GateID) == "" {
		verr.Add("gateId", "gateId is required")
	}
	eventType := domain.EventType(req.EventType)
	if !eventType.Valid() {
		verr.Add("eventType", "unknown event type")
	}
	if req.RequestID != "" {
		if _, err := uuid.Parse(req.RequestID); err != nil {
			verr.Add("requestId", "must be a uuid")
		}
	}
	if req.PassID != nil && *req.PassID == 0 {
		verr.Add("passId", "must be a positive integer")
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		verr.Add("confidence", "must be between 0 and 1")
	}
	if len(verr.Fields) > 0 {
		return presenter.Invalid(c, verr)
	}

	result, err := h.event.Report(ctx, usecase.ReportInput{
		GateID:     req.GateID,
		EventType:  eventType,
		EventAt:    req.EventAt,
		Plate:      req.Plate,
		PassID:     req.PassID,
		RequestID:  req.RequestID,
		Confidence: req.Confidence,
		Meta:       req.Meta,
	})
	if err != nil {
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, passgate.EventAck{OK: true, Activated: result.Activated})
}

func (h *Handler) handleEvents(c echo.Context) error {
	ctx := c.Request().Context()

	filter := domain.EventFilter{
		RequestID: c.QueryParam("requestId"),
		GateID:    c.QueryParam("gateId"),
	}

	if passIDStr := c.QueryParam("passId"); passIDStr != "" {
		passID, err := parseID(passIDStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid passId parameter")
		}
		filter.PassID = &passID
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		filter.Limit = limit
	}

	events, err := h.eventLog.List(ctx, filter)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, events)
}

func (h *Handler) handlePassListMine(c echo.Context) error {
	ctx := c.Request().Context()
	requester, _ := middleware.Requester(ctx)

	passes, err := h.pass.ListMine(ctx, requester)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, passes)
}

func (h *Handler) handlePassListAll(c echo.Context) error {
	ctx := c.Request().Context()
	requester, _ := middleware.Requester(ctx)

	filter := domain.PassFilter{
		EntryDate: c.QueryParam("date"),
	}
	if vehicleType := c.QueryParam("vehicleType"); vehicleType != "" {
		filter.VehicleType = domain.VehicleType(vehicleType)
		if !filter.VehicleType.Valid() {
			return presenter.BadRequestMessage(c, "invalid vehicleType parameter")
		}
	}

	passes, err := h.pass.ListAll(ctx, requester, filter)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, passes)
}

func (h *Handler) handlePassGet(c echo.Context) error {
	ctx := c.Request().Context()
	requester, _ := middleware.Requester(ctx)

	id, err := parseID(c.Param("id"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	pass, err := h.pass.Get(ctx, requester, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, pass)
}

func (h *Handler) handlePassCreate(c echo.Context) error {
	ctx := c.Request().Context()
	requester, _ := middleware.Requester(ctx)

	var req passgate.PassRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	input := usecase.CreatePassInput{
		VehicleType:   domain.VehicleType(deref(req.VehicleType)),
		VehicleBrand:  deref(req.VehicleBrand),
		VehicleNumber: deref(req.VehicleNumber),
		EntryDate:     deref(req.EntryDate),
		Address:       deref(req.Address),
		Comment:       req.Comment,
		IsPermanent:   deref(req.IsPermanent),
		UserID:        deref(req.UserID),
	}

	pass, err := h.pass.Create(ctx, requester, input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, pass)
}

func (h *Handler) handlePassUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	requester, _ := middleware.Requester(ctx)

	id, err := parseID(c.Param("id"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	var req passgate.PassRequest
	err = c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	input := usecase.UpdatePassInput{
		VehicleBrand:    req.VehicleBrand,
		VehicleNumber:   req.VehicleNumber,
		EntryDate:       req.EntryDate,
		Address:         req.Address,
		Comment:         req.Comment,
		SecurityComment: req.SecurityComment,
		IsPermanent:     req.IsPermanent,
	}
	if req.VehicleType != nil {
		vehicleType := domain.VehicleType(*req.VehicleType)
		input.VehicleType = &vehicleType
	}
	if req.Status != nil {
		status := domain.PassStatus(*req.Status)
		input.Status = &status
	}

	pass, err := h.pass.Update(ctx, requester, id, input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, pass)
}

func (h *Handler) handlePassDelete(c echo.Context) error {
	ctx := c.Request().Context()
	requester, _ := middleware.Requester(ctx)

	id, err := parseID(c.Param("id"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	err = h.pass.Delete(ctx, requester, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"message": "pass deleted"})
}

func (h *Handler) handleSettingsGet(c echo.Context) error {
	ctx := c.Request().Context()

	settings, err := h.gate.Settings(ctx)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, settingsResponse(settings, ""))
}

func (h *Handler) handleSettingsSave(c echo.Context) error {
	ctx := c.Request().Context()

	var req passgate.SettingsRequest
	err := c.Bind(&req)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid request body")
	}

	settings, err := h.gate.Save(ctx, usecase.SettingsInput{
		CooldownSeconds:         req.CooldownSeconds,
		AllowedStatuses:         req.AllowedStatuses,
		AllowRepeatAfterEntered: req.AllowRepeatAfterEntered,
		Timezone:                req.Timezone,
		GenerateNewToken:        req.GenerateNewToken,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, settingsResponse(settings, "LPR settings saved"))
}

func settingsResponse(settings domain.GateSettings, message string) passgate.SettingsResponse {
	return passgate.SettingsResponse{
		Message:                 message,
		LprToken:                deref(settings.LprToken),
		CooldownSeconds:         deref(settings.CooldownSeconds),
		AllowedStatuses:         deref(settings.AllowedStatuses),
		AllowRepeatAfterEntered: deref(settings.AllowRepeatAfterEntered),
		Timezone:                deref(settings.Timezone),
	}
}

// handleStream serves live pass notifications as server-sent events.
func (h *Handler) handleStream(c echo.Context) error {
	ctx := c.Request().Context()

	w := c.Response()
	conn, err := newSSEConn(w)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	err = h.hub.Register(conn)
	if err != nil {
		return nil
	}
	defer h.hub.Unregister(conn)

	select {
	case <-ctx.Done():
	case <-conn.done:
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type string `json:"type"`
}

// handleRealtime is the websocket variant of handleStream.
func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}

	ctx := c.Request().Context()
	conn := newWSConn(ws)

	err = h.hub.Register(conn)
	if err != nil {
		conn.Close()
		return nil
	}
	defer h.hub.Unregister(conn)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	select {
	case <-quit:
	case <-conn.done:
	case <-ctx.Done():
	}
	return nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
