package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/faults"
	"github.com/neutralbridge/concierge/internal/audio"
	"github.com/neutralbridge/concierge/internal/auth"
	"github.com/neutralbridge/concierge/internal/gateway"
	"github.com/neutralbridge/concierge/usecase"
)

// InitRoutes initializes all API routes. ready, when non-nil, is a
// preflight check run before any request that would reach the upstream
// model; it exists so a missing credential answers as a structured 500
// instead of a connection attempt.
func InitRoutes(e *echo.Echo, assistant *usecase.AssistantService, hub *gateway.Hub, ready func() error, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "concierge-server",
			"widgets": hub.ClientCount(),
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/generate", func(c echo.Context) error {
		return handleGenerate(c, assistant, ready, logger)
	})

	v1.POST("/voice", func(c echo.Context) error {
		return handleVoice(c, assistant, ready, logger)
	})

	v1.POST("/widget/session", func(c echo.Context) error {
		return handleWidgetSession(c, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

// errorJSON writes err with the status the fault taxonomy maps it to.
// The body's error field carries a plain message the widget can show.
func errorJSON(c echo.Context, logger *zap.Logger, err error) error {
	status := faults.HTTPStatus(err)
	if status >= 500 {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}

func handleGenerate(c echo.Context, assistant *usecase.AssistantService, ready func() error, logger *zap.Logger) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, logger, faults.Validation("body", "invalid request format"))
	}

	if req.Prompt == "" {
		return errorJSON(c, logger, faults.Validation("prompt", "must not be empty"))
	}

	if ready != nil {
		if err := ready(); err != nil {
			return errorJSON(c, logger, err)
		}
	}

	text, err := assistant.Generate(c.Request().Context(), req.Prompt, req.Model)
	if err != nil {
		return errorJSON(c, logger, err)
	}

	return c.JSON(http.StatusOK, GenerateResponse{Text: text})
}

func handleVoice(c echo.Context, assistant *usecase.AssistantService, ready func() error, logger *zap.Logger) error {
	var req VoiceRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, logger, faults.Validation("body", "invalid request format"))
	}

	if req.AudioChunk == "" {
		return errorJSON(c, logger, faults.Validation("audioChunk", "must not be empty"))
	}

	if ready != nil {
		if err := ready(); err != nil {
			return errorJSON(c, logger, err)
		}
	}

	widgetID := req.SessionID
	if widgetID == "" {
		widgetID = uuid.NewString()
	}

	response, err := assistant.ProcessAudioChunk(c.Request().Context(), widgetID, audio.EncodedChunk(req.AudioChunk))
	if err != nil {
		return errorJSON(c, logger, err)
	}

	out := VoiceResponse{
		Text:      response.Text,
		SessionID: widgetID,
	}
	if response.HasAudio() {
		out.AudioResponse = string(audio.EncodePCM16(response.Audio))
	}
	if response.Trigger != nil {
		if wire, err := response.Trigger.MarshalWire(); err == nil {
			out.UITrigger = wire
		} else {
			logger.Warn("Dropping unmarshalable trigger", zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, out)
}

func handleWidgetSession(c echo.Context, logger *zap.Logger) error {
	var req WidgetSessionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, logger, faults.Validation("body", "invalid request format"))
	}

	widgetID := req.WidgetID
	if widgetID == "" {
		widgetID = uuid.NewString()
	}

	token, err := auth.GenerateWidgetToken(widgetID)
	if err != nil {
		logger.Error("Failed to generate widget token",
			zap.String("widget_id", widgetID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to generate widget token",
		})
	}

	logger.Info("Widget session issued", zap.String("widget_id", widgetID))

	return c.JSON(http.StatusOK, WidgetSessionResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		WidgetID:  widgetID,
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *gateway.Hub, c echo.Context, logger *zap.Logger) error {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		// Browsers cannot set headers on websocket dials; accept the
		// token as a query parameter too.
		token = c.QueryParam("token")
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "widget token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "invalid or expired widget token",
		})
	}

	if claims.Role != "widget" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "only widget tokens may open a voice channel",
		})
	}

	if claims.WidgetID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "widget ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("widget_id", claims.WidgetID))

	return gateway.HandleConnection(hub, c, claims.WidgetID, logger)
}
