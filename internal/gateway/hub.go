package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/repositories"
	"github.com/neutralbridge/concierge/internal/audio"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The widget is served cross-origin from the book site
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active widget connections and holds the
// services one voice turn needs.
type Hub struct {
	// Registered clients keyed by widget ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	llm      repositories.LargeLanguageModel
	tts      repositories.TextToSpeech
	stt      repositories.SpeechToText
	sessions repositories.SessionRepository

	logTranscripts bool

	logger *zap.Logger
}

// LogTranscripts includes what the visitor said in turn logs. Off by
// default so visitor speech stays out of the logs. Set before Run.
func (h *Hub) LogTranscripts(enabled bool) {
	h.logTranscripts = enabled
}

// NewHub creates a new WebSocket hub
func NewHub(
	llm repositories.LargeLanguageModel,
	tts repositories.TextToSpeech,
	stt repositories.SpeechToText,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		llm:        llm,
		tts:        tts,
		stt:        stt,
		sessions:   sessions,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.widgetID] = client
			h.mu.Unlock()
			h.logger.Info("Widget connected", zap.String("widgetID", client.widgetID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.widgetID]; ok {
				delete(h.clients, client.widgetID)
				close(client.done)
			}
			h.mu.Unlock()
			h.logger.Info("Widget disconnected", zap.String("widgetID", client.widgetID))
		}
	}
}

// ClientCount reports connected widgets, for the health endpoint
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteData is one outbound websocket frame.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one widget connection and the hub.
type Client struct {
	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound frames. Never closed; done signals
	// writers instead, so a reply goroutine can never send on a closed
	// channel.
	send chan WriteData

	// Closed by the hub when the client unregisters.
	done chan struct{}

	widgetID string

	logger *zap.Logger

	// Per-turn streaming state, guarded by mutex.
	session        *entities.Session
	sttStreaming   repositories.SpeechToTextStreaming
	chatSession    repositories.ChatSession
	chunkCount     int
	listeningStart time.Time

	mutex sync.Mutex
}

// HandleConnection upgrades an authenticated request and starts the
// client pumps. The widget ID comes from the validated token, never from
// the request itself.
func HandleConnection(hub *Hub, c echo.Context, widgetID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		done:     make(chan struct{}),
		widgetID: widgetID,
		logger:   logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processControlMessage(message)
		case websocket.BinaryMessage:
			c.processAudioFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Outbound buffer full, dropping message",
			zap.String("widgetID", c.widgetID))
	}
}

// sendBinary queues one reply audio frame, reporting false once the
// client has unregistered. Blocks while the buffer is full so audio
// frames keep their order.
func (c *Client) sendBinary(payload []byte) bool {
	select {
	case c.send <- WriteData{Type: websocket.BinaryMessage, Payload: payload}:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) sendError(code, message string) {
	c.sendJSON(CreateErrorMessage(code, message))
}

// processControlMessage processes incoming control messages from the widget
func (c *Client) processControlMessage(message []byte) {
	msg, err := ParseControlMessage(message)
	if err != nil {
		c.logger.Error("Failed to parse control message", zap.Error(err))
		c.sendError("invalid_message", "could not parse control message")
		return
	}

	switch m := msg.(type) {
	case *ListeningStartMessage:
		c.handleListeningStart(m)
	case *AudioChunkMessage:
		c.handleEncodedChunk(m)
	case *BaseMessage:
		c.handleListeningEnd()
	}
}

// handleEncodedChunk forwards a base64 JSON frame to the transcriber
func (c *Client) handleEncodedChunk(msg *AudioChunkMessage) {
	raw, err := audio.DecodeToPCM16(audio.EncodedChunk(msg.AudioChunk))
	if err != nil {
		c.logger.Warn("Dropping malformed audio chunk",
			zap.String("widgetID", c.widgetID),
			zap.Error(err))
		return
	}
	c.processAudioFrame(raw)
}

// processAudioFrame forwards one binary capture frame to the transcriber
func (c *Client) processAudioFrame(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.sttStreaming == nil {
		c.logger.Warn("Audio frame outside a listening turn",
			zap.String("widgetID", c.widgetID))
		return
	}

	c.chunkCount++

	if err := c.sttStreaming.Stream(data); err != nil {
		c.logger.Error("Failed to stream audio frame",
			zap.String("widgetID", c.widgetID),
			zap.Error(err))
	}
}

// handleListeningStart opens one capture turn
func (c *Client) handleListeningStart(msg *ListeningStartMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.chunkCount = 0
	c.listeningStart = time.Now()

	if err := c.ensureSession(ctx); err != nil {
		c.logger.Error("Failed to prepare session",
			zap.String("widgetID", c.widgetID),
			zap.Error(err))
		c.sendError("session_unavailable", "could not prepare a conversation session")
		return
	}

	if c.chatSession == nil {
		chatSession, err := c.hub.llm.GenerateChat(ctx, chatHistory(c.session))
		if err != nil {
			c.logger.Error("Failed to create chat session",
				zap.String("widgetID", c.widgetID),
				zap.Error(err))
			c.sendError("chat_unavailable", "could not reach the language model")
			return
		}
		c.chatSession = chatSession
	}

	audioConfig := repositories.AudioConfig{
		SampleRate: audio.CaptureSampleRate,
		Encoding:   "LINEAR16",
		Language:   "en-US",
	}
	if msg.SampleRate > 0 {
		audioConfig.SampleRate = msg.SampleRate
	}
	if msg.Language != "" {
		audioConfig.Language = msg.Language
	}

	sttStreaming, err := c.hub.stt.InitTranscribeStreaming(ctx, audioConfig)
	if err != nil {
		c.logger.Error("Failed to initialize streaming transcription",
			zap.String("sessionID", c.session.ID),
			zap.Error(err))
		c.sendError("transcription_unavailable", "could not start transcription")
		return
	}
	c.sttStreaming = sttStreaming

	c.logger.Info("Listening turn started",
		zap.String("widgetID", c.widgetID),
		zap.String("sessionID", c.session.ID))

	c.sendJSON(map[string]interface{}{
		"type":       MessageTypeListeningStart,
		"session_id": c.session.ID,
		"timestamp":  c.listeningStart.Unix(),
	})
}

// ensureSession makes sure the client has a continuable session,
// starting a fresh one when the last went stale. Caller holds the mutex.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.session == nil {
		session, err := c.hub.sessions.GetLastByWidgetID(ctx, c.widgetID)
		if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
			return err
		}
		c.session = session
	}

	if c.session != nil && c.session.CanContinue() {
		return nil
	}

	c.session = entities.NewSession(c.widgetID)
	c.chatSession = nil
	return c.hub.sessions.Create(ctx, c.session)
}

// handleListeningEnd closes the capture turn and kicks off the reply
func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.sttStreaming == nil || c.session == nil {
		c.sendError("no_turn", "listening_end without listening_start")
		return
	}

	transcription, err := c.sttStreaming.End()
	c.sttStreaming = nil
	if err != nil {
		c.logger.Error("Failed to end transcription stream",
			zap.String("widgetID", c.widgetID),
			zap.String("sessionID", c.session.ID),
			zap.Error(err))
		c.sendError("transcription_failed", "could not transcribe the turn")
		return
	}

	if c.hub.logTranscripts {
		c.logger.Info("Transcription completed",
			zap.String("widgetID", c.widgetID),
			zap.String("sessionID", c.session.ID),
			zap.String("transcription", transcription))
	}

	go c.respond(transcription, time.Since(c.listeningStart).Milliseconds())
}

// respond runs the model turn and streams the spoken reply back
func (c *Client) respond(transcription string, captureMs int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c.mutex.Lock()
	session := c.session
	chatSession := c.chatSession
	c.mutex.Unlock()

	reply, err := chatSession.SendMessage(ctx, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: transcription,
	})
	if err != nil {
		c.logger.Error("Chat turn failed",
			zap.String("widgetID", c.widgetID),
			zap.String("sessionID", session.ID),
			zap.Error(err))
		c.sendError("chat_failed", "the assistant could not answer")
		return
	}

	trigger, text := entities.ParseTriggerDirective(reply.Content)

	c.sendJSON(CreateSpeakingStart(session.ID, text, trigger))

	if c.hub.tts != nil && text != "" {
		audioChan, err := c.hub.tts.ConvertTextToSpeech(ctx, text)
		if err != nil {
			c.logger.Warn("Text-to-speech failed, reply is text-only",
				zap.String("sessionID", session.ID),
				zap.Error(err))
		} else {
			for audioData := range audioChan {
				if !c.sendBinary(audioData) {
					// Peer went away mid-reply. Let the synthesizer
					// finish so its goroutine exits, keep the transcript.
					for range audioChan {
					}
					break
				}
			}
		}
	}

	c.sendJSON(CreateSpeakingEnd(session.ID))

	c.mutex.Lock()
	session.AddMessage(entities.MessageRoleUser, transcription, captureMs)
	session.AddMessage(entities.MessageRoleAssistant, text, 0)
	c.mutex.Unlock()

	updateCtx, updateCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer updateCancel()
	if err := c.hub.sessions.Update(updateCtx, session); err != nil {
		c.logger.Error("Failed to update session transcript",
			zap.String("sessionID", session.ID),
			zap.Error(err))
	}
}

func chatHistory(session *entities.Session) []repositories.ChatMessage {
	history := make([]repositories.ChatMessage, 0, len(session.Messages))
	for _, msg := range session.Messages {
		role := repositories.UserRole
		if msg.Role == entities.MessageRoleAssistant {
			role = repositories.AssistantRole
		}
		history = append(history, repositories.ChatMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return history
}
