package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/camsens/internal/command"
	"github.com/e7canasta/camsens/internal/session"
)

// Request is a control plane message
type Request struct {
	Command string `json:"command"`
}

// Response is published to <topic>/response for every request
type Response struct {
	CommandAck string          `json:"command_ack"`
	Status     string          `json:"status"`
	Data       *session.Status `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	Timestamp  string          `json:"timestamp"`
}

// StatusProvider returns the current session status
type StatusProvider interface {
	Snapshot() session.Status
}

// Handler turns MQTT control messages into session commands
type Handler struct {
	client   mqtt.Client
	topic    string
	qos      byte
	provider StatusProvider

	commands chan command.Command

	mu      sync.Mutex
	stopped bool
}

// NewHandler creates a control plane handler. provider may be nil, in which
// case get_status is answered with an error.
func NewHandler(client mqtt.Client, topic string, qos byte, provider StatusProvider) *Handler {
	return &Handler{
		client:   client,
		topic:    topic,
		qos:      qos,
		provider: provider,
		commands: make(chan command.Command, 10),
	}
}

// Commands returns the channel session commands are delivered on. It is
// closed by Stop.
func (h *Handler) Commands() <-chan command.Command {
	return h.commands
}

// Start subscribes to the control topic
func (h *Handler) Start(ctx context.Context) error {
	slog.Info("control: subscribing to control plane", "topic", h.topic, "qos", h.qos)

	token := h.client.Subscribe(h.topic, h.qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control: subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control: subscription failed: %w", err)
	}

	go func() {
		<-ctx.Done()
		h.Stop()
	}()
	return nil
}

// Stop unsubscribes and closes the command channel. Idempotent.
func (h *Handler) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true

	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(h.topic)
		token.WaitTimeout(2 * time.Second)
	}
	close(h.commands)

	slog.Info("control: handler stopped")
	return nil
}

func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	h.sendResponse(h.Handle(msg.Payload()))
}

// Handle processes one control payload and returns the response to publish
func (h *Handler) Handle(payload []byte) Response {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		slog.Error("control: failed to parse command", "error", err)
		return Response{CommandAck: "unknown", Status: "error", Error: "invalid JSON"}
	}

	slog.Info("control: command received", "command", req.Command)

	if req.Command == "get_status" {
		if h.provider == nil {
			return Response{CommandAck: req.Command, Status: "error", Error: "get_status not available"}
		}
		st := h.provider.Snapshot()
		return Response{CommandAck: req.Command, Status: "success", Data: &st}
	}

	cmd, err := ParseCommand(req.Command)
	if err != nil {
		return Response{CommandAck: req.Command, Status: "error", Error: err.Error()}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return Response{CommandAck: req.Command, Status: "error", Error: "control plane stopped"}
	}
	select {
	case h.commands <- cmd:
		return Response{CommandAck: req.Command, Status: "accepted"}
	default:
		slog.Warn("control: command queue full, dropping command", "command", req.Command)
		return Response{CommandAck: req.Command, Status: "error", Error: "command queue full"}
	}
}

// ParseCommand maps a control plane command name to a session command
func ParseCommand(name string) (command.Command, error) {
	switch name {
	case "start_recording":
		return command.StartRecording, nil
	case "start_sensing":
		return command.StartSensing, nil
	case "stop":
		return command.Stop, nil
	default:
		return 0, fmt.Errorf("unknown command: %s", name)
	}
}

func (h *Handler) sendResponse(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("control: failed to marshal response", "error", err)
		return
	}

	topic := h.topic + "/response"
	token := h.client.Publish(topic, h.qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Warn("control: response publish timeout", "topic", topic)
	}
}
