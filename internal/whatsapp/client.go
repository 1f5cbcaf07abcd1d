// Package whatsapp wraps a whatsmeow linked-device client: session storage,
// QR pairing, readiness tracking and plain text sends.
package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/shaharia-lab/formrelay/internal/eventbus"
	"github.com/shaharia-lab/formrelay/internal/phone"
	"github.com/shaharia-lab/formrelay/internal/readiness"
	"github.com/shaharia-lab/formrelay/internal/storage"
)

// ErrNotConnected is returned by Send while the websocket is down.
var ErrNotConnected = errors.New("whatsapp client is not connected")

// EventPublisher receives client lifecycle events.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// waClient is the subset of *whatsmeow.Client used here.
type waClient interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	IsLoggedIn() bool
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// Info describes the client for the status endpoint.
type Info struct {
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	LoggedIn  bool   `json:"logged_in"`
	JID       string `json:"jid,omitempty"`
	PushName  string `json:"push_name,omitempty"`
}

// Options configures New.
type Options struct {
	// QRWriter receives the pairing QR code. Nil disables terminal rendering;
	// pairing codes are still logged.
	QRWriter io.Writer
}

// Client is the process-wide WhatsApp connection. It owns the readiness
// state and flips it once the linked device has connected.
type Client struct {
	wa        waClient
	raw       *whatsmeow.Client
	device    *store.Device
	state     *readiness.State
	publisher EventPublisher
	logger    *slog.Logger
	qrOut     io.Writer
}

// New loads (or creates) the device session from db and builds the client.
// It does not connect; call Start.
func New(ctx context.Context, db *sql.DB, state *readiness.State, publisher EventPublisher, logger *slog.Logger, opts Options) (*Client, error) {
	waLogger := NewLogger(logger)

	container := sqlstore.NewWithDB(db, storage.Dialect, waLogger.Sub("Database"))
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrading whatsapp session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading whatsapp device: %w", err)
	}

	raw := whatsmeow.NewClient(device, waLogger.Sub("Client"))
	c := newClient(raw, device, state, publisher, logger)
	c.raw = raw
	c.qrOut = opts.QRWriter
	raw.AddEventHandler(c.handleEvent)
	return c, nil
}

func newClient(wa waClient, device *store.Device, state *readiness.State, publisher EventPublisher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		wa:        wa,
		device:    device,
		state:     state,
		publisher: publisher,
		logger:    logger,
	}
}

// Start connects to WhatsApp. An unpaired device first opens a QR channel and
// renders each pairing code until the phone scans one or ctx ends.
func (c *Client) Start(ctx context.Context) error {
	if c.paired() {
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("connecting to whatsapp: %w", err)
		}
		return nil
	}

	if c.raw == nil {
		return errors.New("whatsapp device is not paired")
	}
	qrChan, err := c.raw.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("opening whatsapp QR channel: %w", err)
	}
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("connecting to whatsapp: %w", err)
	}
	go c.renderQR(qrChan)
	return nil
}

func (c *Client) renderQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.logger.Info("QR code received, scan it with the WhatsApp mobile app",
				"expires_in", item.Timeout)
			if c.qrOut != nil {
				qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, c.qrOut)
			}
		case "success":
			c.logger.Info("whatsapp pairing completed")
		case "timeout":
			c.logger.Warn("whatsapp pairing timed out; restart to get a new QR code")
		default:
			c.logger.Error("whatsapp pairing failed", "event", item.Event, "error", item.Error)
		}
	}
}

func (c *Client) paired() bool {
	return c.device != nil && c.device.ID != nil
}

func (c *Client) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Connected:
		if !c.paired() {
			return
		}
		if c.state.MarkReady() {
			c.logger.Info("whatsapp client is ready", "jid", c.device.ID.String(), "push_name", c.device.PushName)
			c.publish(eventbus.EventWhatsAppReady, map[string]string{"jid": c.device.ID.String()})
			return
		}
		c.logger.Info("whatsapp client reconnected")
	case *events.PairSuccess:
		c.logger.Info("whatsapp client authenticated", "jid", v.ID.String(), "platform", v.Platform)
	case *events.LoggedOut:
		c.logger.Error("whatsapp authentication failure: device logged out",
			"reason", v.Reason.String(), "on_connect", v.OnConnect)
		c.publish(eventbus.EventWhatsAppLoggedOut, map[string]string{"reason": v.Reason.String()})
	case *events.ConnectFailure:
		c.logger.Error("whatsapp connection failure", "reason", v.Reason.String(), "message", v.Message)
	case *events.StreamReplaced:
		c.logger.Warn("whatsapp session replaced by another connection")
	case *events.Disconnected:
		c.logger.Warn("whatsapp websocket disconnected")
	}
}

func (c *Client) publish(eventType string, payload map[string]string) {
	if c.publisher != nil {
		c.publisher.Publish(eventType, payload)
	}
}

// Send delivers text to recipient, a JID such as 94771461925@s.whatsapp.net.
func (c *Client) Send(ctx context.Context, recipient, text string) error {
	jid, err := types.ParseJID(recipient)
	if err != nil {
		return fmt.Errorf("parsing recipient %q: %w", recipient, err)
	}
	if jid.Server == types.DefaultUserServer {
		if err := phone.Validate(jid.User); err != nil {
			return err
		}
	}
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}

	resp, err := c.wa.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return fmt.Errorf("sending whatsapp message: %w", err)
	}
	c.logger.Debug("whatsapp message accepted", "recipient", recipient, "message_id", resp.ID)
	return nil
}

// Info returns the current connection details.
func (c *Client) Info() Info {
	info := Info{
		Ready:     c.state.Ready(),
		Connected: c.wa.IsConnected(),
		LoggedIn:  c.wa.IsLoggedIn(),
	}
	if c.paired() {
		info.JID = c.device.ID.String()
		info.PushName = c.device.PushName
	}
	return info
}

// IsConnected reports whether the websocket is up.
func (c *Client) IsConnected() bool { return c.wa.IsConnected() }

// IsPaired reports whether a device session is stored.
func (c *Client) IsPaired() bool { return c.paired() }

// Reconnect opens the websocket again after a drop. whatsmeow reconnects on
// its own as well, so finding the socket already open is not an error.
func (c *Client) Reconnect() error {
	if err := c.wa.Connect(); err != nil && !errors.Is(err, whatsmeow.ErrAlreadyConnected) {
		return err
	}
	return nil
}

// Close disconnects. The caller owns and closes the database.
func (c *Client) Close() {
	c.wa.Disconnect()
}
