package services

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"

	"github.com/RozoAI/rozo-intents/models"
)

// Messenger delivers an encoded notification payload to the trusted contract
// on another chain. Delivery is fire-and-forget: the engine never blocks on
// the remote chain and the original filler may retry through any adapter.
type Messenger interface {
	Deliver(ctx context.Context, destinationChain, destinationAddress string, payload []byte) error
}

// MessengerRegistry maps numeric adapter IDs to transports. New transports
// are added by registration, not by branching.
type MessengerRegistry struct {
	mu       sync.RWMutex
	adapters map[uint32]Messenger
}

// NewMessengerRegistry creates an empty adapter registry
func NewMessengerRegistry() *MessengerRegistry {
	return &MessengerRegistry{adapters: make(map[uint32]Messenger)}
}

// Register installs an adapter under the given ID, replacing any previous one
func (r *MessengerRegistry) Register(id uint32, m Messenger) {
	r.mu.Lock()
	r.adapters[id] = m
	r.mu.Unlock()
}

// Get returns the adapter registered under the given ID
func (r *MessengerRegistry) Get(id uint32) (Messenger, bool) {
	r.mu.RLock()
	m, ok := r.adapters[id]
	r.mu.RUnlock()
	return m, ok
}

// IDs returns the registered adapter IDs
func (r *MessengerRegistry) IDs() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint32, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}

// MemoryMessenger captures outbound messages in memory. It serves tests and
// local deployments, mirroring what an on-chain gateway would carry.
type MemoryMessenger struct {
	mu       sync.Mutex
	messages []models.OutboundMessage
}

// NewMemoryMessenger creates an empty capturing messenger
func NewMemoryMessenger() *MemoryMessenger {
	return &MemoryMessenger{}
}

// Deliver records the message instead of sending it anywhere
func (m *MemoryMessenger) Deliver(_ context.Context, destinationChain, destinationAddress string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.messages = append(m.messages, models.OutboundMessage{
		DestinationChain:   destinationChain,
		DestinationAddress: destinationAddress,
		Payload:            cp,
	})
	return nil
}

// Messages returns all captured messages
func (m *MemoryMessenger) Messages() []models.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.OutboundMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// HTTPMessenger posts payloads to a relayer gateway over HTTP.
type HTTPMessenger struct {
	client *gentleman.Client
}

// NewHTTPMessenger creates a messenger posting to the given base URL
func NewHTTPMessenger(baseURL string) *HTTPMessenger {
	cli := gentleman.New()
	cli.URL(baseURL)
	return &HTTPMessenger{client: cli}
}

// Deliver posts the hex-encoded payload to the gateway's dispatch endpoint
func (m *HTTPMessenger) Deliver(_ context.Context, destinationChain, destinationAddress string, payload []byte) error {
	req := m.client.Request().
		Method("POST").
		Path("/v1/messages").
		Use(body.JSON(map[string]string{
			"destination_chain":   destinationChain,
			"destination_address": destinationAddress,
			"payload":             "0x" + hex.EncodeToString(payload),
		}))

	res, err := req.Send()
	if err != nil {
		return errors.Wrap(err, "failed to dispatch message")
	}
	if !res.Ok {
		return errors.Errorf("gateway rejected message with status %d", res.StatusCode)
	}
	return nil
}
