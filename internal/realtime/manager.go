package realtime

import (
	"context"
	"sync"
)

type managedBridge struct {
	bridge *Bridge
	refs   int
}

// Manager shares one bridge per user between concurrent consumers.
type Manager struct {
	transport Transport
	feed      ChangeFeed
	sink      Sink
	invoker   FunctionInvoker
	cfg       Config

	mu      sync.Mutex
	ctx     context.Context
	bridges map[string]*managedBridge
}

// NewManager builds a manager whose bridges live no longer than ctx.
func NewManager(ctx context.Context, transport Transport, feed ChangeFeed, sink Sink, invoker FunctionInvoker, cfg Config) *Manager {
	return &Manager{
		transport: transport,
		feed:      feed,
		sink:      sink,
		invoker:   invoker,
		cfg:       cfg,
		ctx:       ctx,
		bridges:   make(map[string]*managedBridge),
	}
}

// Acquire returns the user's running bridge, starting it on first use.
// Every Acquire must be paired with a Release.
func (m *Manager) Acquire(userID, role string, custom ...string) *Bridge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mb, ok := m.bridges[userID]; ok {
		mb.refs++
		return mb.bridge
	}

	b := NewBridge(userID, ChannelsFor(userID, role, custom...), m.transport, m.feed, m.sink, m.invoker, m.cfg)
	m.bridges[userID] = &managedBridge{bridge: b, refs: 1}
	b.Start(m.ctx)
	return b
}

// Release closes the bridge when its last consumer lets go.
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	mb, ok := m.bridges[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	mb.refs--
	if mb.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.bridges, userID)
	m.mu.Unlock()

	mb.bridge.Close()
}

func (m *Manager) Get(userID string) (*Bridge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.bridges[userID]
	if !ok {
		return nil, false
	}
	return mb.bridge, true
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bridges)
}

// CloseAll stops every bridge regardless of reference counts.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	bridges := m.bridges
	m.bridges = make(map[string]*managedBridge)
	m.mu.Unlock()

	for _, mb := range bridges {
		mb.bridge.Close()
	}
}
