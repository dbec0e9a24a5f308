package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// PoolConfig tunes the SSH connection pool.
type PoolConfig struct {
	ConnectTimeout time.Duration
	// KeepAliveInterval is how often idle clients are checked with a keep-alive request; a client
	// that fails it is dropped and redialed on next use.
	KeepAliveInterval time.Duration
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		ConnectTimeout:    15 * time.Second,
		KeepAliveInterval: 30 * time.Second,
	}
}

type dialSSHFunc func(ctx context.Context, cfg ConnectionCfg, timeout time.Duration) (*ssh.Client, error)

var currentDialer dialSSHFunc = dialSSH

// ConnectionPool shares one SSH client per user@host:port. An ssh.Client
// multiplexes sessions, so every stage targeting a host reuses the same
// TCP connection for the whole run.
type ConnectionPool struct {
	config  PoolConfig
	mu      sync.Mutex
	clients map[string]*ssh.Client
	dialing map[string]*sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewConnectionPool(config *PoolConfig) *ConnectionPool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultPoolConfig().ConnectTimeout
	}
	cp := &ConnectionPool{
		config:  *config,
		clients: make(map[string]*ssh.Client),
		dialing: make(map[string]*sync.Mutex),
		stopCh:  make(chan struct{}),
	}
	if config.KeepAliveInterval > 0 {
		cp.wg.Add(1)
		go cp.keepAlive()
	}
	return cp
}

func poolKey(cfg ConnectionCfg) string {
	return fmt.Sprintf("%s@%s:%d", cfg.User, cfg.Host, cfg.Port)
}

// Get returns the shared client for cfg, dialing it on first use.
func (cp *ConnectionPool) Get(ctx context.Context, cfg ConnectionCfg) (*ssh.Client, error) {
	key := poolKey(cfg)

	cp.mu.Lock()
	if c, ok := cp.clients[key]; ok {
		cp.mu.Unlock()
		return c, nil
	}
	dl, ok := cp.dialing[key]
	if !ok {
		dl = &sync.Mutex{}
		cp.dialing[key] = dl
	}
	cp.mu.Unlock()

	// one dial per key at a time; late arrivals pick up the result
	dl.Lock()
	defer dl.Unlock()

	cp.mu.Lock()
	if c, ok := cp.clients[key]; ok {
		cp.mu.Unlock()
		return c, nil
	}
	cp.mu.Unlock()

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = cp.config.ConnectTimeout
	}
	client, err := currentDialer(ctx, cfg, timeout)
	if err != nil {
		return nil, err
	}

	cp.mu.Lock()
	cp.clients[key] = client
	cp.mu.Unlock()
	return client, nil
}

// Evict closes and forgets the client for cfg.
func (cp *ConnectionPool) Evict(cfg ConnectionCfg) {
	key := poolKey(cfg)
	cp.mu.Lock()
	c, ok := cp.clients[key]
	delete(cp.clients, key)
	cp.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}

// Size returns the number of live clients.
func (cp *ConnectionPool) Size() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.clients)
}

func (cp *ConnectionPool) keepAlive() {
	defer cp.wg.Done()
	ticker := time.NewTicker(cp.config.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cp.stopCh:
			return
		case <-ticker.C:
			cp.mu.Lock()
			for key, c := range cp.clients {
				if _, _, err := c.SendRequest("keepalive@openssh.com", true, nil); err != nil {
					_ = c.Close()
					delete(cp.clients, key)
				}
			}
			cp.mu.Unlock()
		}
	}
}

// Shutdown stops the keep-alive loop and closes every client.
func (cp *ConnectionPool) Shutdown() {
	select {
	case <-cp.stopCh:
	default:
		close(cp.stopCh)
	}
	cp.wg.Wait()

	cp.mu.Lock()
	defer cp.mu.Unlock()
	for key, c := range cp.clients {
		_ = c.Close()
		delete(cp.clients, key)
	}
}
