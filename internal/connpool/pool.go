// Package connpool implements the Connection Pool (spec.md §4.3):
// one live Device Session per device, serialized per device, bounded
// globally, with idle eviction.
package connpool

import (
	"context"
	"sync"
	"time"

	"github.com/tevino/abool"
	"go.uber.org/atomic"

	"firestige.xyz/netbackup/internal/devicesession"
	"firestige.xyz/netbackup/internal/models"
)

// CredentialFunc decrypts and returns the credentials Open needs for a
// device; the pool never stores plaintext secrets itself.
type CredentialFunc func(models.Device) (devicesession.Credentials, error)

// Config tunes pool behavior. MaxSessions is the global live-session
// ceiling from spec.md §4.3 (default 10). IdleTimeout is how long an
// unused session may stay warm before the sweep closes it.
type Config struct {
	MaxSessions int
	IdleTimeout time.Duration
	SweepEvery  time.Duration
}

// DefaultConfig matches spec.md defaults.
var DefaultConfig = Config{
	MaxSessions: 10,
	IdleTimeout: 10 * time.Minute,
	SweepEvery:  time.Minute,
}

type entry struct {
	session    *devicesession.Session
	inUse      *abool.AtomicBool
	lastUsedAt *atomic.Int64 // unix nanos
}

type opener func(ctx context.Context, device models.Device, creds devicesession.Credentials, timeouts devicesession.Timeouts) (*devicesession.Session, error)

// Pool maps device_id -> (Device Session, in-use flag). See spec.md
// §4.3 for the full policy list this type implements.
type Pool struct {
	cfg     Config
	creds   CredentialFunc
	timeout devicesession.Timeouts
	open    opener

	mu          sync.Mutex
	entries     map[int64]*entry
	deviceLocks map[int64]*sync.Mutex
	sem         chan struct{} // one token per live session slot

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New builds a Pool. creds resolves a Device to decrypted credentials
// at Open time (the pool holds sessions, never plaintext passwords,
// past the Open call).
func New(cfg Config, creds CredentialFunc) *Pool {
	return newPool(cfg, creds, devicesession.Open)
}

func newPool(cfg Config, creds CredentialFunc, open opener) *Pool {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig.MaxSessions
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig.IdleTimeout
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = DefaultConfig.SweepEvery
	}
	p := &Pool{
		cfg:         cfg,
		creds:       creds,
		timeout:     devicesession.DefaultTimeouts,
		open:        open,
		entries:     make(map[int64]*entry),
		deviceLocks: make(map[int64]*sync.Mutex),
		sem:         make(chan struct{}, cfg.MaxSessions),
		stopSweep:   make(chan struct{}),
	}
	go p.sweepLoop()
	return p
}

func (p *Pool) deviceLock(deviceID int64) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.deviceLocks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		p.deviceLocks[deviceID] = l
	}
	return l
}

// Acquire returns an open session for device, opening one if none is
// cached and the session cap permits. At most one in-use session per
// device exists at any time: a concurrent Acquire for the same device
// blocks on that device's mutex until Release/Dispose frees it
// (spec.md §4.3's "serialize" policy).
//
// Callers MUST call exactly one of Release or Dispose when done.
func (p *Pool) Acquire(ctx context.Context, device models.Device) (*devicesession.Session, error) {
	lock := p.deviceLock(device.ID)
	lock.Lock() // released by Release/Dispose, not here

	p.mu.Lock()
	e, exists := p.entries[device.ID]
	p.mu.Unlock()

	if exists {
		e.inUse.Set()
		return e.session, nil
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		lock.Unlock()
		return nil, ctx.Err()
	}

	creds, err := p.creds(device)
	if err != nil {
		<-p.sem
		lock.Unlock()
		return nil, err
	}

	sess, err := p.open(ctx, device, creds, p.timeout)
	if err != nil {
		<-p.sem
		lock.Unlock()
		return nil, err
	}

	e = &entry{session: sess, inUse: abool.New(), lastUsedAt: atomic.NewInt64(time.Now().UnixNano())}
	e.inUse.Set()
	p.mu.Lock()
	p.entries[device.ID] = e
	p.mu.Unlock()

	return sess, nil
}

// Release marks the device's session free but keeps it warm for
// reuse, per spec.md §4.3.
func (p *Pool) Release(device models.Device) {
	p.mu.Lock()
	e, ok := p.entries[device.ID]
	p.mu.Unlock()
	if ok {
		e.inUse.UnSet()
		e.lastUsedAt.Store(time.Now().UnixNano())
	}
	p.deviceLock(device.ID).Unlock()
}

// Dispose closes and removes the device's session. Spec.md §4.3: if
// Execute fails with a transport error on an acquired session, that
// session must be disposed before the task is marked failed.
func (p *Pool) Dispose(device models.Device) {
	p.mu.Lock()
	e, ok := p.entries[device.ID]
	if ok {
		delete(p.entries, device.ID)
	}
	p.mu.Unlock()

	if ok {
		e.session.Close()
		select {
		case <-p.sem:
		default:
		}
	}
	p.deviceLock(device.ID).Unlock()
}

// Shutdown closes all cached sessions. Called during process shutdown
// after the Worker Pool has drained (spec.md §5).
func (p *Pool) Shutdown() {
	p.sweepOnce.Do(func() { close(p.stopSweep) })

	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[int64]*entry)
	p.mu.Unlock()

	for _, e := range entries {
		e.session.Close()
		select {
		case <-p.sem:
		default:
		}
	}
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.sweepIdle()
		case <-p.stopSweep:
			return
		}
	}
}

// sweepIdle closes sessions that have been idle (released, not
// in-use) longer than IdleTimeout. Not required for correctness
// (spec.md §4.3) — purely a resource-reclamation nicety.
func (p *Pool) sweepIdle() {
	now := time.Now()
	var toClose []*devicesession.Session

	p.mu.Lock()
	for id, e := range p.entries {
		if e.inUse.IsSet() {
			continue
		}
		idleSince := time.Unix(0, e.lastUsedAt.Load())
		if now.Sub(idleSince) >= p.cfg.IdleTimeout {
			toClose = append(toClose, e.session)
			delete(p.entries, id)
		}
	}
	p.mu.Unlock()

	for _, s := range toClose {
		s.Close()
		select {
		case <-p.sem:
		default:
		}
	}
}
