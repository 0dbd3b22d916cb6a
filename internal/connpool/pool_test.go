package connpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/devicesession"
	"firestige.xyz/netbackup/internal/models"
)

func fakeOpener(device models.Device, creds devicesession.Credentials, timeouts devicesession.Timeouts) (*devicesession.Session, error) {
	return devicesession.NewFakeSession("generic", "ok"), nil
}

func newTestPool(cfg Config) *Pool {
	return newPool(cfg, func(d models.Device) (devicesession.Credentials, error) {
		return devicesession.Credentials{Password: "pw"}, nil
	}, func(ctx context.Context, device models.Device, creds devicesession.Credentials, timeouts devicesession.Timeouts) (*devicesession.Session, error) {
		return fakeOpener(device, creds, timeouts)
	})
}

func TestAcquireReuse(t *testing.T) {
	p := newTestPool(Config{MaxSessions: 2})
	defer p.Shutdown()

	device := models.Device{ID: 1}
	s1, err := p.Acquire(context.Background(), device)
	require.NoError(t, err)
	p.Release(device)

	s2, err := p.Acquire(context.Background(), device)
	require.NoError(t, err)
	p.Release(device)

	assert.Same(t, s1, s2, "Acquire should reuse the cached session for the same device")
}

func TestAcquireSerializesPerDevice(t *testing.T) {
	p := newTestPool(Config{MaxSessions: 5})
	defer p.Shutdown()

	device := models.Device{ID: 7}
	var order []int
	var mu sync.Mutex

	_, err := p.Acquire(context.Background(), device)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, err := p.Acquire(context.Background(), device)
		require.NoError(t, err)
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		p.Release(device)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	p.Release(device) // unblocks the goroutine's Acquire

	<-done
	assert.Equal(t, []int{1, 2}, order)
}

func TestDisposeFreesSlot(t *testing.T) {
	p := newTestPool(Config{MaxSessions: 1})
	defer p.Shutdown()

	d1 := models.Device{ID: 1}
	d2 := models.Device{ID: 2}

	_, err := p.Acquire(context.Background(), d1)
	require.NoError(t, err)
	p.Dispose(d1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = p.Acquire(ctx, d2)
	require.NoError(t, err, "dispose must return the session slot to the pool")
	p.Release(d2)
}

func TestAcquireBlocksAtCap(t *testing.T) {
	p := newTestPool(Config{MaxSessions: 1})
	defer p.Shutdown()

	d1 := models.Device{ID: 1}
	d2 := models.Device{ID: 2}

	_, err := p.Acquire(context.Background(), d1)
	require.NoError(t, err)

	var acquired int32
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := p.Acquire(ctx, d2)
		if err == nil {
			atomic.StoreInt32(&acquired, 1)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&acquired), "second device must block while the cap is exhausted")

	p.Dispose(d1)
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&acquired))
	p.Release(d2)
}
