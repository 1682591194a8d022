// Package device implements the frame's lifecycle state machine: wake,
// resolve the next items from cache or network, refresh the panel, watch
// the button, sleep.
package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sixcolor/photoframe/internal/cache"
	"github.com/sixcolor/photoframe/internal/epd"
	"github.com/sixcolor/photoframe/internal/framebuf"
	"github.com/sixcolor/photoframe/internal/widget"
)

// Fetcher is the network boundary; httpclient.Client implements it.
type Fetcher interface {
	FetchList(ctx context.Context) (*widget.List, error)
	FetchImage(ctx context.Context, item widget.Item, o widget.Orientation) ([]byte, error)
}

type machineState int

const (
	stateBoot machineState = iota
	stateCacheCheck
	stateNetworkInit
	stateDisplay
	stateInputWait
)

func (s machineState) String() string {
	switch s {
	case stateBoot:
		return "boot"
	case stateCacheCheck:
		return "cache-check"
	case stateNetworkInit:
		return "network-init"
	case stateDisplay:
		return "display"
	case stateInputWait:
		return "input-wait"
	}
	return "unknown"
}

// Config tunes the machine's timing and sleep behavior.
type Config struct {
	// SleepInterval is the pause between wake cycles.
	SleepInterval time.Duration
	// InputWindow is how long the button is watched after a refresh.
	InputWindow time.Duration
	// NetTimeout bounds each individual network operation.
	NetTimeout time.Duration
	// DeepSleep drops the volatile working set between cycles, forcing a
	// full reload from storage at every wake. Light sleep keeps it warm.
	DeepSleep bool
	// Shuffle randomizes item order with ShuffleSeed.
	Shuffle     bool
	ShuffleSeed uint64
	// ServerURL is used for the reachability probe.
	ServerURL string
	// BatteryPath overrides the sysfs capacity node.
	BatteryPath string
}

func (c *Config) fillDefaults() {
	if c.SleepInterval <= 0 {
		c.SleepInterval = 15 * time.Minute
	}
	if c.InputWindow <= 0 {
		c.InputWindow = 10 * time.Second
	}
	if c.NetTimeout <= 0 {
		c.NetTimeout = 30 * time.Second
	}
}

// Machine drives one device. It is a suture service; Serve loops wake
// cycles until the context ends.
type Machine struct {
	cfg    Config
	cache  *cache.Manager
	fetch  Fetcher
	panel  epd.Panel
	button Button
	led    *LED
	probe  func(ctx context.Context) error
	log    zerolog.Logger

	mu         sync.Mutex
	list       *widget.List
	orient     widget.Orientation
	index      int
	warm       bool
	wakePress  Press
	lastImages [][]byte

	syncWG sync.WaitGroup
}

func NewMachine(cfg Config, mgr *cache.Manager, fetch Fetcher, panel epd.Panel, button Button, led *LED, log zerolog.Logger) *Machine {
	cfg.fillDefaults()
	m := &Machine{
		cfg:    cfg,
		cache:  mgr,
		fetch:  fetch,
		panel:  panel,
		button: button,
		led:    led,
		log:    log.With().Str("component", "machine").Logger(),
	}
	m.probe = func(ctx context.Context) error {
		return ProbeServer(ctx, cfg.ServerURL)
	}
	return m
}

// Serve runs wake cycles separated by sleep until ctx is cancelled.
func (m *Machine) Serve(ctx context.Context) error {
	if err := m.panel.Init(); err != nil {
		return err
	}
	for {
		m.runCycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		m.sleepPhase(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// RunCycle executes a single wake cycle; exposed for tests.
func (m *Machine) RunCycle(ctx context.Context) { m.runCycle(ctx) }

func (m *Machine) runCycle(ctx context.Context) {
	state := stateBoot
	var current [][]byte

	for ctx.Err() == nil {
		m.log.Debug().Stringer("state", state).Msg("transition")
		switch state {
		case stateBoot:
			m.mu.Lock()
			if !m.warm || m.list == nil {
				m.list, m.orient = m.cache.Load()
				if m.list != nil && m.cfg.Shuffle {
					shuffleItems(m.list.Items, m.cfg.ShuffleSeed)
				}
			}
			press := m.wakePress
			m.wakePress = PressNone
			m.mu.Unlock()
			// A press that woke the machine still means skip or flip;
			// applying it here spares the user the stale first display.
			m.applyPress(press)
			state = stateCacheCheck

		case stateCacheCheck:
			imgs, hit := m.readSlots()
			if hit {
				current = imgs
				state = stateDisplay
			} else {
				state = stateNetworkInit
			}

		case stateNetworkInit:
			imgs, ok := m.networkInit(ctx)
			if ok {
				current = imgs
				state = stateDisplay
				break
			}
			m.mu.Lock()
			last := m.lastImages
			m.mu.Unlock()
			if last != nil {
				m.log.Warn().Msg("network init failed, redisplaying last-known-good")
				current = last
				state = stateDisplay
				break
			}
			// Nothing to show; the panel keeps its old image at zero
			// power, so sleeping is the cheapest correct move.
			m.log.Warn().Msg("no network and no cached content, sleeping")
			return

		case stateDisplay:
			m.display(ctx, current)
			m.mu.Lock()
			m.lastImages = current
			m.mu.Unlock()
			state = stateInputWait

		case stateInputWait:
			press := m.button.WaitPress(ctx, m.cfg.InputWindow)
			if press == PressNone {
				return
			}
			m.applyPress(press)
			state = stateCacheCheck
		}
	}
}

// applyPress advances the slideshow on a short press and flips orientation
// on a long one. PressNone is a no-op.
func (m *Machine) applyPress(p Press) {
	switch p {
	case PressShort:
		m.mu.Lock()
		if m.list != nil && len(m.list.Items) > 0 {
			m.index = (m.index + 1) % len(m.list.Items)
		}
		m.mu.Unlock()
	case PressLong:
		m.mu.Lock()
		m.orient = m.orient.Toggle()
		m.mu.Unlock()
		m.cache.SetOrientation(m.Orientation())
		m.log.Info().Str("orientation", m.Orientation().String()).Msg("orientation toggled")
	}
}

// Orientation returns the current display orientation.
func (m *Machine) Orientation() widget.Orientation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orient
}

// Index returns the current item position; exposed for tests.
func (m *Machine) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Machine) itemAt(offset int) (widget.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.list == nil || len(m.list.Items) == 0 {
		return widget.Item{}, false
	}
	return m.list.Items[(m.index+offset)%len(m.list.Items)], true
}

// readSlots looks up the on-screen items in the cache. The primary slot
// must hit for the cache path to proceed; a missing secondary slot just
// stays white.
func (m *Machine) readSlots() ([][]byte, bool) {
	orient := m.Orientation()
	n := slotCount(orient)
	imgs := make([][]byte, n)
	for i := 0; i < n; i++ {
		item, ok := m.itemAt(i)
		if !ok {
			return nil, false
		}
		if data, hit := m.cache.Lookup(item.CacheKey, orient); hit {
			imgs[i] = data
		}
	}
	return imgs, imgs[0] != nil
}

// networkInit connects, refreshes the stale list, fetches the required
// images and stores them. Every step retries once at most; failures fall
// back rather than spin, since active radio time is battery cost.
func (m *Machine) networkInit(ctx context.Context) ([][]byte, bool) {
	m.led.Blink(2, 100*time.Millisecond)

	if err := m.withRetry(ctx, m.probe); err != nil {
		m.log.Warn().Err(err).Msg("connectivity probe failed")
		return nil, false
	}

	m.refreshList(ctx)

	orient := m.Orientation()
	n := slotCount(orient)
	imgs := make([][]byte, n)
	for i := 0; i < n; i++ {
		item, ok := m.itemAt(i)
		if !ok {
			return nil, false
		}
		if data, hit := m.cache.Lookup(item.CacheKey, orient); hit {
			imgs[i] = data
			continue
		}
		data, err := m.fetchImage(ctx, item, orient)
		if err != nil {
			m.log.Warn().Err(err).Uint32("key", item.CacheKey).Msg("image fetch failed")
			continue
		}
		imgs[i] = data
		if serr := m.cache.Store(item.CacheKey, orient, data); serr != nil {
			// Non-fatal: display proceeds from the bytes in hand and
			// this entry degrades to fetch-on-every-display.
			m.log.Warn().Err(serr).Uint32("key", item.CacheKey).Msg("store failed")
		}
	}
	return imgs, imgs[0] != nil
}

// refreshList re-fetches the widget list when stale and reconciles storage
// against it. A fetch failure keeps the last-known-good list.
func (m *Machine) refreshList(ctx context.Context) {
	m.mu.Lock()
	list := m.list
	orient := m.orient
	m.mu.Unlock()

	if list != nil && !list.Stale(time.Now()) {
		return
	}

	var fresh *widget.List
	err := m.withRetry(ctx, func(ctx context.Context) error {
		var ferr error
		fresh, ferr = m.fetch.FetchList(ctx)
		return ferr
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("list fetch failed, keeping last known list")
		return
	}
	if m.cfg.Shuffle {
		shuffleItems(fresh.Items, m.cfg.ShuffleSeed)
	}

	report := m.cache.Reconcile(fresh, orient)
	m.log.Info().
		Int("items", len(fresh.Items)).
		Int("to_fetch", len(report.ToFetch)).
		Int("deleted", len(report.Deleted)).
		Msg("list refreshed")

	m.mu.Lock()
	m.list = fresh
	if len(fresh.Items) > 0 {
		m.index = m.index % len(fresh.Items)
	} else {
		m.index = 0
	}
	m.mu.Unlock()
}

func (m *Machine) fetchImage(ctx context.Context, item widget.Item, o widget.Orientation) ([]byte, error) {
	var data []byte
	err := m.withRetry(ctx, func(ctx context.Context) error {
		var ferr error
		data, ferr = m.fetch.FetchImage(ctx, item, o)
		return ferr
	})
	return data, err
}

// withRetry runs op with the per-operation timeout, retrying once. More
// retries within a wake cycle are never worth the radio time; the next
// periodic wake tries again anyway.
func (m *Machine) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		tctx, cancel := context.WithTimeout(ctx, m.cfg.NetTimeout)
		err = op(tctx)
		cancel()
		if err == nil || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// display refreshes the panel while a best-effort background sync runs
// alongside. The refresh is never delayed by sync failures; sync errors
// degrade to a no-op.
func (m *Machine) display(ctx context.Context, imgs [][]byte) {
	orient := m.Orientation()

	m.syncWG.Add(1)
	go func() {
		defer m.syncWG.Done()
		m.backgroundSync(ctx)
	}()

	fb := framebuf.New()
	composeFrame(fb, imgs, orient, ReadBattery(m.cfg.BatteryPath))
	m.led.On()
	err := m.panel.Draw(ctx, fb.Bytes())
	m.led.Off()
	if err != nil {
		m.log.Error().Err(err).Msg("panel refresh failed")
		m.led.Blink(3, 200*time.Millisecond)
	}
}

// backgroundSync refreshes the list, reconciles the cache and prefetches
// the next item's image. Entirely best-effort.
func (m *Machine) backgroundSync(ctx context.Context) {
	if err := m.withRetry(ctx, m.probe); err != nil {
		m.log.Debug().Err(err).Msg("background sync skipped, no connectivity")
		return
	}

	var fresh *widget.List
	err := m.withRetry(ctx, func(ctx context.Context) error {
		var ferr error
		fresh, ferr = m.fetch.FetchList(ctx)
		return ferr
	})
	if err != nil {
		m.log.Debug().Err(err).Msg("background list fetch failed")
		return
	}
	if m.cfg.Shuffle {
		shuffleItems(fresh.Items, m.cfg.ShuffleSeed)
	}

	orient := m.Orientation()
	report := m.cache.Reconcile(fresh, orient)

	m.mu.Lock()
	m.list = fresh
	if len(fresh.Items) > 0 {
		m.index = m.index % len(fresh.Items)
	} else {
		m.index = 0
	}
	m.mu.Unlock()

	if len(report.Deleted) > 0 || len(report.ToFetch) > 0 {
		m.log.Info().
			Int("deleted", len(report.Deleted)).
			Int("to_fetch", len(report.ToFetch)).
			Msg("cache reconciled")
	}

	// Prefetch only the upcoming item; the rest fill in on later syncs.
	next, ok := m.itemAt(slotCount(orient))
	if !ok || next.CachePolicy.Kind == widget.PolicyNoCache {
		return
	}
	if _, hit := m.cache.Lookup(next.CacheKey, orient); hit {
		return
	}
	data, err := m.fetchImage(ctx, next, orient)
	if err != nil {
		m.log.Debug().Err(err).Uint32("key", next.CacheKey).Msg("prefetch failed")
		return
	}
	if err := m.cache.Store(next.CacheKey, orient, data); err != nil {
		m.log.Debug().Err(err).Uint32("key", next.CacheKey).Msg("prefetch store failed")
	}
}

// sleepPhase parks the panel and waits out the sleep interval, waking
// early on a button press. The waking press keeps its classification and
// is applied at the next boot, so it skips the first display or flips
// orientation rather than just waking the machine.
func (m *Machine) sleepPhase(ctx context.Context) {
	if err := m.panel.Sleep(); err != nil {
		m.log.Warn().Err(err).Msg("panel sleep failed")
	}

	m.mu.Lock()
	m.warm = !m.cfg.DeepSleep
	if m.cfg.DeepSleep {
		m.list = nil
		m.lastImages = nil
	}
	m.mu.Unlock()

	m.syncWG.Wait()

	press := m.button.WaitPress(ctx, m.cfg.SleepInterval)
	if press != PressNone {
		m.log.Info().Msg("woken by button")
	}
	if ctx.Err() != nil {
		return
	}
	m.mu.Lock()
	m.wakePress = press
	m.mu.Unlock()
	if err := m.panel.Init(); err != nil {
		m.log.Error().Err(err).Msg("panel re-init failed")
	}
}
