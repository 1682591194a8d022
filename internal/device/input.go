package device

import (
	"context"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/rs/zerolog"
)

// Press classifies one button press by its held duration.
type Press int

const (
	PressNone Press = iota
	// PressShort advances to the next item.
	PressShort
	// PressLong toggles orientation.
	PressLong
)

const (
	debounceMin   = 50 * time.Millisecond
	holdThreshold = 500 * time.Millisecond
)

// Button delivers classified presses. The machine only listens during its
// two input windows; presses outside them are dropped.
type Button interface {
	// WaitPress blocks up to window for a press. Returns PressNone on
	// timeout or context cancellation.
	WaitPress(ctx context.Context, window time.Duration) Press
}

// classifyPress maps a held duration onto a press kind. Sub-debounce blips
// are ignored.
func classifyPress(held time.Duration) Press {
	switch {
	case held < debounceMin:
		return PressNone
	case held < holdThreshold:
		return PressShort
	default:
		return PressLong
	}
}

// EvdevButton reads the frame's push button through the input event layer.
type EvdevButton struct {
	presses chan Press
	log     zerolog.Logger
}

// OpenButton finds the named input device and starts watching it. The
// reader goroutine runs for the life of the process.
func OpenButton(deviceName string, log zerolog.Logger) (*EvdevButton, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	var devPath string
	for _, p := range paths {
		if p.Name == deviceName {
			devPath = p.Path
			break
		}
	}
	if devPath == "" {
		return nil, errNoButton(deviceName)
	}

	dev, err := evdev.Open(devPath)
	if err != nil {
		return nil, err
	}
	if err := dev.Grab(); err != nil {
		log.Warn().Err(err).Msg("grabbing input device failed")
	}

	b := &EvdevButton{
		presses: make(chan Press, 4),
		log:     log.With().Str("component", "button").Logger(),
	}
	go b.watch(dev)
	return b, nil
}

type errNoButton string

func (e errNoButton) Error() string { return "device: input device not found: " + string(e) }

func (b *EvdevButton) watch(dev *evdev.InputDevice) {
	defer dev.Ungrab()
	var pressedAt time.Time

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			b.log.Warn().Err(err).Msg("input read error")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if ev.Type != evdev.EV_KEY || ev.Code != evdev.KEY_POWER {
			continue
		}
		switch ev.Value {
		case 1:
			pressedAt = time.Now()
		case 0:
			if pressedAt.IsZero() {
				continue
			}
			press := classifyPress(time.Since(pressedAt))
			pressedAt = time.Time{}
			if press == PressNone {
				continue
			}
			select {
			case b.presses <- press:
			default:
				// No listener; drop it.
			}
		}
	}
}

func (b *EvdevButton) WaitPress(ctx context.Context, window time.Duration) Press {
	// Drain anything queued outside the window first.
	for {
		select {
		case <-b.presses:
			continue
		default:
		}
		break
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case p := <-b.presses:
		return p
	case <-timer.C:
		return PressNone
	case <-ctx.Done():
		return PressNone
	}
}

// ChanButton is a test stand-in fed through a channel.
type ChanButton struct {
	Presses chan Press
}

func NewChanButton() *ChanButton {
	return &ChanButton{Presses: make(chan Press, 8)}
}

func (c *ChanButton) WaitPress(ctx context.Context, window time.Duration) Press {
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case p := <-c.Presses:
		return p
	case <-timer.C:
		return PressNone
	case <-ctx.Done():
		return PressNone
	}
}
