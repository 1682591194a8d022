package device

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// LED drives the status LED next to the button. All methods are nil-safe so
// the machine can run headless on boards without one.
type LED struct {
	pin gpio.PinOut
}

// OpenLED looks the pin up by name; returns nil when absent.
func OpenLED(pinName string) *LED {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil
	}
	return &LED{pin: pin}
}

func (l *LED) On() {
	if l != nil {
		l.pin.Out(gpio.High)
	}
}

func (l *LED) Off() {
	if l != nil {
		l.pin.Out(gpio.Low)
	}
}

// Blink toggles the LED n times. Used as coarse progress feedback: twice
// while fetching, three times on a failed cycle.
func (l *LED) Blink(n int, interval time.Duration) {
	if l == nil {
		return
	}
	for i := 0; i < n; i++ {
		l.pin.Out(gpio.High)
		time.Sleep(interval)
		l.pin.Out(gpio.Low)
		time.Sleep(interval)
	}
}
