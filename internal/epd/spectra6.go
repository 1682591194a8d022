package epd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Controller command set for the Spectra 6 panel.
const (
	cmdCMDH  = 0xAA
	cmdPWRR  = 0x01
	cmdPOF   = 0x02
	cmdPOFS  = 0x03
	cmdPON   = 0x04
	cmdBTST1 = 0x05
	cmdBTST2 = 0x06
	cmdDSLP  = 0x07
	cmdBTST3 = 0x08
	cmdDTM   = 0x10
	cmdDRF   = 0x12
	cmdPSR   = 0x00
	cmdPLL   = 0x30
	cmdCDI   = 0x50
	cmdTCON  = 0x60
	cmdTRES  = 0x61
	cmdTVDCS = 0x84
	cmdPWS   = 0xE3
)

const refreshTimeout = 30 * time.Second

// Pins names the GPIO lines wired to the panel.
type Pins struct {
	Reset string
	DC    string
	Busy  string
}

// Spectra6 is the SPI-attached panel.
type Spectra6 struct {
	conn  spi.Conn
	port  spi.PortCloser
	reset gpio.PinOut
	dc    gpio.PinOut
	busy  gpio.PinIn
}

// Open connects to the panel on the named SPI port. The caller must have
// run host.Init first.
func Open(spiPort string, pins Pins) (*Spectra6, error) {
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("epd: opening %s: %w", spiPort, err)
	}
	conn, err := port.Connect(10000*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("epd: connecting: %w", err)
	}

	p := &Spectra6{
		conn:  conn,
		port:  port,
		reset: gpioreg.ByName(pins.Reset),
		dc:    gpioreg.ByName(pins.DC),
		busy:  gpioreg.ByName(pins.Busy),
	}
	if p.reset == nil || p.dc == nil || p.busy == nil {
		port.Close()
		return nil, errors.New("epd: gpio pins not found")
	}
	return p, nil
}

func (p *Spectra6) Close() error { return p.port.Close() }

// Init hardware-resets the panel and loads the standard-mode register set.
func (p *Spectra6) Init() error {
	p.hardwareReset()

	seq := []struct {
		cmd  byte
		data []byte
	}{
		{cmdCMDH, []byte{0x49, 0x55, 0x20, 0x08, 0x09, 0x18}},
		{cmdPWRR, []byte{0x3F}},
		{cmdPSR, []byte{0x5F, 0x69}},
		{cmdPOFS, []byte{0x00, 0x54, 0x00, 0x44}},
		{cmdBTST1, []byte{0x40, 0x1F, 0x1F, 0x2C}},
		{cmdBTST2, []byte{0x6F, 0x1F, 0x17, 0x49}},
		{cmdBTST3, []byte{0x6F, 0x1F, 0x1F, 0x22}},
		{cmdPLL, []byte{0x08}},
		{cmdCDI, []byte{0x3F}},
		{cmdTCON, []byte{0x02, 0x00}},
		{cmdTRES, []byte{0x03, 0x20, 0x01, 0xE0}},
		{cmdTVDCS, []byte{0x01}},
		{cmdPWS, []byte{0x2F}},
	}
	for _, s := range seq {
		if err := p.cmdWithData(s.cmd, s.data); err != nil {
			return err
		}
	}
	if err := p.sendCommand(cmdPON); err != nil {
		return err
	}
	return p.waitIdle(context.Background())
}

// Draw streams the packed framebuffer and triggers a refresh, blocking
// until the busy line releases.
func (p *Spectra6) Draw(ctx context.Context, frame []byte) error {
	if err := p.cmdWithData(cmdDTM, frame); err != nil {
		return err
	}
	if err := p.cmdWithData(cmdDRF, []byte{0x00}); err != nil {
		return err
	}
	return p.waitIdle(ctx)
}

// Sleep powers the panel off and enters deep sleep. Image retention is
// zero-power; only a hardware reset wakes it.
func (p *Spectra6) Sleep() error {
	if err := p.cmdWithData(cmdPOF, []byte{0x00}); err != nil {
		return err
	}
	if err := p.waitIdle(context.Background()); err != nil {
		return err
	}
	return p.cmdWithData(cmdDSLP, []byte{0xA5})
}

func (p *Spectra6) hardwareReset() {
	p.reset.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
	p.reset.Out(gpio.Low)
	time.Sleep(2 * time.Millisecond)
	p.reset.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
}

func (p *Spectra6) sendCommand(cmd byte) error {
	p.dc.Out(gpio.Low)
	return p.conn.Tx([]byte{cmd}, nil)
}

// sendData chunks large transfers; the SPI driver caps single transactions.
func (p *Spectra6) sendData(data []byte) error {
	p.dc.Out(gpio.High)
	const chunk = 4096
	for len(data) > 0 {
		n := len(data)
		if n > chunk {
			n = chunk
		}
		if err := p.conn.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (p *Spectra6) cmdWithData(cmd byte, data []byte) error {
	if err := p.sendCommand(cmd); err != nil {
		return err
	}
	return p.sendData(data)
}

// waitIdle polls the busy line; the panel holds it low while refreshing.
func (p *Spectra6) waitIdle(ctx context.Context) error {
	deadline := time.Now().Add(refreshTimeout)
	for p.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return errors.New("epd: busy timeout")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}
