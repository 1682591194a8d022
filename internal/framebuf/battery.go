package framebuf

// Battery icon dimensions. The vertical variant is the horizontal one
// rotated a quarter turn.
const (
	BatteryWidthH  = 48
	BatteryHeightH = 24
	BatteryWidthV  = 24
	BatteryHeightV = 48
)

// batteryColor picks the fill: red when nearly empty, yellow when low,
// green otherwise.
func batteryColor(percentage int) byte {
	switch {
	case percentage <= 15:
		return EpdRed
	case percentage <= 40:
		return EpdYellow
	default:
		return EpdGreen
	}
}

// DrawBattery draws a battery indicator with a proportional fill at (x, y).
// In vertical mode the tip points up and the fill rises bottom to top; in
// horizontal mode the tip points right and the fill grows left to right.
func (f *Framebuffer) DrawBattery(x, y, percentage int, vertical bool) {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	fill := batteryColor(percentage)
	if vertical {
		f.drawBatteryVertical(x, y, percentage, fill)
	} else {
		f.drawBatteryHorizontal(x, y, percentage, fill)
	}
}

func (f *Framebuffer) drawBatteryHorizontal(ox, oy, percentage int, fill byte) {
	const (
		bodyW = 42
		bodyH = BatteryHeightH
		tipW  = 6
		tipH  = 12
	)

	for x := 0; x < bodyW; x++ {
		for y := 0; y < bodyH; y++ {
			c := EpdWhite
			if y < 2 || y >= bodyH-2 || x < 2 || x >= bodyW-2 {
				c = EpdBlack
			}
			f.SetPixel(ox+x, oy+y, c)
		}
	}

	tipY := (bodyH - tipH) / 2
	for x := bodyW; x < bodyW+tipW; x++ {
		for y := tipY; y < tipY+tipH; y++ {
			c := EpdWhite
			if y < tipY+2 || y >= tipY+tipH-2 || x >= bodyW+tipW-2 {
				c = EpdBlack
			}
			f.SetPixel(ox+x, oy+y, c)
		}
	}

	fillW := (bodyW - 8) * percentage / 100
	for x := 4; x < 4+fillW; x++ {
		for y := 4; y < bodyH-4; y++ {
			f.SetPixel(ox+x, oy+y, fill)
		}
	}
}

func (f *Framebuffer) drawBatteryVertical(ox, oy, percentage int, fill byte) {
	const (
		bodyW = BatteryWidthV
		bodyH = 42
		bodyY = 6
		tipW  = 12
		tipH  = 6
	)

	for x := 0; x < bodyW; x++ {
		for y := bodyY; y < bodyY+bodyH; y++ {
			c := EpdWhite
			if y < bodyY+2 || y >= bodyY+bodyH-2 || x < 2 || x >= bodyW-2 {
				c = EpdBlack
			}
			f.SetPixel(ox+x, oy+y, c)
		}
	}

	tipX := (bodyW - tipW) / 2
	for x := tipX; x < tipX+tipW; x++ {
		for y := 0; y < tipH; y++ {
			c := EpdWhite
			if x < tipX+2 || x >= tipX+tipW-2 || y < 2 {
				c = EpdBlack
			}
			f.SetPixel(ox+x, oy+y, c)
		}
	}

	fillH := (bodyH - 8) * percentage / 100
	fillEnd := bodyY + bodyH - 4
	for x := 4; x < bodyW-4; x++ {
		for y := fillEnd - fillH; y < fillEnd; y++ {
			f.SetPixel(ox+x, oy+y, fill)
		}
	}
}
