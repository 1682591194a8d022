package device

import "github.com/sixcolor/photoframe/internal/widget"

// shuffleItems permutes items in place with a Fisher-Yates pass driven by a
// small xorshift generator, so the same seed always yields the same order
// across wake cycles.
func shuffleItems(items []widget.Item, seed uint64) {
	if len(items) <= 1 {
		return
	}
	state := seed
	if state == 0 {
		state = 0x853c49e6748fea9b
	}
	for i := len(items) - 1; i >= 1; i-- {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		j := int(state % uint64(i+1))
		items[i], items[j] = items[j], items[i]
	}
}
