package rfbclient

import (
	"fmt"

	"github.com/vncdotool/govnc/internal/rfbkeys"
)

// KeyPress sends one key (or chord, e.g. "ctrl-alt-del") down, then every
// constituent key up in reverse order (spec.md §8, "keyPress").
func (c *Client) KeyPress(key string) error {
	keys, err := rfbkeys.Decode(key, c.forceCaps)
	if err != nil {
		return fmt.Errorf("rfbclient: keyPress %q: %w", key, err)
	}

	for _, k := range keys {
		if err := c.engine.Encoder().KeyEvent(true, uint32(k)); err != nil {
			return fmt.Errorf("rfbclient: keyPress %q down: %w", key, err)
		}
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := c.engine.Encoder().KeyEvent(false, uint32(keys[i])); err != nil {
			return fmt.Errorf("rfbclient: keyPress %q up: %w", key, err)
		}
	}
	return nil
}

// KeyDown sends every constituent key of key (or chord) down, without
// releasing them (spec.md §8, "keyDown").
func (c *Client) KeyDown(key string) error {
	keys, err := rfbkeys.Decode(key, c.forceCaps)
	if err != nil {
		return fmt.Errorf("rfbclient: keyDown %q: %w", key, err)
	}
	for _, k := range keys {
		if err := c.engine.Encoder().KeyEvent(true, uint32(k)); err != nil {
			return fmt.Errorf("rfbclient: keyDown %q: %w", key, err)
		}
	}
	return nil
}

// KeyUp releases every constituent key of key (or chord) (spec.md §8,
// "keyUp").
func (c *Client) KeyUp(key string) error {
	keys, err := rfbkeys.Decode(key, c.forceCaps)
	if err != nil {
		return fmt.Errorf("rfbclient: keyUp %q: %w", key, err)
	}
	for _, k := range keys {
		if err := c.engine.Encoder().KeyEvent(false, uint32(k)); err != nil {
			return fmt.Errorf("rfbclient: keyUp %q: %w", key, err)
		}
	}
	return nil
}
