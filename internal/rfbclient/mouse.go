package rfbclient

import (
	"context"
	"fmt"
	"time"
)

// dragStepDelay is the pause between each step of a MouseDrag, matching
// the pacing a real pointer-drag needs for window managers that sample
// motion events rather than jumping straight to the destination
// (spec.md §8, "mouseDrag interpolates in steps").
const dragStepDelay = 200 * time.Millisecond

// MouseMove moves the pointer to (x, y) in one jump, sending the current
// button mask along with it (spec.md §8, "mouseMove").
func (c *Client) MouseMove(x, y int) error {
	c.mu.Lock()
	c.mouseX, c.mouseY = x, y
	buttons := c.buttons
	c.mu.Unlock()

	if err := c.engine.Encoder().PointerEvent(buttons, u16(x), u16(y)); err != nil {
		return fmt.Errorf("rfbclient: mouseMove(%d,%d): %w", x, y, err)
	}
	return nil
}

// MouseDown presses button (1-8) at the pointer's last position
// (spec.md §8, "mouseDown").
func (c *Client) MouseDown(button int) error {
	bit, err := buttonBit(button)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.buttons |= bit
	x, y, buttons := c.mouseX, c.mouseY, c.buttons
	c.mu.Unlock()

	if err := c.engine.Encoder().PointerEvent(buttons, u16(x), u16(y)); err != nil {
		return fmt.Errorf("rfbclient: mouseDown(%d): %w", button, err)
	}
	return nil
}

// MouseUp releases button (1-8) at the pointer's last position
// (spec.md §8, "mouseUp").
func (c *Client) MouseUp(button int) error {
	bit, err := buttonBit(button)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.buttons &^= bit
	x, y, buttons := c.mouseX, c.mouseY, c.buttons
	c.mu.Unlock()

	if err := c.engine.Encoder().PointerEvent(buttons, u16(x), u16(y)); err != nil {
		return fmt.Errorf("rfbclient: mouseUp(%d): %w", button, err)
	}
	return nil
}

// MousePress presses and releases button at the pointer's last position
// (spec.md §8, "mousePress").
func (c *Client) MousePress(button int) error {
	if err := c.MouseDown(button); err != nil {
		return err
	}
	return c.MouseUp(button)
}

// MouseDrag moves the pointer to (x, y) through intermediate positions
// step pixels apart, pausing dragStepDelay between each (spec.md §8,
// "mouseDrag"): y moves first to its destination, then x, matching the
// original client's ordering. step must be positive.
func (c *Client) MouseDrag(ctx context.Context, x, y, step int) error {
	if step <= 0 {
		return fmt.Errorf("rfbclient: mouseDrag: step must be positive, got %d", step)
	}

	c.mu.Lock()
	startX, startY := c.mouseX, c.mouseY
	c.mu.Unlock()

	for _, ypos := range dragSteps(startY, y, step) {
		if err := c.MouseMove(startX, ypos); err != nil {
			return err
		}
		if err := sleep(ctx, dragStepDelay); err != nil {
			return err
		}
	}

	for _, xpos := range dragSteps(startX, x, step) {
		if err := c.MouseMove(xpos, y); err != nil {
			return err
		}
		if err := sleep(ctx, dragStepDelay); err != nil {
			return err
		}
	}

	return c.MouseMove(x, y)
}

// dragSteps returns the intermediate positions strictly between from and
// to, step apart, not including either endpoint (MouseDrag sends the
// final endpoint itself after the loop).
func dragSteps(from, to, step int) []int {
	var positions []int
	if to < from {
		for p := from - step; p > to; p -= step {
			positions = append(positions, p)
		}
	} else if to > from {
		for p := from + step; p < to; p += step {
			positions = append(positions, p)
		}
	}
	return positions
}

// buttonBit validates button is in [1, 8] and returns its bitmask.
func buttonBit(button int) (uint8, error) {
	if button < 1 || button > 8 {
		return 0, fmt.Errorf("rfbclient: button %d out of range [1,8]", button)
	}
	return 1 << uint(button-1), nil //nolint:gosec // range checked above
}

// sleep pauses for d or returns ctx's error if it's cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rfbclient: %w", ctx.Err())
	}
}

// u16 clamps x into the uint16 range PointerEvent's wire format uses.
func u16(x int) uint16 {
	switch {
	case x < 0:
		return 0
	case x > 0xFFFF:
		return 0xFFFF
	default:
		return uint16(x) //nolint:gosec // range checked above
	}
}
