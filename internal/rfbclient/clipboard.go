package rfbclient

import "fmt"

// Paste sends text to the server as clipboard content (spec.md §8,
// "paste"): the client pushes the text as its own ClientCutText rather
// than simulating keystrokes.
func (c *Client) Paste(text string) error {
	if err := c.engine.Encoder().ClientCutText(text); err != nil {
		return fmt.Errorf("rfbclient: paste: %w", err)
	}
	return nil
}
