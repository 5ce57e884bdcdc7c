package fidy

import (
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// The reservation endpoint the form posts to. Its response body is the
// confirmation signal.
const reservationEndpoint = "ajax.php"

// confirmation owns the per-attempt response future. Arm replaces the
// channel, so a stale response from a previous attempt can never satisfy the
// current one, and each channel resolves at most once.
type confirmation struct {
	mu sync.Mutex
	ch chan string
}

func (c *confirmation) arm() <-chan string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = make(chan string, 1)
	return c.ch
}

// observe runs on Playwright's event goroutine for every response.
func (c *confirmation) observe(resp playwright.Response) {
	if !strings.Contains(strings.ToLower(resp.URL()), reservationEndpoint) {
		return
	}
	text, err := resp.Text()
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return
	}
	select {
	case c.ch <- strings.TrimSpace(text):
	default:
	}
	c.ch = nil
}
