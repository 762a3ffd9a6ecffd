package usecase

import (
	"fmt"
	"strings"
	"sync"

	"order_form/internal/domain"
)

const (
	popoverIndicatorPrefix = "popover-indicator-"
	popoverContentPrefix   = "popover-content-"
)

// Popovers tracks which popover contents are shown. Everything starts hidden.
type Popovers struct {
	mu      sync.Mutex
	visible map[string]bool
}

func NewPopovers() *Popovers {
	return &Popovers{visible: make(map[string]bool)}
}

// Toggle flips the content element paired with indicatorID and reports its
// new visibility.
func (p *Popovers) Toggle(indicatorID string) (string, bool, error) {
	key, ok := strings.CutPrefix(indicatorID, popoverIndicatorPrefix)
	if !ok || key == "" {
		return "", false, fmt.Errorf("%w: %q", domain.ErrInvalidPopover, indicatorID)
	}
	contentID := popoverContentPrefix + key

	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[contentID] = !p.visible[contentID]
	return contentID, p.visible[contentID], nil
}

func (p *Popovers) Visible(contentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[contentID]
}
