package sse

import (
	"time"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// CatalogNotifier is the interface services use to emit catalog events.
type CatalogNotifier interface {
	NotifyCategory(event EventType, c *models.Category)
	NotifyProduct(event EventType, p *models.Product)
	NotifyProductsBulk(ids []int64, available bool)
}

// HubNotifier implements CatalogNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyCategory(event EventType, c *models.Category) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&CatalogEvent{
		Event:     event,
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		Timestamp: time.Now(),
	})
}

// NotifyProduct broadcasts event and, when stock sits in the low band, a low stock event too.
func (n *HubNotifier) NotifyProduct(event EventType, p *models.Product) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(productToEvent(event, p))
	if event != EventProductDeleted && p.IsLowStock() {
		n.hub.Broadcast(productToEvent(EventProductLowStock, p))
	}
}

func (n *HubNotifier) NotifyProductsBulk(ids []int64, available bool) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&CatalogEvent{
		Event:     EventProductsBulk,
		IDs:       ids,
		Available: &available,
		Timestamp: time.Now(),
	})
}

func productToEvent(eventType EventType, p *models.Product) *CatalogEvent {
	stock := p.Stock
	available := p.Available
	return &CatalogEvent{
		Event:     eventType,
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Stock:     &stock,
		Available: &available,
		Timestamp: time.Now(),
	}
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (n *NopNotifier) NotifyCategory(event EventType, c *models.Category) {}
func (n *NopNotifier) NotifyProduct(event EventType, p *models.Product)   {}
func (n *NopNotifier) NotifyProductsBulk(ids []int64, available bool)      {}
