package dispatch

import (
	"sync"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/usecase/route"
)

// Routes holds the router for the current keyword table. Readers get a
// consistent router for a whole pass; Swap replaces it wholesale.
type Routes struct {
	mu     sync.RWMutex
	router *route.Router
}

// NewRoutes builds routes for table.
func NewRoutes(table *entity.KeywordTable) *Routes {
	return &Routes{router: route.New(table)}
}

// Router returns the current router.
func (r *Routes) Router() *route.Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.router
}

// Table returns the current keyword table.
func (r *Routes) Table() *entity.KeywordTable {
	return r.Router().Table()
}

// Swap installs a router for table.
func (r *Routes) Swap(table *entity.KeywordTable) {
	next := route.New(table)
	r.mu.Lock()
	r.router = next
	r.mu.Unlock()
}
