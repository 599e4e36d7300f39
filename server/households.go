package server

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store errors.
var (
	// ErrHouseholdNotFound indicates no household has the requested id.
	ErrHouseholdNotFound = errors.New("server: household not found")

	// ErrPowerplantNotFound indicates no powerplant has the requested name.
	ErrPowerplantNotFound = errors.New("server: powerplant not found")

	// ErrInvalidID indicates an id that is not a UUID.
	ErrInvalidID = errors.New("server: invalid id")
)

// Household is one simulated household.
type Household struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner"`
	Name      string     `json:"name"`
	Area      string     `json:"area,omitempty"`
	Location  string     `json:"location,omitempty"`
	Blackout  bool       `json:"blackout"`
	SellLimit *SellLimit `json:"sellLimit,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SellLimit is a period during which a household may not sell electricity
// on the market.
type SellLimit struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// HouseholdChanges is a partial household update. Nil fields are left as
// they are; owner, id and sell limit cannot be changed this way.
type HouseholdChanges struct {
	Name     *string
	Area     *string
	Location *string
	Blackout *bool
}

// IsEmpty reports whether c changes nothing.
func (c HouseholdChanges) IsEmpty() bool {
	return c.Name == nil && c.Area == nil && c.Location == nil && c.Blackout == nil
}

func (c HouseholdChanges) apply(h *Household) {
	if c.Name != nil {
		h.Name = *c.Name
	}
	if c.Area != nil {
		h.Area = *c.Area
	}
	if c.Location != nil {
		h.Location = *c.Location
	}
	if c.Blackout != nil {
		h.Blackout = *c.Blackout
	}
}

// Owner returns the owning subject id. A nil household has no owner.
func (h *Household) Owner() string {
	if h == nil {
		return ""
	}
	return h.OwnerID
}

func (h *Household) clone() *Household {
	c := *h
	if h.SellLimit != nil {
		limit := *h.SellLimit
		c.SellLimit = &limit
	}
	return &c
}

// Powerplant statuses.
const (
	PowerplantRunning = "running"
	PowerplantStopped = "stopped"
)

// Powerplant is the status of one named powerplant.
type Powerplant struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Production float64 `json:"production"`
}

// DefaultPowerplant is the name used when a request names none.
const DefaultPowerplant = "default"

// HouseholdStore persists households.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Ownership: returned households are copies; mutating them does not
//     change the store.
//   - Errors: lookups of unknown ids return ErrHouseholdNotFound.
type HouseholdStore interface {
	Get(ctx context.Context, id string) (*Household, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Household, error)
	ListBlackouts(ctx context.Context) ([]*Household, error)
	Create(ctx context.Context, h Household) (*Household, error)
	Update(ctx context.Context, id string, changes HouseholdChanges) (*Household, error)
	Delete(ctx context.Context, id string) error
	SetSellLimit(ctx context.Context, id string, limit SellLimit) error
	ClearSellLimit(ctx context.Context, id string) error
}

// PowerplantStore reads and switches powerplants.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: unknown names return ErrPowerplantNotFound.
type PowerplantStore interface {
	Powerplant(ctx context.Context, name string) (*Powerplant, error)
	SetPowerplantActive(ctx context.Context, name string, active bool) (*Powerplant, error)
}

// MemoryStore is an in-process HouseholdStore and PowerplantStore.
type MemoryStore struct {
	mu          sync.RWMutex
	households  map[string]*Household
	powerplants map[string]Powerplant
	now         func() time.Time
}

// NewMemoryStore creates a store with no households and the given
// powerplants. Without any, it holds a stopped default powerplant.
func NewMemoryStore(plants ...Powerplant) *MemoryStore {
	if len(plants) == 0 {
		plants = []Powerplant{{Name: DefaultPowerplant, Status: PowerplantStopped}}
	}
	s := &MemoryStore{
		households:  make(map[string]*Household),
		powerplants: make(map[string]Powerplant, len(plants)),
		now:         time.Now,
	}
	for _, p := range plants {
		s.powerplants[p.Name] = p
	}
	return s
}

// ParseID validates a household or user id.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}

// Get returns the household with id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Household, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.households[id]
	if !ok {
		return nil, ErrHouseholdNotFound
	}
	return h.clone(), nil
}

// ListByOwner returns the households owned by ownerID, oldest first.
func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]*Household, error) {
	return s.list(ctx, func(h *Household) bool { return h.OwnerID == ownerID })
}

// ListBlackouts returns the households currently in blackout.
func (s *MemoryStore) ListBlackouts(ctx context.Context) ([]*Household, error) {
	return s.list(ctx, func(h *Household) bool { return h.Blackout })
}

func (s *MemoryStore) list(ctx context.Context, match func(*Household) bool) ([]*Household, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Household, 0)
	for _, h := range s.households {
		if match(h) {
			out = append(out, h.clone())
		}
	}
	slices.SortFunc(out, func(a, b *Household) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Create stores h under a fresh id. Any id or sell limit on h is ignored.
func (s *MemoryStore) Create(ctx context.Context, h Household) (*Household, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.ID = uuid.NewString()
	h.SellLimit = nil
	h.CreatedAt = s.now().UTC()

	s.mu.Lock()
	s.households[h.ID] = &h
	s.mu.Unlock()

	return h.clone(), nil
}

// Delete removes the household with id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.households[id]; !ok {
		return ErrHouseholdNotFound
	}
	delete(s.households, id)
	return nil
}

// ClearSellLimit removes the market sell limit of the household with id.
func (s *MemoryStore) ClearSellLimit(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.households[id]
	if !ok {
		return ErrHouseholdNotFound
	}
	h.SellLimit = nil
	return nil
}

// Update applies changes to the household with id and returns the result.
func (s *MemoryStore) Update(ctx context.Context, id string, changes HouseholdChanges) (*Household, error) {
	return s.update(ctx, id, changes.apply)
}

// SetSellLimit sets the market sell limit of the household with id.
func (s *MemoryStore) SetSellLimit(ctx context.Context, id string, limit SellLimit) error {
	_, err := s.update(ctx, id, func(h *Household) { h.SellLimit = &limit })
	return err
}

func (s *MemoryStore) update(ctx context.Context, id string, fn func(*Household)) (*Household, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.households[id]
	if !ok {
		return nil, ErrHouseholdNotFound
	}
	fn(h)
	return h.clone(), nil
}

// Powerplant returns the status of the named powerplant.
func (s *MemoryStore) Powerplant(ctx context.Context, name string) (*Powerplant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.powerplants[name]
	if !ok {
		return nil, ErrPowerplantNotFound
	}
	return &p, nil
}

// SetPowerplantActive starts or stops the named powerplant.
func (s *MemoryStore) SetPowerplantActive(ctx context.Context, name string, active bool) (*Powerplant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.powerplants[name]
	if !ok {
		return nil, ErrPowerplantNotFound
	}
	p.Status = PowerplantStopped
	if active {
		p.Status = PowerplantRunning
	}
	s.powerplants[name] = p
	return &p, nil
}

// Ensure MemoryStore implements both stores
var (
	_ HouseholdStore  = (*MemoryStore)(nil)
	_ PowerplantStore = (*MemoryStore)(nil)
)
