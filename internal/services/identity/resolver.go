package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/hrconsole/internal/config"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
	"github.com/terraconstructs/hrconsole/internal/services/roles"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("identity resolver already subscribed")

// Granter is the slice of the role store the resolver writes through.
type Granter interface {
	GrantRole(ctx context.Context, principalID string, role models.RoleTag, assignedBy string) error
	EnsureRole(ctx context.Context, principalID string, role models.RoleTag) (bool, error)
}

// Resolver tracks one Machine per client session and applies the
// admin-grant policy exactly once per transition into Authenticated.
// Events are handled one at a time.
//
// The machines only deduplicate grants. Request authorization and the
// console guard never read them; they authenticate each request against
// the session store (middleware.MultiAuthMiddleware).
type Resolver struct {
	mu          sync.Mutex
	machines    *lru.Cache[string, *Machine]
	roles       Granter
	auth        config.AuthConfig
	unsubscribe func()
}

// NewResolver sizes the session cache to maxSessions. Evicted sessions start
// over as Unauthenticated.
func NewResolver(roles Granter, auth config.AuthConfig, maxSessions int) (*Resolver, error) {
	cache, err := lru.New[string, *Machine](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Resolver{machines: cache, roles: roles, auth: auth}, nil
}

// Start subscribes to bus. A resolver holds at most one subscription.
func (r *Resolver) Start(bus *iam.EventBus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe != nil {
		return ErrAlreadyStarted
	}
	r.unsubscribe = bus.Subscribe(r.Handle)
	return nil
}

// Close drops the subscription. It is safe to call more than once.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Handle applies one event. It is the bus subscriber.
func (r *Resolver) Handle(ctx context.Context, ev iam.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ev.ClientID
	if key == "" {
		// nothing to track without a client
		return nil
	}

	m, ok := r.machines.Get(key)
	if !ok {
		m = &Machine{}
	}
	t := m.Apply(ev)

	switch {
	case t.Entered:
		if err := r.grant(ctx, t.Principal); err != nil {
			// stay Unauthenticated so the next attempt grants again
			r.machines.Remove(key)
			return err
		}
		r.machines.Add(key, m)
	case t.To == Unauthenticated:
		r.machines.Remove(key)
	default:
		r.machines.Add(key, m)
	}
	return nil
}

// grant runs the configured admin-grant policy for p.
func (r *Resolver) grant(ctx context.Context, p *iam.Principal) error {
	ctx, span := telemetry.StartSpan(ctx, "hrapi/services/identity", "identity.grant",
		attribute.String(telemetry.AttrPrincipalID, p.ID),
		attribute.String("grant.policy", string(r.auth.AdminGrantPolicy)),
	)
	defer span.End()

	var err error
	switch {
	case r.auth.AdminGrantPolicy == config.AdminGrantAuto, r.auth.IsBootstrapAdmin(p.Email):
		err = r.roles.GrantRole(ctx, p.ID, models.RoleAdmin, roles.SystemActor)
		if err == nil {
			log.Printf("INFO: granted admin to %s on sign-in (policy=%s)", p.ID, r.auth.AdminGrantPolicy)
		}
	default:
		var created bool
		created, err = r.roles.EnsureRole(ctx, p.ID, models.DefaultRole)
		if err == nil && created {
			log.Printf("INFO: assigned baseline role %s to %s", models.DefaultRole, p.ID)
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		log.Printf("ERROR: sign-in role grant for %s failed: %v", p.ID, err)
	}
	return err
}
