// Package cmdutil builds the service graph shared by the CLI commands.
package cmdutil

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/config"
	"github.com/terraconstructs/hrconsole/internal/db/bunx"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
	"github.com/terraconstructs/hrconsole/internal/services/roles"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

// Options controls how the CLI constructs the services. Metrics are optional.
type Options struct {
	AuthMetrics     *telemetry.AuthMetrics
	DatabaseMetrics *telemetry.DatabaseMetrics
	Events          *iam.EventBus
}

// Bundle carries the services together with the DB connection so callers can
// build further repositories on it.
type Bundle struct {
	DB          *bun.DB
	Enforcer    casbin.IEnforcer
	Roles       *roles.Service
	IAM         iam.Service
	SetupTokens *iam.SetupTokens
}

// Close releases the underlying database connection.
func (b *Bundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// NewBundle connects to the database and wires the role store, the identity
// store and the setup-token issuer.
func NewBundle(cfg *config.Config, opts Options) (*Bundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.Options{MaxConns: cfg.MaxDBConnections})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if opts.DatabaseMetrics != nil {
		db.AddQueryHook(&bunx.MetricsHook{Metrics: opts.DatabaseMetrics})
	}

	enforcer, err := auth.InitEnforcer()
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to initialize casbin enforcer: %w", err)
	}

	roleSvc := roles.NewService(repository.NewBunRoleAssignmentRepository(db), enforcer, cfg.RemoteCallTimeout)

	iamService, err := iam.NewIAMService(
		iam.IAMServiceDependencies{
			Users:    repository.NewBunUserRepository(db),
			Sessions: repository.NewBunSessionRepository(db),
			Roles:    roleSvc,
			Events:   opts.Events,
			Metrics:  opts.AuthMetrics,
		},
		iam.IAMServiceConfig{Config: cfg},
	)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &Bundle{
		DB:          db,
		Enforcer:    enforcer,
		Roles:       roleSvc,
		IAM:         iamService,
		SetupTokens: iam.NewSetupTokens(cfg.Auth.SetupTokenSecret, repository.NewBunSetupTokenRepository(db), cfg.RemoteCallTimeout),
	}, nil
}
