package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// closeTimeout bounds the sign-out performed by Close.
const closeTimeout = 2 * time.Second

// Client is the remote store for InfluxDB 2.x.
//
// Provisioning uses the operator token; reads and writes use a session
// signed in as the principal derived from the table name.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg   config.StoreConfig
	creds config.StoreCredentials
	log   *logging.Logger

	newAdmin   func() admin
	newSession func(ctx context.Context) (session, error)

	mu   sync.Mutex
	sess session
}

// New creates a Client for cfg. No network traffic happens until
// Provision or Connect is called.
func New(cfg config.StoreConfig, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}

	c := &Client{
		cfg:   cfg,
		creds: cfg.Credentials(),
		log:   log.With("component", "influxdb", "url", cfg.URL()),
	}

	timeout := uint(max(cfg.Timeout, 1)) // #nosec G115 -- clamped positive
	c.newAdmin = func() admin {
		return newInfluxAdmin(cfg.URL(), cfg.Token, timeout)
	}
	c.newSession = func(ctx context.Context) (session, error) {
		return openInfluxSession(ctx, cfg.URL(), cfg.Org, c.creds.Database, c.creds.Username, c.creds.Password, timeout)
	}
	return c
}

// Provision makes sure the organisation, the logger's principal and its
// bucket exist, creating whichever is missing. When the principal or the
// bucket was just created, the principal is granted ownership of the bucket.
// Calling it again once everything exists performs lookups only.
//
// Returns:
//   - error: wraps ErrConnectionFailed if any step fails or times out
func (c *Client) Provision(ctx context.Context) error {
	adm := c.newAdmin()
	defer adm.close()

	orgID, found, err := adm.findOrg(ctx, c.cfg.Org)
	if err != nil {
		return fmt.Errorf("%w: looking up organisation: %w", ErrConnectionFailed, err)
	}
	if !found {
		if orgID, err = adm.createOrg(ctx, c.cfg.Org); err != nil {
			return fmt.Errorf("%w: creating organisation: %w", ErrConnectionFailed, err)
		}
		c.log.Info("created organisation", "org", c.cfg.Org)
	}

	userID, found, err := adm.findUser(ctx, c.creds.Username)
	if err != nil {
		return fmt.Errorf("%w: looking up user: %w", ErrConnectionFailed, err)
	}
	userCreated := !found
	if userCreated {
		if userID, err = adm.createUser(ctx, c.creds.Username, c.creds.Password); err != nil {
			return fmt.Errorf("%w: creating user: %w", ErrConnectionFailed, err)
		}
		c.log.Info("created user", "user", c.creds.Username)
	}

	bucketID, found, err := adm.findBucket(ctx, orgID, c.creds.Database)
	if err != nil {
		return fmt.Errorf("%w: looking up bucket: %w", ErrConnectionFailed, err)
	}
	bucketCreated := !found
	if bucketCreated {
		if bucketID, err = adm.createBucket(ctx, orgID, c.creds.Database); err != nil {
			return fmt.Errorf("%w: creating bucket: %w", ErrConnectionFailed, err)
		}
		c.log.Info("created bucket", "bucket", c.creds.Database)
	}

	if userCreated {
		if err := adm.addOrgMember(ctx, orgID, userID); err != nil {
			return fmt.Errorf("%w: adding organisation member: %w", ErrConnectionFailed, err)
		}
	}
	if userCreated || bucketCreated {
		if err := adm.addBucketOwner(ctx, bucketID, userID); err != nil {
			return fmt.Errorf("%w: granting bucket access: %w", ErrConnectionFailed, err)
		}
		c.log.Debug("granted bucket access", "user", c.creds.Username, "bucket", c.creds.Database)
	}

	return nil
}

// Connect replaces any existing session with a new one signed in as the
// logger's principal, then pings the server.
//
// Returns:
//   - bool: true if the server answered the ping as healthy
//   - error: wraps ErrConnectionFailed on sign-in, transport or timeout failure
func (c *Client) Connect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeSessionLocked()

	sess, err := c.newSession(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: sign-in failed: %w", ErrConnectionFailed, err)
	}

	healthy, err := sess.ping(ctx)
	if err != nil {
		sess.close(ctx)
		return false, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		sess.close(ctx)
		return false, nil
	}

	c.sess = sess
	return true, nil
}

// WriteReading writes one reading, tagged with id, through the current session.
//
// Returns:
//   - error: ErrNotConnected without a session; wraps ErrWriteFailed otherwise
func (c *Client) WriteReading(ctx context.Context, r reading.Reading, id reading.RunIdentity) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return ErrNotConnected
	}
	if err := sess.write(ctx, NewReadingPoint(r, id)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Close signs out and releases the session. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSessionLocked()
	return nil
}

// IsConnected reports whether a session is held. It reflects the last
// Connect or Close, not the live server state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

func (c *Client) closeSessionLocked() {
	if c.sess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	c.sess.close(ctx)
	c.sess = nil
}
