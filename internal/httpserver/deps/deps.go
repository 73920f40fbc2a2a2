package deps

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/scheduler"
)

// Extractor fetches page metadata for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (domain.Metadata, error)
}

// Bookmarks is the bookmark service as seen by handlers.
type Bookmarks interface {
	Save(ctx context.Context, ownerID string, meta domain.Metadata, rawTags string) (int64, error)
	List(ctx context.Context, ownerID, searchTerm string) ([]domain.Bookmark, error)
	Get(ctx context.Context, ownerID string, id int64) (*domain.Bookmark, error)
	Update(ctx context.Context, ownerID string, id int64, f domain.BookmarkFields, rawTags string) error
	Delete(ctx context.Context, ownerID string, id int64) error
	TagCounts(ctx context.Context, ownerID string) ([]domain.TagCount, error)
}

// Verifier turns a bearer token into an identity.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CollectorStatus reports the orphan tag collector's last run.
type CollectorStatus interface {
	Status() scheduler.Status
}

// MetadataCache is the admin view of the extraction cache.
type MetadataCache interface {
	InvalidateMetadata(ctx context.Context, url string) error
	FlushMetadata(ctx context.Context) (int, error)
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access admin endpoints
	AllowedCIDRS []string         // IPs allowed to access infra/admin endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	DB          Pinger        // primary store
	DBDriver    string        // "sqlite3" | "pgx"
	RedisClient *redis.Client // nil when the metadata cache is in memory or disabled
	CacheMode   string        // "redis" | "memory" | "off"
	Cache       MetadataCache // nil when the metadata cache is off

	Extractor Extractor
	Bookmarks Bookmarks
	Verifier  Verifier
	Validator *validator.Validate

	SweepTrigger chan struct{}   // manual orphan tag collection
	Collector    CollectorStatus // nil disables the collector section of /infra

	ExtractBurst  int // rate limit burst per client IP on /api/extract
	ExtractRefill int // tokens per minute per client IP
}
