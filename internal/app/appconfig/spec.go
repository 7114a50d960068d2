package appconfig

import (
	"time"

	"github.com/chartloop/backend/internal/app/appcontext"
)

type ConfigSpec struct {
	// ServiceAddress is the listen address the HTTP server would listen on.
	ServiceAddress string `required:"true" split_words:"true" default:"localhost:9280"`

	// LogJsonStdout is whether to log JSON logs (instead of pretty-print logs) to stdout for the ease of log collection.
	LogJsonStdout bool `split_words:"true" default:"false"`

	// DevMode to indicate development mode. When true, the program would spin up utilities for debugging and
	// provide a more contextual message when encountered a panic. See internal/server/httpserver/http.go for the
	// actual implementation details.
	DevMode bool `split_words:"true"`

	// infrastructure components connection instructions

	// PostgresDSN is the data source name for the PostgreSQL database. See
	// https://bun.uptrace.dev/postgres/#pgdriver for more details on how to construct a PostgreSQL DSN.
	PostgresDSN string `required:"true" split_words:"true"`

	PostgresMaxOpenConns    int           `split_words:"true" default:"10"`
	PostgresMaxIdleConns    int           `split_words:"true" default:"2"`
	PostgresConnMaxLifeTime time.Duration `split_words:"true" default:"5m"`
	PostgresConnMaxIdleTime time.Duration `split_words:"true" default:"5m"`

	BunDebugVerbose bool `split_words:"true"`

	// NatsURL is the URL of the NATS server. See https://pkg.go.dev/github.com/nats-io/nats.go#Connect
	// for more information on how to construct a NATS URL.
	NatsURL string `required:"true" split_words:"true" default:"nats://127.0.0.1:4222"`

	// RedisURL is the URL of the Redis server, and by default uses redis db 1, to avoid potential collision
	// with other services sharing the same instance. See https://pkg.go.dev/github.com/redis/go-redis/v9#ParseURL
	// for more information on how to construct a Redis URL.
	RedisURL string `required:"true" split_words:"true" default:"redis://127.0.0.1:6379/1"`

	// SentryDSN is the DSN of the Sentry server. See https://pkg.go.dev/github.com/getsentry/sentry-go#ClientOptions
	SentryDSN string `split_words:"true"`

	// ScrobbleAPIBaseURL is the base URL of the scrobbling provider's REST API from which members' weekly
	// listening history is fetched.
	ScrobbleAPIBaseURL string `required:"true" split_words:"true" default:"https://ws.audioscrobbler.com/2.0"`

	// ScrobbleAPIKey is the API key used against the scrobbling provider.
	ScrobbleAPIKey string `split_words:"true"`

	// ScrobbleFetchTimeout bounds a single weekly-stats request to the scrobbling provider.
	ScrobbleFetchTimeout time.Duration `split_words:"true" default:"15s"`

	// ScrobbleFetchConcurrency is the size of the per-run worker pool used to fetch members' weekly stats.
	ScrobbleFetchConcurrency int `split_words:"true" default:"4"`

	// GenerationLeaseTimeout is how long a generation lease may be held before another trigger is allowed
	// to treat the holder as dead and reclaim it. Reclamation is a heuristic: there is no fencing token, so
	// a crashed-but-alive holder can in a narrow window race the reclaimer.
	GenerationLeaseTimeout time.Duration `split_words:"true" default:"30m"`

	// GenerationWorkerCount is the number of NATS consumers pulling generation tasks. Each task occupies
	// exactly one group; distinct groups may generate concurrently.
	GenerationWorkerCount int `split_words:"true" default:"4"`

	// StatsRetentionWeeks is how many trailing closed weeks of raw member stats are kept in Postgres.
	// Older rows are archived to S3 and deleted; they stay reconstructable from the provider.
	StatsRetentionWeeks int `split_words:"true" default:"10"`

	// ArchiveInterval is the separation between two retention-archival sweeps.
	ArchiveInterval time.Duration `split_words:"true" default:"24h"`

	// ArchiveEnabled gates the retention archiver worker entirely.
	ArchiveEnabled bool `split_words:"true" default:"false"`

	// StatsArchiveS3Bucket is the bucket raw member stats beyond the retention horizon get archived into.
	StatsArchiveS3Bucket string `split_words:"true"`

	// StatsArchiveS3Region is the region of the archive bucket.
	StatsArchiveS3Region string `split_words:"true" default:"us-east-1"`

	AWSAccessKey string `envconfig:"AWS_ACCESS_KEY"`
	AWSSecretKey string `envconfig:"AWS_SECRET_KEY"`

	// HTTPServerShutdownTimeout is the timeout for the HTTP server to shutdown gracefully.
	HTTPServerShutdownTimeout time.Duration `required:"true" split_words:"true" default:"60s"`
}

type Config struct {
	ConfigSpec

	AppContext appcontext.Ctx
}
