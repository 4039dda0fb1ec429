package docsearch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs     []string
	username  string
	password  string
	apiKey    string
	transport http.RoundTripper

	bootstrap        bool
	vectorDimensions int
	reindexTimeout   time.Duration

	redisAddrs    []string
	redisPassword string
	cacheTTL      time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithElasticsearch sets the cluster addresses (http or https URLs).
func WithElasticsearch(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
	})
}

// WithBasicAuth authenticates with a username and password.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithAPIKey authenticates with a base64 encoded Elasticsearch API key.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithTransport overrides the HTTP transport, e.g. for custom TLS.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = rt
	})
}

// WithBootstrap controls whether missing catalog collections are created on
// connect. Enabled by default.
func WithBootstrap(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.bootstrap = enabled
	})
}

// WithVectorDimensions sets the dense_vector size of the embedding fields
// created by bootstrap and rebuild. Default: 384.
func WithVectorDimensions(dims int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dims
	})
}

// WithReindexTimeout bounds the copy step of Rebuild. Default: 1h.
func WithReindexTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.reindexTimeout = d
	})
}

// WithRedis enables the document cache and the cross-process rebuild lock.
func WithRedis(addr, password string, cacheTTL time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
		c.cacheTTL = cacheTTL
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
