package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultElasticsearchHost       = "localhost"
	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 3

	DefaultCatalogIndex = "course_catalog"
	DefaultContentIndex = "course_content"

	DefaultAnthropicModel = "claude-sonnet-4-6"

	// Two sequential tool-calling rounds per query, then one forced final
	// answer without tools.
	DefaultMaxToolRounds = 2

	DefaultMaxResults   = 5
	DefaultMaxHistory   = 2
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100

	DefaultDocsPath       = "./docs"
	DefaultMaxQueryLength = 2000
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}
