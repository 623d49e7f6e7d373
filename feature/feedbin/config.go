package feedbin

// Config holds configuration for the remote provider client.
type Config struct {
	// BaseURL is the provider API root.
	BaseURL string `mapstructure:"base_url" default:"https://api.feedbin.com/"`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxRetries is the total attempt budget per request.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
}
