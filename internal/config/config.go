package config

import (
	"os"
	"time"
)

// Engine tuning values. These are deliberately constants rather than
// configuration: the backend contract and the UX both assume them.
const (
	// PollInterval is the delay between history polls for the active room.
	PollInterval = 4 * time.Second
	// HistoryPageSize bounds every history fetch.
	HistoryPageSize = 50
	// ReconcileWindow is the timestamp tolerance when matching a
	// provisional message to its confirmed server copy.
	ReconcileWindow = 5 * time.Second
	// RequestTimeout bounds every REST call made by the engine.
	RequestTimeout = 10 * time.Second
)

// Config holds the environment-provided endpoints and credentials.
type Config struct {
	// APIURL is the base URL of the REST services.
	APIURL string
	// WSURL is the websocket endpoint of the push channel.
	WSURL string
	// Token is the JWT issued by the backend. Optional; when empty the
	// client fetches a fresh anonymous identity at startup.
	Token string
}

// Load reads the configuration from the environment. Missing endpoints fall
// back to the local development backend.
func Load() *Config {
	return &Config{
		APIURL: getenv("CHATGOGO_API_URL", "http://localhost:8080"),
		WSURL:  getenv("CHATGOGO_WS_URL", "ws://localhost:8080/ws"),
		Token:  os.Getenv("CHATGOGO_TOKEN"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
