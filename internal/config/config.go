package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Pinata credentials are intentionally optional at
// startup: their absence is reported by the metadata publisher at upload
// time as a configuration error rather than preventing the rest of the API
// from serving.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	MongoURI      string // MongoDB connection string
	MongoDB       string // MongoDB database name
	AlgodURL      string // Algorand node address
	AlgodToken    string // Algorand API token (empty for public providers)
	PinataAPIKey  string // Pinata API key (optional)
	PinataSecret  string // Pinata secret API key (optional)
	IpfsGateway   string // IPFS gateway base URL (optional override)
	BaseURL       string // public base URL used in verification links
	JWTSecret     string // secret used to sign wallet-session tokens
	SessionTTLMin int    // wallet-session token time-to-live in minutes
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),  // environment (dev/test/prod)
		Port:          must("APP_PORT"), // port to bind the HTTP server
		MongoURI:      must("MONGODB_URI"),
		MongoDB:       getenv("MONGODB_DB", "credzi"),
		AlgodURL:      getenv("ALGORAND_NODE_URL", "https://testnet-api.algonode.cloud"),
		AlgodToken:    os.Getenv("ALGORAND_API_TOKEN"), // empty allowed
		PinataAPIKey:  os.Getenv("PINATA_API_KEY"),
		PinataSecret:  os.Getenv("PINATA_SECRET_API_KEY"),
		IpfsGateway:   os.Getenv("IPFS_GATEWAY_URL"),
		BaseURL:       getenv("BASE_URL", "http://localhost:3000"),
		JWTSecret:     must("JWT_SECRET"),               // secret for signing session JWTs
		SessionTTLMin: mustInt("SESSION_TOKEN_TTL_MIN"), // TTL for session tokens in minutes
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
