package session

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"time"
)

// Config holds token signing settings.
type Config struct {
	Secret []byte
	// TTL of zero issues tokens without expiry.
	TTL    time.Duration
	Issuer string
	// Generated is set when no TOKEN_SECRET was configured and a random one
	// was created for this process.
	Generated bool
}

// ConfigFromEnv reads TOKEN_SECRET, TOKEN_TTL and TOKEN_ISSUER.
func ConfigFromEnv() Config {
	cfg := Config{Issuer: "proconnect"}
	if v := os.Getenv("TOKEN_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		cfg.Secret = []byte(v)
	} else {
		cfg.Secret = randomSecret()
		cfg.Generated = true
	}
	return cfg
}

func randomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return []byte(base64.RawURLEncoding.EncodeToString(b))
}
