package cli

import (
	"os"
	"strings"
)

// Environment variables providing flag defaults.
const (
	envConfig    = "KOBOLDSWITCH_CONFIG"
	envAddr      = "KOBOLDSWITCH_ADDR"
	envServer    = "KOBOLDSWITCH_SERVER"
	envLogLevel  = "KOBOLDSWITCH_LOG_LEVEL"
	envLogFormat = "KOBOLDSWITCH_LOG_FORMAT"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

const envCORSOrigins = "KOBOLDSWITCH_CORS_ORIGINS"

// splitCSV splits a comma separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
