package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// The env helpers fall back to the default when a variable is unset or
// cannot be parsed.  A malformed value is logged so typos do not go unseen.

func envStr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "":
		return d
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.WithField("var", k).Warnf("config: %q is not a boolean, using %v", v, d)
		return d
	}
	return b
}

func envInt(k string, d int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("var", k).Warnf("config: %q is not an integer, using %d", v, d)
		return d
	}
	return n
}

func envDur(k string, d time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("var", k).Warnf("config: %q is not a duration, using %s", v, d)
		return d
	}
	return dur
}
