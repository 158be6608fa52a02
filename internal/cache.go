package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

var Cache = cache.New(120*time.Minute, 0)

// CacheKey builds keys of the form <subscription>-<service>-<operation>.
func CacheKey(subscriptionID string, parts ...string) string {
	return fmt.Sprintf("%s-%s", subscriptionID, strings.Join(parts, "-"))
}

