package cache

import (
	"fmt"
	"time"
)

// Namespaces
const (
	TimelineNamespace = "timeline"
)

// TrendingSourceKey identifies the anonymous trending snapshot of one table
// for the hour-aligned activity window starting at since. Every page limit
// shares the snapshot, so consecutive pages read within one TTL agree.
func TrendingSourceKey(table string, since time.Time) string {
	return fmt.Sprintf("trending:%s:%d", table, since.Unix())
}
