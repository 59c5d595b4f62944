package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDatabasePrefix starts the name of every database a test run creates.
// Teardown tooling finds run databases by this prefix.
const DefaultDatabasePrefix = "MongoTest-"

// RunTimestampLayout is the sortable local-time form of a run timestamp
// (ISO-8601 with ':' replaced by '-', which database names cannot contain).
const RunTimestampLayout = "2006-01-02T15-04-05"

// RunIdentity names one database of a test run.
type RunIdentity struct {
	Timestamp string `json:"timestamp" bson:"timestamp"`
	Counter   int64  `json:"counter" bson:"counter"`
}

// FormatRunTimestamp renders t in RunTimestampLayout.
func FormatRunTimestamp(t time.Time) string {
	return t.Format(RunTimestampLayout)
}

// DatabaseName returns prefix + timestamp + "-" + counter.
func (r RunIdentity) DatabaseName(prefix string) string {
	return fmt.Sprintf("%s%s-%d", prefix, r.Timestamp, r.Counter)
}

// Time parses the timestamp in the local time zone.
func (r RunIdentity) Time() (time.Time, error) {
	return time.ParseInLocation(RunTimestampLayout, r.Timestamp, time.Local)
}

// Less orders identities by timestamp, then counter.
func (r RunIdentity) Less(other RunIdentity) bool {
	if r.Timestamp != other.Timestamp {
		return r.Timestamp < other.Timestamp
	}
	return r.Counter < other.Counter
}

// ParseDatabaseName recovers the run identity from a database name produced
// by DatabaseName with the same prefix.
func ParseDatabaseName(prefix, name string) (RunIdentity, bool) {
	if prefix == "" || !strings.HasPrefix(name, prefix) {
		return RunIdentity{}, false
	}
	rest := strings.TrimPrefix(name, prefix)

	i := strings.LastIndexByte(rest, '-')
	if i <= 0 || i == len(rest)-1 {
		return RunIdentity{}, false
	}

	digits := rest[i+1:]
	counter, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || counter < 1 || strconv.FormatInt(counter, 10) != digits {
		return RunIdentity{}, false
	}

	timestamp := rest[:i]
	if _, err := time.Parse(RunTimestampLayout, timestamp); err != nil {
		return RunIdentity{}, false
	}

	return RunIdentity{Timestamp: timestamp, Counter: counter}, true
}
