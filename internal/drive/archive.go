package drive

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
)

// ArchiveMIMEType is the content type of uploaded backups.
const ArchiveMIMEType = "application/zip"

// DefaultNamePrefix starts the name of every backup archive.
const DefaultNamePrefix = "books_export"

// Archive describes a backup stored on Drive.
type Archive struct {
	ID          string
	Name        string
	CreatedTime string // RFC 3339 as reported by Drive, "" when absent
	Size        *int64 // nil when Drive reports no size or zero
}

// Created parses CreatedTime.
func (a Archive) Created() (time.Time, bool) {
	if a.CreatedTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, a.CreatedTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BackupName returns the archive name for a backup taken at t.
func BackupName(t time.Time) string {
	return BackupNameWithPrefix(DefaultNamePrefix, t)
}

// BackupNameWithPrefix is BackupName with a custom prefix.
func BackupNameWithPrefix(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%d.zip", prefix, t.UnixMilli())
}

type fileJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CreatedTime *string         `json:"createdTime"`
	Size        json.RawMessage `json:"size"`
}

func (f fileJSON) archive() Archive {
	a := Archive{ID: f.ID, Name: f.Name, Size: parseSize(f.Size)}
	if f.CreatedTime != nil {
		a.CreatedTime = *f.CreatedTime
	}
	return a
}

// parseSize accepts a JSON number or a numeric string. Zero, negative,
// absent and unparsable sizes are reported as unknown.
func parseSize(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// SortMode orders an archive listing.
type SortMode int

const (
	SortNewest SortMode = iota
	SortOldest
	SortLargest
	SortSmallest
)

var sortModeNames = map[SortMode]string{
	SortNewest:   "newest",
	SortOldest:   "oldest",
	SortLargest:  "largest",
	SortSmallest: "smallest",
}

func (m SortMode) String() string {
	if s, ok := sortModeNames[m]; ok {
		return s
	}
	return "newest"
}

// ParseSortMode accepts newest, oldest, largest and smallest. The empty
// string selects SortNewest.
func ParseSortMode(s string) (SortMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortNewest, nil
	}
	for m, name := range sortModeNames {
		if name == s {
			return m, nil
		}
	}
	return SortNewest, fmt.Errorf("unknown sort mode %q (want newest, oldest, largest or smallest)", s)
}

// SortArchives returns a sorted copy of list. Ties keep their input
// order. Missing creation times compare as "", missing sizes as 0 when
// sorting by largest and as the maximum when sorting by smallest.
func SortArchives(list []Archive, mode SortMode) []Archive {
	out := make([]Archive, len(list))
	copy(out, list)

	size := func(a Archive, missing int64) int64 {
		if a.Size == nil {
			return missing
		}
		return *a.Size
	}

	var less func(a, b Archive) bool
	switch mode {
	case SortOldest:
		less = func(a, b Archive) bool { return a.CreatedTime < b.CreatedTime }
	case SortLargest:
		less = func(a, b Archive) bool { return size(a, 0) > size(b, 0) }
	case SortSmallest:
		less = func(a, b Archive) bool { return size(a, math.MaxInt64) < size(b, math.MaxInt64) }
	default:
		less = func(a, b Archive) bool { return a.CreatedTime > b.CreatedTime }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
