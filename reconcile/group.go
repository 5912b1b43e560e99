package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/models"
)

// dayLayout matches the calendar-day string used in group keys,
// e.g. "Fri Jan 05 2024".
const dayLayout = "Mon Jan 02 2006"

const noDate = "no-date"

// GroupKey buckets a check-in record: by request when one is attached,
// otherwise by (user, calendar day). The same key is used for the
// pending-approval view and the recent-activity view so both group
// identically.
func GroupKey(requestID *string, userID string, checkinDate *time.Time) string {
	if requestID != nil && *requestID != "" {
		return "req::" + *requestID
	}
	day := noDate
	if checkinDate != nil && !checkinDate.IsZero() {
		day = checkinDate.UTC().Format(dayLayout)
	}
	return fmt.Sprintf("user::%s::%s", userID, day)
}

// KeyParts is a parsed group key, used to re-derive the authoritative
// member set server-side before a group action.
type KeyParts struct {
	RequestID string
	UserID    string
	Day       time.Time // zero when NoDate
	NoDate    bool
}

var ErrBadGroupKey = errors.New("malformed group key")

// ParseKey inverts GroupKey.
func ParseKey(key string) (KeyParts, error) {
	if rest, ok := strings.CutPrefix(key, "req::"); ok {
		if rest == "" {
			return KeyParts{}, ErrBadGroupKey
		}
		return KeyParts{RequestID: rest}, nil
	}
	rest, ok := strings.CutPrefix(key, "user::")
	if !ok {
		return KeyParts{}, ErrBadGroupKey
	}
	// The day segment is the final "::"-separated part; user ids are
	// uuids and never contain "::".
	i := strings.LastIndex(rest, "::")
	if i <= 0 {
		return KeyParts{}, ErrBadGroupKey
	}
	userID, dayStr := rest[:i], rest[i+2:]
	if dayStr == noDate {
		return KeyParts{UserID: userID, NoDate: true}, nil
	}
	day, err := time.ParseInLocation(dayLayout, dayStr, time.UTC)
	if err != nil {
		return KeyParts{}, fmt.Errorf("%w: %v", ErrBadGroupKey, err)
	}
	return KeyParts{UserID: userID, Day: day}, nil
}

// Group is an ephemeral display/action cluster of check-in records.
type Group struct {
	Key     string                 `json:"key"`
	Records []models.CheckinRecord `json:"records"`
	Latest  time.Time              `json:"latest"`
}

// GroupRecords clusters records by GroupKey and orders the groups
// descending by the latest check-in timestamp among their members.
// Record order within a group follows the input.
func GroupRecords(recs []models.CheckinRecord) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, rec := range recs {
		key := GroupKey(rec.RequestID, rec.UserID, rec.CheckinDate)
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, rec)
		if rec.CheckinDate != nil && rec.CheckinDate.After(groups[i].Latest) {
			groups[i].Latest = *rec.CheckinDate
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Latest.After(groups[j].Latest) })
	return groups
}
