package reconcile_test

import (
	"testing"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/models"
	"github.com/Ashnagdarc/Nest-sub004/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestGroupKey_RequestWins(t *testing.T) {
	key := reconcile.GroupKey(strptr("R1"), "U", day("2024-01-05"))
	assert.Equal(t, "req::R1", key)
}

func TestGroupKey_UserDayFallback(t *testing.T) {
	// Same user, same calendar day: one group.
	k1 := reconcile.GroupKey(nil, "U", day("2024-01-05"))
	k2 := reconcile.GroupKey(nil, "U", day("2024-01-05"))
	assert.Equal(t, "user::U::Fri Jan 05 2024", k1)
	assert.Equal(t, k1, k2)

	// Next day is a separate group.
	k3 := reconcile.GroupKey(nil, "U", day("2024-01-06"))
	assert.Equal(t, "user::U::Sat Jan 06 2024", k3)
	assert.NotEqual(t, k1, k3)
}

func TestGroupKey_NoDate(t *testing.T) {
	assert.Equal(t, "user::U::no-date", reconcile.GroupKey(nil, "U", nil))
	empty := strptr("")
	assert.Equal(t, "user::U::no-date", reconcile.GroupKey(empty, "U", nil))
}

func TestParseKey_RoundTrip(t *testing.T) {
	for _, key := range []string{
		"req::R1",
		"user::U::Fri Jan 05 2024",
		"user::U::no-date",
	} {
		parts, err := reconcile.ParseKey(key)
		require.NoError(t, err, key)

		var rebuilt string
		if parts.RequestID != "" {
			rebuilt = reconcile.GroupKey(&parts.RequestID, "", nil)
		} else if parts.NoDate {
			rebuilt = reconcile.GroupKey(nil, parts.UserID, nil)
		} else {
			rebuilt = reconcile.GroupKey(nil, parts.UserID, &parts.Day)
		}
		assert.Equal(t, key, rebuilt)
	}
}

func TestParseKey_Malformed(t *testing.T) {
	for _, key := range []string{"", "req::", "user::", "user::U", "bogus::x"} {
		_, err := reconcile.ParseKey(key)
		assert.ErrorIs(t, err, reconcile.ErrBadGroupKey, key)
	}
}

func TestGroupRecords_BucketsAndOrder(t *testing.T) {
	recs := []models.CheckinRecord{
		{ID: "a", UserID: "U", CheckinDate: day("2024-01-05")},
		{ID: "b", UserID: "U", CheckinDate: day("2024-01-05")},
		{ID: "c", UserID: "U", CheckinDate: day("2024-01-06")},
		{ID: "d", RequestID: strptr("R1"), UserID: "U", CheckinDate: day("2024-01-04")},
	}

	groups := reconcile.GroupRecords(recs)
	require.Len(t, groups, 3)

	// Descending by latest member timestamp: Jan 06, Jan 05, Jan 04.
	assert.Equal(t, "user::U::Sat Jan 06 2024", groups[0].Key)
	assert.Equal(t, "user::U::Fri Jan 05 2024", groups[1].Key)
	assert.Equal(t, "req::R1", groups[2].Key)

	require.Len(t, groups[1].Records, 2)
	assert.Equal(t, "a", groups[1].Records[0].ID)
	assert.Equal(t, "b", groups[1].Records[1].ID)
}

func TestGroupRecords_SameInputsSameGroups(t *testing.T) {
	recs := []models.CheckinRecord{
		{ID: "a", UserID: "U", CheckinDate: day("2024-01-05")},
		{ID: "b", RequestID: strptr("R2"), UserID: "V", CheckinDate: day("2024-01-07")},
	}
	assert.Equal(t, reconcile.GroupRecords(recs), reconcile.GroupRecords(recs))
}
