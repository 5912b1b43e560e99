// Package reconcile holds the accounting behind check-in approval:
// per-line quantity summaries, the grouping of loose check-in records,
// and the decision of when a request counts as fully returned.
//
// Everything here is pure; the db layer feeds it rows and acts on the
// results inside its own transactions.
package reconcile

import (
	"sort"

	"github.com/Ashnagdarc/Nest-sub004/models"
)

// UnknownGearName is shown when the gear join misses.
const UnknownGearName = "Unknown Gear"

// LineSummary is the derived accounting for one (request, gear) pair.
// Recomputed on every load, never persisted.
type LineSummary struct {
	RequestID      string `json:"requestId"`
	GearID         string `json:"gearId"`
	GearName       string `json:"gearName"`
	RequestedQty   int    `json:"requestedQty"`
	CompletedQty   int    `json:"completedQty"`
	PendingQty     int    `json:"pendingQty"`
	OutstandingQty int    `json:"outstandingQty"`
}

// RequestSummary rolls the line summaries of one request up.
type RequestSummary struct {
	RequestID      string        `json:"requestId"`
	RequestedQty   int           `json:"requestedQty"`
	CompletedQty   int           `json:"completedQty"`
	PendingQty     int           `json:"pendingQty"`
	OutstandingQty int           `json:"outstandingQty"`
	Lines          []LineSummary `json:"lines"`
}

// Summarize computes one LineSummary per request line, counting Completed
// and PendingApproval check-in quantity against the requested quantity.
// Check-in unit quantity defaults to 1 and is clamped to at least 1.
// Requests with no lines produce no summary; gear names missing from
// gearNames fall back to UnknownGearName.
func Summarize(lines []models.RequestLine, checkins []models.CheckinRecord, gearNames map[string]string) map[string]*RequestSummary {
	type key struct{ requestID, gearID string }

	byLine := make(map[key]*LineSummary)
	order := make(map[string][]key) // request id -> line keys in input order
	for _, ln := range lines {
		k := key{ln.RequestID, ln.GearID}
		ls, ok := byLine[k]
		if !ok {
			name, found := gearNames[ln.GearID]
			if !found || name == "" {
				name = UnknownGearName
			}
			ls = &LineSummary{RequestID: ln.RequestID, GearID: ln.GearID, GearName: name}
			byLine[k] = ls
			order[ln.RequestID] = append(order[ln.RequestID], k)
		}
		ls.RequestedQty += ln.Quantity
	}

	for _, c := range checkins {
		if c.RequestID == nil || *c.RequestID == "" {
			continue
		}
		ls, ok := byLine[key{*c.RequestID, c.GearID}]
		if !ok {
			// Check-in against a gear the request never asked for;
			// nothing to count it toward.
			continue
		}
		switch c.Status {
		case models.CheckinStatusCompleted:
			ls.CompletedQty += c.Unit()
		case models.CheckinStatusPending:
			ls.PendingQty += c.Unit()
		}
	}

	out := make(map[string]*RequestSummary, len(order))
	for requestID, keys := range order {
		rs := &RequestSummary{RequestID: requestID}
		for _, k := range keys {
			ls := byLine[k]
			ls.OutstandingQty = Outstanding(ls.RequestedQty, ls.CompletedQty, ls.PendingQty)
			rs.RequestedQty += ls.RequestedQty
			rs.CompletedQty += ls.CompletedQty
			rs.PendingQty += ls.PendingQty
			rs.OutstandingQty += ls.OutstandingQty
			rs.Lines = append(rs.Lines, *ls)
		}
		sort.SliceStable(rs.Lines, func(i, j int) bool { return rs.Lines[i].GearID < rs.Lines[j].GearID })
		out[requestID] = rs
	}
	return out
}

// Outstanding is requested minus (completed + pending), floored at zero.
func Outstanding(requested, completed, pending int) int {
	n := requested - completed - pending
	if n < 0 {
		return 0
	}
	return n
}

// RequestSatisfied reports whether the completed quantity covers the
// requested quantity on every line of the request. Pending quantity does
// not count; a request only completes once its returns clear approval.
// A request with no lines is never satisfied.
func RequestSatisfied(lines []models.RequestLine, completedByGear map[string]int) bool {
	if len(lines) == 0 {
		return false
	}
	requested := make(map[string]int)
	for _, ln := range lines {
		requested[ln.GearID] += ln.Quantity
	}
	for gearID, want := range requested {
		if completedByGear[gearID] < want {
			return false
		}
	}
	return true
}

// CompletedByGear sums Completed check-in quantity per gear id.
func CompletedByGear(checkins []models.CheckinRecord) map[string]int {
	m := make(map[string]int)
	for _, c := range checkins {
		if c.Status == models.CheckinStatusCompleted {
			m[c.GearID] += c.Unit()
		}
	}
	return m
}
