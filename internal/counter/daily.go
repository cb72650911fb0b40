// Package counter tracks per-account outbound transfer counts within a UTC day.
//
// A counter whose window is older than the current day reads as zero and is
// rolled forward on the next increment. ResetAll clears every counter at once.
package counter

import (
	"bytes"
	"sort"
	"time"

	"soulverse-ledger/internal/domain"
)

const secondsPerDay = 24 * 60 * 60

// DayOf returns the UTC calendar day of t as days since the Unix epoch.
func DayOf(t time.Time) int64 {
	secs := t.Unix()
	day := secs / secondsPerDay
	if secs < 0 && secs%secondsPerDay != 0 {
		day--
	}
	return day
}

type entry struct {
	count uint64
	day   int64
}

// Daily holds the counters for every account that has transferred.
type Daily struct {
	entries map[domain.Address]entry
}

// New creates an empty counter set.
func New() *Daily {
	return &Daily{entries: make(map[domain.Address]entry)}
}

// Restore recreates counters from persisted values.
func Restore(counts []domain.DailyCount) *Daily {
	d := New()
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		d.entries[c.Address] = entry{count: c.Count, day: c.Day}
	}
	return d
}

// Count returns addr's transfer count for the day containing now.
func (d *Daily) Count(addr domain.Address, now time.Time) uint64 {
	e, ok := d.entries[addr]
	if !ok || e.day != DayOf(now) {
		return 0
	}
	return e.count
}

// Increment records one outbound transfer for addr and returns the new count.
func (d *Daily) Increment(addr domain.Address, now time.Time) uint64 {
	today := DayOf(now)
	e := d.entries[addr]
	if e.day != today {
		e = entry{day: today}
	}
	e.count++
	d.entries[addr] = e
	return e.count
}

// ResetAll zeroes every account's counter.
func (d *Daily) ResetAll() {
	d.entries = make(map[domain.Address]entry)
}

// Entries returns every non-zero counter, sorted by address.
func (d *Daily) Entries() []domain.DailyCount {
	out := make([]domain.DailyCount, 0, len(d.entries))
	for addr, e := range d.entries {
		out = append(out, domain.DailyCount{Address: addr, Count: e.count, Day: e.day})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}
