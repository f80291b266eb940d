// Package analytics groups view events into per-slide and per-viewer totals for the dashboard.
package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Event is one recorded stretch of time a viewer spent on a slide.
type Event struct {
	LinkID          string
	Email           string
	SlideID         string
	DurationSeconds float64
	RecordedAt      time.Time
}

// SlideStat aggregates the time spent on one slide.
type SlideStat struct {
	SlideID        string  `json:"slide_id"`
	Views          int     `json:"views"`
	TotalSeconds   float64 `json:"total_seconds"`
	AverageSeconds float64 `json:"average_seconds"`
}

// ViewerStat aggregates one viewer's activity on a link.
type ViewerStat struct {
	Email        string      `json:"email"`
	Views        int         `json:"views"`
	TotalSeconds float64     `json:"total_seconds"`
	FirstSeenAt  time.Time   `json:"first_seen_at"`
	LastSeenAt   time.Time   `json:"last_seen_at"`
	Slides       []SlideStat `json:"slides"`
}

// Summary is the dashboard view of a single share link.
type Summary struct {
	LinkID        string       `json:"link_id"`
	TotalViews    int          `json:"total_views"`
	UniqueViewers int          `json:"unique_viewers"`
	TotalSeconds  float64      `json:"total_seconds"`
	Slides        []SlideStat  `json:"slides"`
	Viewers       []ViewerStat `json:"viewers"`
}

type slideAccumulator struct {
	views   int
	seconds float64
}

type viewerAccumulator struct {
	email     string
	views     int
	seconds   float64
	firstSeen time.Time
	lastSeen  time.Time
	slides    map[string]*slideAccumulator
}

// Summarize groups the events recorded for linkID. Slides are listed in slideOrder first,
// then any other slide ids alphabetically; viewers are listed most recently seen first.
// Events for other links and events with a negative duration are ignored.
func Summarize(linkID string, events []Event, slideOrder []string) Summary {
	summary := Summary{LinkID: linkID, Slides: []SlideStat{}, Viewers: []ViewerStat{}}
	slides := make(map[string]*slideAccumulator)
	viewers := make(map[string]*viewerAccumulator)

	for _, event := range events {
		if event.LinkID != linkID || event.DurationSeconds < 0 || event.SlideID == "" {
			continue
		}
		email := NormalizeEmail(event.Email)

		summary.TotalViews++
		summary.TotalSeconds += event.DurationSeconds
		accumulate(slides, event.SlideID, event.DurationSeconds)

		viewer, ok := viewers[email]
		if !ok {
			viewer = &viewerAccumulator{
				email:     email,
				firstSeen: event.RecordedAt,
				lastSeen:  event.RecordedAt,
				slides:    make(map[string]*slideAccumulator),
			}
			viewers[email] = viewer
		}
		viewer.views++
		viewer.seconds += event.DurationSeconds
		if event.RecordedAt.Before(viewer.firstSeen) {
			viewer.firstSeen = event.RecordedAt
		}
		if event.RecordedAt.After(viewer.lastSeen) {
			viewer.lastSeen = event.RecordedAt
		}
		accumulate(viewer.slides, event.SlideID, event.DurationSeconds)
	}

	rank := make(map[string]int, len(slideOrder))
	for position, id := range slideOrder {
		if _, exists := rank[id]; !exists {
			rank[id] = position
		}
	}

	summary.Slides = slideStats(slides, rank)
	summary.UniqueViewers = len(viewers)
	for _, viewer := range viewers {
		summary.Viewers = append(summary.Viewers, ViewerStat{
			Email:        viewer.email,
			Views:        viewer.views,
			TotalSeconds: viewer.seconds,
			FirstSeenAt:  viewer.firstSeen,
			LastSeenAt:   viewer.lastSeen,
			Slides:       slideStats(viewer.slides, rank),
		})
	}
	slices.SortFunc(summary.Viewers, func(a, b ViewerStat) int {
		if byTime := b.LastSeenAt.Compare(a.LastSeenAt); byTime != 0 {
			return byTime
		}
		return cmp.Compare(a.Email, b.Email)
	})
	return summary
}

// NormalizeEmail lower-cases and trims an address so one viewer groups under one key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func accumulate(target map[string]*slideAccumulator, slideID string, seconds float64) {
	entry, ok := target[slideID]
	if !ok {
		entry = &slideAccumulator{}
		target[slideID] = entry
	}
	entry.views++
	entry.seconds += seconds
}

func slideStats(source map[string]*slideAccumulator, rank map[string]int) []SlideStat {
	stats := make([]SlideStat, 0, len(source))
	for slideID, entry := range source {
		average := 0.0
		if entry.views > 0 {
			average = entry.seconds / float64(entry.views)
		}
		stats = append(stats, SlideStat{
			SlideID:        slideID,
			Views:          entry.views,
			TotalSeconds:   entry.seconds,
			AverageSeconds: average,
		})
	}
	slices.SortFunc(stats, func(a, b SlideStat) int {
		rankA, knownA := rank[a.SlideID]
		rankB, knownB := rank[b.SlideID]
		switch {
		case knownA && knownB:
			return cmp.Compare(rankA, rankB)
		case knownA:
			return -1
		case knownB:
			return 1
		default:
			return cmp.Compare(a.SlideID, b.SlideID)
		}
	})
	return stats
}
