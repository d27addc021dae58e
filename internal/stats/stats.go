// Package stats derives dashboard statistics from the data layer's cached
// reads. Aggregation is pure: it never mutates the collections it scans.
package stats

import (
	"context"
	"errors"
	"strconv"
	"time"

	"studytrack-backend/internal/cache"
	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/models"
)

// DataSource is the slice of the data layer the aggregator consumes.
type DataSource interface {
	Sessions(ctx context.Context) datastore.Result[models.StudySession]
	ItemsForCourse(ctx context.Context, typ, courseID string) datastore.Result[models.CourseItem]
	RevisionsSince(ctx context.Context, cutoff time.Time) datastore.Result[models.Revision]
}

// CourseStats is the per-course rollup shown on the course dashboard.
// TotalRevisions combines the session counters with the lecture and lab
// revision counts.
type CourseStats struct {
	SessionCount        int `json:"sessionCount"`
	TotalTime           int `json:"totalTime"`
	TotalRevisions      int `json:"totalRevisions"`
	CompletedSessions   int `json:"completedSessions"`
	RevisedSessions     int `json:"revisedSessions"`
	InProgressSessions  int `json:"inProgressSessions"`
	LectureCount        int `json:"lectureCount"`
	StudiedLectureCount int `json:"studiedLectureCount"`
	RevisedLectureCount int `json:"revisedLectureCount"`
	LabCount            int `json:"labCount"`
	StudiedLabCount     int `json:"studiedLabCount"`
	RevisedLabCount     int `json:"revisedLabCount"`
}

// DayActivity is one calendar day's bucket in the activity histogram.
// TotalTime sums revision durations only; session time is already part of
// the course rollup.
type DayActivity struct {
	Date      string `json:"date"` // YYYY-MM-DD, UTC
	Sessions  int    `json:"sessions"`
	Revisions int    `json:"revisions"`
	TotalTime int    `json:"totalTime"`
}

const (
	kindCourseStats   = "courseStats"
	kindDailyActivity = "dailyActivity"
)

// Aggregator computes course statistics and activity histograms, caching
// the rollups under their own cache kinds so a mutation can invalidate
// them independently of the raw collections.
type Aggregator struct {
	source DataSource
	cache  *cache.Cache
	now    func() time.Time
}

func New(source DataSource, c *cache.Cache, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{source: source, cache: c, now: now}
}

// failed reports an outright sub-read failure: degraded with nothing to
// show. A degraded read that still produced local data counts, and so does
// a plain offline read, where the local store answers authoritatively.
func failed[T any](res datastore.Result[T]) bool {
	if res.Cause == nil || errors.Is(res.Cause, datastore.ErrOffline) {
		return false
	}
	return len(res.Data) == 0
}

// CourseStats scans the course's sessions, lectures and labs and returns
// their rollup. When any sub-read fails outright the result is zero-filled
// rather than a partial mix of data and failure.
func (a *Aggregator) CourseStats(ctx context.Context, courseID string) CourseStats {
	key := cache.Key(kindCourseStats, courseID)
	if v, ok := a.cache.Get(key); ok {
		if stats, ok := v.(CourseStats); ok {
			return stats
		}
	}
	seq := a.cache.Seq(key)

	sessions := a.source.Sessions(ctx)
	lectures := a.source.ItemsForCourse(ctx, models.ItemLecture, courseID)
	labs := a.source.ItemsForCourse(ctx, models.ItemLab, courseID)
	if failed(sessions) || failed(lectures) || failed(labs) {
		return CourseStats{}
	}

	var stats CourseStats
	for _, sess := range sessions.Data {
		if sess.CourseID != courseID {
			continue
		}
		stats.SessionCount++
		stats.TotalTime += sess.Duration
		stats.TotalRevisions += sess.Revisions
		switch sess.Status {
		case models.SessionCompleted:
			stats.CompletedSessions++
		case models.SessionRevised:
			stats.RevisedSessions++
		default:
			stats.InProgressSessions++
		}
	}

	stats.LectureCount, stats.StudiedLectureCount, stats.RevisedLectureCount = tallyItems(lectures.Data, &stats.TotalRevisions)
	stats.LabCount, stats.StudiedLabCount, stats.RevisedLabCount = tallyItems(labs.Data, &stats.TotalRevisions)

	a.cache.SetIfCurrent(key, seq, stats)
	return stats
}

func tallyItems(items []models.CourseItem, totalRevisions *int) (count, studied, revised int) {
	for _, item := range items {
		count++
		if item.Status == models.ItemStudied || item.Status == models.ItemRevised {
			studied++
		}
		if item.Status == models.ItemRevised {
			revised++
		}
		*totalRevisions += item.RevisionCount
	}
	return count, studied, revised
}

// DailyActivity buckets session starts and revisions into the last `days`
// UTC calendar days, today included, oldest day first. Every day in the
// window is present even when empty.
func (a *Aggregator) DailyActivity(ctx context.Context, days int) []DayActivity {
	if days <= 0 {
		days = 7
	}
	key := cache.Key(kindDailyActivity, strconv.Itoa(days))
	if v, ok := a.cache.Get(key); ok {
		if buckets, ok := v.([]DayActivity); ok {
			return buckets
		}
	}
	seq := a.cache.Seq(key)

	today := a.now().UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -(days - 1))

	buckets := make([]DayActivity, days)
	index := make(map[string]*DayActivity, days)
	for i := 0; i < days; i++ {
		date := cutoff.AddDate(0, 0, i).Format(time.DateOnly)
		buckets[i] = DayActivity{Date: date}
		index[date] = &buckets[i]
	}

	for _, sess := range a.source.Sessions(ctx).Data {
		if b, ok := index[sess.CreatedAt.UTC().Format(time.DateOnly)]; ok {
			b.Sessions++
		}
	}
	for _, rev := range a.source.RevisionsSince(ctx, cutoff).Data {
		if b, ok := index[rev.Date.UTC().Format(time.DateOnly)]; ok {
			b.Revisions++
			b.TotalTime += rev.Duration
		}
	}

	a.cache.SetIfCurrent(key, seq, buckets)
	return buckets
}
