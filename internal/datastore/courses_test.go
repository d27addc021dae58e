package datastore

import (
	"context"
	"testing"
	"time"

	"studytrack-backend/internal/models"
)

func TestCreateCourseOnlineMirrorsLocally(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()

	id := env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101", Name: "Intro"})
	if hasLocalID(id) {
		t.Fatalf("online create returned offline id %q", id)
	}
	if got := env.remote.count(ColCourses); got != 1 {
		t.Fatalf("remote course count = %d, want 1", got)
	}

	var mirrored []models.Course
	env.local.GetCollection(ColCourses, &mirrored)
	if len(mirrored) != 1 || mirrored[0].ID != id || mirrored[0].Code != "CS101" {
		t.Fatalf("local mirror = %+v, want the created course with id %q", mirrored, id)
	}
}

func TestCreateCourseOfflineFallsBackLocally(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()

	id := env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101", Name: "Intro"})
	if !hasLocalID(id) {
		t.Fatalf("offline create returned id %q, want %q prefix", id, LocalIDPrefix)
	}
	if got := env.remote.count(ColCourses); got != 0 {
		t.Fatalf("remote course count = %d, want 0", got)
	}
	if got := env.store.PendingOutbox(); got != 1 {
		t.Fatalf("pending outbox = %d, want 1", got)
	}

	res := env.store.Courses(ctx)
	if res.Source != SourceLocal || res.Cause != ErrOffline {
		t.Fatalf("offline read = source %v cause %v, want local/ErrOffline", res.Source, res.Cause)
	}
	if len(res.Data) != 1 || res.Data[0].ID != id {
		t.Fatalf("offline read data = %+v, want the local course", res.Data)
	}
}

func TestCreateCourseRemoteFailureFallsBackLocally(t *testing.T) {
	env := newTestEnv(true)
	env.remote.failInsert = true

	id := env.store.CreateCourse(context.Background(), models.CourseInput{Code: "CS101"})
	if !hasLocalID(id) {
		t.Fatalf("insert-failure create returned id %q, want %q prefix", id, LocalIDPrefix)
	}
	if got := env.store.PendingOutbox(); got != 1 {
		t.Fatalf("pending outbox = %d, want 1", got)
	}
}

func TestCoursesServedFromCacheUntilInvalidated(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101"})

	if res := env.store.Courses(ctx); res.Source != SourceRemote {
		t.Fatalf("first read source = %v, want remote", res.Source)
	}
	if res := env.store.Courses(ctx); res.Source != SourceCache {
		t.Fatalf("second read source = %v, want cache", res.Source)
	}

	env.store.Invalidate(ColCourses)
	if res := env.store.Courses(ctx); res.Source != SourceRemote {
		t.Fatalf("post-invalidate read source = %v, want remote", res.Source)
	}

	// The same re-read happens once the TTL lapses.
	env.store.Courses(ctx)
	env.advance(6 * time.Minute)
	if res := env.store.Courses(ctx); res.Source != SourceRemote {
		t.Fatalf("post-TTL read source = %v, want remote", res.Source)
	}
}

func TestCoursesTimeoutDegradesToLocal(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101"})
	env.remote.queryDelay = time.Second

	res := env.store.Courses(ctx)
	if res.Source != SourceLocal || res.Cause == nil {
		t.Fatalf("timed-out read = source %v cause %v, want degraded local", res.Source, res.Cause)
	}
	if len(res.Data) != 1 {
		t.Fatalf("timed-out read data = %+v, want the mirrored course", res.Data)
	}
	if env.cache.Len() != 0 {
		t.Fatal("degraded result must not populate the cache")
	}
}

func TestCoursesQueryFailureDegradesToLocal(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101"})
	env.remote.failQuery = true

	res := env.store.Courses(ctx)
	if !res.Degraded() {
		t.Fatalf("failed read = source %v cause %v, want degraded", res.Source, res.Cause)
	}
	if len(res.Data) != 1 || res.Data[0].Code != "CS101" {
		t.Fatalf("failed read data = %+v, want the mirrored course", res.Data)
	}
}

func TestFetchRetainsUnsyncedLocalCourses(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	synced := env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101"})

	env.monitor.SetOnline(false)
	offline := env.store.CreateCourse(ctx, models.CourseInput{Code: "CS102"})
	env.monitor.SetOnline(true)

	// Reconnected but not yet replayed: the remote result knows nothing
	// about the offline course, yet the read must still include it.
	res := env.store.Courses(ctx)
	if res.Source != SourceRemote {
		t.Fatalf("read source = %v, want remote", res.Source)
	}
	ids := make(map[string]bool)
	for _, c := range res.Data {
		ids[c.ID] = true
	}
	if !ids[synced] || !ids[offline] {
		t.Fatalf("read ids = %v, want both %q and %q", ids, synced, offline)
	}

	var mirrored []models.Course
	env.local.GetCollection(ColCourses, &mirrored)
	if len(mirrored) != 2 {
		t.Fatalf("local mirror has %d courses after merge, want 2", len(mirrored))
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()

	course := env.store.CreateCourse(ctx, models.CourseInput{Code: "PHCM101"})
	other := env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101"})

	env.store.CreateItem(ctx, course, models.ItemLecture, models.ItemInput{Name: "L1", Date: "2025-03-01"})
	env.store.CreateItem(ctx, course, models.ItemLab, models.ItemInput{Name: "Lab1", Date: "2025-03-02"})
	sess := env.store.CreateSession(ctx, course, models.SessionInput{Topic: "T1"})
	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 30})

	keepItem := env.store.CreateItem(ctx, other, models.ItemLecture, models.ItemInput{Name: "Keep", Date: "2025-03-03"})
	keepSess := env.store.CreateSession(ctx, other, models.SessionInput{Topic: "Keep"})

	if !env.store.DeleteCourse(ctx, course) {
		t.Fatal("DeleteCourse reported a failed remote cascade")
	}

	for _, c := range []string{ColLectures, ColLabs, ColSessions, ColRevisions} {
		if got := env.remote.countWhere(c, "courseId", course); got != 0 {
			t.Fatalf("remote %s still has %d records for the deleted course", c, got)
		}
	}
	if got := env.remote.countWhere(ColRevisions, "sessionId", sess); got != 0 {
		t.Fatalf("remote revisions still reference deleted session %q", sess)
	}
	if got := env.remote.count(ColCourses); got != 1 {
		t.Fatalf("remote course count = %d, want only the surviving course", got)
	}

	var lectures []models.CourseItem
	env.local.GetCollection(ColLectures, &lectures)
	if len(lectures) != 1 || lectures[0].ID != keepItem {
		t.Fatalf("local lectures after cascade = %+v, want only %q", lectures, keepItem)
	}
	var sessions []models.StudySession
	env.local.GetCollection(ColSessions, &sessions)
	if len(sessions) != 1 || sessions[0].ID != keepSess {
		t.Fatalf("local sessions after cascade = %+v, want only %q", sessions, keepSess)
	}
	var revisions []models.Revision
	env.local.GetCollection(ColRevisions, &revisions)
	if len(revisions) != 0 {
		t.Fatalf("local revisions after cascade = %+v, want none", revisions)
	}
}

func TestDeleteOfflineCourseDropsOutboxEntry(t *testing.T) {
	env := newTestEnv(false)
	ctx := context.Background()

	id := env.store.CreateCourse(ctx, models.CourseInput{Code: "CS101"})
	if got := env.store.PendingOutbox(); got != 1 {
		t.Fatalf("pending outbox = %d, want 1", got)
	}

	env.store.DeleteCourse(ctx, id)
	if got := env.store.PendingOutbox(); got != 0 {
		t.Fatalf("pending outbox after delete = %d, want 0", got)
	}
}
