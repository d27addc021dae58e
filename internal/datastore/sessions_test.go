package datastore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"studytrack-backend/internal/models"
)

func remoteSession(t *testing.T, env *testEnv, id string) models.StudySession {
	t.Helper()
	raw, err := env.remote.Get(context.Background(), ColSessions, id)
	if err != nil {
		t.Fatalf("fetch remote session %q: %v", id, err)
	}
	var sess models.StudySession
	if err := json.Unmarshal(raw, &sess); err != nil {
		t.Fatalf("decode remote session: %v", err)
	}
	return sess
}

func localSession(t *testing.T, env *testEnv, id string) models.StudySession {
	t.Helper()
	var all []models.StudySession
	env.local.GetCollection(ColSessions, &all)
	for _, sess := range all {
		if sess.ID == id {
			return sess
		}
	}
	t.Fatalf("session %q not in local mirror", id)
	return models.StudySession{}
}

func TestAddRevisionKeepsCountersConsistent(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "Sorting"})

	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 30})
	env.advance(time.Minute)
	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 45})

	for name, got := range map[string]models.StudySession{
		"remote": remoteSession(t, env, sess),
		"local":  localSession(t, env, sess),
	} {
		if got.Revisions != 2 || got.TotalTime != 75 {
			t.Errorf("%s counters = %d revisions / %d min, want 2 / 75", name, got.Revisions, got.TotalTime)
		}
		if !got.LastStudied.Equal(env.now) {
			t.Errorf("%s lastStudied = %v, want %v", name, got.LastStudied, env.now)
		}
	}

	if got := env.remote.countWhere(ColRevisions, "sessionId", sess); got != 2 {
		t.Fatalf("remote revision count = %d, want 2", got)
	}
}

func TestAddRevisionLeavesInProgressStatus(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "Graphs"})

	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 20})

	if got := remoteSession(t, env, sess).Status; got != models.SessionInProgress {
		t.Fatalf("status after revising an unfinished session = %q, want %q", got, models.SessionInProgress)
	}
}

func TestAddRevisionPromotesCompletedToRevised(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "Graphs"})
	env.store.UpdateSessionStatus(ctx, sess, models.SessionCompleted)

	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 20})

	remote := remoteSession(t, env, sess)
	if remote.Status != models.SessionRevised || remote.RevisedAt == nil {
		t.Fatalf("remote session = status %q revisedAt %v, want revised with timestamp", remote.Status, remote.RevisedAt)
	}
	if got := localSession(t, env, sess).Status; got != models.SessionRevised {
		t.Fatalf("local status = %q, want %q", got, models.SessionRevised)
	}
}

func TestAddRevisionOfflineUpdatesMirrorAndQueues(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "Trees"})
	env.monitor.SetOnline(false)

	id := env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 25})
	if !hasLocalID(id) {
		t.Fatalf("offline revision id = %q, want %q prefix", id, LocalIDPrefix)
	}

	local := localSession(t, env, sess)
	if local.Revisions != 1 || local.TotalTime != 25 {
		t.Fatalf("local counters = %d / %d, want 1 / 25", local.Revisions, local.TotalTime)
	}
	if got := env.store.PendingOutbox(); got != 1 {
		t.Fatalf("pending outbox = %d, want 1", got)
	}
	if got := remoteSession(t, env, sess).Revisions; got != 0 {
		t.Fatalf("remote counter moved to %d while offline", got)
	}
}

func TestOfflineStatusUpdateMirrorsWithoutQueueing(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "Hashing"})
	env.monitor.SetOnline(false)

	if ok := env.store.UpdateSessionStatus(ctx, sess, models.SessionCompleted); !ok {
		t.Fatal("offline status update reported failure")
	}

	// The mirror applies, but only creates are queued for replay; the
	// status change stays local until the caller redoes it online.
	if got := localSession(t, env, sess).Status; got != models.SessionCompleted {
		t.Fatalf("local status = %q, want %q", got, models.SessionCompleted)
	}
	if got := env.store.PendingOutbox(); got != 0 {
		t.Fatalf("pending outbox = %d, want 0", got)
	}
	if got := remoteSession(t, env, sess).Status; got != models.SessionInProgress {
		t.Fatalf("remote status moved to %q while offline", got)
	}
}

func TestSessionsOrderedByLastStudiedOnBothPaths(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()

	first := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "A"})
	env.advance(time.Hour)
	second := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "B"})
	env.advance(time.Hour)
	env.store.AddRevision(ctx, first, models.RevisionInput{Duration: 10})

	res := env.store.Sessions(ctx)
	if res.Source != SourceRemote || len(res.Data) != 2 {
		t.Fatalf("online read = source %v, %d sessions", res.Source, len(res.Data))
	}
	if res.Data[0].ID != first || res.Data[1].ID != second {
		t.Fatalf("online order = [%s %s], want revised-last-first [%s %s]",
			res.Data[0].ID, res.Data[1].ID, first, second)
	}

	env.monitor.SetOnline(false)
	env.advance(6 * time.Minute) // past the TTL, so the cache cannot answer
	off := env.store.Sessions(ctx)
	if off.Source != SourceLocal || len(off.Data) != 2 {
		t.Fatalf("offline read = source %v, %d sessions", off.Source, len(off.Data))
	}
	if off.Data[0].ID != res.Data[0].ID || off.Data[1].ID != res.Data[1].ID {
		t.Fatal("offline order differs from the remote order")
	}
}

func TestUpdateSessionStatusSetsTimestamps(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "A"})

	if !env.store.UpdateSessionStatus(ctx, sess, models.SessionCompleted) {
		t.Fatal("status update reported remote failure")
	}
	got := remoteSession(t, env, sess)
	if got.Status != models.SessionCompleted || got.CompletedAt == nil {
		t.Fatalf("remote session = status %q completedAt %v", got.Status, got.CompletedAt)
	}

	env.remote.failUpdate = true
	if env.store.UpdateSessionStatus(ctx, sess, models.SessionRevised) {
		t.Fatal("status update should report the failed remote write")
	}
	if got := localSession(t, env, sess).Status; got != models.SessionRevised {
		t.Fatalf("local status after remote failure = %q, want %q", got, models.SessionRevised)
	}
}

func TestDeleteSessionRemovesItsRevisions(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "A"})
	keep := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "B"})
	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 10})
	env.store.AddRevision(ctx, keep, models.RevisionInput{Duration: 15})

	if !env.store.DeleteSession(ctx, sess) {
		t.Fatal("DeleteSession reported a failed remote delete")
	}

	if got := env.remote.countWhere(ColRevisions, "sessionId", sess); got != 0 {
		t.Fatalf("remote still holds %d revisions of the deleted session", got)
	}
	if got := env.remote.countWhere(ColRevisions, "sessionId", keep); got != 1 {
		t.Fatalf("sibling session lost its revision, count = %d", got)
	}
	var local []models.Revision
	env.local.GetCollection(ColRevisions, &local)
	if len(local) != 1 || local[0].SessionID != keep {
		t.Fatalf("local revisions = %+v, want only the sibling's", local)
	}
}

func TestRevisionsScopedFetchKeepsOtherSessions(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	a := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "A"})
	b := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "B"})
	env.store.AddRevision(ctx, a, models.RevisionInput{Duration: 10})
	env.store.AddRevision(ctx, b, models.RevisionInput{Duration: 15})

	res := env.store.Revisions(ctx, a)
	if len(res.Data) != 1 || res.Data[0].SessionID != a {
		t.Fatalf("scoped read = %+v, want one revision of %q", res.Data, a)
	}

	// The scoped merge must not wipe the other session's mirror records.
	var local []models.Revision
	env.local.GetCollection(ColRevisions, &local)
	if len(local) != 2 {
		t.Fatalf("local revisions after scoped fetch = %d, want 2", len(local))
	}
}

func TestRevisionsSinceFiltersByCutoff(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	sess := env.store.CreateSession(ctx, "course-1", models.SessionInput{Topic: "A"})

	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 10})
	env.advance(48 * time.Hour)
	cutoff := env.now.Add(-24 * time.Hour)
	env.store.AddRevision(ctx, sess, models.RevisionInput{Duration: 20})

	res := env.store.RevisionsSince(ctx, cutoff)
	if len(res.Data) != 1 || res.Data[0].Duration != 20 {
		t.Fatalf("RevisionsSince = %+v, want only the recent revision", res.Data)
	}
}
