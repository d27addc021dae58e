package datastore

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"studytrack-backend/internal/models"
	"studytrack-backend/internal/remote"
)

// CreateSession starts a study session for a course. Counters begin at
// zero and stay equal to the count/sum of the session's revision records.
// Never fails; offline writes get a synthesized id queued for replay.
func (s *Store) CreateSession(ctx context.Context, courseID string, in models.SessionInput) string {
	now := s.now()
	sess := models.StudySession{
		CourseID:    courseID,
		Type:        in.Type,
		Topic:       in.Topic,
		Date:        in.Date,
		Duration:    in.Duration,
		Notes:       in.Notes,
		Status:      models.SessionInProgress,
		Revisions:   0,
		TotalTime:   0,
		CreatedAt:   now,
		LastStudied: now,
	}

	if s.resolvePath() == pathRemote {
		id, err := s.remote.Insert(ctx, ColSessions, sess)
		if err == nil {
			sess.ID = id
			appendLocal(s, ColSessions, sess)
			s.emit(ColSessions, "create", id)
			return id
		}
		log.Printf("datastore: remote session insert failed, writing locally: %v", err)
	}

	sess.ID = s.localID()
	appendLocal(s, ColSessions, sess)
	s.enqueueOutbox(ColSessions, sess.ID)
	s.emit(ColSessions, "create", sess.ID)
	return sess.ID
}

// Sessions fetches every session, most recently studied first.
func (s *Store) Sessions(ctx context.Context) Result[models.StudySession] {
	return fetchCollection(ctx, s, fetchSpec[models.StudySession]{
		key:        ColSessions,
		collection: ColSessions,
		order:      &remote.Order{Field: "lastStudied", Desc: true},
		less: func(a, b models.StudySession) bool {
			return a.LastStudied.After(b.LastStudied)
		},
		merge: replaceAll[models.StudySession],
		id:    func(sess models.StudySession) string { return sess.ID },
	})
}

// UpdateSessionStatus moves a session along its in_progress → completed →
// revised progression. The remote update is best-effort; the local mirror
// always applies. Returns false only when the attempted remote write
// failed.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID, status string) bool {
	now := s.now()
	ok := true

	if s.resolvePath() == pathRemote {
		patch := map[string]interface{}{"status": status}
		switch status {
		case models.SessionCompleted:
			patch["completedAt"] = now
		case models.SessionRevised:
			patch["revisedAt"] = now
		}
		if err := s.remote.Update(ctx, ColSessions, sessionID, patch); err != nil {
			log.Printf("datastore: remote session status update failed: %v", err)
			ok = false
		}
	}

	updateLocal(s, ColSessions, func(sess *models.StudySession) bool {
		if sess.ID != sessionID {
			return false
		}
		sess.Status = status
		switch status {
		case models.SessionCompleted:
			sess.CompletedAt = &now
		case models.SessionRevised:
			sess.RevisedAt = &now
		}
		return true
	})

	s.emit(ColSessions, "update", sessionID)
	return ok
}

// UpdateSessionCompletion records the completion details of a session.
func (s *Store) UpdateSessionCompletion(ctx context.Context, sessionID string, c models.SessionCompletion) bool {
	if c.CompletionDate == "" {
		c.CompletionDate = s.now().Format(time.RFC3339)
	}
	ok := true

	if s.resolvePath() == pathRemote {
		patch := map[string]interface{}{
			"completionTime":  c.CompletionTime,
			"completionDate":  c.CompletionDate,
			"completionNotes": c.CompletionNotes,
		}
		if err := s.remote.Update(ctx, ColSessions, sessionID, patch); err != nil {
			log.Printf("datastore: remote session completion update failed: %v", err)
			ok = false
		}
	}

	updateLocal(s, ColSessions, func(sess *models.StudySession) bool {
		if sess.ID != sessionID {
			return false
		}
		sess.CompletionTime = c.CompletionTime
		sess.CompletionDate = c.CompletionDate
		sess.CompletionNotes = c.CompletionNotes
		return true
	})

	s.emit(ColSessions, "update", sessionID)
	return ok
}

// DeleteSession removes a session and every revision referencing it, the
// revisions as one batch.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) bool {
	ok := true
	if s.resolvePath() == pathRemote {
		if err := s.remote.Delete(ctx, ColSessions, sessionID); err != nil {
			log.Printf("datastore: remote session delete failed: %v", err)
			ok = false
		}
		revs, err := s.remote.Query(ctx, ColRevisions, []remote.Filter{remote.Eq("sessionId", sessionID)}, nil)
		if err != nil {
			log.Printf("datastore: query revisions for session delete failed: %v", err)
			ok = false
		} else {
			var ids []string
			for _, raw := range revs {
				var rev models.Revision
				if json.Unmarshal(raw, &rev) == nil {
					ids = append(ids, rev.ID)
				}
			}
			if err := s.remote.BatchDelete(ctx, ColRevisions, ids); err != nil {
				log.Printf("datastore: batch delete revisions failed: %v", err)
				ok = false
			}
		}
	}

	removeLocal(s, ColSessions, func(sess models.StudySession) bool { return sess.ID != sessionID })
	removeLocal(s, ColRevisions, func(r models.Revision) bool { return r.SessionID != sessionID })
	s.pruneOutbox()

	s.emit(ColSessions, "delete", sessionID)
	return ok
}

// AddRevision records a revision against a session and bumps the session's
// denormalized counters in the same logical operation. Online, the new
// counter values are computed from the current remote record
// (read-before-write); offline they apply to the local mirror. A session
// past its first completion is re-marked revised. Never fails; the
// returned id is always usable.
func (s *Store) AddRevision(ctx context.Context, sessionID string, in models.RevisionInput) string {
	now := s.now()
	rev := models.Revision{
		SessionID: sessionID,
		Duration:  in.Duration,
		Notes:     in.Notes,
		Date:      now,
	}

	if s.resolvePath() == pathRemote {
		if id, err := s.addRevisionRemote(ctx, sessionID, rev, now); err == nil {
			rev.ID = id
			appendLocal(s, ColRevisions, rev)
			s.applyRevisionLocal(sessionID, in.Duration, now)
			s.emit(ColRevisions, "create", id)
			return id
		} else {
			log.Printf("datastore: remote revision write failed, writing locally: %v", err)
		}
	}

	rev.ID = s.localID()
	appendLocal(s, ColRevisions, rev)
	s.enqueueOutbox(ColRevisions, rev.ID)
	s.applyRevisionLocal(sessionID, in.Duration, now)
	s.emit(ColRevisions, "create", rev.ID)
	return rev.ID
}

func (s *Store) addRevisionRemote(ctx context.Context, sessionID string, rev models.Revision, now time.Time) (string, error) {
	raw, err := s.remote.Get(ctx, ColSessions, sessionID)
	if err != nil {
		return "", err
	}
	var sess models.StudySession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return "", err
	}

	id, err := s.remote.Insert(ctx, ColRevisions, rev)
	if err != nil {
		return "", err
	}

	patch := map[string]interface{}{
		"totalTime":   sess.TotalTime + rev.Duration,
		"revisions":   sess.Revisions + 1,
		"lastStudied": now,
	}
	if sess.Status == models.SessionCompleted || sess.Status == models.SessionRevised {
		patch["status"] = models.SessionRevised
		patch["revisedAt"] = now
	}
	if err := s.remote.Update(ctx, ColSessions, sessionID, patch); err != nil {
		// The revision document exists; the counter update is best-effort
		// and mirrored locally either way.
		log.Printf("datastore: session counter update failed: %v", err)
	}
	return id, nil
}

func (s *Store) applyRevisionLocal(sessionID string, duration int, now time.Time) {
	updateLocal(s, ColSessions, func(sess *models.StudySession) bool {
		if sess.ID != sessionID {
			return false
		}
		sess.TotalTime += duration
		sess.Revisions++
		sess.LastStudied = now
		if sess.Status == models.SessionCompleted || sess.Status == models.SessionRevised {
			sess.Status = models.SessionRevised
			sess.RevisedAt = &now
		}
		return true
	})
}

// Revisions fetches the revisions of one session, newest first.
func (s *Store) Revisions(ctx context.Context, sessionID string) Result[models.Revision] {
	return fetchCollection(ctx, s, fetchSpec[models.Revision]{
		key:        ColRevisions + ":" + sessionID,
		collection: ColRevisions,
		filters:    []remote.Filter{remote.Eq("sessionId", sessionID)},
		order:      &remote.Order{Field: "date", Desc: true},
		match:      func(r models.Revision) bool { return r.SessionID == sessionID },
		less:       func(a, b models.Revision) bool { return a.Date.After(b.Date) },
		merge: replaceScope(func(r models.Revision) bool {
			return r.SessionID == sessionID
		}),
		id: func(r models.Revision) string { return r.ID },
	})
}

// RevisionsSince fetches revisions recorded at or after cutoff, for the
// activity histogram. Uncached; the aggregator caches its own rollup.
func (s *Store) RevisionsSince(ctx context.Context, cutoff time.Time) Result[models.Revision] {
	return fetchCollection(ctx, s, fetchSpec[models.Revision]{
		collection: ColRevisions,
		filters:    []remote.Filter{remote.Gte("date", cutoff.Format(time.RFC3339))},
		match:      func(r models.Revision) bool { return !r.Date.Before(cutoff) },
	})
}
