package datastore

import (
	"context"
	"encoding/json"
	"log"

	"studytrack-backend/internal/models"
	"studytrack-backend/internal/remote"
)

// CreateCourse inserts a course remotely when online, mirroring the result
// into the local store; offline or on remote failure it falls back to a
// local-only write with a synthesized id queued for replay. It never fails:
// the returned id is always usable.
func (s *Store) CreateCourse(ctx context.Context, in models.CourseInput) string {
	course := models.Course{
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		CreatedAt:   s.now(),
	}

	if s.resolvePath() == pathRemote {
		id, err := s.remote.Insert(ctx, ColCourses, course)
		if err == nil {
			course.ID = id
			appendLocal(s, ColCourses, course)
			s.emit(ColCourses, "create", id)
			return id
		}
		log.Printf("datastore: remote course insert failed, writing locally: %v", err)
	}

	course.ID = s.localID()
	appendLocal(s, ColCourses, course)
	s.enqueueOutbox(ColCourses, course.ID)
	s.emit(ColCourses, "create", course.ID)
	return course.ID
}

// Courses fetches all courses, time-boxed with local fallback.
func (s *Store) Courses(ctx context.Context) Result[models.Course] {
	return fetchCollection(ctx, s, fetchSpec[models.Course]{
		key:        ColCourses,
		collection: ColCourses,
		merge:      replaceAll[models.Course],
		id:         func(c models.Course) string { return c.ID },
	})
}

// DeleteCourse removes the course and everything referencing it: lectures,
// labs, sessions, and the revisions of those sessions. Dependent remote
// deletions run as one batch per collection. Local records are removed
// regardless of the remote outcome; the return value reports whether the
// remote cascade fully succeeded (always true offline).
func (s *Store) DeleteCourse(ctx context.Context, courseID string) bool {
	ok := true
	if s.resolvePath() == pathRemote {
		ok = s.deleteCourseRemote(ctx, courseID)
	}

	// Collect the course's local session ids before removal so their
	// revisions can be swept too.
	sessionIDs := make(map[string]bool)
	for _, sess := range readLocalFiltered(s, ColSessions, func(sess models.StudySession) bool {
		return sess.CourseID == courseID
	}, nil) {
		sessionIDs[sess.ID] = true
	}

	removeLocal(s, ColLectures, func(it models.CourseItem) bool { return it.CourseID != courseID })
	removeLocal(s, ColLabs, func(it models.CourseItem) bool { return it.CourseID != courseID })
	removeLocal(s, ColSessions, func(sess models.StudySession) bool { return sess.CourseID != courseID })
	removeLocal(s, ColRevisions, func(r models.Revision) bool { return !sessionIDs[r.SessionID] })
	removeLocal(s, ColCourses, func(c models.Course) bool { return c.ID != courseID })
	s.pruneOutbox()

	s.emit(ColCourses, "delete", courseID)
	return ok
}

func (s *Store) deleteCourseRemote(ctx context.Context, courseID string) bool {
	ok := true
	byCourse := []remote.Filter{remote.Eq("courseId", courseID)}

	var sessionIDs []string
	sessions, err := s.remote.Query(ctx, ColSessions, byCourse, nil)
	if err != nil {
		log.Printf("datastore: query sessions for course delete failed: %v", err)
		ok = false
	}
	for _, raw := range sessions {
		var sess models.StudySession
		if json.Unmarshal(raw, &sess) == nil {
			sessionIDs = append(sessionIDs, sess.ID)
		}
	}

	// One batch per dependent collection bounds the latency of the cascade.
	var revisionIDs []string
	for _, sessionID := range sessionIDs {
		revs, err := s.remote.Query(ctx, ColRevisions, []remote.Filter{remote.Eq("sessionId", sessionID)}, nil)
		if err != nil {
			log.Printf("datastore: query revisions for course delete failed: %v", err)
			ok = false
			continue
		}
		for _, raw := range revs {
			var rev models.Revision
			if json.Unmarshal(raw, &rev) == nil {
				revisionIDs = append(revisionIDs, rev.ID)
			}
		}
	}
	if err := s.remote.BatchDelete(ctx, ColRevisions, revisionIDs); err != nil {
		log.Printf("datastore: batch delete revisions failed: %v", err)
		ok = false
	}

	for _, collection := range []string{ColLectures, ColLabs} {
		docs, err := s.remote.Query(ctx, collection, byCourse, nil)
		if err != nil {
			log.Printf("datastore: query %s for course delete failed: %v", collection, err)
			ok = false
			continue
		}
		var ids []string
		for _, raw := range docs {
			var item models.CourseItem
			if json.Unmarshal(raw, &item) == nil {
				ids = append(ids, item.ID)
			}
		}
		if err := s.remote.BatchDelete(ctx, collection, ids); err != nil {
			log.Printf("datastore: batch delete %s failed: %v", collection, err)
			ok = false
		}
	}

	if err := s.remote.BatchDelete(ctx, ColSessions, sessionIDs); err != nil {
		log.Printf("datastore: batch delete sessions failed: %v", err)
		ok = false
	}
	if err := s.remote.Delete(ctx, ColCourses, courseID); err != nil {
		log.Printf("datastore: delete course failed: %v", err)
		ok = false
	}
	return ok
}
