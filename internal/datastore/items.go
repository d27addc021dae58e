package datastore

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"studytrack-backend/internal/models"
	"studytrack-backend/internal/remote"
)

func collectionForItem(typ string) string {
	if typ == models.ItemLab {
		return ColLabs
	}
	return ColLectures
}

func itemRevisable(status string) bool {
	return status == models.ItemStudied || status == models.ItemRevised
}

func revisePreconditionMessage(typ string) string {
	if typ == models.ItemLab {
		return "Lab must be marked as studied before revising"
	}
	return "Lecture must be marked as studied before revising"
}

// CreateItem adds a lecture or lab to a course, starting out pending.
// Never fails; offline writes get a synthesized id queued for replay.
func (s *Store) CreateItem(ctx context.Context, courseID, typ string, in models.ItemInput) string {
	collection := collectionForItem(typ)
	item := models.CourseItem{
		CourseID:    courseID,
		Type:        typ,
		Name:        in.Name,
		Date:        in.Date,
		Duration:    in.Duration,
		Description: in.Description,
		Status:      models.ItemPending,
		Revisions:   []models.ItemRevision{},
		CreatedAt:   s.now(),
	}

	if s.resolvePath() == pathRemote {
		id, err := s.remote.Insert(ctx, collection, item)
		if err == nil {
			item.ID = id
			appendLocal(s, collection, item)
			s.emit(collection, "create", id)
			return id
		}
		log.Printf("datastore: remote %s insert failed, writing locally: %v", typ, err)
	}

	item.ID = s.localID()
	appendLocal(s, collection, item)
	s.enqueueOutbox(collection, item.ID)
	s.emit(collection, "create", item.ID)
	return item.ID
}

// ItemsForCourse fetches a course's lectures or labs in date order.
func (s *Store) ItemsForCourse(ctx context.Context, typ, courseID string) Result[models.CourseItem] {
	collection := collectionForItem(typ)
	inCourse := func(it models.CourseItem) bool { return it.CourseID == courseID }
	return fetchCollection(ctx, s, fetchSpec[models.CourseItem]{
		key:        collection + ":" + courseID,
		collection: collection,
		filters:    []remote.Filter{remote.Eq("courseId", courseID)},
		order:      &remote.Order{Field: "date"},
		match:      inCourse,
		less:       func(a, b models.CourseItem) bool { return a.Date < b.Date },
		merge:      replaceScope(inCourse),
		id:         func(it models.CourseItem) string { return it.ID },
	})
}

// MarkItemStudied transitions an item to studied with its completion
// details. The remote update is best-effort; the local mirror always
// applies. Returns false only when the attempted remote write failed.
func (s *Store) MarkItemStudied(ctx context.Context, typ, itemID string, data models.ItemStudyData) bool {
	collection := collectionForItem(typ)
	now := s.now()
	ok := true

	if s.resolvePath() == pathRemote {
		patch := map[string]interface{}{
			"status":          models.ItemStudied,
			"studiedAt":       now,
			"completionTime":  data.CompletionTime,
			"completionDate":  data.CompletionDate,
			"completionNotes": data.Notes,
		}
		if err := s.remote.Update(ctx, collection, itemID, patch); err != nil {
			log.Printf("datastore: remote %s studied update failed: %v", typ, err)
			ok = false
		}
	}

	updateLocal(s, collection, func(it *models.CourseItem) bool {
		if it.ID != itemID {
			return false
		}
		it.Status = models.ItemStudied
		it.StudiedAt = &now
		it.CompletionTime = data.CompletionTime
		it.CompletionDate = data.CompletionDate
		it.CompletionNotes = data.Notes
		return true
	})

	s.emit(collection, "update", itemID)
	return ok
}

// MarkItemRevised appends a revision entry to a studied item, bumping
// revisionCount so it stays equal to len(revisions). Revising a pending
// item fails whole with a PreconditionError and writes nothing: the gating
// status is read before any write, from the remote record when reachable,
// otherwise from the local mirror.
func (s *Store) MarkItemRevised(ctx context.Context, typ, itemID string, data models.ItemRevisionData) error {
	collection := collectionForItem(typ)
	now := s.now()
	entry := models.ItemRevision{
		Date:      data.RevisionDate,
		Time:      data.RevisionTime,
		Notes:     data.Notes,
		Timestamp: now,
	}

	if s.resolvePath() == pathRemote {
		raw, err := s.remote.Get(ctx, collection, itemID)
		switch {
		case err == nil:
			var item models.CourseItem
			if uerr := json.Unmarshal(raw, &item); uerr != nil {
				log.Printf("datastore: decode remote %s failed, falling back: %v", typ, uerr)
				break
			}
			if !itemRevisable(item.Status) {
				return &PreconditionError{Message: revisePreconditionMessage(typ)}
			}
			patch := map[string]interface{}{
				"status":        models.ItemRevised,
				"revisedAt":     now,
				"revisionCount": item.RevisionCount + 1,
				"revisions":     append(item.Revisions, entry),
			}
			if uerr := s.remote.Update(ctx, collection, itemID, patch); uerr != nil {
				log.Printf("datastore: remote %s revised update failed: %v", typ, uerr)
			}
			s.applyItemRevisionLocal(collection, itemID, entry, now)
			s.emit(collection, "update", itemID)
			return nil
		case err == remote.ErrNotFound:
			// Local-only item; gate against the mirror below.
		default:
			log.Printf("datastore: fetch remote %s failed, falling back: %v", typ, err)
		}
	}

	if !itemRevisableLocal(s, collection, itemID) {
		return &PreconditionError{Message: revisePreconditionMessage(typ)}
	}
	s.applyItemRevisionLocal(collection, itemID, entry, now)
	s.emit(collection, "update", itemID)
	return nil
}

func itemRevisableLocal(s *Store, collection, itemID string) bool {
	for _, it := range readLocalFiltered(s, collection, func(it models.CourseItem) bool {
		return it.ID == itemID
	}, nil) {
		return itemRevisable(it.Status)
	}
	return false
}

func (s *Store) applyItemRevisionLocal(collection, itemID string, entry models.ItemRevision, now time.Time) {
	updateLocal(s, collection, func(it *models.CourseItem) bool {
		if it.ID != itemID {
			return false
		}
		if !itemRevisable(it.Status) {
			return true
		}
		it.Status = models.ItemRevised
		it.RevisedAt = &now
		it.RevisionCount++
		it.Revisions = append(it.Revisions, entry)
		return true
	})
}
