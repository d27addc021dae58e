package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"studytrack-backend/internal/models"
)

// The outbox answers the reconnect gap: every local-only create is
// recorded here and replayed against the remote store on the next
// online transition. Replay promotes the synthesized id to the
// remote-assigned one and rewrites back-references across the local
// collections, so nothing written offline is silently lost.
type outboxEntry struct {
	Collection string    `json:"collection"`
	LocalID    string    `json:"localId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Replay order: parents before children, so back-references are rewritten
// to remote ids before the referencing document is pushed.
func collectionRank(collection string) int {
	switch collection {
	case ColCourses:
		return 0
	case ColRevisions:
		return 2
	default: // lectures, labs, sessions
		return 1
	}
}

func (s *Store) enqueueOutbox(collection, localID string) {
	appendLocal(s, colOutbox, outboxEntry{
		Collection: collection,
		LocalID:    localID,
		EnqueuedAt: s.now(),
	})
}

// pruneOutbox drops entries whose document no longer exists locally
// (deleted before it ever reached the remote store).
func (s *Store) pruneOutbox() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []outboxEntry
	s.local.GetCollection(colOutbox, &entries)
	if len(entries) == 0 {
		return
	}

	exists := func(collection, id string) bool {
		var docs []map[string]interface{}
		s.local.GetCollection(collection, &docs)
		for _, d := range docs {
			if d["id"] == id {
				return true
			}
		}
		return false
	}

	kept := make([]outboxEntry, 0, len(entries))
	for _, e := range entries {
		if exists(e.Collection, e.LocalID) {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(entries) {
		s.local.SetCollection(colOutbox, kept)
	}
}

// PendingOutbox reports how many local-only writes await replay.
func (s *Store) PendingOutbox() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []outboxEntry
	s.local.GetCollection(colOutbox, &entries)
	return len(entries)
}

// ReplayOutbox pushes queued local-only writes to the remote store.
// Entries replay parents-first; an entry whose insert fails, or whose
// parent is itself still local-only, stays queued for the next attempt.
// Returns the number of documents promoted.
func (s *Store) ReplayOutbox(ctx context.Context) int {
	if s.resolvePath() != pathRemote {
		return 0
	}

	s.replayMu.Lock()
	defer s.replayMu.Unlock()

	s.mu.Lock()
	var entries []outboxEntry
	s.local.GetCollection(colOutbox, &entries)
	s.mu.Unlock()
	if len(entries) == 0 {
		return 0
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return collectionRank(entries[i].Collection) < collectionRank(entries[j].Collection)
	})

	replayed := 0
	var remaining []outboxEntry
	for _, e := range entries {
		done, err := s.replayEntry(ctx, e)
		if err != nil {
			log.Printf("datastore: outbox replay of %s/%s failed: %v", e.Collection, e.LocalID, err)
			remaining = append(remaining, e)
			continue
		}
		if done {
			replayed++
		}
	}

	s.mu.Lock()
	s.local.SetCollection(colOutbox, remaining)
	s.mu.Unlock()

	if replayed > 0 {
		log.Printf("datastore: outbox replay promoted %d local write(s)", replayed)
		for _, kind := range Kinds() {
			s.cache.Invalidate(kind)
		}
		s.emit("sync", "replay", "")
	}
	return replayed
}

// replayEntry returns (true, nil) when the document was promoted and
// (false, nil) when the entry is obsolete and can be dropped.
func (s *Store) replayEntry(ctx context.Context, e outboxEntry) (bool, error) {
	s.mu.Lock()
	var docs []map[string]interface{}
	s.local.GetCollection(e.Collection, &docs)
	s.mu.Unlock()

	var doc map[string]interface{}
	for _, d := range docs {
		if d["id"] == e.LocalID {
			doc = d
			break
		}
	}
	if doc == nil {
		// Deleted locally before it ever synced.
		return false, nil
	}

	for _, ref := range []string{"courseId", "sessionId"} {
		if v, ok := doc[ref].(string); ok && strings.HasPrefix(v, LocalIDPrefix) {
			return false, fmt.Errorf("parent %s %s not yet synced", ref, v)
		}
	}

	// A revision replays through the same read-before-write path as an
	// online AddRevision, so the parent session's denormalized counters
	// move with the revision document on the remote side too.
	if e.Collection == ColRevisions {
		raw, err := json.Marshal(doc)
		if err != nil {
			return false, err
		}
		var rev models.Revision
		if err := json.Unmarshal(raw, &rev); err != nil {
			return false, err
		}
		rev.ID = ""
		newID, err := s.addRevisionRemote(ctx, rev.SessionID, rev, rev.Date)
		if err != nil {
			return false, err
		}
		s.rewriteLocalID(e.Collection, e.LocalID, newID)
		return true, nil
	}

	payload := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k != "id" {
			payload[k] = v
		}
	}
	// A session's local counters already include its queued revisions.
	// Push it with zeroed counters; the revision replays that follow
	// rebuild them, keeping remote counters equal to remote revision docs.
	if e.Collection == ColSessions {
		payload["revisions"] = 0
		payload["totalTime"] = 0
	}

	newID, err := s.remote.Insert(ctx, e.Collection, payload)
	if err != nil {
		return false, err
	}

	s.rewriteLocalID(e.Collection, e.LocalID, newID)
	return true, nil
}

// rewriteLocalID swaps a promoted document's id and every back-reference
// to it across the local collections.
func (s *Store) rewriteLocalID(collection, oldID, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []map[string]interface{}
	s.local.GetCollection(collection, &docs)
	for _, d := range docs {
		if d["id"] == oldID {
			d["id"] = newID
		}
	}
	s.local.SetCollection(collection, docs)

	var refField string
	var children []string
	switch collection {
	case ColCourses:
		refField, children = "courseId", []string{ColLectures, ColLabs, ColSessions}
	case ColSessions:
		refField, children = "sessionId", []string{ColRevisions}
	default:
		return
	}

	for _, child := range children {
		var cd []map[string]interface{}
		s.local.GetCollection(child, &cd)
		changed := false
		for _, d := range cd {
			if d[refField] == oldID {
				d[refField] = newID
				changed = true
			}
		}
		if changed {
			s.local.SetCollection(child, cd)
		}
	}
}
