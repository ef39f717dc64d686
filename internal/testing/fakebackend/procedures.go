package fakebackend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/popitgo/client/internal/backend"
)

// Tables backing the built-in procedures
const (
	TableEvents          = "events"
	TableNotifications   = "notifications"
	TableNotes           = "notes"
	TableVisits          = "resv_visits"
	TableBoothActivities = "booth_activities"
	TableInbox           = "inbox_notifications"
	TableProfiles        = "resv_profiles"
)

func (b *Backend) installProcedures() {
	// Events: rows come back from create/update
	b.procs["list_events"] = b.listEvents
	b.procs["get_event"] = b.getByID(TableEvents)
	b.procs["create_event"] = b.create(TableEvents, false, true)
	b.procs["update_event"] = b.update(TableEvents, true)
	b.procs["delete_event"] = b.deleteByID(TableEvents)

	b.procs["list_notifications"] = b.listOwned(TableNotifications, "event_id")
	b.procs["create_notification"] = b.create(TableNotifications, true, true)
	b.procs["update_notification"] = b.update(TableNotifications, true)
	b.procs["delete_notification"] = b.deleteByID(TableNotifications)

	// Notes and visits: create returns the new id only
	b.procs["list_notes"] = b.listOwned(TableNotes, "event_id")
	b.procs["get_note"] = b.getByID(TableNotes)
	b.procs["create_note"] = b.create(TableNotes, true, false)
	b.procs["update_note"] = b.update(TableNotes, true)
	b.procs["delete_note"] = b.deleteByID(TableNotes)

	b.procs["list_resv_visits"] = b.listVisits
	b.procs["get_resv_visits"] = b.getVisit
	b.procs["create_resv_visit"] = b.createVisit
	b.procs["update_resv_visit"] = b.update(TableVisits, false)
	b.procs["delete_resv_visit"] = b.deleteByID(TableVisits)

	b.procs["get_notifications"] = b.inboxList
	b.procs["mark_notification_as_read"] = b.inboxMarkRead
	b.procs["mark_all_notifications_as_read"] = b.inboxMarkAllRead
	b.procs["delete_all_notifications"] = b.inboxDeleteAll
	b.procs["create_inbox_notification"] = b.inboxCreate
	b.procs["delete_inbox_notification"] = b.inboxDelete
}

// currentUserLocked returns the token subject, or UserID without a token
func (b *Backend) currentUserLocked() string {
	if uid := b.auth.subjectOf(b.token); uid != "" {
		return uid
	}
	return b.UserID
}

func notFound(table string, id any) error {
	return &backend.Error{Status: 400, Code: "P0002", Message: fmt.Sprintf("%s %v not found", strings.TrimSuffix(table, "s"), id)}
}

func fieldsFrom(params map[string]any, skip ...string) Row {
	out := make(Row, len(params))
outer:
	for k, v := range params {
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		out[column(k)] = v
	}
	return out
}

func (b *Backend) create(table string, owned, returnRow bool) Procedure {
	return func(ctx context.Context, params map[string]any) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		r := fieldsFrom(params, "p_user_id")
		if owned {
			uid, _ := params["p_user_id"].(string)
			if uid == "" {
				uid = b.currentUserLocked()
			}
			r["user_id"] = uid
		}
		stored := b.insertLocked(table, r)
		if returnRow {
			return copyRow(stored), nil
		}
		return stored["id"], nil
	}
}

func (b *Backend) update(table string, returnRow bool) Procedure {
	return func(ctx context.Context, params map[string]any) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := params["p_id"]
		r := b.findLocked(table, id)
		if r == nil {
			return nil, notFound(table, id)
		}
		for k, v := range fieldsFrom(params, "p_id") {
			r[k] = v
		}
		r["updated_at"] = b.stamp()
		if returnRow {
			return copyRow(r), nil
		}
		return nil, nil
	}
}

func (b *Backend) deleteByID(table string) Procedure {
	return func(ctx context.Context, params map[string]any) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := params["p_id"]
		b.removeLocked(table, func(r Row) bool { return !sameValue(r["id"], id) })
		return nil, nil
	}
}

// getByID returns a set: one row or none
func (b *Backend) getByID(table string) Procedure {
	return func(ctx context.Context, params map[string]any) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r := b.findLocked(table, params["p_id"]); r != nil {
			return []Row{copyRow(r)}, nil
		}
		return []Row{}, nil
	}
}

// listOwned lists the current user's rows, optionally narrowed by one column
func (b *Backend) listOwned(table, narrow string) Procedure {
	return func(ctx context.Context, params map[string]any) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		uid := b.currentUserLocked()
		out := make([]Row, 0)
		for _, r := range b.tables[table] {
			if !sameValue(r["user_id"], uid) {
				continue
			}
			if v, ok := params["p_"+narrow]; ok && v != nil && !sameValue(r[narrow], v) {
				continue
			}
			out = append(out, copyRow(r))
		}
		return out, nil
	}
}

func (b *Backend) listEvents(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Row, 0)
	for _, r := range b.tables[TableEvents] {
		if !eventMatches(r, params) {
			continue
		}
		out = append(out, copyRow(r))
	}
	sortRows(out, []backend.Order{{Column: "reservation_start", Ascending: true}})
	return out, nil
}

func eventMatches(r Row, params map[string]any) bool {
	if v, _ := params["p_category"].(string); v != "" && !sameValue(r["category"], v) {
		return false
	}
	if v, _ := params["p_organizer"].(string); v != "" && !sameValue(r["organizer"], v) {
		return false
	}
	start, _ := r["reservation_start"].(string)
	if v, _ := params["p_start_date"].(string); v != "" && start < v {
		return false
	}
	if v, _ := params["p_end_date"].(string); v != "" && start > v {
		return false
	}
	if q, _ := params["p_search"].(string); q != "" {
		q = strings.ToLower(q)
		hit := false
		for _, col := range []string{"title", "description", "organizer"} {
			if s, ok := r[col].(string); ok && strings.Contains(strings.ToLower(s), q) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// ===== visit reservations =====

func (b *Backend) withActivityLocked(r Row) Row {
	out := copyRow(r)
	if a := b.findLocked(TableBoothActivities, r["booth_activity_id"]); a != nil {
		out["activity_title"] = a["title"]
		out["activity_description"] = a["description"]
		out["brand_name"] = a["brand_name"]
		out["venue_name"] = a["venue_name"]
	}
	return out
}

func (b *Backend) listVisits(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Row, 0)
	for _, r := range b.tables[TableVisits] {
		if v := params["p_booth_activity_id"]; v != nil && !sameValue(r["booth_activity_id"], v) {
			continue
		}
		if v, _ := params["p_status"].(string); v != "" && !sameValue(r["status"], v) {
			continue
		}
		at, _ := r["visit_datetime"].(string)
		if v, _ := params["p_start_date"].(string); v != "" && at < v {
			continue
		}
		if v, _ := params["p_end_date"].(string); v != "" && at > v {
			continue
		}
		out = append(out, b.withActivityLocked(r))
	}
	return out, nil
}

func (b *Backend) getVisit(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.findLocked(TableVisits, params["p_id"]); r != nil {
		return []Row{b.withActivityLocked(r)}, nil
	}
	return []Row{}, nil
}

func (b *Backend) createVisit(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := fieldsFrom(params)
	if _, ok := r["status"]; !ok {
		r["status"] = "pending"
	}
	stored := b.insertLocked(TableVisits, r)
	return stored["id"], nil
}

// ===== inbox =====

func (b *Backend) inboxList(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid := b.currentUserLocked()
	unreadOnly, _ := params["p_unread_only"].(bool)
	out := make([]Row, 0)
	for _, r := range b.tables[TableInbox] {
		if !sameValue(r["user_id"], uid) {
			continue
		}
		if unreadOnly && r["read_at"] != nil {
			continue
		}
		out = append(out, copyRow(r))
	}
	// Newest first; ties keep the later insert first
	sort.SliceStable(out, func(i, j int) bool {
		a, c := fmt.Sprint(out[i]["created_at"]), fmt.Sprint(out[j]["created_at"])
		if a == c {
			ai, _ := asInt64(out[i]["id"])
			ci, _ := asInt64(out[j]["id"])
			return ai > ci
		}
		return a > c
	})
	if n, ok := asInt64(params["p_limit"]); ok && n > 0 && int(n) < len(out) {
		out = out[:n]
	}
	return out, nil
}

func (b *Backend) inboxMarkRead(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := params["p_notification_id"]
	r := b.findLocked(TableInbox, id)
	if r == nil {
		return nil, notFound(TableInbox, id)
	}
	if r["read_at"] == nil {
		r["read_at"] = b.stamp()
	}
	return nil, nil
}

func (b *Backend) inboxMarkAllRead(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid := b.currentUserLocked()
	ts := b.stamp()
	for _, r := range b.tables[TableInbox] {
		if sameValue(r["user_id"], uid) && r["read_at"] == nil {
			r["read_at"] = ts
		}
	}
	return nil, nil
}

func (b *Backend) inboxDeleteAll(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid := b.currentUserLocked()
	b.removeLocked(TableInbox, func(r Row) bool { return !sameValue(r["user_id"], uid) })
	return nil, nil
}

func (b *Backend) inboxCreate(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := fieldsFrom(params)
	r["user_id"] = b.currentUserLocked()
	r["read_at"] = nil
	stored := b.insertLocked(TableInbox, r)
	return stored["id"], nil
}

func (b *Backend) inboxDelete(ctx context.Context, params map[string]any) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := params["p_notification_id"]
	b.removeLocked(TableInbox, func(r Row) bool { return !sameValue(r["id"], id) })
	return nil, nil
}
