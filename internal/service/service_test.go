package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/testing/fakebackend"
)

// ============================================================================
// Test Helpers
// ============================================================================

var fixedNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestBackend(t *testing.T) (*backend.Client, *fakebackend.Backend) {
	t.Helper()
	fb := fakebackend.New()
	fb.SetClock(func() time.Time { return fixedNow })
	return backend.New(fb, backend.Options{}), fb
}

func strPtr(s string) *string { return &s }

func lastParams(t *testing.T, fb *fakebackend.Backend, name string) map[string]any {
	t.Helper()
	calls := fb.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Name == name {
			return calls[i].Params
		}
	}
	t.Fatalf("no call to %s", name)
	return nil
}

// ============================================================================
// EventService Tests
// ============================================================================

func TestEventService_CreateReturnsStoredRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	svc := NewEventService(client)

	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	ev, err := svc.Create(ctx, model.EventInput{
		Title:            "Concert A",
		Category:         strPtr("concert"),
		ReservationStart: start,
	})
	require.NoError(t, err)
	assert.Equal(t, "1", ev.ID)
	assert.Equal(t, "Concert A", ev.Title)
	assert.True(t, ev.ReservationStart.Equal(start))
	assert.False(t, ev.HasNotification)
	assert.Equal(t, fixedNow, ev.UpdatedAt)

	p := lastParams(t, fb, "create_event")
	assert.Equal(t, "2025-01-01T10:00:00Z", p["p_reservation_start"])
	assert.Equal(t, "concert", p["p_category"])
	assert.NotContains(t, p, "p_description", "nil fields are omitted")
}

func TestEventService_GetMissingIsNil(t *testing.T) {
	t.Parallel()
	client, _ := newTestBackend(t)

	ev, err := NewEventService(client).Get(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestEventService_UpdateRereadsOnEmptyResult(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	fb.Seed(fakebackend.TableEvents, fakebackend.Row{"id": 42, "title": "Old", "reservation_start": "2025-01-01T10:00:00Z"})
	fb.Handle("update_event", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, nil
	})

	ev, err := NewEventService(client).Update(ctx, "42", model.EventPatch{Title: strPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, "42", ev.ID)
	assert.Equal(t, 1, fb.CallCount("get_event"))
}

func TestEventService_UpdateMissingFails(t *testing.T) {
	t.Parallel()
	client, _ := newTestBackend(t)

	_, err := NewEventService(client).Update(context.Background(), "404", model.EventPatch{Title: strPtr("x")})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "update_event", se.Op)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "P0002", be.Code)
}

func TestEventService_ListFiltersAndOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	fb.Seed(fakebackend.TableEvents,
		fakebackend.Row{"title": "Late show", "category": "concert", "reservation_start": "2025-03-01T10:00:00Z"},
		fakebackend.Row{"title": "Art week", "category": "exhibition", "reservation_start": "2025-02-01T10:00:00Z"},
		fakebackend.Row{"title": "Early show", "category": "concert", "reservation_start": "2025-01-15T10:00:00Z"},
	)
	svc := NewEventService(client)

	all, err := svc.List(ctx, model.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Early show", "Art week", "Late show"}, []string{all[0].Title, all[1].Title, all[2].Title})

	concerts, err := svc.List(ctx, model.EventFilter{Category: "concert", SearchQuery: "late"})
	require.NoError(t, err)
	require.Len(t, concerts, 1)
	assert.Equal(t, "Late show", concerts[0].Title)
	assert.Equal(t, "late", lastParams(t, fb, "list_events")["p_search"])
}

func TestEventService_ListEmpty(t *testing.T) {
	t.Parallel()
	client, _ := newTestBackend(t)

	events, err := NewEventService(client).List(context.Background(), model.EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventService_BackendFailureIsWrapped(t *testing.T) {
	t.Parallel()
	client, fb := newTestBackend(t)
	fb.Fail("delete_event", &backend.Error{Status: 403, Code: "42501", Message: "permission denied for table events"})

	err := NewEventService(client).Delete(context.Background(), "1")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "delete_event", se.Op)
	assert.Equal(t, "permission denied for table events", Message(err, "fallback"))
}

// ============================================================================
// NotificationService Tests
// ============================================================================

func TestNotificationService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	svc := NewNotificationService(client)

	n, err := svc.Create(ctx, model.NotificationInput{
		EventID:       "42",
		Type:          model.NotificationPush,
		MinutesBefore: 30,
		IsActive:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", n.EventID)
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, 30, n.MinutesBefore)
	assert.Equal(t, model.ID("42"), lastParams(t, fb, "create_notification")["p_event_id"])

	_, err = svc.Create(ctx, model.NotificationInput{EventID: "7", Type: model.NotificationEmail, MinutesBefore: 60})
	require.NoError(t, err)

	byEvent, err := svc.List(ctx, "42")
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Equal(t, n.ID, byEvent[0].ID)

	inactive := false
	updated, err := svc.Update(ctx, n.ID, model.NotificationPatch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, model.NotificationPush, updated.Type)

	require.NoError(t, svc.Delete(ctx, n.ID))
	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationService_CreateWithScalarID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	fb.Seed(fakebackend.TableNotifications, fakebackend.Row{"id": 9, "user_id": "user-1", "event_id": 3, "type": "both", "minutes_before": 15, "is_active": true})
	fb.Handle("create_notification", func(ctx context.Context, params map[string]any) (any, error) {
		return 9, nil
	})

	n, err := NewNotificationService(client).Create(ctx, model.NotificationInput{EventID: "3", Type: model.NotificationBoth, MinutesBefore: 15})
	require.NoError(t, err)
	assert.Equal(t, "9", n.ID)
	assert.Equal(t, model.NotificationBoth, n.Type)
}

// ============================================================================
// NoteService Tests
// ============================================================================

func TestNoteService_CreateRereadsByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	svc := NewNoteService(client)

	n, err := svc.Create(ctx, model.NoteInput{EventID: "42", Content: "bring ID"})
	require.NoError(t, err)
	assert.Equal(t, "1", n.ID)
	assert.Equal(t, "42", n.EventID)
	assert.Equal(t, "bring ID", n.Content)
	assert.Equal(t, 1, fb.CallCount("get_note"))

	updated, err := svc.Update(ctx, n.ID, "bring ID and ticket")
	require.NoError(t, err)
	assert.Equal(t, "bring ID and ticket", updated.Content)

	byEvent, err := svc.List(ctx, "42")
	require.NoError(t, err)
	require.Len(t, byEvent, 1)

	none, err := svc.List(ctx, "43")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, svc.Delete(ctx, n.ID))
	got, err := svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNoteService_CreateMissingAfterWrite(t *testing.T) {
	t.Parallel()
	client, fb := newTestBackend(t)
	fb.Handle("create_note", func(ctx context.Context, params map[string]any) (any, error) {
		return 99, nil
	})

	_, err := NewNoteService(client).Create(context.Background(), model.NoteInput{EventID: "1", Content: "x"})
	assert.ErrorIs(t, err, ErrRecordMissing)
}

// ============================================================================
// VisitReservationService Tests
// ============================================================================

func seedActivity(fb *fakebackend.Backend) {
	fb.Seed(fakebackend.TableBoothActivities, fakebackend.Row{
		"id":          7,
		"title":       "Perfume workshop",
		"description": "Blend your own scent",
		"brand_name":  "Maison",
		"venue_name":  "Seongsu Hall",
	})
}

func TestVisitReservationService_CreateJoinsActivity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	seedActivity(fb)
	svc := NewVisitReservationService(client)

	v, err := svc.Create(ctx, model.VisitReservationInput{
		BoothActivityID: "7",
		VisitorName:     "Kim",
		VisitorPhone:    "010-0000-0000",
		VisitorEmail:    "kim@example.com",
		VisitDatetime:   time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisitPending, v.Status)
	assert.Equal(t, "Perfume workshop", v.ActivityTitle)
	assert.Equal(t, "Seongsu Hall", v.VenueName)
	assert.Equal(t, 1, fb.CallCount("get_resv_visits"))
}

func TestVisitReservationService_UpdateStatusRereads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	seedActivity(fb)
	svc := NewVisitReservationService(client)

	v, err := svc.Create(ctx, model.VisitReservationInput{BoothActivityID: "7", VisitorName: "Kim", VisitDatetime: fixedNow})
	require.NoError(t, err)

	status := model.VisitConfirmed
	updated, err := svc.Update(ctx, v.ID, model.VisitReservationPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.VisitConfirmed, updated.Status)
	assert.Equal(t, "Maison", updated.BrandName)

	// Any transition is allowed
	status = model.VisitPending
	updated, err = svc.Update(ctx, v.ID, model.VisitReservationPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.VisitPending, updated.Status)
}

func TestVisitReservationService_ListByStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	seedActivity(fb)
	fb.Seed(fakebackend.TableVisits,
		fakebackend.Row{"booth_activity_id": 7, "visitor_name": "A", "status": "pending", "visit_datetime": "2025-05-01T10:00:00Z"},
		fakebackend.Row{"booth_activity_id": 7, "visitor_name": "B", "status": "confirmed", "visit_datetime": "2025-05-02T10:00:00Z"},
	)

	list, err := NewVisitReservationService(client).List(ctx, model.VisitReservationFilter{Status: model.VisitConfirmed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].VisitorName)
	assert.Equal(t, "7", list[0].BoothActivityID)
}

// ============================================================================
// InboxService Tests
// ============================================================================

func TestInboxService_Feed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	svc := NewInboxService(client)
	v := &model.VisitReservation{ID: "5", VisitorName: "Kim", ActivityTitle: "Perfume workshop", Status: model.VisitConfirmed}

	require.NoError(t, svc.NotifyReservationCreated(ctx, v))
	require.NoError(t, svc.NotifyStatusChange(ctx, v))
	v.Status = model.VisitCompleted
	require.NoError(t, svc.NotifyStatusChange(ctx, v))
	assert.Equal(t, 2, fb.CallCount("create_inbox_notification"))

	feed, err := svc.List(ctx, InboxQuery{})
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, model.InboxReservationConfirmed, feed[0].Type, "newest first")
	assert.Equal(t, "Kim booked Perfume workshop.", feed[1].Message)
	assert.EqualValues(t, 5, feed[1].Data["reservation_id"])

	require.NoError(t, svc.MarkRead(ctx, feed[0].ID))
	unread, err := svc.List(ctx, InboxQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, feed[1].ID, unread[0].ID)

	require.NoError(t, svc.MarkAllRead(ctx))
	unread, err = svc.List(ctx, InboxQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	limited, err := svc.List(ctx, InboxQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, svc.Delete(ctx, feed[0].ID))
	require.NoError(t, svc.DeleteAll(ctx))
	feed, err = svc.List(ctx, InboxQuery{})
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestInboxService_MarkReadMissing(t *testing.T) {
	t.Parallel()
	client, _ := newTestBackend(t)

	err := NewInboxService(client).MarkRead(context.Background(), "404")
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "P0002", be.Code)
}

// ============================================================================
// ProfileService Tests
// ============================================================================

func TestProfileService_Role(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb := newTestBackend(t)
	fb.SetRole("admin-1", "admin")
	fb.SetRole("odd-1", "owner")
	svc := NewProfileService(client, "")

	role, err := svc.Role(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	_, err = svc.Role(ctx, "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.True(t, backend.IsNoRows(err))

	_, err = svc.Role(ctx, "odd-1")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

// ============================================================================
// Message Tests
// ============================================================================

func TestMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Message(nil, "fallback"))
	assert.Equal(t, "boom", Message(&Error{Op: "x", Err: errors.New("boom")}, "fallback"))
	assert.Equal(t, "fallback", Message(&Error{Op: "x", Err: errors.New("")}, "fallback"))
	assert.Equal(t, "invalid JWT", Message(&backend.AuthError{Status: 401, Message: "invalid JWT"}, "fallback"))
	assert.Equal(t, "fallback", Message(context.Canceled, "fallback"))
}
