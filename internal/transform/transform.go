package transform

import (
	"github.com/popitgo/client/internal/model"
)

// EventFromServer converts an event row. HasNotification starts false;
// the events container joins it against the user's notifications.
func EventFromServer(r *model.EventRecord) *model.Event {
	if r == nil {
		return nil
	}
	return &model.Event{
		ID:                  r.ID.String(),
		Title:               r.Title,
		Description:         r.Description,
		Organizer:           r.Organizer,
		Category:            r.Category,
		ReservationStart:    ParseTimestamp(r.ReservationStart),
		ReservationEnd:      ParseTimestampPtr(r.ReservationEnd),
		ReservationPlatform: r.ReservationPlatform,
		ReservationLink:     r.ReservationLink,
		CreatedAt:           ParseTimestamp(r.CreatedAt),
		UpdatedAt:           ParseTimestamp(r.UpdatedAt),
	}
}

// EventToServer converts an event back to its row shape
func EventToServer(e *model.Event) *model.EventRecord {
	if e == nil {
		return nil
	}
	return &model.EventRecord{
		ID:                  model.ID(e.ID),
		Title:               e.Title,
		Description:         e.Description,
		Organizer:           e.Organizer,
		Category:            e.Category,
		ReservationStart:    FormatTimestamp(e.ReservationStart),
		ReservationEnd:      FormatTimestampPtr(e.ReservationEnd),
		ReservationPlatform: e.ReservationPlatform,
		ReservationLink:     e.ReservationLink,
		CreatedAt:           FormatTimestamp(e.CreatedAt),
		UpdatedAt:           FormatTimestamp(e.UpdatedAt),
	}
}

// NotificationFromServer converts a notification row
func NotificationFromServer(r *model.NotificationRecord) *model.Notification {
	if r == nil {
		return nil
	}
	return &model.Notification{
		ID:            r.ID.String(),
		UserID:        r.UserID,
		EventID:       r.EventID.String(),
		Type:          model.NotificationType(r.Type),
		MinutesBefore: r.MinutesBefore,
		IsActive:      r.IsActive,
		CreatedAt:     ParseTimestamp(r.CreatedAt),
		UpdatedAt:     ParseTimestamp(r.UpdatedAt),
	}
}

// NotificationToServer converts a notification back to its row shape
func NotificationToServer(n *model.Notification) *model.NotificationRecord {
	if n == nil {
		return nil
	}
	return &model.NotificationRecord{
		ID:            model.ID(n.ID),
		UserID:        n.UserID,
		EventID:       model.ID(n.EventID),
		Type:          string(n.Type),
		MinutesBefore: n.MinutesBefore,
		IsActive:      n.IsActive,
		CreatedAt:     FormatTimestamp(n.CreatedAt),
		UpdatedAt:     FormatTimestamp(n.UpdatedAt),
	}
}

// NoteFromServer converts a note row
func NoteFromServer(r *model.NoteRecord) *model.Note {
	if r == nil {
		return nil
	}
	return &model.Note{
		ID:        r.ID.String(),
		UserID:    r.UserID,
		EventID:   r.EventID.String(),
		Content:   r.Content,
		CreatedAt: ParseTimestamp(r.CreatedAt),
		UpdatedAt: ParseTimestamp(r.UpdatedAt),
	}
}

// NoteToServer converts a note back to its row shape
func NoteToServer(n *model.Note) *model.NoteRecord {
	if n == nil {
		return nil
	}
	return &model.NoteRecord{
		ID:        model.ID(n.ID),
		UserID:    n.UserID,
		EventID:   model.ID(n.EventID),
		Content:   n.Content,
		CreatedAt: FormatTimestamp(n.CreatedAt),
		UpdatedAt: FormatTimestamp(n.UpdatedAt),
	}
}

// VisitReservationFromServer converts a visit reservation row
func VisitReservationFromServer(r *model.VisitReservationRecord) *model.VisitReservation {
	if r == nil {
		return nil
	}
	return &model.VisitReservation{
		ID:                  r.ID.String(),
		BoothActivityID:     r.BoothActivityID.String(),
		VisitorName:         r.VisitorName,
		VisitorPhone:        r.VisitorPhone,
		VisitorEmail:        r.VisitorEmail,
		VisitDatetime:       ParseTimestamp(r.VisitDatetime),
		ReservationPlatform: r.ReservationPlatform,
		ReservationURL:      r.ReservationURL,
		Notes:               r.Notes,
		Status:              model.VisitStatus(r.Status),
		CreatedAt:           ParseTimestamp(r.CreatedAt),
		UpdatedAt:           ParseTimestamp(r.UpdatedAt),
		ActivityTitle:       r.ActivityTitle,
		ActivityDescription: r.ActivityDescription,
		BrandName:           r.BrandName,
		VenueName:           r.VenueName,
	}
}

// VisitReservationToServer converts a visit reservation back to its row shape
func VisitReservationToServer(v *model.VisitReservation) *model.VisitReservationRecord {
	if v == nil {
		return nil
	}
	return &model.VisitReservationRecord{
		ID:                  model.ID(v.ID),
		BoothActivityID:     model.ID(v.BoothActivityID),
		VisitorName:         v.VisitorName,
		VisitorPhone:        v.VisitorPhone,
		VisitorEmail:        v.VisitorEmail,
		VisitDatetime:       FormatTimestamp(v.VisitDatetime),
		ReservationPlatform: v.ReservationPlatform,
		ReservationURL:      v.ReservationURL,
		Notes:               v.Notes,
		Status:              string(v.Status),
		CreatedAt:           FormatTimestamp(v.CreatedAt),
		UpdatedAt:           FormatTimestamp(v.UpdatedAt),
		ActivityTitle:       v.ActivityTitle,
		ActivityDescription: v.ActivityDescription,
		BrandName:           v.BrandName,
		VenueName:           v.VenueName,
	}
}

// InboxFromServer converts an inbox alert row
func InboxFromServer(r *model.InboxRecord) *model.InboxNotification {
	if r == nil {
		return nil
	}
	return &model.InboxNotification{
		ID:        r.ID.String(),
		Type:      model.InboxType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Data:      r.Data,
		CreatedAt: ParseTimestamp(r.CreatedAt),
		ReadAt:    ParseTimestampPtr(r.ReadAt),
	}
}

// InboxToServer converts an inbox alert back to its row shape
func InboxToServer(n *model.InboxNotification) *model.InboxRecord {
	if n == nil {
		return nil
	}
	return &model.InboxRecord{
		ID:        model.ID(n.ID),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		CreatedAt: FormatTimestamp(n.CreatedAt),
		ReadAt:    FormatTimestampPtr(n.ReadAt),
	}
}

// UserInfoFromAuth builds the client user from the auth user and the
// profile role. An empty or unknown role degrades to model.RoleUser.
func UserInfoFromAuth(id, email string, metadata map[string]any, role string) *model.UserInfo {
	if id == "" {
		return nil
	}
	r := model.Role(role)
	if !r.IsValid() {
		r = model.RoleUser
	}
	return &model.UserInfo{
		ID:        id,
		Email:     email,
		FullName:  metadataString(metadata, "full_name", "name"),
		AvatarURL: metadataString(metadata, "avatar_url", "picture"),
		Role:      r,
	}
}

// metadataString returns the first non-empty string under keys
func metadataString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Each applies fn to every record, skipping nil results
func Each[R any, T any](records []R, fn func(*R) *T) []T {
	out := make([]T, 0, len(records))
	for i := range records {
		if v := fn(&records[i]); v != nil {
			out = append(out, *v)
		}
	}
	return out
}
