package model

// Option is a selectable value with its display label
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ReminderOption is a selectable reminder offset in minutes
type ReminderOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// EventCategories lists the categories offered when creating an event
var EventCategories = []Option{
	{Value: "concert", Label: "Concert"},
	{Value: "exhibition", Label: "Exhibition"},
	{Value: "festival", Label: "Festival"},
	{Value: "performance", Label: "Performance"},
	{Value: "sports", Label: "Sports"},
	{Value: "goods", Label: "Goods"},
	{Value: "fanmeeting", Label: "Fan meeting"},
	{Value: "other", Label: "Other"},
}

// ReminderOptions lists the reminder offsets a notification may use
var ReminderOptions = []ReminderOption{
	{Minutes: 5, Label: "5 minutes before"},
	{Minutes: 15, Label: "15 minutes before"},
	{Minutes: 30, Label: "30 minutes before"},
	{Minutes: 60, Label: "1 hour before"},
	{Minutes: 180, Label: "3 hours before"},
	{Minutes: 360, Label: "6 hours before"},
	{Minutes: 720, Label: "12 hours before"},
	{Minutes: 1440, Label: "1 day before"},
	{Minutes: 2880, Label: "2 days before"},
	{Minutes: 10080, Label: "1 week before"},
}

// ReservationPlatforms lists the ticketing platforms events link to
var ReservationPlatforms = []Option{
	{Value: "interpark", Label: "Interpark"},
	{Value: "melon", Label: "Melon Ticket"},
	{Value: "yes24", Label: "YES24"},
	{Value: "ticketlink", Label: "Ticketlink"},
	{Value: "naver", Label: "Naver"},
	{Value: "kakao", Label: "Kakao"},
	{Value: "tmon", Label: "TMON"},
	{Value: "coupang", Label: "Coupang"},
	{Value: "other", Label: "Other"},
}

// CategoryLabel returns the label for a category value, or the value itself
func CategoryLabel(value string) string {
	return lookupLabel(EventCategories, value)
}

// PlatformLabel returns the label for a platform value, or the value itself
func PlatformLabel(value string) string {
	return lookupLabel(ReservationPlatforms, value)
}

// ReminderLabel returns the label for a reminder offset, or "" if not offered
func ReminderLabel(minutes int) string {
	for _, o := range ReminderOptions {
		if o.Minutes == minutes {
			return o.Label
		}
	}
	return ""
}

func lookupLabel(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
