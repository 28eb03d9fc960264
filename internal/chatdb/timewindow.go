package chatdb

import "time"

// appleEpochOffset is the number of seconds between the Unix epoch and
// 2001-01-01 00:00:00 UTC, the zero point of message.date.
const appleEpochOffset = 978307200

const nanosPerDay = int64(24 * time.Hour)

// Threshold returns the message.date value (Apple epoch, nanoseconds) such
// that "date > threshold" selects messages newer than now minus daysBack days.
// A zero or negative daysBack yields a threshold at or after now.
func Threshold(now time.Time, daysBack int) int64 {
	nowApple := (now.Unix() - appleEpochOffset) * int64(time.Second)
	return nowApple - int64(daysBack)*nanosPerDay
}

// ToTime converts a message.date value to a UTC time.
func ToTime(date int64) time.Time {
	sec := date / int64(time.Second)
	nsec := date % int64(time.Second)
	return time.Unix(appleEpochOffset+sec, nsec).UTC()
}

// FromTime converts t to a message.date value.
func FromTime(t time.Time) int64 {
	return (t.Unix()-appleEpochOffset)*int64(time.Second) + int64(t.Nanosecond())
}
