package report

import "time"

// DateLayout renders timestamps as DD.MM.YYYY HH:MM.
const DateLayout = "02.01.2006 15:04"

// FileTimestampLayout is the timestamp part of artifact file names.
const FileTimestampLayout = "20060102_150405"

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatOptionalDate returns "" for a missing date.
func FormatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}
