package utils

import (
	"strconv"
	"time"
)

var thaiMonths = []string{
	"มกราคม",
	"กุมภาพันธ์",
	"มีนาคม",
	"เมษายน",
	"พฤษภาคม",
	"มิถุนายน",
	"กรกฎาคม",
	"สิงหาคม",
	"กันยายน",
	"ตุลาคม",
	"พฤศจิกายน",
	"ธันวาคม",
}

// Bangkok is the office's local time zone. Thailand keeps no daylight saving.
var Bangkok = time.FixedZone("ICT", 7*60*60)

// FormatThaiDate returns the date with a Thai month name and Buddhist Era year,
// as printed on approval letters.
func FormatThaiDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	local := t.In(Bangkok)
	return strconv.Itoa(local.Day()) + " " + thaiMonths[int(local.Month())-1] + " " + strconv.Itoa(local.Year()+543)
}
