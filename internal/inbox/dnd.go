package inbox

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/wolfman30/agency-backoffice/internal/notify"
)

// IsInDND reports whether now falls inside [DNDStart, DNDEnd) in the
// settings' timezone. A start later than the end spans midnight. Equal
// bounds are an empty window. Unparseable clocks never suppress delivery.
func IsInDND(s notify.Settings, now time.Time) bool {
	if !s.DNDEnabled {
		return false
	}
	start, ok := minuteOfDay(s.DNDStart)
	if !ok {
		return false
	}
	end, ok := minuteOfDay(s.DNDEnd)
	if !ok {
		return false
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	current := local.Hour()*60 + local.Minute()

	if start <= end {
		return current >= start && current < end
	}
	return current >= start || current < end
}

func minuteOfDay(clock string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
