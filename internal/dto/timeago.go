package dto

import (
	"fmt"
	"time"
)

// TimeAgo renders the elapsed time since t as a Spanish "hace N ..." label
// using the largest whole unit among days, hours, minutes and seconds.
func TimeAgo(t, now time.Time) string {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}

	if days := int(elapsed.Hours() / 24); days > 1 {
		return fmt.Sprintf("hace %d días", days)
	} else if days == 1 {
		return "hace 1 día"
	}
	if hours := int(elapsed.Hours()); hours > 1 {
		return fmt.Sprintf("hace %d horas", hours)
	} else if hours == 1 {
		return "hace 1 hora"
	}
	if minutes := int(elapsed.Minutes()); minutes > 1 {
		return fmt.Sprintf("hace %d minutos", minutes)
	} else if minutes == 1 {
		return "hace 1 minuto"
	}
	seconds := int(elapsed.Seconds())
	if seconds != 1 {
		return fmt.Sprintf("hace %d segundos", seconds)
	}
	return "hace 1 segundo"
}
