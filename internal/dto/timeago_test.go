package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"zero seconds", 0, "hace 0 segundos"},
		{"one second singular", time.Second, "hace 1 segundo"},
		{"many seconds", 45 * time.Second, "hace 45 segundos"},
		{"one minute singular", 90 * time.Second, "hace 1 minuto"},
		{"many minutes", 12 * time.Minute, "hace 12 minutos"},
		{"one hour singular", 100 * time.Minute, "hace 1 hora"},
		{"many hours", 5 * time.Hour, "hace 5 horas"},
		{"one day singular", 30 * time.Hour, "hace 1 día"},
		{"many days", 72 * time.Hour, "hace 3 días"},
		{"future timestamp clamps to zero", -time.Minute, "hace 0 segundos"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TimeAgo(now.Add(-tc.elapsed), now))
		})
	}
}
