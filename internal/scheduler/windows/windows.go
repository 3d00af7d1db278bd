package windows

import (
	"fmt"
	"time"
)

type Window string

const (
	None     Window = "" // jogo já encerrado há mais de 4h
	Live     Window = "live"
	Upcoming Window = "upcoming"
	Distant  Window = "distant"
)

// Limites relativos a "agora"
const (
	LiveLookback  = 4 * time.Hour
	LiveAhead     = time.Hour
	UpcomingAhead = 48 * time.Hour
)

var All = []Window{Live, Upcoming, Distant}

func Parse(s string) (Window, error) {
	switch w := Window(s); w {
	case Live, Upcoming, Distant:
		return w, nil
	}
	return None, fmt.Errorf("unknown window %q", s)
}

// Classify é pura: mesmo gameTime e now, mesma janela.
// live = [-4h, +1h], upcoming = (+1h, +48h], distant = > +48h
func Classify(gameTime, now time.Time) Window {
	d := gameTime.Sub(now)
	switch {
	case d < -LiveLookback:
		return None
	case d <= LiveAhead:
		return Live
	case d <= UpcomingAhead:
		return Upcoming
	}
	return Distant
}

// Bounds retorna [from, to]; to zero = sem limite superior.
// O limite inferior de upcoming/distant é exclusivo.
func Bounds(w Window, now time.Time) (from, to time.Time) {
	switch w {
	case Live:
		return now.Add(-LiveLookback), now.Add(LiveAhead)
	case Upcoming:
		return now.Add(LiveAhead), now.Add(UpcomingAhead)
	case Distant:
		return now.Add(UpcomingAhead), time.Time{}
	}
	return time.Time{}, time.Time{}
}
