package sport

import (
	"fmt"
	"strings"
)

type Sport int

const (
	All          Sport = 0
	FootballNCAA Sport = 1
	FootballNFL  Sport = 2
	BaseballMLB  Sport = 3
)

var names = map[Sport]string{
	All:          "all",
	FootballNCAA: "football_ncaa",
	FootballNFL:  "football_nfl",
	BaseballMLB:  "baseball_mlb",
}

func (s Sport) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("sport(%d)", int(s))
}

func (s Sport) Valid() bool {
	_, ok := names[s]
	return ok && s != All
}

func Parse(raw string) (Sport, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for s, name := range names {
		if name == value && s != All {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sport %q", raw)
}
