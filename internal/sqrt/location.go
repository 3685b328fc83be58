package sqrt

import "time"

// LocationResolver maps a sample to the location of the user at that time.
// The returned timestamp is shifted to the wall clock of that location.
type LocationResolver interface {
	Resolve(ts time.Time, hostname string) (location string, adjusted time.Time)
}
