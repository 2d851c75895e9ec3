package implcaps

import (
	"github.com/shimmeringbee/persistence"
	"time"
)

const (
	LastUpdatedKey = "LastUpdated"
	LastChangedKey = "LastChanged"
)

// TimeEncoder stores a time as milliseconds since the unix epoch, for use with persistence.StoreComplex.
func TimeEncoder(s persistence.Section, k string, t time.Time) error {
	return s.Set(k, t.UnixMilli())
}

// TimeDecoder reads a time stored by TimeEncoder, for use with persistence.RetrieveComplex.
func TimeDecoder(s persistence.Section, k string) (time.Time, bool) {
	if ms, found := s.Int(k); found {
		return time.UnixMilli(int64(ms)), true
	}

	return time.Time{}, false
}
