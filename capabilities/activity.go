package capabilities

import (
	"errors"
	"fmt"
	"sort"
)

// Activity is the high level operational state of a lawn mower.
type Activity string

// Baseline activities, as defined by the host.
const (
	ActivityIdle      Activity = "idle"
	ActivityMowing    Activity = "mowing"
	ActivityDocked    Activity = "docked"
	ActivityPaused    Activity = "paused"
	ActivityError     Activity = "error"
	ActivityReturning Activity = "returning"
)

// Vendor activities, only present in the extended set.
const (
	ActivityCharging                Activity = "charging"
	ActivityChargingWithTaskSuspend Activity = "charging_with_task_suspend"
	ActivityStandby                 Activity = "standby"
	ActivityParking                 Activity = "parking"
	ActivityLocked                  Activity = "locked"
	ActivityFixedMowing             Activity = "fixed_mowing"
	ActivityEmergency               Activity = "emergency"
)

var ErrUnrecognizedActivity = errors.New("unrecognized activity")

// UnrecognizedActivityError is returned when a raw value has no member in the activity set it was decoded against.
type UnrecognizedActivityError struct {
	Set   string
	Value any
}

func (e UnrecognizedActivityError) Error() string {
	return fmt.Sprintf("%s: %#v not in %s activity set", ErrUnrecognizedActivity, e.Value, e.Set)
}

func (e UnrecognizedActivityError) Is(target error) bool {
	return target == ErrUnrecognizedActivity
}

// ActivitySet is a closed set of activities that raw values can be decoded into.
type ActivitySet struct {
	name    string
	members map[Activity]string
}

// BaselineActivities is the host defined set of activities.
var BaselineActivities = newActivitySet("baseline", map[Activity]string{
	ActivityIdle:      "Idle",
	ActivityMowing:    "Mowing",
	ActivityDocked:    "Docked",
	ActivityPaused:    "Paused",
	ActivityError:     "Error",
	ActivityReturning: "Returning to dock",
})

// ExtendedActivities contains every baseline activity, unchanged, plus vendor specific states.
var ExtendedActivities = BaselineActivities.extend("extended", map[Activity]string{
	ActivityCharging:                "Charging",
	ActivityChargingWithTaskSuspend: "Charging, task suspended",
	ActivityStandby:                 "Standby",
	ActivityParking:                 "Parking",
	ActivityLocked:                  "Locked",
	ActivityFixedMowing:             "Fixed spot mowing",
	ActivityEmergency:               "Emergency stopped",
})

func newActivitySet(name string, members map[Activity]string) ActivitySet {
	return ActivitySet{name: name, members: members}
}

// extend panics if an addition collides with an existing member, as an extension may never rename or replace an
// activity it inherits.
func (s ActivitySet) extend(name string, additions map[Activity]string) ActivitySet {
	members := make(map[Activity]string, len(s.members)+len(additions))

	for a, label := range s.members {
		members[a] = label
	}

	for a, label := range additions {
		if _, found := members[a]; found {
			panic(fmt.Sprintf("activity set %s: addition %q collides with %s", name, a, s.name))
		}

		members[a] = label
	}

	return newActivitySet(name, members)
}

func (s ActivitySet) Name() string {
	return s.name
}

// Translate decodes a raw data point value into an activity. Values which are not a member of the set result in an
// UnrecognizedActivityError, they are never coerced to a default.
func (s ActivitySet) Translate(raw any) (Activity, error) {
	var a Activity

	switch v := raw.(type) {
	case string:
		a = Activity(v)
	case Activity:
		a = v
	default:
		return "", UnrecognizedActivityError{Set: s.name, Value: raw}
	}

	if _, found := s.members[a]; !found {
		return "", UnrecognizedActivityError{Set: s.name, Value: raw}
	}

	return a, nil
}

func (s ActivitySet) Contains(a Activity) bool {
	_, found := s.members[a]
	return found
}

// Label returns the human readable label of an activity.
func (s ActivitySet) Label(a Activity) (string, bool) {
	l, found := s.members[a]
	return l, found
}

// Activities returns all members of the set, sorted.
func (s ActivitySet) Activities() []Activity {
	var activities []Activity

	for a := range s.members {
		activities = append(activities, a)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i] < activities[j]
	})

	return activities
}
