package lawn_mower

import (
	"context"
	"github.com/shimmeringbee/da"
	da_capabilities "github.com/shimmeringbee/da/capabilities"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/tda/capabilities"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/shimmeringbee/tda/implcaps"
	"sync"
	"time"
)

var _ capabilities.LawnMower = (*Implementation)(nil)
var _ capabilities.WithAttributes = (*Implementation)(nil)
var _ da_capabilities.WithLastChangeTime = (*Implementation)(nil)
var _ da_capabilities.WithLastUpdateTime = (*Implementation)(nil)
var _ implcaps.TDACapability = (*Implementation)(nil)

const (
	EntityKey            = "Entity"
	ActivityDataPointKey = "ActivityDataPoint"
	CommandDataPointKey  = "CommandDataPoint"
	AttributesKey        = "Attributes"
	ActivityKey          = "Activity"
)

const (
	DefaultActivityRole = "activity"
	DefaultCommandRole  = "command"
)

func NewLawnMower(ti implcaps.TDAInterface) *Implementation {
	return newImplementation(ti, "TuyaLawnMower", capabilities.BaselineActivities)
}

// NewExtendedLawnMower creates a lawn mower which also understands vendor specific activities.
func NewExtendedLawnMower(ti implcaps.TDAInterface) *Implementation {
	return newImplementation(ti, "TuyaExtendedLawnMower", capabilities.ExtendedActivities)
}

func newImplementation(ti implcaps.TDAInterface, implName string, set capabilities.ActivitySet) *Implementation {
	return &Implementation{ti: ti, implName: implName, set: set, m: &sync.RWMutex{}}
}

type Implementation struct {
	s  persistence.Section
	d  da.Device
	ti implcaps.TDAInterface

	implName string
	set      capabilities.ActivitySet

	m          *sync.RWMutex
	activity   datapoint.DataPoint
	command    datapoint.DataPoint
	attributes map[string]datapoint.DataPoint
	features   capabilities.Features
	subscribed bool
	detached   bool
}

func (i *Implementation) Capability() da.Capability {
	return capabilities.LawnMowerFlag
}

func (i *Implementation) Name() string {
	return capabilities.StandardNames[capabilities.LawnMowerFlag]
}

func (i *Implementation) ImplName() string {
	return i.implName
}

func (i *Implementation) Init(d da.Device, s persistence.Section) {
	i.d = d
	i.s = s
}

func (i *Implementation) Load(ctx context.Context) (bool, error) {
	entity, _ := i.s.Int(EntityKey)

	restore := func(role string, id string) datapoint.DataPoint {
		dp, found := i.ti.DataPoint(i.d, entity, id)
		if !found {
			i.ti.Logger().LogWarn(ctx, "Persisted data point no longer configured.", logwrap.Datum("Role", role), logwrap.Datum("Entity", entity), logwrap.Datum("DataPoint", id))
		}
		return dp
	}

	var activity, command datapoint.DataPoint

	if id, ok := i.s.String(ActivityDataPointKey); ok {
		activity = restore(DefaultActivityRole, id)
	}

	if id, ok := i.s.String(CommandDataPointKey); ok {
		command = restore(DefaultCommandRole, id)
	}

	attributes := map[string]datapoint.DataPoint{}
	as := i.s.Section(AttributesKey)

	for _, role := range as.Keys() {
		if id, ok := as.String(role); ok {
			if dp := restore(role, id); dp != nil {
				attributes[role] = dp
			}
		}
	}

	i.bind(activity, command, attributes)
	i.subscribe()

	return true, nil
}

func (i *Implementation) Enumerate(ctx context.Context, m map[string]any) (bool, error) {
	dps := implcaps.Get(m, implcaps.DataKeyDataPoints, map[string]datapoint.DataPoint{})
	entity := implcaps.Get(m, implcaps.DataKeyEntity, 0)
	activityRole := implcaps.Get(m, "ActivityRole", DefaultActivityRole)
	commandRole := implcaps.Get(m, "CommandRole", DefaultCommandRole)

	bound := datapoint.Bind(dps, activityRole, commandRole)
	activity, command := bound[0], bound[1]

	i.s.Set(EntityKey, entity)
	persistID(i.s, ActivityDataPointKey, activity)
	persistID(i.s, CommandDataPointKey, command)

	i.s.Delete(AttributesKey)
	as := i.s.Section(AttributesKey)

	for role, dp := range dps {
		as.Set(role, dp.ID())
	}

	i.bind(activity, command, dps)
	i.subscribe()

	i.m.RLock()
	features := i.features
	i.m.RUnlock()

	i.ti.Logger().LogInfo(ctx, "Lawn mower enumerated.", logwrap.Datum("Implementation", i.implName), logwrap.Datum("Features", features.String()), logwrap.Datum("HasActivity", activity != nil), logwrap.Datum("Attributes", len(dps)))

	return true, nil
}

func (i *Implementation) Detach(_ context.Context, _ implcaps.DetachType) error {
	i.m.Lock()
	defer i.m.Unlock()

	i.detached = true
	i.activity = nil
	i.command = nil
	i.attributes = nil
	i.features = 0

	return nil
}

func (i *Implementation) bind(activity, command datapoint.DataPoint, attributes map[string]datapoint.DataPoint) {
	features := capabilities.Features(0)
	if command != nil {
		features = capabilities.ResolveFeatures(command.Values())
	}

	i.m.Lock()
	defer i.m.Unlock()

	i.activity = activity
	i.command = command
	i.attributes = attributes
	i.features = features
	i.detached = false
}

func (i *Implementation) subscribe() {
	i.m.Lock()
	defer i.m.Unlock()

	if !i.subscribed {
		i.subscribed = i.ti.Subscribe(i.d, i.update)
	}
}

func persistID(s persistence.Section, key string, dp datapoint.DataPoint) {
	if dp == nil {
		s.Delete(key)
	} else {
		s.Set(key, dp.ID())
	}
}

func (i *Implementation) update(ctx context.Context, u datapoint.Updated) error {
	i.m.RLock()
	activity := i.activity
	detached := i.detached
	i.m.RUnlock()

	if detached || activity == nil || !u.Contains(activity.ID()) {
		return nil
	}

	current, known, err := i.Activity(ctx)
	if err != nil {
		i.ti.Logger().LogWarn(ctx, "Lawn mower reported an unrecognised activity.", logwrap.Err(err))
		return nil
	}

	if !known {
		return nil
	}

	_ = persistence.StoreComplex(i.s, implcaps.LastUpdatedKey, time.Now(), implcaps.TimeEncoder)

	if previous, _ := i.s.String(ActivityKey); previous != string(current) {
		i.s.Set(ActivityKey, string(current))
		_ = persistence.StoreComplex(i.s, implcaps.LastChangedKey, time.Now(), implcaps.TimeEncoder)

		label, _ := i.set.Label(current)
		i.ti.Logger().LogInfo(ctx, "Lawn mower activity changed.", logwrap.Datum("Activity", string(current)), logwrap.Datum("Label", label))

		i.ti.SendEvent(capabilities.LawnMowerActivityUpdate{Device: i.d, Activity: current})
	}

	return nil
}

func (i *Implementation) Activity(_ context.Context) (capabilities.Activity, bool, error) {
	i.m.RLock()
	activity := i.activity
	i.m.RUnlock()

	if activity == nil {
		return "", false, nil
	}

	raw, found := activity.Value()
	if !found {
		return "", false, nil
	}

	a, err := i.set.Translate(raw)
	if err != nil {
		return "", false, err
	}

	return a, true, nil
}

func (i *Implementation) SupportedFeatures(_ context.Context) (capabilities.Features, error) {
	i.m.RLock()
	defer i.m.RUnlock()

	return i.features, nil
}

// Attributes returns the current values of the entity's data points not bound to the activity or command roles.
// Data points yet to report a value are omitted.
func (i *Implementation) Attributes(_ context.Context) (map[string]any, error) {
	i.m.RLock()
	defer i.m.RUnlock()

	values := make(map[string]any, len(i.attributes))

	for role, dp := range i.attributes {
		if v, found := dp.Value(); found {
			values[role] = v
		}
	}

	return values, nil
}

func (i *Implementation) StartMowing(ctx context.Context) error {
	return i.send(ctx, capabilities.CommandStartMowing)
}

func (i *Implementation) Pause(ctx context.Context) error {
	return i.send(ctx, capabilities.CommandPause)
}

func (i *Implementation) Dock(ctx context.Context) error {
	return i.send(ctx, capabilities.CommandDock)
}

func (i *Implementation) Resume(ctx context.Context) error {
	return i.send(ctx, capabilities.CommandResume)
}

func (i *Implementation) Cancel(ctx context.Context) error {
	return i.send(ctx, capabilities.CommandCancel)
}

func (i *Implementation) FixedMowing(ctx context.Context) error {
	return i.send(ctx, capabilities.CommandFixedMowing)
}

// send writes a command to the command data point. Commands are not checked against the supported features.
func (i *Implementation) send(ctx context.Context, c capabilities.Command) error {
	i.m.RLock()
	command := i.command
	i.m.RUnlock()

	if command == nil {
		return nil
	}

	return command.SetValue(ctx, string(c))
}

func (i *Implementation) LastUpdateTime(_ context.Context) (time.Time, error) {
	t, _ := persistence.RetrieveComplex(i.s, implcaps.LastUpdatedKey, implcaps.TimeDecoder)
	return t, nil
}

func (i *Implementation) LastChangeTime(_ context.Context) (time.Time, error) {
	t, _ := persistence.RetrieveComplex(i.s, implcaps.LastChangedKey, implcaps.TimeDecoder)
	return t, nil
}
