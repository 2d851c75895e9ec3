package lawn_mower

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/capture"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/persistence/impl/memory"
	"github.com/shimmeringbee/tda/capabilities"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/shimmeringbee/tda/implcaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"io"
	"testing"
	"time"
)

func newMockInterface() *implcaps.MockTDAInterface {
	mti := &implcaps.MockTDAInterface{}
	mti.On("Logger").Return(logwrap.New(discard.Discard())).Maybe()
	mti.On("Subscribe", mock.Anything, mock.Anything).Return(true).Maybe()
	return mti
}

func newDataPoint(id string, values []any) *datapoint.MockDataPoint {
	mdp := &datapoint.MockDataPoint{}
	mdp.On("ID").Return(id).Maybe()
	mdp.On("Values").Return(values).Maybe()
	return mdp
}

func enumerated(t *testing.T, i *Implementation, dps map[string]datapoint.DataPoint) {
	i.Init(testDevice{identifier: testIdentifier("mower")}, memory.New())

	attached, err := i.Enumerate(context.TODO(), map[string]any{implcaps.DataKeyDataPoints: dps})
	assert.True(t, attached)
	assert.NoError(t, err)
}

type testIdentifier string

func (t testIdentifier) String() string {
	return string(t)
}

type testDevice struct {
	identifier testIdentifier
}

func (t testDevice) Gateway() da.Gateway {
	return nil
}

func (t testDevice) Identifier() da.Identifier {
	return t.identifier
}

func (t testDevice) Capabilities() []da.Capability {
	return []da.Capability{capabilities.LawnMowerFlag}
}

func (t testDevice) Capability(da.Capability) da.BasicCapability {
	return nil
}

func TestImplementation_BaseFunctions(t *testing.T) {
	t.Run("basic static functions respond correctly", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())

		assert.Equal(t, capabilities.LawnMowerFlag, i.Capability())
		assert.Equal(t, capabilities.StandardNames[capabilities.LawnMowerFlag], i.Name())
		assert.Equal(t, "TuyaLawnMower", i.ImplName())
	})

	t.Run("extended variant has its own implementation name", func(t *testing.T) {
		i := NewExtendedLawnMower(newMockInterface())

		assert.Equal(t, capabilities.LawnMowerFlag, i.Capability())
		assert.Equal(t, "TuyaExtendedLawnMower", i.ImplName())
	})
}

func TestImplementation_Enumerate(t *testing.T) {
	t.Run("binds the activity and command roles, resolving features from the command", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		activity := newDataPoint("1", nil)
		command := newDataPoint("2", []any{"start_mowing", "dock", "self_destruct"})
		other := newDataPoint("6", nil)

		dps := map[string]datapoint.DataPoint{"activity": activity, "command": command, "battery": other}

		i := NewLawnMower(mti)
		enumerated(t, i, dps)

		f, err := i.SupportedFeatures(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, capabilities.FeatureStartMowing|capabilities.FeatureDock, f)

		id, _ := i.s.String(ActivityDataPointKey)
		assert.Equal(t, "1", id)
		id, _ = i.s.String(CommandDataPointKey)
		assert.Equal(t, "2", id)

		assert.Contains(t, dps, "battery")
		assert.NotContains(t, dps, "activity")
	})

	t.Run("uses overridden role names", func(t *testing.T) {
		mti := newMockInterface()

		command := newDataPoint("115", []any{"pause"})

		i := NewLawnMower(mti)
		i.Init(nil, memory.New())

		attached, err := i.Enumerate(context.TODO(), map[string]any{
			implcaps.DataKeyDataPoints: map[string]datapoint.DataPoint{"mower_command": command},
			"CommandRole":              "mower_command",
		})
		assert.True(t, attached)
		assert.NoError(t, err)

		f, _ := i.SupportedFeatures(context.TODO())
		assert.Equal(t, capabilities.FeaturePause, f)
	})

	t.Run("all legal commands result in all features", func(t *testing.T) {
		command := newDataPoint("2", []any{"start_mowing", "pause", "dock", "resume", "cancel", "fixed_mowing"})

		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"command": command})

		f, _ := i.SupportedFeatures(context.TODO())
		for _, kc := range capabilities.KnownCommands {
			assert.True(t, f.Has(kc.Feature))
		}
	})

	t.Run("attaches without any bindings, with no features", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{})

		f, err := i.SupportedFeatures(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, capabilities.Features(0), f)

		_, found := i.s.String(CommandDataPointKey)
		assert.False(t, found)
	})

	t.Run("only subscribes to the device once", func(t *testing.T) {
		mti := &implcaps.MockTDAInterface{}
		defer mti.AssertExpectations(t)
		mti.On("Logger").Return(logwrap.New(discard.Discard()))
		mti.On("Subscribe", mock.Anything, mock.Anything).Return(true).Once()

		i := NewLawnMower(mti)
		enumerated(t, i, map[string]datapoint.DataPoint{})
		enumerated(t, i, map[string]datapoint.DataPoint{})
	})
}

func TestImplementation_Load(t *testing.T) {
	t.Run("restores bindings from persistence and recomputes features", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		activity := newDataPoint("1", nil)
		command := newDataPoint("2", []any{"resume", "cancel"})

		mti.On("DataPoint", mock.Anything, 0, "1").Return(activity, true)
		mti.On("DataPoint", mock.Anything, 0, "2").Return(command, true)

		s := memory.New()
		s.Set(ActivityDataPointKey, "1")
		s.Set(CommandDataPointKey, "2")

		i := NewLawnMower(mti)
		i.Init(nil, s)

		attached, err := i.Load(context.TODO())
		assert.True(t, attached)
		assert.NoError(t, err)

		f, _ := i.SupportedFeatures(context.TODO())
		assert.Equal(t, capabilities.FeatureResume|capabilities.FeatureCancel, f)
	})

	t.Run("restores bindings from the entity it was enumerated against", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		activity := newDataPoint("1", nil)
		activity.On("Value").Return("mowing", true)
		battery := newDataPoint("6", nil)
		battery.On("Value").Return(80, true)

		first := NewLawnMower(mti)
		first.Init(testDevice{identifier: "mower"}, memory.New())

		_, err := first.Enumerate(context.TODO(), map[string]any{
			implcaps.DataKeyDataPoints: map[string]datapoint.DataPoint{"activity": activity, "battery": battery},
			implcaps.DataKeyEntity:     2,
		})
		assert.NoError(t, err)

		mti.On("DataPoint", mock.Anything, 2, "1").Return(activity, true)
		mti.On("DataPoint", mock.Anything, 2, "6").Return(battery, true)

		second := NewLawnMower(mti)
		second.Init(testDevice{identifier: "mower"}, first.s)

		attached, err := second.Load(context.TODO())
		assert.True(t, attached)
		assert.NoError(t, err)

		a, known, err := second.Activity(context.TODO())
		assert.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, capabilities.ActivityMowing, a)

		attrs, err := second.Attributes(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"battery": 80}, attrs)
	})

	t.Run("degrades if a persisted data point is no longer configured", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		mti.On("DataPoint", mock.Anything, 0, "2").Return(nil, false)

		s := memory.New()
		s.Set(CommandDataPointKey, "2")

		i := NewLawnMower(mti)
		i.Init(nil, s)

		attached, err := i.Load(context.TODO())
		assert.True(t, attached)
		assert.NoError(t, err)

		f, _ := i.SupportedFeatures(context.TODO())
		assert.Equal(t, capabilities.Features(0), f)
		assert.NoError(t, i.Dock(context.TODO()))
	})
}

func TestImplementation_Activity(t *testing.T) {
	t.Run("returns unknown if there is no activity binding", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{})

		a, known, err := i.Activity(context.TODO())
		assert.NoError(t, err)
		assert.False(t, known)
		assert.Equal(t, capabilities.Activity(""), a)
	})

	t.Run("returns unknown if the device has not reported a value", func(t *testing.T) {
		activity := newDataPoint("1", nil)
		activity.On("Value").Return(nil, false)

		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

		_, known, err := i.Activity(context.TODO())
		assert.NoError(t, err)
		assert.False(t, known)
	})

	t.Run("translates baseline values identically under both sets", func(t *testing.T) {
		for _, a := range capabilities.BaselineActivities.Activities() {
			for _, ctor := range []func(implcaps.TDAInterface) *Implementation{NewLawnMower, NewExtendedLawnMower} {
				activity := newDataPoint("1", nil)
				activity.On("Value").Return(string(a), true)

				i := ctor(newMockInterface())
				enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

				actual, known, err := i.Activity(context.TODO())
				assert.NoError(t, err)
				assert.True(t, known)
				assert.Equal(t, a, actual)
			}
		}
	})

	t.Run("vendor activities are only understood by the extended variant", func(t *testing.T) {
		activity := newDataPoint("1", nil)
		activity.On("Value").Return("charging", true)

		extended := NewExtendedLawnMower(newMockInterface())
		enumerated(t, extended, map[string]datapoint.DataPoint{"activity": activity})

		a, known, err := extended.Activity(context.TODO())
		assert.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, capabilities.ActivityCharging, a)

		baseline := NewLawnMower(newMockInterface())
		enumerated(t, baseline, map[string]datapoint.DataPoint{"activity": activity})

		_, known, err = baseline.Activity(context.TODO())
		assert.ErrorIs(t, err, capabilities.ErrUnrecognizedActivity)
		assert.False(t, known)
	})

	t.Run("unknown values fail under both sets", func(t *testing.T) {
		activity := newDataPoint("1", nil)
		activity.On("Value").Return("not-a-real-value", true)

		for _, ctor := range []func(implcaps.TDAInterface) *Implementation{NewLawnMower, NewExtendedLawnMower} {
			i := ctor(newMockInterface())
			enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

			_, _, err := i.Activity(context.TODO())
			assert.ErrorIs(t, err, capabilities.ErrUnrecognizedActivity)
		}
	})
}

func TestImplementation_Attributes(t *testing.T) {
	t.Run("exposes data points not bound to a role, omitting those without a value", func(t *testing.T) {
		activity := newDataPoint("1", nil)
		battery := newDataPoint("6", nil)
		battery.On("Value").Return(80, true)
		fault := newDataPoint("9", nil)
		fault.On("Value").Return(nil, false)

		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity, "battery": battery, "fault": fault})

		attrs, err := i.Attributes(context.TODO())
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"battery": 80}, attrs)

		id, _ := i.s.Section(AttributesKey).String("fault")
		assert.Equal(t, "9", id)
	})

	t.Run("re-enumeration forgets attributes no longer present", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"battery": newDataPoint("6", nil)})

		_, err := i.Enumerate(context.TODO(), map[string]any{implcaps.DataKeyDataPoints: map[string]datapoint.DataPoint{}})
		assert.NoError(t, err)

		assert.Empty(t, i.s.Section(AttributesKey).Keys())
	})

	t.Run("returns nothing after detach", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"battery": newDataPoint("6", nil)})

		assert.NoError(t, i.Detach(context.TODO(), implcaps.DeviceRemoved))

		attrs, err := i.Attributes(context.TODO())
		assert.NoError(t, err)
		assert.Empty(t, attrs)
	})
}

func TestImplementation_Commands(t *testing.T) {
	commands := map[capabilities.Command]func(*Implementation, context.Context) error{
		capabilities.CommandStartMowing: (*Implementation).StartMowing,
		capabilities.CommandPause:       (*Implementation).Pause,
		capabilities.CommandDock:        (*Implementation).Dock,
		capabilities.CommandResume:      (*Implementation).Resume,
		capabilities.CommandCancel:      (*Implementation).Cancel,
		capabilities.CommandFixedMowing: (*Implementation).FixedMowing,
	}

	t.Run("every command is a silent no-op without a command binding", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{})

		for _, f := range commands {
			assert.NoError(t, f(i, context.TODO()))
		}
	})

	t.Run("every command is written to the binding, even if not advertised", func(t *testing.T) {
		command := newDataPoint("2", []any{"dock"})
		defer command.AssertExpectations(t)

		for c := range commands {
			command.On("SetValue", mock.Anything, string(c)).Return(nil).Once()
		}

		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"command": command})

		f, _ := i.SupportedFeatures(context.TODO())
		assert.Equal(t, capabilities.FeatureDock, f)

		for _, f := range commands {
			assert.NoError(t, f(i, context.TODO()))
		}
	})

	t.Run("device errors are propagated unmodified", func(t *testing.T) {
		command := newDataPoint("2", nil)
		command.On("SetValue", mock.Anything, "pause").Return(io.EOF)

		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"command": command})

		assert.Equal(t, io.EOF, i.Pause(context.TODO()))
	})

	t.Run("commands are no-ops after detach", func(t *testing.T) {
		command := newDataPoint("2", nil)
		defer command.AssertExpectations(t)

		i := NewLawnMower(newMockInterface())
		enumerated(t, i, map[string]datapoint.DataPoint{"command": command})

		assert.NoError(t, i.Detach(context.TODO(), implcaps.NoLongerEnumerated))
		assert.NoError(t, i.StartMowing(context.TODO()))
	})
}

func TestImplementation_update(t *testing.T) {
	t.Run("sends an event when the activity changes, and not when it remains the same", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		activity := newDataPoint("1", nil)
		activity.On("Value").Return("mowing", true)

		i := NewLawnMower(mti)
		enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

		mti.On("SendEvent", capabilities.LawnMowerActivityUpdate{Device: i.d, Activity: capabilities.ActivityMowing}).Once()

		assert.NoError(t, i.update(context.TODO(), datapoint.Updated{Changed: []string{"1"}}))
		assert.NoError(t, i.update(context.TODO(), datapoint.Updated{Changed: []string{"1"}}))

		changed, err := i.LastChangeTime(context.TODO())
		assert.NoError(t, err)
		assert.WithinDuration(t, time.Now(), changed, time.Second)

		updated, err := i.LastUpdateTime(context.TODO())
		assert.NoError(t, err)
		assert.WithinDuration(t, time.Now(), updated, time.Second)
	})

	t.Run("ignores updates of other data points", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		activity := newDataPoint("1", nil)

		i := NewLawnMower(mti)
		enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

		assert.NoError(t, i.update(context.TODO(), datapoint.Updated{Changed: []string{"6"}}))
	})

	t.Run("does not send an event for an unrecognised activity", func(t *testing.T) {
		mti := newMockInterface()
		defer mti.AssertExpectations(t)

		activity := newDataPoint("1", nil)
		activity.On("Value").Return("charging", true)

		i := NewLawnMower(mti)
		enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

		assert.NoError(t, i.update(context.TODO(), datapoint.Updated{Changed: []string{"1"}}))
	})

	t.Run("logs the label of the new activity when it changes", func(t *testing.T) {
		c := capture.NewCapture()

		mti := &implcaps.MockTDAInterface{}
		defer mti.AssertExpectations(t)
		mti.On("Logger").Return(logwrap.New(c.Impl()))
		mti.On("Subscribe", mock.Anything, mock.Anything).Return(true)
		mti.On("SendEvent", mock.Anything).Once()

		activity := newDataPoint("1", nil)
		activity.On("Value").Return("mowing", true)

		i := NewLawnMower(mti)
		enumerated(t, i, map[string]datapoint.DataPoint{"activity": activity})

		assert.NoError(t, i.update(context.TODO(), datapoint.Updated{Changed: []string{"1"}}))

		var labels []any
		for _, m := range c.Messages() {
			if m.Message == "Lawn mower activity changed." {
				labels = append(labels, m.Data["Label"])
			}
		}

		assert.Equal(t, []any{"Mowing"}, labels)
	})

	t.Run("retrieves last changed time from persistence", func(t *testing.T) {
		i := NewLawnMower(newMockInterface())
		i.Init(nil, memory.New())

		expected := time.Now().Add(-5 * time.Minute)
		assert.NoError(t, persistence.StoreComplex(i.s, implcaps.LastChangedKey, expected, implcaps.TimeEncoder))

		actual, err := i.LastChangeTime(context.TODO())
		assert.NoError(t, err)
		assert.WithinDuration(t, expected, actual, time.Second)
	})
}
