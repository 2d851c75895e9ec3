package capabilities

import "strings"

// Command is an identifier written to a mower's command data point.
type Command string

const (
	CommandStartMowing Command = "start_mowing"
	CommandPause       Command = "pause"
	CommandDock        Command = "dock"
	CommandResume      Command = "resume"
	CommandCancel      Command = "cancel"
	CommandFixedMowing Command = "fixed_mowing"
)

// Feature is a single supported command, as advertised to the host.
type Feature uint16

const (
	FeatureStartMowing Feature = 1 << iota
	FeaturePause
	FeatureDock
	FeatureResume
	FeatureCancel
	FeatureFixedMowing
)

// Features is the set of commands a mower advertises.
type Features uint16

// KnownCommands pairs every command identifier with the feature it enables, in advertisement order.
var KnownCommands = []struct {
	Command Command
	Feature Feature
}{
	{Command: CommandStartMowing, Feature: FeatureStartMowing},
	{Command: CommandPause, Feature: FeaturePause},
	{Command: CommandDock, Feature: FeatureDock},
	{Command: CommandResume, Feature: FeatureResume},
	{Command: CommandCancel, Feature: FeatureCancel},
	{Command: CommandFixedMowing, Feature: FeatureFixedMowing},
}

func (f Feature) String() string {
	for _, kc := range KnownCommands {
		if kc.Feature == f {
			return string(kc.Command)
		}
	}

	return "unknown"
}

func (f Features) Has(feature Feature) bool {
	return uint16(f)&uint16(feature) == uint16(feature)
}

func (f Features) With(feature Feature) Features {
	return Features(uint16(f) | uint16(feature))
}

func (f Features) List() []Feature {
	var features []Feature

	for _, kc := range KnownCommands {
		if f.Has(kc.Feature) {
			features = append(features, kc.Feature)
		}
	}

	return features
}

func (f Features) String() string {
	var names []string

	for _, feature := range f.List() {
		names = append(names, feature.String())
	}

	return "[" + strings.Join(names, ",") + "]"
}

// ResolveFeatures computes the features supported by a command data point, given its legal values. A command is
// supported if, and only if, its identifier is a member of legal.
func ResolveFeatures(legal []any) Features {
	var f Features

	for _, kc := range KnownCommands {
		for _, v := range legal {
			if commandMatches(v, kc.Command) {
				f = f.With(kc.Feature)
				break
			}
		}
	}

	return f
}

func commandMatches(v any, c Command) bool {
	switch tv := v.(type) {
	case string:
		return tv == string(c)
	case Command:
		return tv == c
	default:
		return false
	}
}
