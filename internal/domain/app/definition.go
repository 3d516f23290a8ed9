package app

import (
	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

// Requirements lists the resources loaded on initialization. Paths are
// relative to the application's location.
type Requirements struct {
	JS     resource.Manifest
	CSS    resource.Manifest
	Images resource.Manifest
}

// Definition is what a developer hands to Register.
type Definition struct {
	Settings map[string]any
	Require  Requirements
	// Hooks is a Hooks value or anything implementing the optional hook
	// interfaces.
	Hooks any
}

// DefaultSettings returns the settings every application starts from.
func DefaultSettings() map[string]any {
	return map[string]any{
		types.SettingStatusbar:               false,
		types.SettingStatusbarIcon:           false,
		types.SettingStatusbarHideHomeButton: false,
		types.SettingLeftButton:              false,
		types.SettingTerminateOnLost:         false,
	}
}

func mergeSettings(settings map[string]any) map[string]any {
	out := DefaultSettings()
	for k, v := range settings {
		out[k] = v
	}
	return out
}

// truthy mirrors the loose truth test the settings API exposes.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	case types.Value:
		switch x.Kind() {
		case types.KindNull:
			return false
		case types.KindString:
			return x.String() != ""
		default:
			return x.Float() != 0
		}
	default:
		return true
	}
}
