package model

import (
	"strings"
	"time"
)

// UserHandle identifies one user context (primary user, managed profile, ...) on the device.
type UserHandle int

// NoUser marks an unknown caller user.
const NoUser UserHandle = -10000

// IntentFlag is a bit set of launch flags carried by an Intent.
type IntentFlag int

const (
	FlagNewTask   IntentFlag = 1 << 0
	FlagClearTask IntentFlag = 1 << 1
)

const (
	// ActionSettings opens the settings home screen.
	ActionSettings = "android.settings.SETTINGS"
	// ExtraShowMenu asks the launched screen to show the navigation menu.
	ExtraShowMenu = "show_drawer_menu"
)

type Intent struct {
	Action    string
	Component *ComponentName
	Extras    map[string]string
	Flags     IntentFlag
}

// Clone returns a deep copy; callers may mutate the result freely.
func (i Intent) Clone() Intent {
	out := Intent{Action: i.Action, Flags: i.Flags}
	if i.Component != nil {
		cn := *i.Component
		out.Component = &cn
	}
	if len(i.Extras) > 0 {
		out.Extras = make(map[string]string, len(i.Extras))
		for k, v := range i.Extras {
			out.Extras[k] = v
		}
	}
	return out
}

func (i Intent) WithExtra(key, value string) Intent {
	out := i.Clone()
	if out.Extras == nil {
		out.Extras = map[string]string{}
	}
	out.Extras[key] = value
	return out
}

func (i Intent) HasComponent() bool {
	return i.Component != nil && !i.Component.IsZero()
}

// ComponentPackage returns the target package, or "" for action-only intents.
func (i Intent) ComponentPackage() string {
	if !i.HasComponent() {
		return ""
	}
	return i.Component.Package
}

// Tile is a declared navigation target contributed by some package.
type Tile struct {
	Key           string
	Title         string
	Summary       string
	Icon          string
	Intent        *Intent
	Fragment      string
	IntentAction  string
	Priority      int
	OwningPackage string
	UserHandles   []UserHandle
}

// Destination is either FragmentNavigate or IntentLaunch.
type Destination interface {
	destination()
}

type FragmentNavigate struct {
	ClassName string
}

type IntentLaunch struct {
	Intent Intent
}

func (FragmentNavigate) destination() {}
func (IntentLaunch) destination()     {}

// Destination returns nil when the tile declares neither a fragment nor an intent.
func (t Tile) Destination() Destination {
	if t.Fragment != "" {
		return FragmentNavigate{ClassName: t.Fragment}
	}
	if t.Intent != nil {
		return IntentLaunch{Intent: t.Intent.Clone()}
	}
	return nil
}

// Clone returns a copy of t that shares no memory with it.
func (t Tile) Clone() Tile {
	out := t
	if t.Intent != nil {
		intent := t.Intent.Clone()
		out.Intent = &intent
	}
	if t.UserHandles != nil {
		out.UserHandles = append([]UserHandle(nil), t.UserHandles...)
	}
	return out
}

// WithUserHandles returns a deep copy of t whose eligible users are replaced by users.
func (t Tile) WithUserHandles(users ...UserHandle) Tile {
	out := t.Clone()
	out.UserHandles = append([]UserHandle(nil), users...)
	return out
}

// NormalizeCategoryKey is the canonical form used to store and look up category keys.
func NormalizeCategoryKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

type Category struct {
	Key   string
	Title string
	Tiles []Tile
}

// LaunchRecord is one persisted activation log entry.
type LaunchRecord struct {
	LaunchID   string
	Component  string
	RecordedAt time.Time
}

// Profile is a user context known to the device.
type Profile struct {
	User UserHandle
	Name string
}

// Error codes surfaced by the CLI in JSON output.
const (
	ErrCodeMissingDestination    = "E_MISSING_DESTINATION"
	ErrCodeUnresolvableComponent = "E_UNRESOLVABLE_COMPONENT"
	ErrCodeInvalidSelection      = "E_INVALID_SELECTION"
	ErrCodeNotFound              = "E_NOT_FOUND"
	ErrCodeUnsupportedSchema     = "E_UNSUPPORTED_SCHEMA"
	ErrCodeUsage                 = "E_USAGE"
	ErrCodeInternal              = "E_INTERNAL"
)
