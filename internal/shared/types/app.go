package types

// State represents application lifecycle states
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateCreated       State = "created"
	StateFocused       State = "focused"
	StateLost          State = "lost"
	StateTerminated    State = "terminated"
)

// Region is a market region code reported by the head unit
type Region string

const (
	RegionNorthAmerica Region = "na"
	RegionEurope       Region = "eu"
	RegionJapan        Region = "jp"

	DefaultRegion = RegionNorthAmerica
)

// Regions maps every known region code to its display name
var Regions = map[Region]string{
	RegionNorthAmerica: "North America",
	RegionEurope:       "Europe",
	RegionJapan:        "Japan",
}

// ParseRegion validates a region code (case-insensitive)
func ParseRegion(code string) (Region, bool) {
	r := Region(lower(code))
	_, ok := Regions[r]
	return r, ok
}

// Recognized application setting keys
const (
	SettingTitle                   = "title"
	SettingStatusbar               = "statusbar"
	SettingStatusbarTitle          = "statusbarTitle"
	SettingStatusbarIcon           = "statusbarIcon"
	SettingStatusbarHideHomeButton = "statusbarHideHomeButton"
	SettingLeftButton              = "leftButton"
	SettingTerminateOnLost         = "terminateOnLost"
)

// MenuItem is a host menu entry for one installed application
type MenuItem struct {
	AppData   MenuAppData `json:"appData"`
	Title     string      `json:"title"`
	Text1ID   string      `json:"text1Id"`
	Disabled  bool        `json:"disabled"`
	ItemStyle string      `json:"itemStyle"`
	HasCaret  bool        `json:"hasCaret"`
}

// MenuAppData carries the event the host fires when a menu item is chosen
type MenuAppData struct {
	AppName   string `json:"appName"`
	IsVisible bool   `json:"isVisible"`
	MmuiEvent string `json:"mmuiEvent"`
	AppID     string `json:"appId"`
}

// AppInfo is a read-only view of an application instance
type AppInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	State       State  `json:"state"`
	Region      Region `json:"region"`
	Initialized bool   `json:"initialized"`
	Active      bool   `json:"active"`
}

// Stats contains lifecycle manager statistics
type Stats struct {
	TotalApps       int     `json:"total_apps"`
	InitializedApps int     `json:"initialized_apps"`
	ActiveAppID     *string `json:"active_app_id,omitempty"`
}
