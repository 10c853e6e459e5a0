package domain

// ActionType tags an Action. The set of valid tags is closed; see ActionTypes.
type ActionType string

// App
const (
	ActionAppInit        ActionType = "APP_INIT"
	ActionAppLoading     ActionType = "APP_LOADING"
	ActionAppError       ActionType = "APP_ERROR"
	ActionAppThemeChange ActionType = "APP_THEME_CHANGE"
)

// User
const (
	ActionUserLogin  ActionType = "USER_LOGIN"
	ActionUserLogout ActionType = "USER_LOGOUT"
	ActionUserUpdate ActionType = "USER_UPDATE"
)

// Projects
const (
	ActionProjectsFetch ActionType = "PROJECTS_FETCH"
	ActionProjectSelect ActionType = "PROJECT_SELECT"
	ActionProjectAdd    ActionType = "PROJECT_ADD"
	ActionProjectUpdate ActionType = "PROJECT_UPDATE"
	ActionProjectDelete ActionType = "PROJECT_DELETE"
)

// Tasks
const (
	ActionTasksFetch ActionType = "TASKS_FETCH"
	ActionTaskSelect ActionType = "TASK_SELECT"
	ActionTaskAdd    ActionType = "TASK_ADD"
	ActionTaskUpdate ActionType = "TASK_UPDATE"
	ActionTaskDelete ActionType = "TASK_DELETE"
	ActionTaskMove   ActionType = "TASK_MOVE"
)

// Teams
const (
	ActionTeamsFetch ActionType = "TEAMS_FETCH"
	ActionTeamSelect ActionType = "TEAM_SELECT"
	ActionTeamAdd    ActionType = "TEAM_ADD"
	ActionTeamUpdate ActionType = "TEAM_UPDATE"
	ActionTeamDelete ActionType = "TEAM_DELETE"
)

// Notifications
const (
	ActionNotificationsFetch ActionType = "NOTIFICATIONS_FETCH"
	ActionNotificationAdd    ActionType = "NOTIFICATION_ADD"
	ActionNotificationRead   ActionType = "NOTIFICATION_READ"
	ActionNotificationsClear ActionType = "NOTIFICATIONS_CLEAR"
)

// UI
const (
	ActionUISidebarToggle  ActionType = "UI_SIDEBAR_TOGGLE"
	ActionUIModalOpen      ActionType = "UI_MODAL_OPEN"
	ActionUIModalClose     ActionType = "UI_MODAL_CLOSE"
	ActionUIViewModeChange ActionType = "UI_VIEW_MODE_CHANGE"
	ActionUIFilterChange   ActionType = "UI_FILTER_CHANGE"
	ActionUISortChange     ActionType = "UI_SORT_CHANGE"
)

// ActionTypes lists every valid ActionType in declaration order.
var ActionTypes = []ActionType{
	ActionAppInit, ActionAppLoading, ActionAppError, ActionAppThemeChange,
	ActionUserLogin, ActionUserLogout, ActionUserUpdate,
	ActionProjectsFetch, ActionProjectSelect, ActionProjectAdd, ActionProjectUpdate, ActionProjectDelete,
	ActionTasksFetch, ActionTaskSelect, ActionTaskAdd, ActionTaskUpdate, ActionTaskDelete, ActionTaskMove,
	ActionTeamsFetch, ActionTeamSelect, ActionTeamAdd, ActionTeamUpdate, ActionTeamDelete,
	ActionNotificationsFetch, ActionNotificationAdd, ActionNotificationRead, ActionNotificationsClear,
	ActionUISidebarToggle, ActionUIModalOpen, ActionUIModalClose, ActionUIViewModeChange,
	ActionUIFilterChange, ActionUISortChange,
}

var knownActionTypes = func() map[ActionType]struct{} {
	m := make(map[ActionType]struct{}, len(ActionTypes))
	for _, t := range ActionTypes {
		m[t] = struct{}{}
	}
	return m
}()

// Valid reports whether t belongs to the closed set of action types.
func (t ActionType) Valid() bool {
	_, ok := knownActionTypes[t]
	return ok
}

// Action is a message describing a state change. Treat it as immutable once dispatched.
type Action struct {
	Type    ActionType `json:"type"`
	Payload any        `json:"payload,omitempty"`
}

// NewAction is a small convenience for building actions inline.
func NewAction(t ActionType, payload any) Action {
	return Action{Type: t, Payload: payload}
}

// TaskMove is the payload of ActionTaskMove.
// Position is the index within the target status column; out of range appends.
type TaskMove struct {
	TaskID   string `json:"taskId" mapstructure:"taskId"`
	Status   string `json:"status" mapstructure:"status"`
	Position int    `json:"position" mapstructure:"position"`
}

// ModalOpen is the payload of ActionUIModalOpen.
type ModalOpen struct {
	Modal string `json:"modal" mapstructure:"modal"`
	Data  any    `json:"data,omitempty" mapstructure:"data"`
}
