package domain

import "time"

// Slice names of the state tree.
const (
	SliceApp           = "app"
	SliceUser          = "user"
	SliceProjects      = "projects"
	SliceTasks         = "tasks"
	SliceTeams         = "teams"
	SliceNotifications = "notifications"
	SliceUI            = "ui"
)

// SliceNames lists the slices every state tree carries.
var SliceNames = []string{
	SliceApp, SliceUser, SliceProjects, SliceTasks, SliceTeams, SliceNotifications, SliceUI,
}

// Entity is anything stored in a collection slice and addressed by ID.
type Entity interface {
	EntityID() string
}

// AppState tracks process-wide flags.
type AppState struct {
	Initialized bool   `json:"initialized"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
	Theme       string `json:"theme"` // light, dark or system
	Version     string `json:"version"`
}

// Preferences are the per-user UI preferences kept in the user slice.
type Preferences struct {
	Language      string `json:"language" mapstructure:"language"`
	Notifications bool   `json:"notifications" mapstructure:"notifications"`
	Sidebar       bool   `json:"sidebar" mapstructure:"sidebar"`
}

// UserState mirrors the session for views.
type UserState struct {
	IsAuthenticated bool        `json:"isAuthenticated"`
	Data            *User       `json:"data"`
	Preferences     Preferences `json:"preferences"`
}

// Project is a project document.
type Project struct {
	ID          string    `json:"id" mapstructure:"id"`
	Name        string    `json:"name" mapstructure:"name"`
	Description string    `json:"description,omitempty" mapstructure:"description"`
	Status      string    `json:"status,omitempty" mapstructure:"status"`
	TeamID      string    `json:"teamId,omitempty" mapstructure:"teamId"`
	Progress    int       `json:"progress" mapstructure:"progress"`
	DueDate     time.Time `json:"dueDate,omitzero" mapstructure:"dueDate"`
}

func (p Project) EntityID() string { return p.ID }

// ProjectFilters narrows the projects list.
type ProjectFilters struct {
	Status string `json:"status" mapstructure:"status"`
	Team   string `json:"team,omitempty" mapstructure:"team"`
}

// ProjectsState is the projects slice.
type ProjectsState struct {
	Data           []Project      `json:"data"`
	CurrentProject *Project       `json:"currentProject"`
	Loading        bool           `json:"loading"`
	Error          string         `json:"error,omitempty"`
	Filters        ProjectFilters `json:"filters"`
}

// Task is a task document.
type Task struct {
	ID          string    `json:"id" mapstructure:"id"`
	ProjectID   string    `json:"projectId,omitempty" mapstructure:"projectId"`
	Title       string    `json:"title" mapstructure:"title"`
	Description string    `json:"description,omitempty" mapstructure:"description"`
	Status      string    `json:"status" mapstructure:"status"`
	Priority    string    `json:"priority,omitempty" mapstructure:"priority"`
	AssigneeID  string    `json:"assigneeId,omitempty" mapstructure:"assigneeId"`
	DueDate     time.Time `json:"dueDate,omitzero" mapstructure:"dueDate"`
	Tags        []string  `json:"tags,omitempty" mapstructure:"tags"`
}

func (t Task) EntityID() string { return t.ID }

// TaskFilters narrows the task list. "all" disables a filter.
type TaskFilters struct {
	Status   string `json:"status" mapstructure:"status"`
	Priority string `json:"priority" mapstructure:"priority"`
	Assignee string `json:"assignee" mapstructure:"assignee"`
	DueDate  string `json:"dueDate" mapstructure:"dueDate"`
}

// Sort describes the ordering of a list.
type Sort struct {
	Field     string `json:"field" mapstructure:"field"`
	Direction string `json:"direction" mapstructure:"direction"`
}

// ViewMode selects how tasks are laid out.
type ViewMode string

const (
	ViewList     ViewMode = "list"
	ViewBoard    ViewMode = "board"
	ViewCalendar ViewMode = "calendar"
)

// TasksState is the tasks slice.
type TasksState struct {
	Data        []Task      `json:"data"`
	CurrentTask *Task       `json:"currentTask"`
	Loading     bool        `json:"loading"`
	Error       string      `json:"error,omitempty"`
	Filters     TaskFilters `json:"filters"`
	Sort        Sort        `json:"sort"`
	ViewMode    ViewMode    `json:"viewMode"`
}

// Team is a team document.
type Team struct {
	ID          string   `json:"id" mapstructure:"id"`
	Name        string   `json:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	MemberIDs   []string `json:"memberIds,omitempty" mapstructure:"memberIds"`
}

func (t Team) EntityID() string { return t.ID }

// TeamsState is the teams slice.
type TeamsState struct {
	Data        []Team `json:"data"`
	CurrentTeam *Team  `json:"currentTeam"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
}

// Notification is an in-app notification.
type Notification struct {
	ID        string    `json:"id" mapstructure:"id"`
	Title     string    `json:"title" mapstructure:"title"`
	Message   string    `json:"message,omitempty" mapstructure:"message"`
	Type      string    `json:"type,omitempty" mapstructure:"type"`
	Read      bool      `json:"read" mapstructure:"read"`
	CreatedAt time.Time `json:"createdAt,omitzero" mapstructure:"createdAt"`
}

func (n Notification) EntityID() string { return n.ID }

// NotificationsState is the notifications slice.
type NotificationsState struct {
	Data        []Notification `json:"data"`
	UnreadCount int            `json:"unreadCount"`
	Loading     bool           `json:"loading"`
	Error       string         `json:"error,omitempty"`
}

// Tour is the onboarding tour progress.
type Tour struct {
	Active    bool `json:"active"`
	Step      int  `json:"step"`
	Completed bool `json:"completed"`
}

// UIState holds transient interface state. Navigation closes any open modal.
type UIState struct {
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
	CurrentModal     string `json:"currentModal,omitempty"`
	ModalData        any    `json:"modalData,omitempty"`
	IsMobile         bool   `json:"isMobile"`
	IsFocusMode      bool   `json:"isFocusMode"`
	SearchQuery      string `json:"searchQuery"`
	Tour             Tour   `json:"tour"`
	CurrentPage      string `json:"currentPage"`
}
