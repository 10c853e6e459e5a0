package reducers

import (
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/store"
)

// AppVersion is reported in the app slice.
const AppVersion = "1.0.0"

// InitialState returns a fresh initial tree. Every call allocates new slices.
func InitialState() store.State {
	return store.NewState(map[string]any{
		domain.SliceApp: &domain.AppState{
			Theme:   "system",
			Version: AppVersion,
		},
		domain.SliceUser: &domain.UserState{
			Preferences: domain.Preferences{Language: "en", Notifications: true, Sidebar: true},
		},
		domain.SliceProjects: &domain.ProjectsState{
			Data:    []domain.Project{},
			Filters: domain.ProjectFilters{Status: "all"},
		},
		domain.SliceTasks: &domain.TasksState{
			Data:     []domain.Task{},
			Filters:  domain.TaskFilters{Status: "all", Priority: "all", Assignee: "all", DueDate: "all"},
			Sort:     domain.Sort{Field: "dueDate", Direction: "asc"},
			ViewMode: domain.ViewList,
		},
		domain.SliceTeams:         &domain.TeamsState{Data: []domain.Team{}},
		domain.SliceNotifications: &domain.NotificationsState{Data: []domain.Notification{}},
		domain.SliceUI:            &domain.UIState{CurrentPage: "dashboard"},
	})
}

// Reducers maps slice names to their reducers.
func Reducers() map[string]store.Reducer {
	return map[string]store.Reducer{
		domain.SliceApp:           store.Typed(App),
		domain.SliceUser:          store.Typed(User),
		domain.SliceProjects:      store.Typed(Projects),
		domain.SliceTasks:         store.Typed(Tasks),
		domain.SliceTeams:         store.Typed(Teams),
		domain.SliceNotifications: store.Typed(Notifications),
		domain.SliceUI:            store.Typed(UI),
	}
}

// RegisterAll installs every slice reducer on s in slice order.
func RegisterAll(s *store.Store) {
	all := Reducers()
	for _, name := range domain.SliceNames {
		s.RegisterReducer(name, all[name])
	}
}

// App reduces the app slice.
func App(s *domain.AppState, a domain.Action) *domain.AppState {
	switch a.Type {
	case domain.ActionAppInit:
		next := *s
		next.Initialized, next.Loading, next.Error = true, false, ""
		return &next
	case domain.ActionAppLoading:
		next := *s
		next.Loading = must(decode[bool](a.Payload))
		return &next
	case domain.ActionAppError:
		next := *s
		next.Error, next.Loading = errorText(a.Payload), false
		return &next
	case domain.ActionAppThemeChange:
		next := *s
		next.Theme = must(decode[string](a.Payload))
		return &next
	}
	return s
}

// User reduces the user slice.
func User(s *domain.UserState, a domain.Action) *domain.UserState {
	switch a.Type {
	case domain.ActionUserLogin:
		next := *s
		next.IsAuthenticated = true
		next.Data = must(domain.DecodeUser(a.Payload))
		return &next
	case domain.ActionUserLogout:
		next := *s
		next.IsAuthenticated, next.Data = false, nil
		return &next
	case domain.ActionUserUpdate:
		next := *s
		next.Data = must(domain.MergeUser(s.Data, a.Payload))
		return &next
	}
	return s
}

// Projects reduces the projects slice.
func Projects(s *domain.ProjectsState, a domain.Action) *domain.ProjectsState {
	switch a.Type {
	case domain.ActionProjectsFetch:
		next := *s
		next.Data = must(decodeList[domain.Project](a.Payload))
		next.Loading, next.Error = false, ""
		return &next
	case domain.ActionProjectSelect:
		next := *s
		next.CurrentProject = selectEntity[domain.Project](a.Payload)
		return &next
	case domain.ActionProjectAdd:
		next := *s
		next.Data = appendEntity[domain.Project](s.Data, a.Payload)
		return &next
	case domain.ActionProjectUpdate:
		next := *s
		next.Data, next.CurrentProject = updateByID(s.Data, s.CurrentProject, a.Payload)
		return &next
	case domain.ActionProjectDelete:
		next := *s
		next.Data, next.CurrentProject = deleteByID(s.Data, s.CurrentProject, a.Payload)
		return &next
	}
	return s
}

// Tasks reduces the tasks slice. It also owns the task list view settings.
func Tasks(s *domain.TasksState, a domain.Action) *domain.TasksState {
	switch a.Type {
	case domain.ActionTasksFetch:
		next := *s
		next.Data = must(decodeList[domain.Task](a.Payload))
		next.Loading, next.Error = false, ""
		return &next
	case domain.ActionTaskSelect:
		next := *s
		next.CurrentTask = selectEntity[domain.Task](a.Payload)
		return &next
	case domain.ActionTaskAdd:
		next := *s
		next.Data = appendEntity[domain.Task](s.Data, a.Payload)
		return &next
	case domain.ActionTaskUpdate:
		next := *s
		next.Data, next.CurrentTask = updateByID(s.Data, s.CurrentTask, a.Payload)
		return &next
	case domain.ActionTaskDelete:
		next := *s
		next.Data, next.CurrentTask = deleteByID(s.Data, s.CurrentTask, a.Payload)
		return &next
	case domain.ActionTaskMove:
		return moveTask(s, must(decode[domain.TaskMove](a.Payload)))
	case domain.ActionUIViewModeChange:
		next := *s
		next.ViewMode = domain.ViewMode(must(decode[string](a.Payload)))
		return &next
	case domain.ActionUIFilterChange:
		next := *s
		next.Filters = must(patch(s.Filters, a.Payload))
		return &next
	case domain.ActionUISortChange:
		next := *s
		next.Sort = must(decode[domain.Sort](a.Payload))
		return &next
	}
	return s
}

// moveTask sets the task's status and reinserts it at position counted from
// the first task already carrying that status. An empty column or an out of
// range position appends. An unknown task leaves the slice untouched.
func moveTask(s *domain.TasksState, mv domain.TaskMove) *domain.TasksState {
	idx := -1
	for i, t := range s.Data {
		if t.ID == mv.TaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}

	moved := s.Data[idx]
	moved.Status = mv.Status

	rest := make([]domain.Task, 0, len(s.Data))
	rest = append(rest, s.Data[:idx]...)
	rest = append(rest, s.Data[idx+1:]...)

	first, column := -1, 0
	for i, t := range rest {
		if t.Status != mv.Status {
			continue
		}
		if first < 0 {
			first = i
		}
		column++
	}

	var data []domain.Task
	if first >= 0 && mv.Position >= 0 && mv.Position <= column {
		at := first + mv.Position
		data = make([]domain.Task, 0, len(s.Data))
		data = append(data, rest[:at]...)
		data = append(data, moved)
		data = append(data, rest[at:]...)
	} else {
		data = append(rest, moved)
	}

	next := *s
	next.Data = data
	if s.CurrentTask != nil && s.CurrentTask.ID == mv.TaskID {
		next.CurrentTask = &moved
	}
	return &next
}

// Teams reduces the teams slice.
func Teams(s *domain.TeamsState, a domain.Action) *domain.TeamsState {
	switch a.Type {
	case domain.ActionTeamsFetch:
		next := *s
		next.Data = must(decodeList[domain.Team](a.Payload))
		next.Loading, next.Error = false, ""
		return &next
	case domain.ActionTeamSelect:
		next := *s
		next.CurrentTeam = selectEntity[domain.Team](a.Payload)
		return &next
	case domain.ActionTeamAdd:
		next := *s
		next.Data = appendEntity[domain.Team](s.Data, a.Payload)
		return &next
	case domain.ActionTeamUpdate:
		next := *s
		next.Data, next.CurrentTeam = updateByID(s.Data, s.CurrentTeam, a.Payload)
		return &next
	case domain.ActionTeamDelete:
		next := *s
		next.Data, next.CurrentTeam = deleteByID(s.Data, s.CurrentTeam, a.Payload)
		return &next
	}
	return s
}

// Notifications reduces the notifications slice.
func Notifications(s *domain.NotificationsState, a domain.Action) *domain.NotificationsState {
	switch a.Type {
	case domain.ActionNotificationsFetch:
		next := *s
		next.Data = must(decodeList[domain.Notification](a.Payload))
		next.UnreadCount = 0
		for _, n := range next.Data {
			if !n.Read {
				next.UnreadCount++
			}
		}
		next.Loading, next.Error = false, ""
		return &next
	case domain.ActionNotificationAdd:
		n := must(decode[domain.Notification](a.Payload))
		next := *s
		next.Data = append([]domain.Notification{n}, s.Data...)
		if !n.Read {
			next.UnreadCount++
		}
		return &next
	case domain.ActionNotificationRead:
		id := idOf(a.Payload)
		next := *s
		next.Data = make([]domain.Notification, len(s.Data))
		for i, n := range s.Data {
			if n.ID == id {
				n.Read = true
			}
			next.Data[i] = n
		}
		next.UnreadCount = max(0, s.UnreadCount-1)
		return &next
	case domain.ActionNotificationsClear:
		next := *s
		next.Data = make([]domain.Notification, len(s.Data))
		for i, n := range s.Data {
			n.Read = true
			next.Data[i] = n
		}
		next.UnreadCount = 0
		return &next
	}
	return s
}

// UI reduces the ui slice.
func UI(s *domain.UIState, a domain.Action) *domain.UIState {
	switch a.Type {
	case domain.ActionUISidebarToggle:
		next := *s
		if a.Payload != nil {
			next.SidebarCollapsed = must(decode[bool](a.Payload))
		} else {
			next.SidebarCollapsed = !s.SidebarCollapsed
		}
		return &next
	case domain.ActionUIModalOpen:
		m := must(decode[domain.ModalOpen](a.Payload))
		next := *s
		next.CurrentModal, next.ModalData = m.Modal, m.Data
		return &next
	case domain.ActionUIModalClose:
		if s.CurrentModal == "" && s.ModalData == nil {
			return s
		}
		next := *s
		next.CurrentModal, next.ModalData = "", nil
		return &next
	}
	return s
}
