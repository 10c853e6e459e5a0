package ports

// NoticeKind classifies a user-facing notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notifier shows short, non-blocking messages to the user.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind NoticeKind, message string)

// Notify calls f.
func (f NotifierFunc) Notify(kind NoticeKind, message string) { f(kind, message) }

// NopNotifier discards every notice.
var NopNotifier Notifier = NotifierFunc(func(NoticeKind, string) {})
