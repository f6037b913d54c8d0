package dashboard

// Notification severities.
const (
	SeveritySuccess = "is-success"
	SeverityDanger  = "is-danger"
)

const hiddenNotificationClass = "notification is-hidden"

// ShowNotification reveals el with message styled by severity.
func ShowNotification(el Element, message, severity string) {
	if el == nil {
		return
	}
	el.SetClass("notification " + severity)
	el.SetText(message)
}

// HideNotification hides el and clears its text.
func HideNotification(el Element) {
	if el == nil {
		return
	}
	el.SetClass(hiddenNotificationClass)
	el.SetText("")
}
