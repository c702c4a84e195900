package tui

type action int

const (
	actionNone action = iota
	actionHealth
	actionUpload
	actionIdentify
	actionMatch
	actionExport
)

// progressText is shown next to the spinner while an action runs.
func (a action) progressText() string {
	switch a {
	case actionHealth:
		return "Checking backend connection..."
	case actionUpload:
		return "Uploading and preprocessing files..."
	case actionIdentify:
		return "Identifying key columns with AI..."
	case actionMatch:
		return "Running AI reconciliation... This may take a few minutes."
	case actionExport:
		return "Exporting results..."
	default:
		return ""
	}
}

// operationDoneMsg reports the outcome of a background action.
type operationDoneMsg struct {
	err    error
	output string
	action action
	seq    int
}
