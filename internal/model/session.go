// Package model defines the core domain models used throughout the application.
package model

// Stage is a discrete point in the reconciliation workflow.
type Stage string

// Workflow stages, in the only order they can be reached.
const (
	StageIdle              Stage = "idle"
	StageFilesUploaded     Stage = "files_uploaded"
	StageColumnsIdentified Stage = "columns_identified"
	StageMatchingCompleted Stage = "matching_completed"
)

var stageOrder = map[Stage]int{
	StageIdle:              0,
	StageFilesUploaded:     1,
	StageColumnsIdentified: 2,
	StageMatchingCompleted: 3,
}

// Stages lists every stage in workflow order.
func Stages() []Stage {
	return []Stage{StageIdle, StageFilesUploaded, StageColumnsIdentified, StageMatchingCompleted}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Reached reports whether s is at or beyond other.
func (s Stage) Reached(other Stage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// Label returns a human readable stage name.
func (s Stage) Label() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageFilesUploaded:
		return "Files Uploaded"
	case StageColumnsIdentified:
		return "Columns Identified"
	case StageMatchingCompleted:
		return "Matching Completed"
	default:
		return string(s)
	}
}

// Session is the mutable record of one interactive reconciliation run.
// A zero Session is the empty, Idle session.
type Session struct {
	LastError      error
	BackendHealthy *bool
	Upload         *UploadResult
	Columns        *ColumnInfo
	Matching       *MatchingResult
	SessionID      string
	HealthMessage  string
	Stage          Stage
}

// NewSession returns an empty session at the Idle stage.
func NewSession() Session {
	return Session{Stage: StageIdle}
}

// HasSessionID reports whether the backend assigned a session identifier.
func (s Session) HasSessionID() bool {
	return s.SessionID != ""
}

// Healthy reports whether the cached health check succeeded.
func (s Session) Healthy() bool {
	return s.BackendHealthy != nil && *s.BackendHealthy
}

// HealthKnown reports whether a health check has been recorded.
func (s Session) HealthKnown() bool {
	return s.BackendHealthy != nil
}

// Consistent checks that stage and session id presence agree: every stage past Idle
// requires a backend session id, and Idle never carries one.
func (s Session) Consistent() bool {
	if !s.Stage.Valid() {
		return false
	}
	if s.Stage == StageIdle {
		return s.SessionID == "" && s.Upload == nil && s.Columns == nil && s.Matching == nil
	}
	if s.SessionID == "" || s.Upload == nil {
		return false
	}
	if s.Stage.Reached(StageColumnsIdentified) && s.Columns == nil {
		return false
	}
	if s.Stage == StageMatchingCompleted && s.Matching == nil {
		return false
	}
	return true
}
