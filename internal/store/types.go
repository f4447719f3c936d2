package store

// Session is one cppcell session.
type Session struct {
	ID             string
	ArtifactDir    string
	JournalVersion string
}

// Submission is the journaled outcome of one submission.
type Submission struct {
	ID         string
	SessionID  string
	Seq        int64
	TargetKind string
	TargetName string
	FinalState string
	Status     string
	ErrorKind  string
	Message    string
	ExitCode   *int
	LinkSet    []string

	// Library is the registration the submission caused, if any.
	Library *LibraryEvent
}

// Library event kinds.
const (
	KindHeader = "header"
	KindBinary = "binary"
)

// LibraryEvent records one registry mutation.
type LibraryEvent struct {
	SubmissionID string
	Name         string
	Kind         string
	Path         string
	Deps         []string
	Revision     int
}
