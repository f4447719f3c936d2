package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadSubmissions returns a session's submissions ordered by seq.
// Library events are attached.
//
// Returns an empty slice (not nil) if the session has none.
func (s *Store) ReadSubmissions(ctx context.Context, sessionID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.session_id, s.seq, s.target_kind, s.target_name, s.final_state,
		       s.status, s.error_kind, s.message, s.exit_code, s.link_set,
		       e.name, e.kind, e.path, e.deps, e.revision
		FROM submissions s
		LEFT JOIN library_events e ON e.submission_id = s.id
		WHERE s.session_id = ?
		ORDER BY s.seq ASC, s.id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

func scanSubmission(rows *sql.Rows) (Submission, error) {
	var (
		sub      Submission
		exitCode sql.NullInt64
		linkSet  string
		evName   sql.NullString
		evKind   sql.NullString
		evPath   sql.NullString
		evDeps   sql.NullString
		evRev    sql.NullInt64
	)
	err := rows.Scan(
		&sub.ID, &sub.SessionID, &sub.Seq, &sub.TargetKind, &sub.TargetName, &sub.FinalState,
		&sub.Status, &sub.ErrorKind, &sub.Message, &exitCode, &linkSet,
		&evName, &evKind, &evPath, &evDeps, &evRev,
	)
	if err != nil {
		return Submission{}, fmt.Errorf("scan submission: %w", err)
	}

	if exitCode.Valid {
		code := int(exitCode.Int64)
		sub.ExitCode = &code
	}
	if sub.LinkSet, err = unmarshalNames(linkSet); err != nil {
		return Submission{}, fmt.Errorf("submission %s: link_set: %w", sub.ID, err)
	}

	if evName.Valid {
		deps, err := unmarshalNames(evDeps.String)
		if err != nil {
			return Submission{}, fmt.Errorf("submission %s: deps: %w", sub.ID, err)
		}
		sub.Library = &LibraryEvent{
			SubmissionID: sub.ID,
			Name:         evName.String,
			Kind:         evKind.String,
			Path:         evPath.String,
			Deps:         deps,
			Revision:     int(evRev.Int64),
		}
	}
	return sub, nil
}

// ReadLibraryHistory returns every registration of name within a session,
// oldest first.
func (s *Store) ReadLibraryHistory(ctx context.Context, sessionID, name string) ([]LibraryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.submission_id, e.name, e.kind, e.path, e.deps, e.revision
		FROM library_events e
		JOIN submissions s ON s.id = e.submission_id
		WHERE s.session_id = ? AND e.name = ?
		ORDER BY e.id ASC
	`, sessionID, name)
	if err != nil {
		return nil, fmt.Errorf("query library events: %w", err)
	}
	defer rows.Close()

	events := []LibraryEvent{}
	for rows.Next() {
		var (
			ev   LibraryEvent
			deps string
		)
		if err := rows.Scan(&ev.SubmissionID, &ev.Name, &ev.Kind, &ev.Path, &deps, &ev.Revision); err != nil {
			return nil, fmt.Errorf("scan library event: %w", err)
		}
		if ev.Deps, err = unmarshalNames(deps); err != nil {
			return nil, fmt.Errorf("library event %s: deps: %w", ev.Name, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library events: %w", err)
	}
	return events, nil
}
