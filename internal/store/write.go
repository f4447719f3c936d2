package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// WriteSession records a session. Uses ON CONFLICT(id) DO NOTHING so a
// repeated write is harmless.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, artifact_dir, journal_version)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.ArtifactDir, sess.JournalVersion)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteSubmission records a submission and, if present, the library event
// it caused, in one transaction.
//
// The session must already exist (foreign key constraint).
func (s *Store) WriteSubmission(ctx context.Context, sub Submission) error {
	linkSet, err := marshalNames(sub.LinkSet)
	if err != nil {
		return fmt.Errorf("write submission: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write submission: begin: %w", err)
	}
	defer tx.Rollback()

	var exitCode sql.NullInt64
	if sub.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*sub.ExitCode), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions
		(id, session_id, seq, target_kind, target_name, final_state, status, error_kind, message, exit_code, link_set)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID,
		sub.SessionID,
		sub.Seq,
		sub.TargetKind,
		sub.TargetName,
		sub.FinalState,
		sub.Status,
		sub.ErrorKind,
		sub.Message,
		exitCode,
		linkSet,
	)
	if err != nil {
		return fmt.Errorf("write submission: %w", err)
	}

	if ev := sub.Library; ev != nil {
		deps, err := marshalNames(ev.Deps)
		if err != nil {
			return fmt.Errorf("write library event: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO library_events (submission_id, name, kind, path, deps, revision)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sub.ID, ev.Name, ev.Kind, ev.Path, deps, ev.Revision)
		if err != nil {
			return fmt.Errorf("write library event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write submission: commit: %w", err)
	}
	return nil
}

func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalNames(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
