package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UserStore = (*UserStore)(nil)

const helpDeskRefSeparator = ","

// UserStore implements driven.UserStore using PostgreSQL. The store owns ID
// assignment and all timestamp stamping.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, person_identifier, closed_code, closed_code_updated_ms,
	help_desk_refs, created_ms, last_modified_ms, previous_user_id, next_user_id`

// Save creates or updates a user. On create (empty ID) a new UUID is assigned
// and Created stamped; every save stamps LastModified.
func (s *UserStore) Save(ctx context.Context, user *domain.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.NewString()
		user.Created = now
	}
	user.LastModified = now

	query := `
		INSERT INTO users (id, person_identifier, closed_code, closed_code_updated_ms,
			help_desk_refs, created_ms, last_modified_ms, previous_user_id, next_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			person_identifier = EXCLUDED.person_identifier,
			closed_code = EXCLUDED.closed_code,
			closed_code_updated_ms = EXCLUDED.closed_code_updated_ms,
			help_desk_refs = EXCLUDED.help_desk_refs,
			last_modified_ms = EXCLUDED.last_modified_ms,
			previous_user_id = EXCLUDED.previous_user_id,
			next_user_id = EXCLUDED.next_user_id
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.PersonIdentifier,
		nullIfEmpty(user.ClosedCode),
		NullMs(user.ClosedCodeLastUpdated),
		nullIfEmpty(joinRefs(user.HelpDeskReferences)),
		MsFromTime(user.Created),
		MsFromTime(user.LastModified),
		NullString(user.PreviousUserID),
		NullString(user.NextUserID),
	)
	return mapStoreError(err)
}

// Get retrieves a user by ID, including its login entries
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadLogins(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByPersonIdentifier retrieves the live (non-superseded) record for a
// person identifier
func (s *UserStore) GetByPersonIdentifier(ctx context.Context, pid string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE person_identifier = $1 AND next_user_id IS NULL`
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, pid))
	if err != nil {
		return nil, err
	}
	if err := s.loadLogins(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IdentifierInUse reports whether any record, superseded or not, carries the
// person identifier
func (s *UserStore) IdentifierInUse(ctx context.Context, pid string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE person_identifier = $1)`
	if err := s.db.QueryRowContext(ctx, query, pid).Scan(&exists); err != nil {
		return false, mapStoreError(err)
	}
	return exists, nil
}

// UpsertLogin records a login for the eID name. The unique index on
// (user_id, lower(eid_name)) makes the match case-insensitive; FirstLogin is
// written once, LastLogin moves on every conflict.
func (s *UserStore) UpsertLogin(ctx context.Context, userID, eidName string, at time.Time) (*domain.User, error) {
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrRecordNotFound
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_logins (user_id, eid_name, first_login_ms, last_login_ms)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (user_id, lower(eid_name)) DO UPDATE SET
				last_login_ms = EXCLUDED.last_login_ms
		`, userID, eidName, MsFromTime(at)); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE users SET last_modified_ms = $1 WHERE id = $2`,
			MsFromTime(time.Now()), userID,
		)
		return err
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return s.Get(ctx, userID)
}

// Supersede deactivates old with the reserved closed code, inserts the
// replacement and links the chain, all in one transaction.
func (s *UserStore) Supersede(ctx context.Context, old *domain.User, replacement *domain.User) (*domain.User, error) {
	now := time.Now()
	nowMs := MsFromTime(now)

	replacement.ID = uuid.NewString()
	replacement.PreviousUserID = &old.ID
	replacement.Created = now
	replacement.LastModified = now

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, person_identifier, closed_code, closed_code_updated_ms,
				help_desk_refs, created_ms, last_modified_ms, previous_user_id, next_user_id)
			VALUES ($1, $2, NULL, NULL, NULL, $3, $3, $4, NULL)
		`, replacement.ID, replacement.PersonIdentifier, nowMs, old.ID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE users SET closed_code = $1, closed_code_updated_ms = $2,
				next_user_id = $3, last_modified_ms = $2
			WHERE id = $4
		`, domain.ClosedCodeChangedPID, nowMs, replacement.ID, old.ID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return replacement, nil
}

// Delete removes a user record and its login entries
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapStoreError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Ping checks store connectivity. Failures surface as ErrStoreUnavailable so
// the pipeline can gate its retry passes.
func (s *UserStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *UserStore) scanUser(row rowScanner) (*domain.User, error) {
	var (
		user         domain.User
		closedCode   sql.NullString
		closedMs     sql.NullInt64
		helpDeskRefs sql.NullString
		createdMs    int64
		modifiedMs   int64
		previousID   sql.NullString
		nextID       sql.NullString
	)

	err := row.Scan(
		&user.ID,
		&user.PersonIdentifier,
		&closedCode,
		&closedMs,
		&helpDeskRefs,
		&createdMs,
		&modifiedMs,
		&previousID,
		&nextID,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, mapStoreError(err)
	}

	user.ClosedCode = closedCode.String
	user.ClosedCodeLastUpdated = TimePtrFromMs(closedMs)
	user.HelpDeskReferences = splitRefs(helpDeskRefs.String)
	user.Created = TimeFromMs(createdMs)
	user.LastModified = TimeFromMs(modifiedMs)
	user.PreviousUserID = StringPtr(previousID)
	user.NextUserID = StringPtr(nextID)
	return &user, nil
}

func (s *UserStore) loadLogins(ctx context.Context, user *domain.User) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT eid_name, first_login_ms, last_login_ms
		FROM user_logins
		WHERE user_id = $1
		ORDER BY first_login_ms
	`, user.ID)
	if err != nil {
		return mapStoreError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			login   domain.UserLogin
			firstMs int64
			lastMs  int64
		)
		if err := rows.Scan(&login.EIDName, &firstMs, &lastMs); err != nil {
			return err
		}
		login.FirstLogin = TimeFromMs(firstMs)
		login.LastLogin = TimeFromMs(lastMs)
		user.Logins = append(user.Logins, login)
	}
	return rows.Err()
}

// mapStoreError translates driver errors into domain errors. Unique-index
// violations become ErrDuplicateRecord; domain errors pass through untouched.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrDuplicateRecord) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrDuplicateRecord
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func joinRefs(refs []string) string {
	return strings.Join(refs, helpDeskRefSeparator)
}

func splitRefs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, helpDeskRefSeparator)
}
