package service

import (
	"context"
	"fmt"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/model"
)

// DefaultProfileTable holds one row per user with the user's role
const DefaultProfileTable = "resv_profiles"

// TableReader starts table queries. *backend.Client implements it.
type TableReader interface {
	From(table string) *backend.QueryBuilder
}

// ProfileService reads the role stored in the profile table
type ProfileService struct {
	tables TableReader
	table  string
}

// NewProfileService creates a new profile service. An empty table name
// uses DefaultProfileTable.
func NewProfileService(tables TableReader, table string) *ProfileService {
	if table == "" {
		table = DefaultProfileTable
	}
	return &ProfileService{tables: tables, table: table}
}

// Role returns the user's role. A missing row fails with ErrProfileNotFound
// and an unrecognized value with ErrUnknownRole.
func (s *ProfileService) Role(ctx context.Context, userID string) (model.Role, error) {
	op := "select " + s.table
	var rec model.ProfileRecord
	err := s.tables.From(s.table).
		Columns("role").
		Eq("id", userID).
		Single().
		Select(ctx, &rec)
	if backend.IsNoRows(err) {
		return "", wrap(op, fmt.Errorf("%w: %v", ErrProfileNotFound, err))
	}
	if err != nil {
		return "", wrap(op, err)
	}
	role := model.Role(rec.Role)
	if !role.IsValid() {
		return "", wrap(op, fmt.Errorf("%w: %q", ErrUnknownRole, rec.Role))
	}
	return role, nil
}
