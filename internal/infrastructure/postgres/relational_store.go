package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

// keyColumn is the conflict target for every upsert.
const keyColumn = "id"

// RelationalStore implements repository.RelationalStore on a pgx pool.
type RelationalStore struct {
	pool *pgxpool.Pool
}

func NewRelationalStore(pool *pgxpool.Pool) *RelationalStore {
	return &RelationalStore{pool: pool}
}

func (s *RelationalStore) SelectOne(ctx context.Context, table string, filter repository.Filter) (repository.Row, error) {
	query, args, err := buildSelectOne(table, filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return repository.Row(row), nil
}

// Upsert inserts row or updates only the columns it carries when the key
// already exists.
func (s *RelationalStore) Upsert(ctx context.Context, table string, row repository.Row) error {
	query, args, err := buildUpsert(table, row)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func buildSelectOne(table string, filter repository.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, errors.New("select one: empty filter")
	}
	cols := sortedKeys(filter)
	where := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		where[i] = ident(c) + " = $" + strconv.Itoa(i+1)
		args[i] = filter[c]
	}
	q := "SELECT * FROM " + ident(table) + " WHERE " + strings.Join(where, " AND ") + " LIMIT 2"
	return q, args, nil
}

func buildUpsert(table string, row repository.Row) (string, []any, error) {
	if _, ok := row[keyColumn]; !ok {
		return "", nil, fmt.Errorf("upsert %s: missing %s", table, keyColumn)
	}
	rest := make([]string, 0, len(row)-1)
	for _, c := range sortedKeys(row) {
		if c != keyColumn {
			rest = append(rest, c)
		}
	}
	cols := append([]string{keyColumn}, rest...)

	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = ident(c)
		params[i] = "$" + strconv.Itoa(i+1)
		args[i] = row[c]
	}

	var b strings.Builder
	b.WriteString("INSERT INTO " + ident(table))
	b.WriteString(" (" + strings.Join(names, ", ") + ")")
	b.WriteString(" VALUES (" + strings.Join(params, ", ") + ")")
	b.WriteString(" ON CONFLICT (" + ident(keyColumn) + ")")
	if len(rest) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String(), args, nil
	}
	sets := make([]string, len(rest))
	for i, c := range rest {
		sets[i] = ident(c) + " = EXCLUDED." + ident(c)
	}
	b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	return b.String(), args, nil
}

// ident quotes a possibly schema-qualified name.
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ repository.RelationalStore = (*RelationalStore)(nil)
