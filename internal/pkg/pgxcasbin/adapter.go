package pgxcasbin

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

// Rules are stored in six value columns, matching Casbin's widest
// built-in request shape.
const ruleColumns = 6

const (
	defaultTableName = "casbin_rule"

	insertRowSQL = "insert into %[1]s (ptype, %[2]s) values ($1, %[3]s) on conflict (ptype, %[2]s) do nothing"
	deleteRowSQL = "delete from %[1]s where ptype = $1 and %[2]s"
	truncateSQL  = "truncate table %[1]s restart identity"
	selectAllSQL = "select ptype, %[2]s from %[1]s"
)

// Adapter stores and retrieves Casbin policies using pgx.
type Adapter struct {
	db        Commander
	tableName string
}

var (
	_ persist.Adapter             = (*Adapter)(nil)
	_ persist.ContextAdapter      = (*Adapter)(nil)
	_ persist.BatchAdapter        = (*Adapter)(nil)
	_ persist.ContextBatchAdapter = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTableName overrides the default policy table name.
func WithTableName(tableName string) Option {
	return func(a *Adapter) {
		a.tableName = lo.SnakeCase(tableName)
	}
}

// NewAdapter creates a pgx-backed Casbin adapter.
func NewAdapter(ctx context.Context, db interface {
	driver.Pinger
	Commander
}, opts ...Option) (*Adapter, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, errors.Join(ErrPingPool, err)
	}

	adapter := &Adapter{db: db, tableName: defaultTableName}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter, nil
}

// LoadPolicyCtx loads all policies into the model.
func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	query := fmt.Sprintf(selectAllSQL, a.tableName, valueColumns())

	rows, err := a.db.Query(ctx, query)
	if err != nil {
		return errors.Join(ErrSelectRows, err)
	}
	defer rows.Close()

	for rows.Next() {
		row := make([]sql.NullString, ruleColumns+1)
		scanArgs := make([]any, len(row))
		for i := range row {
			scanArgs[i] = &row[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return errors.Join(ErrScanRow, err)
		}

		line := make([]string, len(row))
		for i := range row {
			if row[i].Valid {
				line[i] = row[i].String
			}
		}
		if err := persist.LoadPolicyArray(trimTrailingEmpty(line), m); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SavePolicyCtx replaces all stored policies with the model's policies.
func (a *Adapter) SavePolicyCtx(ctx context.Context, m model.Model) (err error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrBeginTx, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = errors.Join(err, ErrRollbackTx, rbErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, fmt.Sprintf(truncateSQL, a.tableName)); err != nil {
		return errors.Join(ErrDeleteRows, err)
	}

	insertBatch, err := a.insertBatch(collectRules(m))
	if err != nil {
		return err
	}
	if insertBatch.Len() > 0 {
		if err = execBatch(tx.SendBatch(ctx, insertBatch), insertBatch.Len()); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Join(ErrCommitTx, err)
	}
	return nil
}

// AddPolicyCtx adds a single policy rule.
func (a *Adapter) AddPolicyCtx(ctx context.Context, _, ptype string, rule []string) error {
	normalized, err := normalizeRule(rule)
	if err != nil {
		return err
	}
	if ptype == "" {
		return ErrEmptyPtype
	}

	query := fmt.Sprintf(insertRowSQL, a.tableName, valueColumns(), valuePlaceholders())
	if _, err := a.db.Exec(ctx, query, lo.ToAnySlice(append([]string{ptype}, normalized...))...); err != nil {
		return errors.Join(ErrInsertRow, err)
	}
	return nil
}

// RemovePolicyCtx removes a single policy rule.
func (a *Adapter) RemovePolicyCtx(ctx context.Context, _, ptype string, rule []string) error {
	normalized, err := normalizeRule(rule)
	if err != nil {
		return err
	}
	if ptype == "" {
		return ErrEmptyPtype
	}

	query := fmt.Sprintf(deleteRowSQL, a.tableName, valueConditions())
	if _, err := a.db.Exec(ctx, query, lo.ToAnySlice(append([]string{ptype}, normalized...))...); err != nil {
		return errors.Join(ErrDeleteRows, err)
	}
	return nil
}

// RemoveFilteredPolicyCtx removes policy rules matching the field filter.
func (a *Adapter) RemoveFilteredPolicyCtx(ctx context.Context, _, ptype string, fieldIndex int, fieldValues ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if len(fieldValues) > ruleColumns-fieldIndex {
		return fmt.Errorf("%w: %d > %d", ErrRuleTooLong, len(fieldValues), ruleColumns-fieldIndex)
	}

	query := fmt.Sprintf("delete from %s where ptype = $1", a.tableName)
	args := []any{ptype}
	for i, value := range fieldValues {
		if value == "" {
			continue
		}
		query += " and v" + strconv.Itoa(i+fieldIndex) + " = $" + strconv.Itoa(len(args)+1)
		args = append(args, value)
	}

	if _, err := a.db.Exec(ctx, query, args...); err != nil {
		return errors.Join(ErrDeleteRows, err)
	}
	return nil
}

// AddPoliciesCtx adds multiple policy rules in one batch.
func (a *Adapter) AddPoliciesCtx(ctx context.Context, _, ptype string, rules [][]string) error {
	if len(rules) == 0 {
		return nil
	}
	if ptype == "" {
		return ErrEmptyPtype
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(insertRowSQL, a.tableName, valueColumns(), valuePlaceholders())
	for _, rule := range rules {
		normalized, err := normalizeRule(rule)
		if err != nil {
			return err
		}
		batch.Queue(query, lo.ToAnySlice(append([]string{ptype}, normalized...))...)
	}

	return execBatch(a.db.SendBatch(ctx, batch), batch.Len())
}

// RemovePoliciesCtx removes multiple policy rules in one batch.
func (a *Adapter) RemovePoliciesCtx(ctx context.Context, _, ptype string, rules [][]string) error {
	if len(rules) == 0 {
		return nil
	}
	if ptype == "" {
		return ErrEmptyPtype
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(deleteRowSQL, a.tableName, valueConditions())
	for _, rule := range rules {
		normalized, err := normalizeRule(rule)
		if err != nil {
			return err
		}
		batch.Queue(query, lo.ToAnySlice(append([]string{ptype}, normalized...))...)
	}

	return execBatch(a.db.SendBatch(ctx, batch), batch.Len())
}

// LoadPolicy loads all policies into the model.
func (a *Adapter) LoadPolicy(m model.Model) error {
	return a.LoadPolicyCtx(context.Background(), m)
}

// SavePolicy replaces all stored policies with the model's policies.
func (a *Adapter) SavePolicy(m model.Model) error {
	return a.SavePolicyCtx(context.Background(), m)
}

// AddPolicy adds a single policy rule.
func (a *Adapter) AddPolicy(sec, ptype string, rule []string) error {
	return a.AddPolicyCtx(context.Background(), sec, ptype, rule)
}

// RemovePolicy removes a single policy rule.
func (a *Adapter) RemovePolicy(sec, ptype string, rule []string) error {
	return a.RemovePolicyCtx(context.Background(), sec, ptype, rule)
}

// RemoveFilteredPolicy removes policy rules matching the field filter.
func (a *Adapter) RemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.RemoveFilteredPolicyCtx(context.Background(), sec, ptype, fieldIndex, fieldValues...)
}

// AddPolicies adds multiple policy rules.
func (a *Adapter) AddPolicies(sec, ptype string, rules [][]string) error {
	return a.AddPoliciesCtx(context.Background(), sec, ptype, rules)
}

// RemovePolicies removes multiple policy rules.
func (a *Adapter) RemovePolicies(sec, ptype string, rules [][]string) error {
	return a.RemovePoliciesCtx(context.Background(), sec, ptype, rules)
}

func (a *Adapter) insertBatch(rules [][]string) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	query := fmt.Sprintf(insertRowSQL, a.tableName, valueColumns(), valuePlaceholders())
	for _, rule := range rules {
		if len(rule) == 0 {
			continue
		}
		normalized, err := normalizeRule(rule[1:])
		if err != nil {
			return nil, err
		}
		batch.Queue(query, lo.ToAnySlice(append([]string{rule[0]}, normalized...))...)
	}
	return batch, nil
}

func execBatch(br pgx.BatchResults, n int) error {
	for range n {
		if _, err := br.Exec(); err != nil {
			closeErr := br.Close()
			if closeErr != nil {
				return errors.Join(ErrBatchExec, err, ErrBatchClose, closeErr)
			}
			return errors.Join(ErrBatchExec, err)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Join(ErrBatchClose, err)
	}
	return nil
}

func collectRules(m model.Model) [][]string {
	var rules [][]string
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				rules = append(rules, append([]string{ptype}, rule...))
			}
		}
	}
	return rules
}

func normalizeRule(rule []string) ([]string, error) {
	if len(rule) > ruleColumns {
		return nil, fmt.Errorf("%w: %d > %d", ErrRuleTooLong, len(rule), ruleColumns)
	}
	normalized := make([]string, ruleColumns)
	copy(normalized, rule)
	return normalized, nil
}

func valueColumns() string {
	return strings.Join(lo.Times(ruleColumns, func(i int) string {
		return "v" + strconv.Itoa(i)
	}), ",")
}

func valuePlaceholders() string {
	return strings.Join(lo.Times(ruleColumns, func(i int) string {
		return "$" + strconv.Itoa(i+2)
	}), ",")
}

func valueConditions() string {
	return strings.Join(lo.Times(ruleColumns, func(i int) string {
		return "v" + strconv.Itoa(i) + " = $" + strconv.Itoa(i+2)
	}), " and ")
}

func trimTrailingEmpty(rule []string) []string {
	last := len(rule) - 1
	for last >= 0 && rule[last] == "" {
		last--
	}
	return rule[:last+1]
}
