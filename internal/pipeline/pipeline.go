// Package pipeline orchestrates a single CRUD operation: it assembles
// the query plan, validates the record, fires the before/after trigger
// phases around the adapter call, and guarantees that the transaction
// scope, trigger frames, and environment scopes are released on every
// exit path.
// See docs/ARCHITECTURE.md § Operation Pipeline.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pantrydb/pantry/internal/env"
	"github.com/pantrydb/pantry/internal/query"
	"github.com/pantrydb/pantry/internal/trigger"
	"github.com/pantrydb/pantry/pkg/types"
)

// ErrImmutableKey rejects a patch that would change a primary key.
var ErrImmutableKey = errors.New("primary key cannot be updated")

// Runner carries the collaborators shared by every chain: schema,
// adapter, validator, trigger registry, renderer, and statement cache.
// A Runner is read-only after setup and safe for concurrent chains.
type Runner struct {
	Schema    types.SchemaProvider
	Adapter   types.Adapter
	Validator types.Validator
	Registry  *trigger.Registry
	Renderer  query.Renderer
	Cache     *query.Cache
}

// Chain is one logical call chain: its environment context, its trigger
// stack, and the session hooks use for nested operations. A chain is
// confined to one goroutine.
type Chain struct {
	Env     *env.Context
	Stack   *trigger.Stack
	Session types.Session

	// Skips counts trigger fires suppressed by the re-entrancy guard
	// on this chain.
	Skips int
}

// Result reports how a mutation completed.
type Result struct {
	// Key is the primary key value the operation used (insert only;
	// nil for integer keys left to autoincrement).
	Key any

	// Reentrant is set when the guard skipped both trigger phases
	// because an identical frame was already active on the chain.
	Reentrant bool
}

func opErr(table string, stage types.Stage, err error) error {
	return &types.OpError{Table: table, Stage: stage, Err: err}
}

func (r *Runner) adapterErr(table, op string, err error) error {
	return opErr(table, types.StageExecuting, &types.AdapterError{Op: op, Err: err})
}

// newID generates a UUID v7 string, the default text primary key.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func flag(e *env.Context, key string) bool {
	v, ok := e.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Insert runs the insert pipeline for rec. A missing text primary key
// is assigned a generated UUID during Building, before any trigger
// fires, so the record's re-entrancy identity is stable.
func (r *Runner) Insert(ch *Chain, table string, rec types.Record) (*Result, error) {
	scope := ch.Env.Push()
	defer scope.Release()

	// Building.
	def, err := r.Schema.Table(table)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	res := &Result{}
	identityKey := ""
	pkCol, _ := def.Column(def.PrimaryKey)
	if rec.Has(def.PrimaryKey) {
		res.Key = rec[def.PrimaryKey]
		identityKey = trigger.KeyString(res.Key)
	} else if pkCol.Type == types.TypeText {
		id := newID()
		rec[def.PrimaryKey] = id
		res.Key = id
		identityKey = id
	} else {
		// Autoincrement key: synthetic identity for the in-flight record.
		identityKey = trigger.PendingKey(newID())
	}

	id := trigger.Identity{Table: table, Op: trigger.OpInsert, Key: identityKey}
	return res, r.run(ch, def, id, types.OnInserting, types.OnInserted, rec, true, res, func() (*query.Plan, map[string]any) {
		return insertPlan(def, rec)
	})
}

// Update fetches the current record, merges patch over it, and runs the
// update pipeline on the merged record. Hooks fired for onUpdating see
// and may mutate the full merged record.
func (r *Runner) Update(ch *Chain, table string, key any, patch types.Record) (*Result, error) {
	scope := ch.Env.Push()
	defer scope.Release()

	def, err := r.Schema.Table(table)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	if v, ok := patch[def.PrimaryKey]; ok && trigger.KeyString(v) != trigger.KeyString(key) {
		return nil, opErr(table, types.StageBuilding, ErrImmutableKey)
	}
	current, err := r.fetchByKey(def, key)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	merged := current.Clone()
	for k, v := range patch {
		merged[k] = v
	}

	res := &Result{Key: key}
	id := trigger.Identity{Table: table, Op: trigger.OpUpdate, Key: trigger.KeyString(key)}
	return res, r.run(ch, def, id, types.OnUpdating, types.OnUpdated, merged, true, res, func() (*query.Plan, map[string]any) {
		return updatePlan(def, key, merged)
	})
}

// Delete fetches the record (onDeleting hooks receive it) and runs the
// delete pipeline. Schema validation does not apply to deletes.
func (r *Runner) Delete(ch *Chain, table string, key any) (*Result, error) {
	scope := ch.Env.Push()
	defer scope.Release()

	def, err := r.Schema.Table(table)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	rec, err := r.fetchByKey(def, key)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}

	res := &Result{Key: key}
	id := trigger.Identity{Table: table, Op: trigger.OpDelete, Key: trigger.KeyString(key)}
	return res, r.run(ch, def, id, types.OnDeleting, types.OnDeleted, rec, false, res, func() (*query.Plan, map[string]any) {
		return deletePlan(def, key)
	})
}

// run drives the stages for one mutation. The plan is built after the
// "-ing" phase so hook mutations of the record are reflected in the
// executed statement. The trigger frame is pushed before the "-ing"
// phase and popped unconditionally when the operation completes.
func (r *Runner) run(ch *Chain, def types.TableDef, id trigger.Identity, before, after types.Phase, rec types.Record, validated bool, res *Result, build func() (*query.Plan, map[string]any)) error {
	table := def.Name

	// Validating.
	if validated && !flag(ch.Env, types.EnvSkipValidation) {
		if err := r.Validator.Validate(def, rec); err != nil {
			return opErr(table, types.StageValidating, err)
		}
	}

	// BeforeTriggers. A blocked push means an identical fire is already
	// active on this chain: skip both phases, still execute.
	frame, pushed := ch.Stack.Push(id)
	defer frame.Pop()
	skipTriggers := flag(ch.Env, types.EnvSkipTriggers)
	if !pushed {
		res.Reentrant = true
		ch.Skips++
	}

	if pushed && !skipTriggers {
		fc := &types.FireContext{Table: table, Phase: before, Env: ch.Env, Session: ch.Session}
		if err := r.Registry.Fire(fc, rec); err != nil {
			return opErr(table, types.StageBeforeTriggers, err)
		}
	}

	// Executing. The transaction scope closes before the "-ed" phase:
	// post-commit hooks are observational, not transactional.
	plan, params := build()
	if err := r.execute(plan, params); err != nil {
		return err
	}

	// AfterTriggers. Failures here do not undo the committed write; the
	// error is surfaced with its stage so callers can tell.
	if pushed && !skipTriggers {
		fc := &types.FireContext{Table: table, Phase: after, Env: ch.Env, Session: ch.Session}
		if err := r.Registry.Fire(fc, rec); err != nil {
			return opErr(table, types.StageAfterTriggers, err)
		}
	}
	return nil
}

// execute renders the plan through the statement cache and runs it in
// its own transaction scope, committing on success and rolling back on
// any adapter failure.
func (r *Runner) execute(plan *query.Plan, params map[string]any) error {
	table := plan.Table
	st, err := r.Cache.Render(r.Renderer, plan)
	if err != nil {
		return opErr(table, types.StageBuilding, err)
	}
	args, err := st.Bind(params)
	if err != nil {
		return opErr(table, types.StageExecuting, err)
	}

	tx, err := r.Adapter.Begin()
	if err != nil {
		return r.adapterErr(table, "begin", err)
	}
	if _, err := tx.Exec(st.SQL, args); err != nil {
		_ = tx.Rollback()
		return r.adapterErr(table, "exec", err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return r.adapterErr(table, "commit", err)
	}
	return nil
}

// Get returns the record with the given primary key.
func (r *Runner) Get(table string, key any) (types.Record, error) {
	def, err := r.Schema.Table(table)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	rec, err := r.fetchByKey(def, key)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, opErr(table, types.StageExecuting, err)
	}
	return rec, nil
}

// Find compiles notation against the table and returns matching rows.
func (r *Runner) Find(table, notation string, params map[string]any) ([]types.Record, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	plan, _, err := query.Compile(r.Schema, table, notation, names)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	return r.query(plan, params)
}

// fetchByKey reads one record by primary key. Returns types.ErrNotFound
// when no row matches.
func (r *Runner) fetchByKey(def types.TableDef, key any) (types.Record, error) {
	if key == nil {
		return nil, types.ErrInvalidKey
	}
	plan := selectByKeyPlan(def)
	rows, err := r.query(plan, map[string]any{pkParam: key})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return rows[0], nil
}

// query renders and runs a select plan in a read transaction.
func (r *Runner) query(plan *query.Plan, params map[string]any) ([]types.Record, error) {
	table := plan.Table
	st, err := r.Cache.Render(r.Renderer, plan)
	if err != nil {
		return nil, opErr(table, types.StageBuilding, err)
	}
	args, err := st.Bind(params)
	if err != nil {
		return nil, opErr(table, types.StageExecuting, err)
	}

	tx, err := r.Adapter.Begin()
	if err != nil {
		return nil, r.adapterErr(table, "begin", err)
	}
	rows, err := tx.Query(st.SQL, args)
	if err != nil {
		_ = tx.Rollback()
		return nil, r.adapterErr(table, "query", err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, r.adapterErr(table, "commit", err)
	}
	return rows, nil
}

// pkParam is the reserved parameter name for primary key lookups; it
// cannot collide with column-named parameters.
const pkParam = "__pk"

// insertPlan builds the insert plan for the columns present on rec, in
// schema order so identical record shapes share a cached statement.
func insertPlan(def types.TableDef, rec types.Record) (*query.Plan, map[string]any) {
	plan := &query.Plan{Kind: query.KindInsert, Table: def.Name}
	params := make(map[string]any, len(rec))
	for _, c := range def.Columns {
		if _, ok := rec[c.Name]; !ok {
			continue
		}
		plan.Columns = append(plan.Columns, c.Name)
		plan.Values = append(plan.Values, query.Param{Name: c.Name})
		params[c.Name] = rec[c.Name]
	}
	return plan, params
}

// updatePlan writes every non-key column of the merged record.
func updatePlan(def types.TableDef, key any, merged types.Record) (*query.Plan, map[string]any) {
	plan := &query.Plan{
		Kind:  query.KindUpdate,
		Table: def.Name,
		Where: query.Compare{Field: def.PrimaryKey, Op: query.OpEq, Value: query.Param{Name: pkParam}},
	}
	params := map[string]any{pkParam: key}
	for _, c := range def.Columns {
		if c.Name == def.PrimaryKey {
			continue
		}
		if _, ok := merged[c.Name]; !ok {
			continue
		}
		plan.Columns = append(plan.Columns, c.Name)
		plan.Values = append(plan.Values, query.Param{Name: c.Name})
		params[c.Name] = merged[c.Name]
	}
	return plan, params
}

func deletePlan(def types.TableDef, key any) (*query.Plan, map[string]any) {
	plan := &query.Plan{
		Kind:  query.KindDelete,
		Table: def.Name,
		Where: query.Compare{Field: def.PrimaryKey, Op: query.OpEq, Value: query.Param{Name: pkParam}},
	}
	return plan, map[string]any{pkParam: key}
}

func selectByKeyPlan(def types.TableDef) *query.Plan {
	plan := &query.Plan{
		Kind:  query.KindSelect,
		Table: def.Name,
		Where: query.Compare{Field: def.PrimaryKey, Op: query.OpEq, Value: query.Param{Name: pkParam}},
		Limit: query.Literal{Val: int64(1)},
	}
	for _, c := range def.Columns {
		plan.Columns = append(plan.Columns, c.Name)
	}
	return plan
}

// CheckDialect verifies the renderer matches the adapter's dialect.
func (r *Runner) CheckDialect() error {
	if r.Renderer.Dialect() != r.Adapter.Dialect() {
		return fmt.Errorf("renderer dialect %q does not match adapter dialect %q",
			r.Renderer.Dialect(), r.Adapter.Dialect())
	}
	return nil
}
