package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	pgerrcode "github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	kpool "github.com/cardops/shiplane/pkg/conn/db/postgres/pool"
	"github.com/cardops/shiplane/pkg/domain"
	kdb "github.com/cardops/shiplane/pkg/domain/history/db"
	"github.com/cardops/shiplane/pkg/utils"
)

const schema = `
create table if not exists "pipeline_run" (
	"run_id" varchar(64) primary key,
	"ref" varchar(1024) not null,
	"commit" varchar(64) not null,
	"class" varchar(16) not null,
	"outcome" varchar(16) not null default '',
	"started_at" timestamp with time zone not null,
	"finished_at" timestamp with time zone
);

create table if not exists "stage_result" (
	"run_id" varchar(64) not null references "pipeline_run" ("run_id") on delete cascade,
	"seq" int not null,
	"name" varchar(64) not null,
	"executed" boolean not null,
	"outcome" varchar(16) not null,
	"outputs" jsonb not null default '{}',
	"error" text not null default '',
	primary key ("run_id", "seq")
);

create index if not exists "pipeline_run_ref" on "pipeline_run" ("ref");
`

type pgHistory struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) *pgHistory {
	return &pgHistory{pool: pool}
}

var _ kdb.HistoryInterface = &pgHistory{}

// Init creates the tables this store needs, if they do not exist yet.
func (h *pgHistory) Init(ctx context.Context) error {
	_, err := h.pool.Exec(ctx, schema)
	return err
}

func (h *pgHistory) Register(ctx context.Context, run domain.PipelineRun) error {
	_, err := h.pool.Exec(
		ctx,
		`
		insert into "pipeline_run"
			("run_id", "ref", "commit", "class", "started_at")
			values ($1, $2, $3, $4, $5)
		`,
		run.RunId, run.Ref, run.Commit, string(run.Class), run.StartedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Conflict{Table: "pipeline_run", Identity: run.RunId}
		}
		return err
	}
	return nil
}

func (h *pgHistory) AddStageResult(ctx context.Context, runId string, seq int, result domain.StageResult) error {
	outputs := pgtype.JSONB{}
	if err := outputs.Set(result.Outputs); err != nil {
		return err
	}

	_, err := h.pool.Exec(
		ctx,
		`
		insert into "stage_result"
			("run_id", "seq", "name", "executed", "outcome", "outputs", "error")
			values ($1, $2, $3, $4, $5, $6, $7)
		`,
		runId, seq, result.Name, result.Executed, string(result.Outcome), outputs, result.Error,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return Conflict{
					Table:    "stage_result",
					Identity: fmt.Sprintf("%s#%d", runId, seq),
				}
			case pgerrcode.ForeignKeyViolation:
				return Missing{Table: "pipeline_run", Identity: runId}
			}
		}
		return err
	}
	return nil
}

func (h *pgHistory) Finish(ctx context.Context, runId string, outcome domain.RunOutcome, finishedAt time.Time) error {
	if _, err := domain.AsRunOutcome(string(outcome)); err != nil {
		return err
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(
		ctx,
		`
		update "pipeline_run"
			set "outcome" = $2, "finished_at" = $3
			where "run_id" = $1 and "outcome" = ''
		`,
		runId, string(outcome), finishedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() < 1 {
		var current string
		if err := tx.QueryRow(
			ctx, `select "outcome" from "pipeline_run" where "run_id" = $1`, runId,
		).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Missing{Table: "pipeline_run", Identity: runId}
			}
			return err
		}
		return Conflict{
			Table:    "pipeline_run",
			Identity: fmt.Sprintf("%s (already %s)", runId, current),
		}
	}

	return tx.Commit(ctx)
}

func (h *pgHistory) Get(ctx context.Context, runId string) (domain.PipelineRun, error) {
	run := domain.PipelineRun{RunId: runId}

	var (
		class      string
		outcome    string
		finishedAt *time.Time
	)
	if err := h.pool.QueryRow(
		ctx,
		`
		select "ref", "commit", "class", "outcome", "started_at", "finished_at"
			from "pipeline_run" where "run_id" = $1
		`,
		runId,
	).Scan(&run.Ref, &run.Commit, &class, &outcome, &run.StartedAt, &finishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PipelineRun{}, Missing{Table: "pipeline_run", Identity: runId}
		}
		return domain.PipelineRun{}, err
	}
	run.Class = domain.BranchClass(class)
	run.Outcome = domain.RunOutcome(outcome)
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}

	stages, err := h.fetchStages(ctx, []string{runId})
	if err != nil {
		return domain.PipelineRun{}, err
	}
	run.Stages = stages[runId]

	return run, nil
}

func (h *pgHistory) Find(ctx context.Context, query kdb.Query) ([]domain.PipelineRun, error) {
	sql := `
	select "run_id", "ref", "commit", "class", "outcome", "started_at", "finished_at"
		from "pipeline_run"
	`
	conds := []string{}
	args := []interface{}{}
	if query.Ref != "" {
		args = append(args, query.Ref)
		conds = append(conds, fmt.Sprintf(`"ref" = $%d`, len(args)))
	}
	if query.Outcome != "" {
		args = append(args, string(query.Outcome))
		conds = append(conds, fmt.Sprintf(`"outcome" = $%d`, len(args)))
	}
	if 0 < len(conds) {
		sql += " where " + strings.Join(conds, " and ")
	}
	sql += ` order by "started_at" desc, "run_id"`
	if 0 < query.Limit {
		args = append(args, query.Limit)
		sql += fmt.Sprintf(" limit $%d", len(args))
	}

	rows, err := h.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []domain.PipelineRun{}
	for rows.Next() {
		run := domain.PipelineRun{}
		var (
			class      string
			outcome    string
			finishedAt *time.Time
		)
		if err := rows.Scan(
			&run.RunId, &run.Ref, &run.Commit, &class, &outcome, &run.StartedAt, &finishedAt,
		); err != nil {
			return nil, err
		}
		run.Class = domain.BranchClass(class)
		run.Outcome = domain.RunOutcome(outcome)
		if finishedAt != nil {
			run.FinishedAt = *finishedAt
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return runs, nil
	}

	runIds := utils.Map(runs, func(r domain.PipelineRun) string { return r.RunId })
	stages, err := h.fetchStages(ctx, runIds)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Stages = stages[runs[i].RunId]
	}

	return runs, nil
}

// fetchStages loads stage results of the given runs, keyed by run id,
// each slice in stage order.
func (h *pgHistory) fetchStages(ctx context.Context, runIds []string) (map[string][]domain.StageResult, error) {
	rows, err := h.pool.Query(
		ctx,
		`
		select "run_id", "name", "executed", "outcome", "outputs", "error"
			from "stage_result"
			where "run_id" = any($1)
			order by "run_id", "seq"
		`,
		runIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := map[string][]domain.StageResult{}
	for rows.Next() {
		var (
			runId   string
			outcome string
			outputs = pgtype.JSONB{}
			result  = domain.StageResult{}
		)
		if err := rows.Scan(
			&runId, &result.Name, &result.Executed, &outcome, &outputs, &result.Error,
		); err != nil {
			return nil, err
		}
		result.Outcome = domain.StageOutcome(outcome)
		if outputs.Status == pgtype.Present {
			if err := json.Unmarshal(outputs.Bytes, &result.Outputs); err != nil {
				return nil, err
			}
		}
		stages[runId] = append(stages[runId], result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stages, nil
}
