package merge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lherron/transplant/internal/domain"
	"github.com/lherron/transplant/internal/events"
	"github.com/lherron/transplant/internal/store"
)

// Outcome is what the caller should do after PerformMerge returns.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRedirect Outcome = "redirect"
	OutcomeDryRun   Outcome = "dry_run"
)

// Options tunes a single merge.
type Options struct {
	// DryRun runs every operation and then rolls back.
	DryRun bool
	// Diff records an ownership diff in the report.
	Diff bool
}

// OperationReport summarizes one executed operation.
type OperationReport struct {
	Model      string `json:"model"`
	Accessor   string `json:"accessor"`
	Field      string `json:"field"`
	Strategy   string `json:"strategy"`
	Reassigned int64  `json:"reassigned"`
}

// Report describes a merge that ran to completion.
type Report struct {
	Receiver         *domain.Account   `json:"receiver"`
	Donor            *domain.Account   `json:"donor"`
	Operations       []OperationReport `json:"operations"`
	DonorDeactivated bool              `json:"donor_deactivated"`
	DryRun           bool              `json:"dry_run"`
	Diff             string            `json:"diff,omitempty"`
	Duration         time.Duration     `json:"duration_ns"`
}

// Result is the caller-visible outcome of a merge that did not propagate
// an error. Target is the success or failure redirect target; Cause holds
// the error behind a redirect.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Target  string  `json:"target,omitempty"`
	Report  *Report `json:"report,omitempty"`
	Cause   error   `json:"-"`
}

// Orchestrator runs an ordered list of operations atomically.
type Orchestrator struct {
	store    *store.Store
	resolver *Resolver
	policy   Policy
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator. A nil logger selects slog.Default.
func NewOrchestrator(st *store.Store, resolver *Resolver, policy Policy, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = NewResolver(st.Catalog(), nil)
	}
	return &Orchestrator{store: st, resolver: resolver, policy: policy, logger: logger}
}

// PerformMerge reassigns everything donor owns to receiver using the given
// operations, in order, inside one transaction.
func (o *Orchestrator) PerformMerge(ctx context.Context, receiver, donor *domain.Account, descriptors []domain.OperationDescriptor) (*Result, error) {
	return o.PerformMergeWithOptions(ctx, receiver, donor, descriptors, Options{})
}

// PerformMergeWithOptions is PerformMerge with dry-run and diff control.
//
// Either every operation is applied and committed or none is: any
// resolution, strategy or commit error rolls the transaction back and is
// handed to the failure policy, which either returns it unchanged or turns
// it into a redirect Result.
func (o *Orchestrator) PerformMergeWithOptions(ctx context.Context, receiver, donor *domain.Account, descriptors []domain.OperationDescriptor, opts Options) (*Result, error) {
	if receiver == nil || donor == nil {
		return nil, fmt.Errorf("merge needs both a receiver and a donor")
	}
	start := time.Now()
	log := o.logger.With("receiver", receiver.Label(), "donor", donor.Label())

	tx, err := o.store.Begin(ctx, receiver.UUID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Strategies mutate these copies; the caller's accounts only change
	// once the merge commits.
	r, d := *receiver, *donor

	report, err := o.run(ctx, tx, &r, &d, descriptors, opts)
	if err == nil && !opts.DryRun {
		err = tx.Commit()
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed", "error", rbErr)
		}
		log.Warn("merge rolled back", "error", err)
		return o.policy.Dispatch(log, err)
	}

	report.Duration = time.Since(start)
	if opts.DryRun {
		tx.Rollback()
		log.Info("dry run rolled back", "operations", len(report.Operations))
		return &Result{Outcome: OutcomeDryRun, Report: report}, nil
	}

	*receiver, *donor = r, d
	report.Receiver, report.Donor = receiver, donor
	log.Info("merge committed", "operations", len(report.Operations), "donor_deactivated", report.DonorDeactivated)
	return &Result{Outcome: OutcomeSuccess, Target: o.policy.SuccessURL, Report: report}, nil
}

func (o *Orchestrator) run(ctx context.Context, tx *store.Tx, receiver, donor *domain.Account, descriptors []domain.OperationDescriptor, opts Options) (*Report, error) {
	report := &Report{Receiver: receiver, Donor: donor, DryRun: opts.DryRun}
	catalog := o.store.Catalog()
	donorWasActive := donor.Active

	var before []string
	if opts.Diff {
		var err error
		before, err = tx.OwnershipListing(ctx, catalog, receiver.UUID, donor.UUID)
		if err != nil {
			return nil, err
		}
	}

	for i, desc := range descriptors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, err := o.resolver.Resolve(tx, desc)
		if err != nil {
			return nil, err
		}
		o.logger.Debug("running merge operation", "index", i, "operation", desc.String())
		if err := op.Merge(ctx, receiver, donor); err != nil {
			return nil, err
		}
		report.Operations = append(report.Operations, OperationReport{
			Model:      desc.Model,
			Accessor:   desc.AccessorName(),
			Field:      op.Field,
			Strategy:   desc.Strategy,
			Reassigned: op.Collection.Reassigned(),
		})
	}

	if !receiver.Same(donor) {
		logged := make([]events.MergeOperation, len(report.Operations))
		for i, op := range report.Operations {
			logged[i] = events.MergeOperation(op)
		}
		if err := tx.Events().LogAccountMerged(tx.SQL(), receiver.UUID, receiver, donor, logged); err != nil {
			return nil, err
		}
	}
	report.DonorDeactivated = donorWasActive && !receiver.Same(donor) && !donor.Active

	if opts.Diff {
		after, err := tx.OwnershipListing(ctx, catalog, receiver.UUID, donor.UUID)
		if err != nil {
			return nil, err
		}
		report.Diff, err = OwnershipDiff(before, after)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}
