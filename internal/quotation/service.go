package quotation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"cotacao-workers/internal/common/database"
	apperrors "cotacao-workers/internal/common/errors"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/common/metrics"
	"cotacao-workers/internal/roundrobin"

	"github.com/google/uuid"
)

type BlacklistSource interface {
	ListBlacklist(ctx context.Context) ([]BlacklistEntry, error)
}

type PricingRuleSource interface {
	ListActiveRules(ctx context.Context, category VehicleCategory) ([]PricingRule, error)
}

type SellerAssigner interface {
	Assign(ctx context.Context, commit roundrobin.CommitFunc) (string, error)
}

// QuotationStore persists quotations. CreateWith writes through exec so the
// insert can join the assignment transaction. A second quotation with the same
// non-zero JobKey fails with a unique violation. FindByJobKey returns nil when
// nothing was stored for jobKey.
type QuotationStore interface {
	Create(ctx context.Context, q *Quotation) error
	CreateWith(ctx context.Context, exec database.Execer, q *Quotation) error
	FindByJobKey(ctx context.Context, jobKey int64) (*Quotation, error)
}

type Notifier interface {
	NotifyAssigned(ctx context.Context, q *Quotation) error
	NotifyUnassigned(ctx context.Context, q *Quotation) error
}

type Indexer interface {
	IndexQuotation(ctx context.Context, q *Quotation) error
}

// ServiceDeps wires a Service. Notifier and Indexer are optional.
// SideEffectTimeout bounds indexing and notification of one quotation.
type ServiceDeps struct {
	Blacklist         BlacklistSource
	Rules             PricingRuleSource
	Assigner          SellerAssigner
	Quotations        QuotationStore
	Notifier          Notifier
	Indexer           Indexer
	Limits            LimitTable
	Logger            logger.Logger
	Now               func() time.Time
	NewID             func() string
	SideEffectTimeout time.Duration
}

// Service runs the eligibility pipeline and, for accepted quotations, the
// seller assignment and persistence.
type Service struct {
	deps        ServiceDeps
	sideEffects sync.WaitGroup
}

// jobKeyNamespace scopes the quotation ids derived from job keys.
var jobKeyNamespace = uuid.MustParse("b3c0f4d2-8a61-5e7f-9c14-2d6a0e8b7f35")

func NewService(deps ServiceDeps) *Service {
	if deps.Limits == nil {
		deps.Limits = DefaultFipeLimits
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.SideEffectTimeout <= 0 {
		deps.SideEffectTimeout = 10 * time.Second
	}
	return &Service{deps: deps}
}

// Wait blocks until the indexing and notifications already started have
// finished.
func (s *Service) Wait() {
	s.sideEffects.Wait()
}

// SubmitRequest is one quotation submission. JobKey identifies the delivery
// that carries it: submitting the same non-zero JobKey again returns the
// quotation stored the first time instead of storing and assigning again.
type SubmitRequest struct {
	Vehicle Vehicle
	Contact Contact
	JobKey  int64
}

// Submission is the outcome of Submit. Quotation is nil when nothing was stored.
// Replayed is set when Quotation was stored by an earlier delivery.
type Submission struct {
	Result    Result
	Quotation *Quotation
	Replayed  bool
}

// Evaluate loads the reference data and decides the quotation. Business
// rejections are returned as a Rejected result; only lookups fail with an error.
func (s *Service) Evaluate(ctx context.Context, v Vehicle) (Result, error) {
	entries, err := s.deps.Blacklist.ListBlacklist(ctx)
	if err != nil {
		return nil, apperrors.NewBlacklistLookupFailedError(err)
	}

	category := DetermineCategory(v.RawType, v.Category, v.Usage)
	rules, err := s.deps.Rules.ListActiveRules(ctx, category)
	if err != nil {
		return nil, apperrors.NewPricingLookupFailedError(string(category), err)
	}

	result := Evaluate(v, entries, rules, s.deps.Limits)
	s.logDecision(v, result)
	return result, nil
}

func (s *Service) logDecision(v Vehicle, result Result) {
	fields := map[string]interface{}{
		"brand":     normalizeName(v.Brand),
		"model":     normalizeName(v.Model),
		"fipeValue": v.FipeValue.String(),
		"outcome":   string(result.Outcome()),
	}

	switch r := result.(type) {
	case Accepted:
		metrics.QuotationsEvaluated.WithLabelValues(string(OutcomeAccepted), "").Inc()
		fields["category"] = string(r.Category)
		fields["ruleId"] = r.RuleID
		s.deps.Logger.Info("quotation accepted", fields)

	case Rejected:
		metrics.QuotationsEvaluated.WithLabelValues(string(OutcomeRejected), string(r.Code())).Inc()
		fields["code"] = string(r.Code())
		fields["saveAsLead"] = r.SaveAsLead()

		if noRule, ok := r.Details.(NoRuleDetails); ok {
			fields["category"] = string(noRule.Category)
			fields["configured"] = noRule.RulesConfigured
			if !noRule.RulesConfigured {
				s.deps.Logger.Error("no active pricing rules configured for category", fields)
				return
			}
			s.deps.Logger.Warn("no pricing rule covers fipe value", fields)
			return
		}
		s.deps.Logger.Info("quotation rejected", fields)
	}
}

// Submit evaluates the vehicle and stores the outcome. An accepted quotation is
// written with status PENDING in the same transaction that advances the
// round-robin pointer. When no seller can be assigned the quotation is still
// written, flagged for triage, and admins are alerted. Rejections that should
// become leads are written with status REJECTED.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	result, err := s.Evaluate(ctx, req.Vehicle)
	if err != nil {
		return nil, err
	}

	if req.JobKey != 0 {
		existing, err := s.findByJobKey(ctx, req.JobKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(result, existing), nil
		}
	}

	switch r := result.(type) {
	case Rejected:
		return s.submitRejected(ctx, req, r)
	case Accepted:
		return s.submitAccepted(ctx, req, r)
	}
	return &Submission{Result: result}, nil
}

func (s *Service) findByJobKey(ctx context.Context, jobKey int64) (*Quotation, error) {
	q, err := s.deps.Quotations.FindByJobKey(ctx, jobKey)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("find_quotation", err).WithMetadata("jobKey", jobKey)
	}
	return q, nil
}

func (s *Service) replay(result Result, q *Quotation) *Submission {
	metrics.QuotationsReplayed.Inc()
	s.deps.Logger.Info("quotation already stored for job, returning it", map[string]interface{}{
		"jobKey":      q.JobKey,
		"quotationId": q.ID,
		"sellerId":    q.SellerID,
	})
	return &Submission{Result: result, Quotation: q, Replayed: true}
}

// duplicate resolves an insert that lost to an earlier delivery of the same
// job. ok is false when err is not that case.
func (s *Service) duplicate(ctx context.Context, req SubmitRequest, result Result, err error) (*Submission, bool) {
	if req.JobKey == 0 || !database.IsUniqueViolation(err) {
		return nil, false
	}
	existing, findErr := s.findByJobKey(ctx, req.JobKey)
	if findErr != nil || existing == nil {
		return nil, false
	}
	return s.replay(result, existing), true
}

func (s *Service) newQuotation(req SubmitRequest, category VehicleCategory) *Quotation {
	id := s.deps.NewID()
	if req.JobKey != 0 {
		id = uuid.NewSHA1(jobKeyNamespace, []byte(strconv.FormatInt(req.JobKey, 10))).String()
	}
	return &Quotation{
		ID:              id,
		Vehicle:         req.Vehicle,
		Contact:         req.Contact,
		VehicleCategory: category,
		JobKey:          req.JobKey,
		CreatedAt:       s.deps.Now(),
	}
}

func (s *Service) submitRejected(ctx context.Context, req SubmitRequest, r Rejected) (*Submission, error) {
	sub := &Submission{Result: r}
	if !r.SaveAsLead() {
		return sub, nil
	}

	q := s.newQuotation(req, rejectedCategory(req.Vehicle, r))
	q.Status = StatusRejected
	q.RejectionReason = r.Code()

	if err := s.deps.Quotations.Create(ctx, q); err != nil {
		if dup, ok := s.duplicate(ctx, req, r, err); ok {
			return dup, nil
		}
		return nil, apperrors.NewDatabaseInsertFailedError(err).WithMetadata("quotationId", q.ID)
	}
	s.afterPersist(ctx, q)

	sub.Quotation = q
	return sub, nil
}

func rejectedCategory(v Vehicle, r Rejected) VehicleCategory {
	switch details := r.Details.(type) {
	case OverLimitDetails:
		return details.Category
	case NoRuleDetails:
		return details.Category
	}
	return DetermineCategory(v.RawType, v.Category, v.Usage)
}

func (s *Service) submitAccepted(ctx context.Context, req SubmitRequest, r Accepted) (*Submission, error) {
	q := s.newQuotation(req, r.Category)
	q.Values = r.Values
	q.Status = StatusPending

	_, err := s.deps.Assigner.Assign(ctx, func(ctx context.Context, exec database.Execer, sellerID string) error {
		q.SellerID = sellerID
		return s.deps.Quotations.CreateWith(ctx, exec, q)
	})
	if dup, ok := s.duplicate(ctx, req, r, err); ok {
		// the assignment transaction rolled back with the insert
		return dup, nil
	}

	switch {
	case err == nil:
		s.afterPersist(ctx, q)

	case errors.Is(err, roundrobin.ErrNoEligibleSeller) || errors.Is(err, roundrobin.ErrQueueNotFound):
		q.SellerID = ""
		q.NeedsTriage = true
		s.deps.Logger.Warn("quotation accepted without seller, flagged for triage", map[string]interface{}{
			"quotationId": q.ID,
			"reason":      err.Error(),
			"attempts":    roundrobin.Attempts(err),
		})
		if err := s.deps.Quotations.Create(ctx, q); err != nil {
			if dup, ok := s.duplicate(ctx, req, r, err); ok {
				return dup, nil
			}
			return nil, apperrors.NewDatabaseInsertFailedError(err).WithMetadata("quotationId", q.ID)
		}
		s.afterPersist(ctx, q)

	default:
		q.SellerID = ""
		return nil, apperrors.NewQueryExecutionFailedError("submit_quotation", err).WithMetadata("quotationId", q.ID)
	}

	return &Submission{Result: r, Quotation: q}, nil
}

// afterPersist records a stored quotation and starts its indexing and
// notifications in the background, detached from ctx's deadline and bounded by
// SideEffectTimeout, so a slow side effect never delays the caller.
func (s *Service) afterPersist(ctx context.Context, q *Quotation) {
	metrics.QuotationsPersisted.WithLabelValues(string(q.Status), strconv.FormatBool(q.NeedsTriage)).Inc()

	log := s.deps.Logger.WithFields(map[string]interface{}{
		"quotationId": q.ID,
		"status":      string(q.Status),
		"sellerId":    q.SellerID,
	})
	log.Info("quotation stored", nil)

	if s.deps.Indexer == nil && s.deps.Notifier == nil {
		return
	}

	stored := *q
	s.sideEffects.Add(1)
	go func() {
		defer s.sideEffects.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.SideEffectTimeout)
		defer cancel()
		s.runSideEffects(ctx, log, &stored)
	}()
}

func (s *Service) runSideEffects(ctx context.Context, log logger.Logger, q *Quotation) {
	if s.deps.Indexer != nil {
		if err := s.deps.Indexer.IndexQuotation(ctx, q); err != nil {
			log.Warn("failed to index quotation", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.deps.Notifier == nil {
		return
	}
	switch {
	case q.NeedsTriage:
		if err := s.deps.Notifier.NotifyUnassigned(ctx, q); err != nil {
			log.Warn("failed to alert admins about unassigned quotation", map[string]interface{}{"error": err.Error()})
		}
	case q.Assigned():
		if err := s.deps.Notifier.NotifyAssigned(ctx, q); err != nil {
			log.Warn("failed to notify assigned seller", map[string]interface{}{"error": err.Error()})
		}
	}
}
