// Package accounting posts double-entry slips and the event-driven slips
// of sales and escrow payouts.
package accounting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PostCommand is a request to post one slip
type PostCommand struct {
	CompanyID   uuid.UUID
	Date        time.Time
	Description string
	SourceType  string
	SourceID    string
	Branch      string
	Lines       []accounting.JournalLine
}

// AccountBalance is the aggregate position of one account
type AccountBalance struct {
	CompanyID     uuid.UUID       `json:"company_id"`
	AccountCode   string          `json:"account_code"`
	NormalBalance accounting.Side `json:"normal_balance"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Net           decimal.Decimal `json:"net"`
}

// PostingService is the posting engine
type PostingService struct {
	scope   ledger.TransactionScope
	metrics ledger.Metrics
	logger  *zap.Logger
}

// NewPostingService creates a PostingService
func NewPostingService(scope ledger.TransactionScope, metrics ledger.Metrics, logger *zap.Logger) *PostingService {
	return &PostingService{
		scope:   scope,
		metrics: ledger.OrNoop(metrics),
		logger:  logger,
	}
}

// Post validates and persists a slip. Nothing is written when validation fails.
func (s *PostingService) Post(ctx context.Context, cmd PostCommand) (*accounting.JournalEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, cmd.CompanyID.String(),
		telemetry.SpanAttrSourceType, cmd.SourceType,
		telemetry.SpanAttrSourceID, cmd.SourceID,
	)

	entry, err := accounting.NewJournalEntry(cmd.CompanyID, cmd.Date, cmd.Description, cmd.SourceType, cmd.SourceID, cmd.Branch, cmd.Lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.persist(ctx, span, entry)
}

// CheckReceivedCommand records a customer check taken against receivables
type CheckReceivedCommand struct {
	CompanyID uuid.UUID
	CheckID   string
	CheckNo   string
	Amount    decimal.Decimal
	Date      time.Time
}

// PostCheckReceived posts the check slip with source ("Check", check id).
// A check already posted returns ErrSourceAlreadyPosted.
func (s *PostingService) PostCheckReceived(ctx context.Context, cmd CheckReceivedCommand) (*accounting.JournalEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "check_received")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, cmd.CompanyID.String(),
		telemetry.SpanAttrSourceType, accounting.SourceTypeCheck,
		telemetry.SpanAttrSourceID, cmd.CheckID,
	)

	entry, err := accounting.CheckReceivedSlip(cmd.CompanyID, cmd.CheckID, cmd.CheckNo, cmd.Amount, cmd.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.persist(ctx, span, entry)
}

func (s *PostingService) persist(ctx context.Context, span trace.Span, entry *accounting.JournalEntry) (*accounting.JournalEntry, error) {
	if err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return s.PostWithin(ctx, repos, entry)
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.For(ctx, s.logger).Info("journal entry posted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("company_id", entry.CompanyID.String()),
		zap.String("source_type", entry.SourceType),
		zap.String("source_id", entry.SourceID),
		zap.Int("lines", len(entry.Lines)),
	)
	return entry, nil
}

// PostWithin persists an already built entry in the caller's transaction.
// Event handlers use it so the slip commits together with their receipt.
func (s *PostingService) PostWithin(ctx context.Context, repos ledger.TransactionalRepositories, entry *accounting.JournalEntry) error {
	if err := accounting.ValidateLines(entry.Lines); err != nil {
		return err
	}
	if err := checkAccounts(ctx, repos.AccountRepo(), entry.AccountCodes()); err != nil {
		return err
	}
	exists, err := repos.JournalRepo().ExistsActiveBySource(ctx, entry.CompanyID, entry.SourceType, entry.SourceID)
	if err != nil {
		return fmt.Errorf("failed to check source: %w", err)
	}
	if exists {
		return accounting.ErrSourceAlreadyPosted
	}
	if err := repos.JournalRepo().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}
	s.metrics.RecordPosting(ctx, entry.SourceType)
	return nil
}

// Storno posts the mirror of an entry and links the two. The original lines are untouched.
func (s *PostingService) Storno(ctx context.Context, entryID uuid.UUID, reason string) (*accounting.JournalEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "storno")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrEntryID, entryID.String())

	var storno *accounting.JournalEntry
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		original, err := repos.JournalRepo().FindByID(ctx, entryID)
		if err != nil {
			return fmt.Errorf("journal entry %s: %w", entryID, err)
		}
		reversal, err := original.Reverse(reason, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := checkAccounts(ctx, repos.AccountRepo(), reversal.AccountCodes()); err != nil {
			return err
		}
		if err := repos.JournalRepo().Create(ctx, reversal); err != nil {
			return fmt.Errorf("failed to save storno: %w", err)
		}
		marked, err := repos.JournalRepo().MarkReversed(ctx, original.ID, reversal.ID)
		if err != nil {
			return fmt.Errorf("failed to link storno: %w", err)
		}
		if !marked {
			return accounting.ErrAlreadyReversed
		}
		storno = reversal
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordPosting(ctx, accounting.SourceTypeStorno)
	logger.For(ctx, s.logger).Info("journal entry reversed",
		zap.String("entry_id", entryID.String()),
		zap.String("storno_id", storno.ID.String()),
		zap.String("reason", reason),
	)
	return storno, nil
}

// ExistsActiveBySource reports whether a non-reversed entry exists for the source
func (s *PostingService) ExistsActiveBySource(ctx context.Context, companyID uuid.UUID, sourceType, sourceID string) (bool, error) {
	var exists bool
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		exists, err = repos.JournalRepo().ExistsActiveBySource(ctx, companyID, sourceType, sourceID)
		return err
	})
	return exists, err
}

// AccountBalance aggregates all lines of an account, oriented by its normal balance
func (s *PostingService) AccountBalance(ctx context.Context, companyID uuid.UUID, accountCode string) (*AccountBalance, error) {
	var result *AccountBalance
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		account, err := repos.AccountRepo().FindByCode(ctx, accountCode)
		if err != nil {
			return fmt.Errorf("account %s: %w", accountCode, err)
		}
		totals, err := repos.JournalRepo().Totals(ctx, companyID, accountCode)
		if err != nil {
			return fmt.Errorf("failed to aggregate account %s: %w", accountCode, err)
		}
		net := totals.Debit.Sub(totals.Credit)
		if account.NormalBalance == accounting.SideCredit {
			net = net.Neg()
		}
		result = &AccountBalance{
			CompanyID:     companyID,
			AccountCode:   accountCode,
			NormalBalance: account.NormalBalance,
			Debit:         totals.Debit,
			Credit:        totals.Credit,
			Net:           net,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SourceNet returns the signed net per account over every entry of a source and
// the stornos of those entries. A fully reversed source nets to zero everywhere.
func (s *PostingService) SourceNet(ctx context.Context, companyID uuid.UUID, sourceType, sourceID string) (map[string]decimal.Decimal, error) {
	var net map[string]decimal.Decimal
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		entries, err := repos.JournalRepo().FindBySource(ctx, companyID, sourceType, sourceID)
		if err != nil {
			return err
		}
		all := make([]*accounting.JournalEntry, 0, len(entries)*2)
		for _, e := range entries {
			all = append(all, e)
			if !e.IsReversed() {
				continue
			}
			storno, err := repos.JournalRepo().FindReversalOf(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("storno of %s: %w", e.ID, err)
			}
			all = append(all, storno)
		}
		net = accounting.NetByAccount(all...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return net, nil
}

// SeedChart inserts the standard chart of accounts. Existing codes are left as they are.
func (s *PostingService) SeedChart(ctx context.Context) (int, error) {
	inserted := 0
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		for _, account := range accounting.StandardChart() {
			ok, err := repos.AccountRepo().SaveIfAbsent(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to seed account %s: %w", account.Code, err)
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logger.Info("chart of accounts seeded", zap.Int("inserted", inserted))
	}
	return inserted, nil
}

func checkAccounts(ctx context.Context, repo accounting.AccountRepository, codes []string) error {
	existing, err := repo.ExistingCodes(ctx, codes)
	if err != nil {
		return fmt.Errorf("failed to look up accounts: %w", err)
	}
	var missing []string
	for _, code := range codes {
		if !existing[code] {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", accounting.ErrUnknownAccount, missing)
	}
	return nil
}
