package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
	"github.com/lexhaven/lexhaven-engine/pkg/config"
	"github.com/lexhaven/lexhaven-engine/pkg/llm"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
	"github.com/lexhaven/lexhaven-engine/pkg/repositories"
	"github.com/lexhaven/lexhaven-engine/pkg/retry"
)

const answerSystemMessage = `You are a legal research assistant answering questions about regulatory documents.
Answer strictly from the numbered source passages provided. Cite passages by their number, e.g. [1].
If the passages do not contain the answer, say so plainly instead of speculating.`

// noMatchAnswer is returned when nothing in the corpus clears the threshold.
const noMatchAnswer = "No sufficiently similar passages were found in the document corpus for this question. Try rephrasing it, lowering the similarity threshold, or removing the institution filter."

// QueryService is the orchestrator: the only component that knows the
// pipeline ordering and failure policy. It sequences
// rate-limit -> validate -> price -> debit -> cache-check -> embed ->
// search -> generate -> score -> resolve-sources -> cache-store -> respond,
// refunding the debit on any failure after it.
type QueryService interface {
	Ask(ctx context.Context, accountID uuid.UUID, req models.QueryRequest) (*models.AnswerResult, error)
}

type queryService struct {
	ledger    LedgerService
	cache     AnswerCache
	search    SearchService
	scorer    *ConfidenceScorer
	resolver  *CitationResolver
	limiter   *RateLimiter
	embedder  llm.Embedder
	generator llm.Generator
	searchLog repositories.SearchLogRepository
	retryCfg  *retry.Config
	cfg       config.QueryConfig
	aiCfg     config.AIConfig
	logger    *zap.Logger
}

// NewQueryService creates the orchestrator.
func NewQueryService(
	ledger LedgerService,
	cache AnswerCache,
	search SearchService,
	scorer *ConfidenceScorer,
	resolver *CitationResolver,
	limiter *RateLimiter,
	embedder llm.Embedder,
	generator llm.Generator,
	searchLog repositories.SearchLogRepository,
	cfg config.QueryConfig,
	aiCfg config.AIConfig,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		ledger:    ledger,
		cache:     cache,
		search:    search,
		scorer:    scorer,
		resolver:  resolver,
		limiter:   limiter,
		embedder:  embedder,
		generator: generator,
		searchLog: searchLog,
		retryCfg:  retry.DefaultConfig(),
		cfg:       cfg,
		aiCfg:     aiCfg,
		logger:    logger.Named("query"),
	}
}

var _ QueryService = (*queryService)(nil)

func (s *queryService) Ask(ctx context.Context, accountID uuid.UUID, req models.QueryRequest) (*models.AnswerResult, error) {
	// Rate limit gate comes first: a limited caller is never charged and
	// gets a distinct error from insufficient credits.
	if err := s.limiter.Allow(accountID); err != nil {
		return nil, err
	}

	req.Normalize(s.cfg.DefaultLimit, s.cfg.DefaultThreshold)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.ledger.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	// The configured timeout wraps everything from here on; a timeout after
	// the debit below is a failure and refunds.
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	queryID := uuid.New()
	started := time.Now()

	cost := s.ledger.Quote(req.Text)
	debit, err := s.ledger.Debit(ctx, accountID, cost, truncateDescription("query: "+req.Text), queryID)
	if err != nil {
		// No debit happened, so nothing to compensate.
		return nil, err
	}
	charged := -debit.Amount

	s.logger.Info("Query debited",
		zap.String("query_id", queryID.String()),
		zap.String("account_id", accountID.String()),
		zap.Int("cost", cost),
		zap.Int("charged", charged))

	// Cache lookup happens after the debit: the system charges for the
	// question being asked, not for the computation being skipped.
	fingerprint := Fingerprint(&req)
	if req.UseCache {
		cached, ok, err := s.cache.Get(ctx, fingerprint)
		if err != nil {
			// A broken cache backend degrades to a miss.
			s.logger.Warn("Cache lookup failed", zap.String("query_id", queryID.String()), zap.Error(err))
		}
		if ok {
			cached.QueryID = queryID
			cached.Cached = true
			cached.CreditsCharged = charged
			cached.Timings = models.QueryTimings{Total: time.Since(started)}
			s.logSearch(ctx, accountID, queryID, &req, cached)
			return cached, nil
		}
	}

	// Embed.
	embedStart := time.Now()
	var vector []float32
	err = retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		var embedErr error
		vector, embedErr = s.embedder.CreateEmbedding(ctx, req.Text)
		return embedErr
	})
	if err != nil {
		return nil, s.failWithRefund(ctx, accountID, queryID, charged,
			&apperrors.ProviderError{Stage: apperrors.StageEmbedding, Cause: err})
	}
	embedDuration := time.Since(embedStart)

	// Search.
	searchStart := time.Now()
	passages, err := s.search.Search(ctx, vector, req.InstitutionFilter, req.ResultLimit, *req.SimilarityThreshold)
	if err != nil {
		return nil, s.failWithRefund(ctx, accountID, queryID, charged,
			&apperrors.ProviderError{Stage: apperrors.StageSearch, Cause: err})
	}
	searchDuration := time.Since(searchStart)

	// Nothing cleared the threshold: a valid, billed outcome. No generation
	// call is made and the result is not cached, so a later ingestion run
	// can change the answer within the same TTL window.
	if len(passages) == 0 {
		result := &models.AnswerResult{
			QueryID:         queryID,
			AnswerText:      noMatchAnswer,
			ConfidenceScore: 0,
			Sources:         []models.RetrievedPassage{},
			Citations:       []models.Citation{},
			ModelUsed:       s.generator.Model(),
			Timings: models.QueryTimings{
				Embedding: embedDuration,
				Search:    searchDuration,
				Total:     time.Since(started),
			},
			CreditsCharged: charged,
		}
		s.logSearch(ctx, accountID, queryID, &req, result)
		return result, nil
	}

	// Generate.
	generateStart := time.Now()
	var answerText string
	err = retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		var genErr error
		answerText, genErr = s.generator.GenerateResponse(ctx, buildPrompt(req.Text, passages), answerSystemMessage, s.aiCfg.Temperature)
		return genErr
	})
	if err != nil {
		return nil, s.failWithRefund(ctx, accountID, queryID, charged,
			&apperrors.ProviderError{Stage: apperrors.StageGeneration, Cause: err})
	}
	generateDuration := time.Since(generateStart)

	result := &models.AnswerResult{
		QueryID:         queryID,
		AnswerText:      answerText,
		ConfidenceScore: s.scorer.Score(req.Text, passages, answerText, req.InstitutionFilter),
		Sources:         passages,
		Citations:       s.resolver.ResolveAll(passages),
		ModelUsed:       s.generator.Model(),
		Timings: models.QueryTimings{
			Embedding:  embedDuration,
			Search:     searchDuration,
			Generation: generateDuration,
			Total:      time.Since(started),
		},
		CreditsCharged: charged,
	}

	// Cache population is a side effect of success: a failed write is
	// logged and swallowed, never surfaced to the caller.
	if req.UseCache {
		if err := s.cache.Put(ctx, fingerprint, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Cache write failed",
				zap.String("query_id", queryID.String()),
				zap.Error(err))
		}
	}

	s.logSearch(ctx, accountID, queryID, &req, result)
	return result, nil
}

// failWithRefund compensates a charged query after a downstream failure.
// The refund runs on a detached context so that the client disconnecting or
// the pipeline timeout firing cannot abort it: a false debit harms the user,
// a false refund only costs the operator.
func (s *queryService) failWithRefund(ctx context.Context, accountID, queryID uuid.UUID, charged int, cause error) error {
	s.logger.Warn("Query failed after debit, refunding",
		zap.String("query_id", queryID.String()),
		zap.String("account_id", accountID.String()),
		zap.Int("amount", charged),
		zap.Error(cause))

	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := s.ledger.Refund(refundCtx, accountID, charged, fmt.Sprintf("refund: %v", cause), queryID); err != nil {
		refundErr := &apperrors.RefundFailedError{
			AccountID: accountID,
			QueryID:   queryID,
			Amount:    charged,
			Cause:     err,
		}
		// Charged-but-refund-lost is an accounting inconsistency that needs
		// an operator, not just the caller.
		s.logger.Error("ALERT: refund failed after charged query failure",
			zap.String("query_id", queryID.String()),
			zap.String("account_id", accountID.String()),
			zap.Int("amount", charged),
			zap.NamedError("pipeline_error", cause),
			zap.Error(err))
		return refundErr
	}

	return cause
}

// logSearch appends the audit row for a completed query. Best-effort.
func (s *queryService) logSearch(ctx context.Context, accountID, queryID uuid.UUID, req *models.QueryRequest, result *models.AnswerResult) {
	entry := &models.SearchLogEntry{
		QueryID:      queryID,
		AccountID:    accountID,
		Question:     req.Text,
		PassageCount: len(result.Sources),
		Confidence:   result.ConfidenceScore,
		Cached:       result.Cached,
		ModelUsed:    result.ModelUsed,
		DurationMs:   result.Timings.Total.Milliseconds(),
	}
	if err := s.searchLog.Create(ctx, entry); err != nil {
		s.logger.Warn("Search log write failed",
			zap.String("query_id", queryID.String()),
			zap.Error(err))
	}
}

// buildPrompt renders the numbered source passages and the question.
func buildPrompt(question string, passages []models.RetrievedPassage) string {
	var b strings.Builder
	b.WriteString("Source passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s (%s)", i+1, p.DocumentTitle, p.Institution)
		if p.PageNumber != nil {
			fmt.Fprintf(&b, ", p. %d", *p.PageNumber)
		}
		b.WriteString(":\n")
		b.WriteString(p.ChunkText)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// truncateDescription keeps ledger descriptions readable.
func truncateDescription(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
