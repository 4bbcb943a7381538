package service

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/netip"
	"time"

	"sadad-payment-service/config"
	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const callbackReplayTTL = 24 * time.Hour

const (
	msgTransactionNotFound = "Transaction not found"
	msgAlreadyProcessed    = "Transaction already processed"
	msgVerificationFailed  = "Payment could not be verified with the gateway"
)

// SadadCallbackService implements ports.CallbackService for one source kind.
//
// Pipeline: normalize, IP allow-list, checksum, status mapping, replay cache,
// server-to-server verification, locked persist, notify after commit.
type SadadCallbackService struct {
	cfg        config.SadadConfig
	kind       domain.SourceKind
	codes      *domain.GatewayCodeTable
	sources    ports.SourceRepository
	txRepo     ports.TransactionRepository
	notifRepo  ports.NotificationRepository
	transactor ports.DBTransactor
	checksum   ports.ChecksumService
	verifier   ports.GatewayVerifier
	cache      ports.IdempotencyCache
	audit      ports.AuditService
	log        zerolog.Logger

	allowedIPs       []netip.Addr
	acceptedStatuses map[int]struct{}
	now              func() time.Time
}

// NewCallbackService creates the callback handler for the kind of sources.
// verifier and cache may be nil.
func NewCallbackService(
	cfg config.SadadConfig,
	codes *domain.GatewayCodeTable,
	sources ports.SourceRepository,
	txRepo ports.TransactionRepository,
	notifRepo ports.NotificationRepository,
	transactor ports.DBTransactor,
	checksum ports.ChecksumService,
	verifier ports.GatewayVerifier,
	cache ports.IdempotencyCache,
	audit ports.AuditService,
	log zerolog.Logger,
) *SadadCallbackService {
	kind := sources.Kind()

	accepted := cfg.BookingVerifiedStatuses
	if kind == domain.SourceKindProductOrder {
		accepted = cfg.ProductVerifiedStatuses
	}
	acceptedSet := make(map[int]struct{}, len(accepted))
	for _, st := range accepted {
		acceptedSet[st] = struct{}{}
	}

	var allowed []netip.Addr
	for _, raw := range cfg.AllowedIPs() {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			log.Warn().Str("ip", raw).Msg("ignoring invalid gateway IP in allow-list")
			continue
		}
		allowed = append(allowed, addr.Unmap())
	}

	return &SadadCallbackService{
		cfg:              cfg,
		kind:             kind,
		codes:            codes,
		sources:          sources,
		txRepo:           txRepo,
		notifRepo:        notifRepo,
		transactor:       transactor,
		checksum:         checksum,
		verifier:         verifier,
		cache:            cache,
		audit:            audit,
		log:              log.With().Str("flavour", string(kind)).Logger(),
		allowedIPs:       allowed,
		acceptedStatuses: acceptedSet,
		now:              time.Now,
	}
}

// callbackOutcome carries state between pipeline stages.
type callbackOutcome struct {
	status           domain.TransactionStatus
	message          string
	checksumVerified bool
	verification     string
	verifiedAt       *time.Time
}

// Handle processes one gateway callback.
func (s *SadadCallbackService) Handle(ctx context.Context, fields domain.CallbackFields, clientIP string) (*domain.CallbackResult, error) {
	rec := NormalizeCallback(s.kind, fields)
	rec.ClientIP = clientIP

	if rec.OrderID == "" {
		s.log.Warn().Str("client_ip", clientIP).Int("fields", len(fields)).Msg("callback without order id")
		return nil, apperror.ErrMissingOrderID()
	}
	log := s.log.With().Str("order_id", rec.OrderID).Logger()

	if err := s.checkIP(ctx, &rec, log); err != nil {
		return nil, err
	}

	out := &callbackOutcome{}
	verified, err := s.checkChecksum(ctx, &rec, log)
	if err != nil {
		return nil, err
	}
	out.checksumVerified = verified

	out.status, out.message = s.mapStatus(&rec)

	replayKey := domain.BuildCallbackReplayKey(s.kind, rec.OrderID, out.status, rec.TransactionNumber)
	if replay := s.cachedReplay(ctx, replayKey, log); replay != nil {
		log.Info().Str("status", string(replay.Status)).Msg("callback replay served from cache")
		return replay, nil
	}

	if out.status == domain.TransactionStatusCompleted && rec.TransactionNumber != "" {
		s.verifyWithGateway(ctx, &rec, out, log)
	}

	result, src, txn, err := s.persist(ctx, &rec, out, log)
	if err != nil {
		return nil, err
	}

	if result.Transitioned && result.Status == domain.TransactionStatusCompleted && src != nil {
		s.notify(ctx, src, txn, log)
	}

	if result.Status.IsTerminal() && !result.NotFound {
		s.storeReplay(ctx, replayKey, result, log)
	}

	s.recordAudit(ctx, domain.AuditActionCallbackReceived, &rec, map[string]any{
		"status":            result.Status,
		"transitioned":      result.Transitioned,
		"checksum_verified": out.checksumVerified,
	})

	log.Info().
		Str("status", string(result.Status)).
		Bool("transitioned", result.Transitioned).
		Bool("checksum_verified", out.checksumVerified).
		Msg("sadad callback processed")

	return result, nil
}

func (s *SadadCallbackService) checkIP(ctx context.Context, rec *domain.CallbackRecord, log zerolog.Logger) error {
	if !s.cfg.IPCheckEnabled || s.ipAllowed(rec.ClientIP) {
		return nil
	}

	if s.cfg.SkipIPVerification {
		log.Warn().
			Bool("security_event", true).
			Str("client_ip", rec.ClientIP).
			Msg("callback from unlisted IP accepted because skip_ip_verification is enabled; never run production like this")
		s.recordAudit(ctx, domain.AuditActionIPCheckBypassed, rec, nil)
		return nil
	}

	log.Warn().Bool("security_event", true).Str("client_ip", rec.ClientIP).Msg("callback rejected: IP not in allow-list")
	s.recordAudit(ctx, domain.AuditActionIPRejected, rec, nil)
	return apperror.ErrIPNotAllowed()
}

func (s *SadadCallbackService) ipAllowed(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, allowed := range s.allowedIPs {
		if addr == allowed {
			return true
		}
	}
	return false
}

// checkChecksum returns whether the checksum verified. A mismatch only fails the
// callback under strict_checksum.
func (s *SadadCallbackService) checkChecksum(ctx context.Context, rec *domain.CallbackRecord, log zerolog.Logger) (bool, error) {
	reason := "mismatch"
	verified := false
	if rec.Checksum == "" {
		reason = "missing"
	} else {
		verified = s.checksum.VerifyPayload(signedFields(rec.Fields), rec.Checksum)
	}
	if verified {
		return true, nil
	}

	log.Warn().
		Bool("security_event", true).
		Str("reason", reason).
		Str("checksum_field", rec.ChecksumField).
		Bool("strict", s.cfg.StrictChecksum).
		Msg("callback checksum not verified")
	s.recordAudit(ctx, domain.AuditActionChecksumMismatch, rec, map[string]any{"reason": reason})

	if s.cfg.StrictChecksum {
		return false, apperror.ErrInvalidChecksum()
	}
	return false, nil
}

func (s *SadadCallbackService) mapStatus(rec *domain.CallbackRecord) (domain.TransactionStatus, string) {
	if s.kind == domain.SourceKindBooking {
		return s.codes.MapBookingStatus(rec.StatusCode, rec.GatewayMessage)
	}
	return s.codes.MapResponseCode(rec.StatusCode, rec.GatewayMessage)
}

// verifyWithGateway confirms a claimed success. An explicit non-success answer downgrades
// to failed; an unreachable endpoint leaves the callback status standing.
func (s *SadadCallbackService) verifyWithGateway(ctx context.Context, rec *domain.CallbackRecord, out *callbackOutcome, log zerolog.Logger) {
	if s.verifier == nil {
		out.verification = "skipped"
		return
	}

	res, err := s.verifier.Verify(ctx, rec.TransactionNumber)
	if err != nil {
		log.Error().Err(err).Str("transaction_number", rec.TransactionNumber).Msg("gateway verification unavailable, keeping callback status")
		out.verification = "unreachable"
		s.recordAudit(ctx, domain.AuditActionVerificationFailed, rec, map[string]any{"error": err.Error()})
		return
	}

	if _, ok := s.acceptedStatuses[res.TransactionStatus]; ok {
		now := s.now().UTC()
		out.verifiedAt = &now
		out.verification = "confirmed"
		return
	}

	log.Warn().
		Bool("security_event", true).
		Int("transaction_status", res.TransactionStatus).
		Msg("gateway verification rejected a successful callback, downgrading to failed")
	out.status = domain.TransactionStatusFailed
	out.message = msgVerificationFailed
	out.verification = "rejected"
	s.recordAudit(ctx, domain.AuditActionVerificationRejected, rec, map[string]any{"transaction_status": res.TransactionStatus})
}

// persist applies the outcome under a row lock. The transaction row and the source
// record are written in one database transaction.
func (s *SadadCallbackService) persist(
	ctx context.Context,
	rec *domain.CallbackRecord,
	out *callbackOutcome,
	log zerolog.Logger,
) (*domain.CallbackResult, *domain.SourceRecord, *domain.PaymentTransaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByOrderIDForUpdate(ctx, dbTx, rec.OrderID)
	if err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil || txn.SourceKind != s.kind {
		log.Warn().Msg("callback for unknown transaction")
		if s.kind == domain.SourceKindProductOrder {
			return nil, nil, nil, apperror.ErrNotFound("Transaction")
		}
		return &domain.CallbackResult{
			Success:    false,
			Status:     out.status,
			OrderID:    rec.OrderID,
			SourceKind: s.kind,
			Message:    msgTransactionNotFound,
			NotFound:   true,
		}, nil, nil, nil
	}

	result := &domain.CallbackResult{
		Success:    true,
		Status:     txn.Status,
		OrderID:    rec.OrderID,
		SourceKind: s.kind,
		SourceID:   txn.SourceID().String(),
	}

	if !txn.Status.CanTransition(out.status) {
		if txn.Status == out.status && !txn.IsTerminal() {
			return s.recordProgress(ctx, dbTx, txn, rec, out, result, log)
		}
		if txn.IsTerminal() {
			result.Message = msgAlreadyProcessed
		}
		log.Info().
			Str("current", string(txn.Status)).
			Str("received", string(out.status)).
			Msg("callback does not change transaction state")
		return result, nil, txn, nil
	}

	update := s.transactionUpdate(txn, rec, out)
	if err := s.txRepo.ApplyUpdate(ctx, dbTx, txn.ID, update); err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("update transaction: %w", err))
	}

	src, err := s.sources.GetForUpdate(ctx, dbTx, txn.SourceID())
	if err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("lock %s: %w", s.kind, err))
	}
	if src == nil {
		log.Error().Str("source_id", txn.SourceID().String()).Msg("source record missing, transaction updated alone")
	} else if reason := supersededReason(src, rec.OrderID, out.status); reason != "" {
		log.Warn().
			Str("source_id", src.ID.String()).
			Str("reason", reason).
			Str("source_payment_status", src.PaymentStatus).
			Str("source_gateway_order_id", src.GatewayOrderID).
			Str("received", string(out.status)).
			Msg("source record left unchanged, transaction updated alone")
		src = nil
	} else {
		paymentStatus, recordStatus := domain.SourceUpdateFor(out.status)
		if err := s.sources.UpdatePayment(ctx, dbTx, domain.SourcePaymentUpdate{
			Kind:              s.kind,
			ID:                src.ID,
			PaymentMethod:     domain.PaymentMethodSadad,
			PaymentStatus:     paymentStatus,
			Status:            recordStatus,
			GatewayOrderID:    rec.OrderID,
			TransactionNumber: update.TransactionNumber,
		}); err != nil {
			return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("update %s: %w", s.kind, err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	txn.Status = out.status
	result.Status = out.status
	result.Transitioned = true
	if out.status != domain.TransactionStatusCompleted {
		result.Message = out.message
	}
	return result, src, txn, nil
}

// recordProgress stores the details of a callback that repeats the current non-terminal
// status. Nothing else changes.
func (s *SadadCallbackService) recordProgress(
	ctx context.Context,
	dbTx pgx.Tx,
	txn *domain.PaymentTransaction,
	rec *domain.CallbackRecord,
	out *callbackOutcome,
	result *domain.CallbackResult,
	log zerolog.Logger,
) (*domain.CallbackResult, *domain.SourceRecord, *domain.PaymentTransaction, error) {
	if err := s.txRepo.ApplyUpdate(ctx, dbTx, txn.ID, s.transactionUpdate(txn, rec, out)); err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("update transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	log.Info().Str("status", string(txn.Status)).Str("response_code", rec.StatusCode).Msg("callback recorded without state change")
	result.Message = out.message
	return result, nil, txn, nil
}

func (s *SadadCallbackService) transactionUpdate(txn *domain.PaymentTransaction, rec *domain.CallbackRecord, out *callbackOutcome) domain.TransactionUpdate {
	update := domain.TransactionUpdate{
		Status:          out.status,
		ResponseCode:    strPtr(rec.StatusCode),
		ResponseMessage: strPtr(out.message),
		Metadata:        s.callbackMetadata(txn, rec, out),
		VerifiedAt:      out.verifiedAt,
	}
	if rec.TransactionNumber != "" {
		update.TransactionNumber = &rec.TransactionNumber
	}
	switch out.status {
	case domain.TransactionStatusCompleted:
		now := s.now().UTC()
		update.PaymentDate = &now
	case domain.TransactionStatusFailed, domain.TransactionStatusCancelled:
		update.ErrorMessage = strPtr(out.message)
	}
	return update
}

// supersededReason explains why a callback must not touch the source record, or returns "".
// A paid record is final. Another attempt owns the record unless this one completed.
func supersededReason(src *domain.SourceRecord, orderID string, status domain.TransactionStatus) string {
	if src.IsPaid() {
		return "already_paid"
	}
	if src.GatewayOrderID != "" && src.GatewayOrderID != orderID && status != domain.TransactionStatusCompleted {
		return "superseded_attempt"
	}
	return ""
}

func (s *SadadCallbackService) callbackMetadata(txn *domain.PaymentTransaction, rec *domain.CallbackRecord, out *callbackOutcome) map[string]any {
	meta := make(map[string]any, len(txn.Metadata)+4)
	maps.Copy(meta, txn.Metadata)
	meta["callback"] = rec.Fields.ToMap()
	meta["checksum_verified"] = out.checksumVerified
	meta["client_ip"] = rec.ClientIP
	if out.verification != "" {
		meta["verification"] = out.verification
	}
	return meta
}

// notify is best effort: the callback already committed.
func (s *SadadCallbackService) notify(ctx context.Context, src *domain.SourceRecord, txn *domain.PaymentTransaction, log zerolog.Logger) {
	notes := domain.CompletionNotifications(src, txn.Amount, txn.Currency, s.now().UTC())
	inserted, err := s.notifRepo.CreateMany(ctx, notes)
	if err != nil {
		log.Warn().Err(err).Msg("failed to insert payment notifications")
		return
	}
	log.Info().Int("notifications", inserted).Msg("payment notifications sent")
}

func (s *SadadCallbackService) cachedReplay(ctx context.Context, key string, log zerolog.Logger) *domain.CallbackResult {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis replay check failed, falling through to DB")
		return nil
	}
	if cached == nil {
		return nil
	}

	var replay domain.CallbackReplay
	if err := json.Unmarshal(cached, &replay); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding unreadable replay entry")
		return nil
	}
	result := replay.Result
	result.SourceKind = s.kind
	result.SourceID = replay.SourceID
	return &result
}

func (s *SadadCallbackService) storeReplay(ctx context.Context, key string, result *domain.CallbackResult, log zerolog.Logger) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(domain.CallbackReplay{Key: key, Result: *result, SourceID: result.SourceID})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, callbackReplayTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache callback replay in redis")
	}
}

func (s *SadadCallbackService) recordAudit(ctx context.Context, action domain.AuditAction, rec *domain.CallbackRecord, extra map[string]any) {
	if s.audit == nil {
		return
	}
	details := map[string]any{
		"flavour":            string(rec.Flavour),
		"status_code":        rec.StatusCode,
		"transaction_number": rec.TransactionNumber,
	}
	maps.Copy(details, extra)
	raw, _ := json.Marshal(details)

	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: "payment_transaction",
		ResourceID:   rec.OrderID,
		Details:      string(raw),
		IPAddress:    rec.ClientIP,
		CreatedAt:    s.now().UTC(),
	})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
