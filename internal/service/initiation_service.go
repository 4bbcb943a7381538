package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"sadad-payment-service/config"
	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"
	"sadad-payment-service/pkg/apperror"
	"sadad-payment-service/pkg/phpjson"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	initiationLockTTL = 30 * time.Second
	txnDateLayout     = "2006-01-02 15:04:05"
	productOrderPref  = "PROD-"
	lineItemType      = "line_item"
)

// OrderIDFunc returns a fresh gateway order id for one attempt.
type OrderIDFunc func(kind domain.SourceKind, now time.Time) string

// GenerateOrderID returns unix millis plus four random digits, prefixed with PROD- for
// product orders. Uniqueness is enforced by the transactions table.
func GenerateOrderID(kind domain.SourceKind, now time.Time) string {
	id := strconv.FormatInt(now.UnixMilli(), 10) + fmt.Sprintf("%04d", rand.Intn(10000))
	if kind == domain.SourceKindProductOrder {
		return productOrderPref + id
	}
	return id
}

// CallbackPath returns the callback route for a source kind.
func CallbackPath(kind domain.SourceKind) string {
	if kind == domain.SourceKindProductOrder {
		return "/api/v1/payments/sadad/product/callback"
	}
	return "/api/v1/payments/sadad/booking/callback"
}

// SadadInitiationService implements ports.InitiationService for one source kind.
type SadadInitiationService struct {
	cfg        config.SadadConfig
	sources    ports.SourceRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	checksum   ports.ChecksumService
	audit      ports.AuditService
	lock       ports.InitiationLock
	log        zerolog.Logger

	newOrderID OrderIDFunc
	now        func() time.Time
}

// NewInitiationService creates an initiation service for the kind of sources.
// lock may be nil.
func NewInitiationService(
	cfg config.SadadConfig,
	sources ports.SourceRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	checksum ports.ChecksumService,
	audit ports.AuditService,
	lock ports.InitiationLock,
	log zerolog.Logger,
) *SadadInitiationService {
	return &SadadInitiationService{
		cfg:        cfg,
		sources:    sources,
		txRepo:     txRepo,
		transactor: transactor,
		checksum:   checksum,
		audit:      audit,
		lock:       lock,
		log:        log.With().Str("flavour", string(sources.Kind())).Logger(),
		newOrderID: GenerateOrderID,
		now:        time.Now,
	}
}

// Initiate builds and signs the checkout payload, then records the attempt.
// The transaction insert and the source update commit together or not at all.
func (s *SadadInitiationService) Initiate(ctx context.Context, req ports.InitiationRequest) (*ports.InitiationResult, error) {
	kind := s.sources.Kind()
	if req.SourceID == uuid.Nil {
		return nil, apperror.ErrMissingSourceID(sourceField(kind))
	}
	if !s.cfg.Configured() {
		s.log.Error().Msg("sadad merchant credentials are not configured")
		return nil, apperror.ErrGatewayNotConfigured()
	}

	release, err := s.acquire(ctx, kind, req.SourceID)
	if err != nil {
		return nil, err
	}
	defer release()

	src, err := s.sources.Get(ctx, req.SourceID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get %s: %w", kind, err))
	}
	if src == nil {
		return nil, apperror.ErrNotFound(sourceLabel(kind))
	}
	if src.IsPaid() {
		s.log.Warn().Str("source_id", src.ID.String()).Str("gateway_order_id", src.GatewayOrderID).Msg("initiation refused, record already paid")
		return nil, apperror.ErrAlreadyPaid()
	}
	if !src.TotalAmount.IsPositive() {
		return nil, apperror.Validation("payable amount must be greater than zero")
	}

	now := s.now()
	orderID := s.newOrderID(kind, now)
	amount := src.TotalAmount.StringFixed(2)

	email := firstNonEmpty(req.CustomerEmail, src.CustomerEmail)
	custID := email
	if custID == "" {
		custID = src.CustomerID.String()
	}
	if email == "" {
		email = s.cfg.PlaceholderEmail
	}
	mobile := digitsOnly(firstNonEmpty(req.CustomerPhone, src.CustomerPhone))
	if mobile == "" {
		mobile = s.cfg.PlaceholderMobile
	}

	payload := phpjson.Object{
		{Key: "merchant_id", Value: s.cfg.MerchantID},
		{Key: "ORDER_ID", Value: orderID},
		{Key: "WEBSITE", Value: s.website()},
		{Key: "TXN_AMOUNT", Value: amount},
		{Key: "CUST_ID", Value: custID},
		{Key: "EMAIL", Value: email},
		{Key: "MOBILE_NO", Value: mobile},
		{Key: "SADAD_WEBCHECKOUT_PAGE_LANGUAGE", Value: s.cfg.Language},
		{Key: "CALLBACK_URL", Value: s.cfg.CallbackURL(CallbackPath(kind))},
	}
	if req.ReturnURL != "" {
		payload = append(payload, phpjson.Field{Key: "RETURN_URL", Value: req.ReturnURL})
	}
	payload = append(payload,
		phpjson.Field{Key: "txnDate", Value: now.In(s.cfg.Location()).Format(txnDateLayout)},
		phpjson.Field{Key: "VERSION", Value: s.cfg.Version},
		phpjson.Field{Key: "productdetail", Value: productDetail(orderID, src)},
	)

	checksum, err := s.checksum.SignPayload(payload)
	if err != nil {
		return nil, apperror.ErrChecksumGeneration(err)
	}

	txn := &domain.PaymentTransaction{
		ID:            uuid.New(),
		OrderID:       orderID,
		SourceKind:    kind,
		CustomerID:    src.CustomerID,
		Amount:        src.TotalAmount,
		Currency:      s.cfg.Currency,
		PaymentMethod: domain.PaymentMethodSadad,
		Status:        domain.TransactionStatusPending,
		Metadata: map[string]any{
			"order_type":     string(kind),
			"customer_email": email,
			"customer_phone": mobile,
			"customer_name":  firstNonEmpty(req.CustomerName, src.CustomerName),
			"return_url":     req.ReturnURL,
		},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	sourceID := src.ID
	if kind == domain.SourceKindProductOrder {
		txn.ProductOrderID = &sourceID
	} else {
		txn.BookingID = &sourceID
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Insert first: a failed insert must leave the source record untouched.
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrTransactionCreate(err)
	}

	if err := s.sources.UpdatePayment(ctx, dbTx, domain.SourcePaymentUpdate{
		Kind:           kind,
		ID:             src.ID,
		PaymentMethod:  domain.PaymentMethodSadad,
		PaymentStatus:  domain.SourcePaymentProcessing,
		GatewayOrderID: orderID,
	}); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark %s processing: %w", kind, err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("order_id", orderID).
		Str("source_id", src.ID.String()).
		Str("tx_id", txn.ID.String()).
		Str("amount", amount).
		Msg("sadad payment initiated")

	s.recordAudit(ctx, txn, req.ClientIP)

	return &ports.InitiationResult{
		Payload:       payload,
		Checksum:      checksum,
		TransactionID: txn.ID,
		PaymentURL:    s.cfg.PaymentURL(),
	}, nil
}

// acquire takes the per-record initiation lock. A Redis outage degrades to no locking;
// the unique order id still keeps attempts apart.
func (s *SadadInitiationService) acquire(ctx context.Context, kind domain.SourceKind, id uuid.UUID) (func(), error) {
	noop := func() {}
	if s.lock == nil {
		return noop, nil
	}

	key := string(kind) + ":" + id.String()
	ok, err := s.lock.Acquire(ctx, key, initiationLockTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("source_id", id.String()).Msg("initiation lock unavailable, continuing without it")
		return noop, nil
	}
	if !ok {
		return nil, apperror.ErrPaymentInProgress()
	}
	return func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn().Err(err).Str("source_id", id.String()).Msg("failed to release initiation lock")
		}
	}, nil
}

func (s *SadadInitiationService) recordAudit(ctx context.Context, txn *domain.PaymentTransaction, clientIP string) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"order_id":  txn.OrderID,
		"source_id": txn.SourceID().String(),
		"amount":    txn.Amount.StringFixed(2),
	})
	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionPaymentInitiated,
		ResourceType: "payment_transaction",
		ResourceID:   txn.ID.String(),
		Details:      string(details),
		IPAddress:    clientIP,
		CreatedAt:    txn.CreatedAt,
	})
}

// website returns the registered domain, defaulting to the callback host.
func (s *SadadInitiationService) website() string {
	if s.cfg.Website != "" {
		return s.cfg.Website
	}
	if u, err := url.Parse(s.cfg.CallbackBaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.cfg.CallbackBaseURL
}

func productDetail(orderID string, src *domain.SourceRecord) []phpjson.Object {
	items := src.LineItems
	if len(items) == 0 {
		items = []domain.LineItem{{Name: sourceLabel(src.Kind), UnitPrice: src.TotalAmount, Quantity: 1}}
	}

	out := make([]phpjson.Object, 0, len(items))
	for _, item := range items {
		out = append(out, phpjson.Object{
			{Key: "order_id", Value: orderID},
			{Key: "itemname", Value: item.Name},
			{Key: "amount", Value: item.Amount().StringFixed(2)},
			{Key: "quantity", Value: strconv.Itoa(item.Quantity)},
			{Key: "type", Value: lineItemType},
		})
	}
	return out
}

func sourceField(kind domain.SourceKind) string {
	if kind == domain.SourceKindProductOrder {
		return "order_id"
	}
	return "booking_id"
}

func sourceLabel(kind domain.SourceKind) string {
	if kind == domain.SourceKindProductOrder {
		return "Product order"
	}
	return "Booking"
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < 0x80 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
