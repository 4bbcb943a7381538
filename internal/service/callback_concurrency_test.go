package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"sadad-payment-service/internal/core/domain"
	"sadad-payment-service/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowLockTransactor serializes transactions the way FOR UPDATE serializes
// callbacks for one order: the lock is held from Begin until Commit or Rollback.
type rowLockTransactor struct {
	mu      sync.Mutex
	commits atomic.Int64
}

type rowLockTx struct {
	pgx.Tx
	owner *rowLockTransactor
	once  sync.Once
}

func (t *rowLockTx) release() {
	t.once.Do(t.owner.mu.Unlock)
}

func (t *rowLockTx) Commit(_ context.Context) error {
	t.owner.commits.Add(1)
	t.release()
	return nil
}

func (t *rowLockTx) Rollback(_ context.Context) error {
	t.release()
	return nil
}

func (m *rowLockTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	return &rowLockTx{owner: m}, nil
}

type syncNotifRepo struct {
	mu    sync.Mutex
	inner *memNotifRepo
	calls int
}

func (r *syncNotifRepo) CreateMany(ctx context.Context, notes []domain.Notification) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.inner.CreateMany(ctx, notes)
}

type countingVerifier struct {
	calls atomic.Int64
}

func (v *countingVerifier) Verify(_ context.Context, _ string) (*ports.VerificationResult, error) {
	v.calls.Add(1)
	return &ports.VerificationResult{TransactionStatus: 1}, nil
}

// TestCallbackService_ConcurrentDuplicates fires the same success callback from many
// goroutines, as a gateway retrying on a slow response would, and checks the
// transaction moves exactly once and notifications are written once.
func TestCallbackService_ConcurrentDuplicates(t *testing.T) {
	d := setupCallbackService(t, domain.SourceKindProductOrder, callbackConfig())
	fields := productFields(t, d, "1", "Txn Success")

	trx := &rowLockTransactor{}
	notifs := &syncNotifRepo{inner: &memNotifRepo{seen: map[string]struct{}{}}}
	verifier := &countingVerifier{}
	svc := NewCallbackService(callbackConfig(), domain.DefaultGatewayCodes(), d.sources, d.txRepo, notifs,
		trx, d.checksum, verifier, nil, d.audit, zerolog.Nop())
	svc.now = d.svc.now

	const concurrency = 50
	var (
		wg           sync.WaitGroup
		transitioned atomic.Int64
		completed    atomic.Int64
		failures     atomic.Int64
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Handle(context.Background(), fields, "10.0.0.1")
			if err != nil {
				failures.Add(1)
				return
			}
			if res.Transitioned {
				transitioned.Add(1)
			}
			if res.Success && res.Status == domain.TransactionStatusCompleted {
				completed.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failures.Load())
	assert.Equal(t, int64(1), transitioned.Load(), "exactly one callback applies the transition")
	assert.Equal(t, int64(concurrency), completed.Load(), "every duplicate reports the settled status")
	assert.Equal(t, int64(1), trx.commits.Load())

	txn := d.txRepo.get(testOrderID)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Len(t, d.txRepo.updates, 1)
	assert.Len(t, d.sources.updates, 1)

	assert.Equal(t, 1, notifs.calls)
	assert.Len(t, notifs.inner.rows, 2)
}

// TestCallbackService_ConcurrentConflictingOutcomes races a success against a decline.
// Whichever commits first wins and the other becomes a no-op.
func TestCallbackService_ConcurrentConflictingOutcomes(t *testing.T) {
	d := setupCallbackService(t, domain.SourceKindProductOrder, callbackConfig())
	success := productFields(t, d, "1", "Txn Success")
	declined := productFields(t, d, "810", "Card declined")

	trx := &rowLockTransactor{}
	notifs := &syncNotifRepo{inner: &memNotifRepo{seen: map[string]struct{}{}}}
	svc := NewCallbackService(callbackConfig(), domain.DefaultGatewayCodes(), d.sources, d.txRepo, notifs,
		trx, d.checksum, &countingVerifier{}, nil, d.audit, zerolog.Nop())
	svc.now = d.svc.now

	var wg sync.WaitGroup
	results := make([]*domain.CallbackResult, 2)
	for i, fields := range []domain.CallbackFields{success, declined} {
		wg.Add(1)
		go func(i int, fields domain.CallbackFields) {
			defer wg.Done()
			res, err := svc.Handle(context.Background(), fields, "10.0.0.1")
			assert.NoError(t, err)
			results[i] = res
		}(i, fields)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.NotEqual(t, results[0].Transitioned, results[1].Transitioned, "only one outcome is applied")

	final := d.txRepo.get(testOrderID).Status
	assert.Equal(t, final, results[0].Status)
	assert.Equal(t, final, results[1].Status)
	assert.Len(t, d.txRepo.updates, 1)

	if final == domain.TransactionStatusCompleted {
		assert.Len(t, notifs.inner.rows, 2)
	} else {
		assert.Equal(t, domain.TransactionStatusFailed, final)
		assert.Empty(t, notifs.inner.rows)
	}
}
