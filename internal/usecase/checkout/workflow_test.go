package checkout_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diqie123/school-cashier-pro/internal/repository/memory"
	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
	"github.com/diqie123/school-cashier-pro/internal/usecase/checkout"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

var (
	kasir   = auth.Operator{ID: "op-kasir", Name: "Siti Nurhaliza", Role: auth.RoleKasir}
	manager = auth.Operator{ID: "op-manager", Name: "Bambang", Role: auth.RoleManager}
)

type fixture struct {
	db       *memory.DB
	students *studentuc.Usecase
	trx      *trxuc.Usecase
	deps     checkout.Deps
	ahmad    studentuc.Student
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	ahmad := db.AddStudent(studentuc.Student{NIS: "12345", Nama: "Ahmad Fauzi", Kelas: "XI-IPA-1", NoTelpWali: "0812"})
	db.AddStudent(studentuc.Student{NIS: "12399", Nama: "Ahmad Rizal", Kelas: "X-IPS-1", NoTelpWali: "0813"})

	trxStore := memory.NewTransactionStore(db)
	students := studentuc.New(memory.NewStudentStore(db), 5)
	settings := settingsuc.New(memory.NewSettingsStore(db), settingsuc.Settings{
		NominalSPP: map[string]int64{"X": 450000, "XI": 500000, "XII": 550000},
		DefaultSPP: 500000,
	})
	trx := trxuc.New(trxStore, trxuc.NewSequenceCodeGenerator(trxStore))

	return &fixture{
		db:       db,
		students: students,
		trx:      trx,
		ahmad:    ahmad,
		deps: checkout.Deps{
			Students:       students,
			Committer:      trx,
			Fees:           settings,
			PlaceholderFee: 150000,
			Policy:         trxuc.PolicyReject,
			CommitTimeout:  time.Second,
			SearchLimit:    5,
		},
	}
}

func i64(v int64) *int64 { return &v }

func method(m trxuc.PaymentMethod) *trxuc.PaymentMethod { return &m }

// toConfirmation searches, selects Ahmad and adds the given lines.
func toConfirmation(t *testing.T, f *fixture, w *checkout.Workflow, amounts map[string]*int64, order ...string) {
	t.Helper()
	ctx := context.Background()

	found, err := w.Search(ctx, "12345")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, w.SelectStudent(ctx, found[0].ID))

	for _, typ := range order {
		_, err := w.AddItem(ctx, typ, amounts[typ])
		require.NoError(t, err)
	}
	require.NoError(t, w.Proceed(ctx))
	require.Equal(t, checkout.StepConfirmation, w.Step())
}

func TestWorkflow_CashExactChange(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{
		Method:       method(trxuc.MethodCash),
		CashReceived: i64(500000),
	}))
	require.True(t, w.View().CanCommit)

	trx, err := w.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(500000), trx.Total)
	require.Equal(t, int64(0), *trx.ChangeGiven)
	require.Equal(t, trxuc.StatusPaid, trx.Status)
	require.Equal(t, "Ahmad Fauzi", trx.StudentName)
	require.Equal(t, "Siti Nurhaliza", trx.Cashier)

	v := w.View()
	require.Equal(t, checkout.StepSuccess, v.Step)
	require.Equal(t, trx.TransactionCode, v.Transaction.TransactionCode)
	require.NotEmpty(t, v.Notices)
	require.Equal(t, checkout.KindSuccess, v.Notices[len(v.Notices)-1].Kind)
}

func TestWorkflow_TransferWithDiscount(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, map[string]*int64{"Uang Ujian": i64(100000)}, "SPP", "Uang Ujian")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{
		Discount: i64(50000),
		Method:   method(trxuc.MethodBankTransfer),
	}))

	v := w.View()
	require.Equal(t, int64(600000), v.Summary.Subtotal)
	require.Equal(t, int64(550000), v.Summary.Total)

	trx, err := w.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(550000), trx.Total)
	require.Nil(t, trx.CashReceived)
	require.Nil(t, trx.ChangeGiven)
}

func TestWorkflow_InsufficientCashStaysOnConfirmation(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{CashReceived: i64(400000)}))
	require.False(t, w.View().CanCommit)

	_, err := w.Commit(ctx)
	require.ErrorIs(t, err, trxuc.ErrValidation)
	require.ErrorIs(t, err, trxuc.ErrInsufficientCash)

	v := w.View()
	require.Equal(t, checkout.StepConfirmation, v.Step)
	require.Len(t, v.Items, 1)
	require.Equal(t, checkout.KindError, v.Notices[len(v.Notices)-1].Kind)

	all, err := f.trx.List(ctx, trxuc.ListQuery{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestWorkflow_DiscountAboveSubtotalRejected(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{
		Discount: i64(600000),
		Method:   method(trxuc.MethodEWallet),
	}))

	v := w.View()
	require.False(t, v.CanCommit)
	require.Equal(t, int64(-100000), v.Summary.Total)

	_, err := w.Commit(ctx)
	require.ErrorIs(t, err, trxuc.ErrNegativeTotal)
	require.Equal(t, checkout.StepConfirmation, w.Step())

	all, err := f.trx.List(ctx, trxuc.ListQuery{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestWorkflow_AmountsOutOfRange(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, map[string]*int64{"SPP": i64(trxuc.MaxAmount)}, "SPP")
	require.NoError(t, w.Back())
	_, err := w.AddItem(ctx, "Buku", i64(math.MaxInt64))
	require.ErrorIs(t, err, trxuc.ErrInvalidAmount)
	_, err = w.AddItem(ctx, "Buku", i64(1))
	require.ErrorIs(t, err, trxuc.ErrInvalidAmount)

	err = w.SetPayment(ctx, checkout.PaymentInput{CashReceived: i64(math.MaxInt64)})
	require.ErrorIs(t, err, trxuc.ErrInvalidAmount)
	err = w.SetPayment(ctx, checkout.PaymentInput{Discount: i64(trxuc.MaxAmount + 1)})
	require.ErrorIs(t, err, trxuc.ErrInvalidAmount)

	v := w.View()
	require.Len(t, v.Items, 1)
	require.Equal(t, trxuc.MaxAmount, v.Summary.Subtotal)
}

func TestWorkflow_ManagerCannotCommit(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", manager, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{CashReceived: i64(500000)}))
	require.False(t, w.View().CanCommit)

	_, err := w.Commit(ctx)
	require.ErrorIs(t, err, trxuc.ErrForbidden)
	require.Equal(t, checkout.StepConfirmation, w.Step())
}

func TestWorkflow_StepGuards(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	_, err := w.AddItem(ctx, "SPP", nil)
	require.ErrorIs(t, err, checkout.ErrInvalidStep)
	require.ErrorIs(t, w.Proceed(ctx), checkout.ErrInvalidStep)
	_, err = w.Commit(ctx)
	require.ErrorIs(t, err, checkout.ErrInvalidStep)

	require.ErrorIs(t, w.SelectStudent(ctx, f.ahmad.ID), checkout.ErrNotInResults)
	_, err = w.Search(ctx, "Ahmad Fauzi")
	require.NoError(t, err)
	require.ErrorIs(t, w.SelectStudent(ctx, "no-such-id"), checkout.ErrNotInResults)
	require.NoError(t, w.SelectStudent(ctx, f.ahmad.ID))
	require.ErrorIs(t, w.Proceed(ctx), trxuc.ErrNoItems)
	require.Equal(t, checkout.StepPaymentDetails, w.Step())

	_, err = w.AddItem(ctx, "SPP", nil)
	require.NoError(t, err)
	require.NoError(t, w.Proceed(ctx))
	require.NoError(t, w.Back())
	require.Equal(t, checkout.StepPaymentDetails, w.Step())
	require.Len(t, w.View().Items, 1)
}

func TestWorkflow_ChangeStudentDiscardsDraft(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP", "Buku")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{Discount: i64(10), CashReceived: i64(1)}))

	require.NoError(t, w.ChangeStudent())
	v := w.View()
	require.Equal(t, checkout.StepSelectStudent, v.Step)
	require.Empty(t, v.Items)
	require.Nil(t, v.Student)
	require.Zero(t, v.Summary.Discount)
	require.Equal(t, trxuc.MethodCash, v.Summary.Method)
}

func TestWorkflow_StartNewAfterSuccess(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{Method: method(trxuc.MethodEWallet)}))
	_, err := w.Commit(ctx)
	require.NoError(t, err)

	w.StartNew()
	v := w.View()
	require.Equal(t, checkout.StepSelectStudent, v.Step)
	require.Empty(t, v.Items)
	require.Nil(t, v.Transaction)
	require.Equal(t, trxuc.MethodCash, v.Summary.Method)
}

func TestWorkflow_StudentDeletedBeforeCommit(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{Method: method(trxuc.MethodEWallet)}))
	require.NoError(t, f.students.Delete(ctx, f.ahmad.ID))

	_, err := w.Commit(ctx)
	require.ErrorIs(t, err, trxuc.ErrNotFound)

	v := w.View()
	require.Equal(t, checkout.StepSelectStudent, v.Step)
	require.Len(t, v.Items, 1)
}

func TestWorkflow_SearchLimitAndCase(t *testing.T) {
	f := newFixture(t)
	w := checkout.NewWorkflow("s1", kasir, f.deps)

	found, err := w.Search(context.Background(), "AHMAD")
	require.NoError(t, err)
	require.Len(t, found, 2)

	found, err = w.Search(context.Background(), "zzz")
	require.NoError(t, err)
	require.Empty(t, found)
	v := w.View()
	require.Equal(t, checkout.KindInfo, v.Notices[0].Kind)
}

type blockingDirectory struct {
	started chan struct{}
	release chan struct{}
	checkout.StudentDirectory
}

func (b *blockingDirectory) Search(ctx context.Context, query string, limit int) ([]studentuc.Student, error) {
	close(b.started)
	<-b.release
	return b.StudentDirectory.Search(ctx, query, limit)
}

func TestWorkflow_SearchResultsDroppedAfterRestart(t *testing.T) {
	f := newFixture(t)
	bd := &blockingDirectory{started: make(chan struct{}), release: make(chan struct{}), StudentDirectory: f.students}
	f.deps.Students = bd
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := w.Search(ctx, "Ahmad")
		errc <- err
	}()

	<-bd.started
	w.Abandon()
	w.StartNew()
	close(bd.release)

	require.ErrorIs(t, <-errc, checkout.ErrInvalidStep)
	v := w.View()
	require.Equal(t, checkout.StepSelectStudent, v.Step)
	require.Empty(t, v.SearchResults)
}

type blockingCommitter struct {
	started chan struct{}
	release chan struct{}
	inner   checkout.Committer
}

func (b *blockingCommitter) Commit(ctx context.Context, op auth.Operator, in trxuc.Draft) (*trxuc.Transaction, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.inner.Commit(ctx, op, in)
}

func TestWorkflow_AbandonDuringCommit(t *testing.T) {
	f := newFixture(t)
	bc := &blockingCommitter{started: make(chan struct{}), release: make(chan struct{}), inner: f.trx}
	f.deps.Committer = bc
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{Method: method(trxuc.MethodEWallet)}))

	errc := make(chan error, 1)
	go func() {
		_, err := w.Commit(ctx)
		errc <- err
	}()

	<-bc.started
	require.True(t, w.Busy())
	_, err := w.Commit(ctx)
	require.ErrorIs(t, err, checkout.ErrCommitInFlight)

	w.Abandon()
	close(bc.release)

	require.ErrorIs(t, <-errc, checkout.ErrAbandoned)
	require.Equal(t, checkout.StepIdle, w.Step())

	// the stored record stays valid
	all, err := f.trx.List(ctx, trxuc.ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestWorkflow_CommitTimeout(t *testing.T) {
	f := newFixture(t)
	bc := &blockingCommitter{started: make(chan struct{}), release: make(chan struct{}), inner: f.trx}
	f.deps.Committer = bc
	f.deps.CommitTimeout = 20 * time.Millisecond
	w := checkout.NewWorkflow("s1", kasir, f.deps)
	ctx := context.Background()

	toConfirmation(t, f, w, nil, "SPP")
	require.NoError(t, w.SetPayment(ctx, checkout.PaymentInput{Method: method(trxuc.MethodEWallet)}))

	_, err := w.Commit(ctx)
	require.ErrorIs(t, err, checkout.ErrCommitTimeout)
	require.Equal(t, checkout.StepConfirmation, w.Step())
	require.Len(t, w.View().Items, 1)
}

func TestRegistry_OwnershipAndReap(t *testing.T) {
	f := newFixture(t)
	reg := checkout.NewRegistry(f.deps, time.Minute)

	w := reg.Create(kasir)
	got, err := reg.Get(w.ID(), kasir)
	require.NoError(t, err)
	require.Same(t, w, got)

	_, err = reg.Get(w.ID(), manager)
	require.ErrorIs(t, err, checkout.ErrSessionNotFound)
	require.ErrorIs(t, reg.Delete(w.ID(), manager), checkout.ErrSessionNotFound)

	require.Zero(t, reg.ReapIdle())
	require.Equal(t, 1, reg.Len())

	require.NoError(t, reg.Delete(w.ID(), kasir))
	require.Equal(t, 0, reg.Len())
	require.Equal(t, checkout.StepIdle, w.Step())
}
