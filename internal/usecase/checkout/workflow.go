package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/diqie123/school-cashier-pro/internal/format"
	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

type Step string

const (
	StepIdle           Step = "idle"
	StepSelectStudent  Step = "select-student"
	StepPaymentDetails Step = "payment-details"
	StepConfirmation   Step = "confirmation"
	StepSuccess        Step = "success"
)

var (
	ErrInvalidStep    = errors.New("action not allowed in current step")
	ErrCommitInFlight = errors.New("commit already in progress")
	// ErrAbandoned means the session moved on while a commit was running.
	// The transaction, if stored, stays valid.
	ErrAbandoned     = errors.New("checkout abandoned during commit")
	ErrCommitTimeout = errors.New("commit timed out")
	// ErrNotInResults means the student id did not come from the last search.
	ErrNotInResults = fmt.Errorf("%w: student is not in the search results", trxuc.ErrValidation)
)

type StudentDirectory interface {
	Search(ctx context.Context, query string, limit int) ([]studentuc.Student, error)
	GetByID(ctx context.Context, id string) (*studentuc.Student, error)
}

type Committer interface {
	Commit(ctx context.Context, op auth.Operator, in trxuc.Draft) (*trxuc.Transaction, error)
}

type Deps struct {
	Students       StudentDirectory
	Committer      Committer
	Fees           FeeTable
	PlaceholderFee int64
	Policy         trxuc.DiscountPolicy
	CommitTimeout  time.Duration
	SearchLimit    int
	// Notifier receives every notice in addition to the session inbox.
	Notifier Notifier
}

// PaymentInput changes the payment part of the draft. Nil fields are left as is.
type PaymentInput struct {
	Discount     *int64               `json:"diskon"`
	Method       *trxuc.PaymentMethod `json:"metodePembayaran"`
	CashReceived *int64               `json:"uangDiterima"`
	Notes        *string              `json:"catatan"`
}

// View is a read-only snapshot of a workflow.
type View struct {
	ID            string              `json:"id"`
	Step          Step                `json:"step"`
	Operator      auth.Operator       `json:"operator"`
	Student       *studentuc.Student  `json:"student,omitempty"`
	SearchResults []studentuc.Student `json:"searchResults"`
	Items         []trxuc.Item        `json:"items"`
	Summary       trxuc.Summary       `json:"summary"`
	CanCommit     bool                `json:"canCommit"`
	Notes         *string             `json:"catatan,omitempty"`
	Committing    bool                `json:"committing"`
	Transaction   *trxuc.Transaction  `json:"transaction,omitempty"`
	Notices       []Notice            `json:"notifications"`
}

// Workflow drives one operator through select student, payment details,
// confirmation and success.
type Workflow struct {
	mu sync.Mutex

	id       string
	op       auth.Operator
	deps     Deps
	inbox    *Inbox
	notifier Notifier
	now      func() time.Time

	step       Step
	student    *studentuc.Student
	results    []studentuc.Student
	ledger     *Ledger
	discount   int64
	method     trxuc.PaymentMethod
	cash       int64
	notes      *string
	last       *trxuc.Transaction
	committing bool
	// gen changes whenever transient state is thrown away
	gen        uint64
	lastActive time.Time
}

func NewWorkflow(id string, op auth.Operator, deps Deps) *Workflow {
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = 5
	}
	if deps.Policy == "" {
		deps.Policy = trxuc.PolicyReject
	}
	inbox := NewInbox(20)
	w := &Workflow{
		id:       id,
		op:       op,
		deps:     deps,
		inbox:    inbox,
		notifier: Multi(inbox, deps.Notifier),
		now:      time.Now,
		ledger: NewLedger(Pricing{
			Fees:           deps.Fees,
			PlaceholderFee: deps.PlaceholderFee,
		}),
	}
	w.resetLocked()
	w.step = StepSelectStudent
	return w
}

func (w *Workflow) ID() string              { return w.id }
func (w *Workflow) Operator() auth.Operator { return w.op }

func (w *Workflow) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// Busy reports whether a commit is in flight.
func (w *Workflow) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.committing
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Workflow) resetLocked() {
	w.student = nil
	w.results = nil
	w.ledger.Reset()
	w.discount = 0
	w.method = trxuc.MethodCash
	w.cash = 0
	w.notes = nil
	w.last = nil
	w.gen++
	w.lastActive = w.now()
}

func (w *Workflow) requireLocked(steps ...Step) error {
	w.lastActive = w.now()
	for _, s := range steps {
		if w.step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidStep, w.step)
}

// StartNew clears everything and opens student selection.
func (w *Workflow) StartNew() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	w.step = StepSelectStudent
}

// Abandon discards the draft and parks the workflow in idle.
func (w *Workflow) Abandon() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	w.step = StepIdle
}

// Search looks students up by NIS or name. Results that arrive after the
// session moved on are dropped.
func (w *Workflow) Search(ctx context.Context, query string) ([]studentuc.Student, error) {
	w.mu.Lock()
	if err := w.requireLocked(StepSelectStudent); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	limit := w.deps.SearchLimit
	gen := w.gen
	w.mu.Unlock()

	found, err := w.deps.Students.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(found) > limit {
		found = found[:limit]
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.step != StepSelectStudent {
		return nil, fmt.Errorf("%w: session moved on during search", ErrInvalidStep)
	}
	w.results = found
	if len(found) == 0 && strings.TrimSpace(query) != "" {
		w.notifier.Notify(ctx, KindInfo, "Siswa tidak ditemukan")
	}
	return append([]studentuc.Student(nil), found...), nil
}

// SelectStudent picks one of the last search results and re-reads it from
// the directory.
func (w *Workflow) SelectStudent(ctx context.Context, studentID string) error {
	w.mu.Lock()
	if err := w.requireLocked(StepSelectStudent); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.inResultsLocked(studentID) {
		w.mu.Unlock()
		return ErrNotInResults
	}
	gen := w.gen
	w.mu.Unlock()

	st, err := w.deps.Students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, studentuc.ErrNotFound) {
			w.notifier.Notify(ctx, KindError, "Siswa tidak ditemukan")
			return fmt.Errorf("%w: %v", trxuc.ErrStudentMissing, err)
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepSelectStudent); err != nil {
		return err
	}
	if w.gen != gen {
		return fmt.Errorf("%w: session moved on during selection", ErrInvalidStep)
	}
	w.student = st
	w.ledger.Bind(st.Kelas)
	w.step = StepPaymentDetails
	return nil
}

func (w *Workflow) inResultsLocked(id string) bool {
	for _, s := range w.results {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (w *Workflow) AddItem(ctx context.Context, paymentType string, amount *int64) (trxuc.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepPaymentDetails); err != nil {
		return trxuc.Item{}, err
	}
	it, err := w.ledger.AddItem(ctx, paymentType, amount)
	if err != nil {
		w.notifier.Notify(ctx, KindError, userMessage(err))
	}
	return it, err
}

func (w *Workflow) UpdateItem(ctx context.Context, index int, field Field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepPaymentDetails); err != nil {
		return err
	}
	if err := w.ledger.UpdateItem(index, field, value); err != nil {
		w.notifier.Notify(ctx, KindError, userMessage(err))
		return err
	}
	return nil
}

func (w *Workflow) RemoveItem(ctx context.Context, index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepPaymentDetails); err != nil {
		return err
	}
	if err := w.ledger.RemoveItem(index); err != nil {
		w.notifier.Notify(ctx, KindError, userMessage(err))
		return err
	}
	return nil
}

func (w *Workflow) SetPayment(ctx context.Context, in PaymentInput) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepPaymentDetails, StepConfirmation); err != nil {
		return err
	}

	if in.Discount != nil {
		if err := trxuc.CheckAmount("discount", *in.Discount); err != nil {
			return err
		}
	}
	if in.CashReceived != nil {
		if err := trxuc.CheckAmount("cash received", *in.CashReceived); err != nil {
			return err
		}
	}
	if in.Method != nil && !in.Method.Valid() {
		return fmt.Errorf("%w: %q", trxuc.ErrInvalidMethod, *in.Method)
	}

	if in.Discount != nil {
		w.discount = *in.Discount
	}
	if in.Method != nil {
		w.method = *in.Method
	}
	if in.CashReceived != nil {
		w.cash = *in.CashReceived
	}
	if in.Notes != nil {
		n := strings.TrimSpace(*in.Notes)
		if n == "" {
			w.notes = nil
		} else {
			w.notes = &n
		}
	}
	return nil
}

// Proceed moves from payment details to confirmation.
func (w *Workflow) Proceed(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepPaymentDetails); err != nil {
		return err
	}
	if w.ledger.Len() == 0 {
		w.notifier.Notify(ctx, KindError, userMessage(trxuc.ErrNoItems))
		return trxuc.ErrNoItems
	}
	w.step = StepConfirmation
	return nil
}

func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepConfirmation); err != nil {
		return err
	}
	if w.committing {
		return ErrCommitInFlight
	}
	w.step = StepPaymentDetails
	return nil
}

// ChangeStudent returns to student selection and drops the items, which were
// priced for the previous student.
func (w *Workflow) ChangeStudent() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireLocked(StepPaymentDetails, StepConfirmation); err != nil {
		return err
	}
	w.resetLocked()
	w.step = StepSelectStudent
	return nil
}

// Commit records the transaction. The lock is released while the commit
// service runs so the session can still be read or abandoned.
func (w *Workflow) Commit(ctx context.Context) (*trxuc.Transaction, error) {
	w.mu.Lock()
	if err := w.requireLocked(StepConfirmation); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.committing {
		w.mu.Unlock()
		return nil, ErrCommitInFlight
	}
	if !auth.CanCommitTransaction(w.op.Role) {
		w.mu.Unlock()
		w.notifier.Notify(ctx, KindError, "Anda tidak memiliki izin untuk menyimpan transaksi")
		return nil, fmt.Errorf("%w: role %q", trxuc.ErrForbidden, w.op.Role)
	}
	if err := w.gateLocked(); err != nil {
		w.mu.Unlock()
		w.notifier.Notify(ctx, KindError, userMessage(err))
		return nil, err
	}

	draft := w.draftLocked()
	gen := w.gen
	w.committing = true
	w.mu.Unlock()

	cctx := ctx
	if w.deps.CommitTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, w.deps.CommitTimeout)
		defer cancel()
	}
	trx, err := w.deps.Committer.Commit(cctx, w.op, draft)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrCommitTimeout, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.committing = false
	w.lastActive = w.now()

	if w.gen != gen {
		if trx != nil {
			log.Printf("[checkout] session %s moved on, discarding result %s", w.id, trx.TransactionCode)
		}
		return nil, ErrAbandoned
	}

	if err != nil {
		w.notifier.Notify(ctx, KindError, userMessage(err))
		if errors.Is(err, trxuc.ErrNotFound) {
			// keep the items, pick the student again
			w.student = nil
			w.results = nil
			w.step = StepSelectStudent
		}
		return nil, err
	}

	w.last = trx
	w.step = StepSuccess
	w.notifier.Notify(ctx, KindSuccess, fmt.Sprintf("Transaksi %s berhasil disimpan (%s)",
		trx.TransactionCode, format.Rupiah(trx.Total)))
	return trx, nil
}

func (w *Workflow) gateLocked() error {
	if w.student == nil {
		return trxuc.ErrMissingStudent
	}
	if w.ledger.Len() == 0 {
		return trxuc.ErrNoItems
	}
	sum, err := w.summaryLocked()
	if err != nil {
		return err
	}
	if sum.CanCommit() {
		return nil
	}
	if sum.Total < 0 {
		return trxuc.ErrNegativeTotal
	}
	return fmt.Errorf("%w: total=%d received=%d", trxuc.ErrInsufficientCash, sum.Total, sum.CashReceived)
}

func (w *Workflow) summaryLocked() (trxuc.Summary, error) {
	return trxuc.Calculate(w.ledger.Items(), w.discount, w.cash, w.method, w.deps.Policy)
}

func (w *Workflow) draftLocked() trxuc.Draft {
	items := w.ledger.Items()
	// gateLocked already checked the amounts
	subtotal, _ := trxuc.Subtotal(items)
	d := trxuc.Draft{
		StudentID:     w.student.ID,
		Items:         items,
		Subtotal:      subtotal,
		Discount:      w.discount,
		Total:         subtotal - w.discount,
		PaymentMethod: w.method,
		Notes:         w.notes,
	}
	if w.method == trxuc.MethodCash {
		cash := w.cash
		d.CashReceived = &cash
	}
	return d
}

// View returns a snapshot and hands over pending notices.
func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	sum, sumErr := w.summaryLocked()
	v := View{
		ID:            w.id,
		Step:          w.step,
		Operator:      w.op,
		SearchResults: append([]studentuc.Student{}, w.results...),
		Items:         append([]trxuc.Item{}, w.ledger.Items()...),
		Summary:       sum,
		CanCommit: w.step == StepConfirmation && !w.committing && w.student != nil &&
			w.ledger.Len() > 0 && sumErr == nil && sum.CanCommit() && auth.CanCommitTransaction(w.op.Role),
		Notes:       w.notes,
		Committing:  w.committing,
		Transaction: w.last,
		Notices:     w.inbox.Drain(),
	}
	if w.student != nil {
		st := *w.student
		v.Student = &st
	}
	return v
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, trxuc.ErrNoItems):
		return "Tambahkan minimal satu item pembayaran"
	case errors.Is(err, trxuc.ErrInsufficientCash):
		return "Uang yang diterima kurang dari total pembayaran"
	case errors.Is(err, trxuc.ErrNegativeTotal):
		return "Diskon melebihi subtotal"
	case errors.Is(err, trxuc.ErrMissingStudent):
		return "Pilih siswa terlebih dahulu"
	case errors.Is(err, ErrIndexOutOfRange):
		return "Item pembayaran tidak ditemukan"
	case errors.Is(err, trxuc.ErrInvalidAmount):
		return "Nominal tidak valid"
	case errors.Is(err, trxuc.ErrValidation):
		return "Data transaksi tidak valid"
	case errors.Is(err, trxuc.ErrNotFound):
		return "Data siswa tidak ditemukan, silakan pilih siswa kembali"
	case errors.Is(err, trxuc.ErrForbidden):
		return "Anda tidak memiliki izin untuk menyimpan transaksi"
	case errors.Is(err, ErrCommitTimeout):
		return "Waktu penyimpanan habis, silakan coba lagi"
	case errors.Is(err, trxuc.ErrConflict):
		return "Kode transaksi bentrok, silakan coba lagi"
	default:
		return "Gagal menyimpan transaksi, silakan coba lagi"
	}
}
