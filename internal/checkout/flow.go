package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
)

// Request carries the buyer's input for one checkout attempt. It is built
// fresh per flow and never persisted as-is; only terminal results reach the
// transaction ledger.
type Request struct {
	Amount      float64
	Currency    string
	MethodID    string
	UserID      string
	Description string
	Metadata    map[string]string
}

// Result is the terminal outcome of a processed payment. Created once by the
// processor step and immutable afterwards.
type Result struct {
	Status        enums.PaymentStatus
	TransactionID string
	Amount        float64
	Total         float64
	Timestamp     time.Time
	ErrorMessage  string
}

// Flow is one checkout state machine instance. All mutation happens under mu;
// readers take a Snapshot.
type Flow struct {
	mu sync.Mutex

	ID       uuid.UUID
	State    enums.CheckoutState
	Method   catalog.Method
	Request  Request
	Total    float64
	Progress int
	Result   *Result

	// LastError is the user-facing message from the most recent validation or
	// processing failure, cleared on the next successful transition.
	LastError string

	CreatedAt time.Time
	UpdatedAt time.Time

	cancel context.CancelFunc
}

// Snapshot is a consistent read-only view of a flow.
type Snapshot struct {
	ID        uuid.UUID
	State     enums.CheckoutState
	MethodID  string
	Amount    float64
	Total     float64
	Progress  int
	Result    *Result
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot copies the flow's observable state under its lock.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        f.ID,
		State:     f.State,
		MethodID:  f.Method.ID,
		Amount:    f.Request.Amount,
		Total:     f.Total,
		Progress:  f.Progress,
		LastError: f.LastError,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.Result != nil {
		res := *f.Result
		snap.Result = &res
	}
	return snap
}
