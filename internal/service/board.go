package service

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/pesio-ai/be-quote-approvals/internal/logger"
)

// ErrSuperseded is returned by Board.Reload when a newer reload started while
// this one was in flight. The late result is discarded.
var ErrSuperseded = stderrors.New("approval matrix load superseded by a newer load")

// MatrixLoader builds a matrix view for a quote.
type MatrixLoader interface {
	LoadMatrix(ctx context.Context, quoteID string) (*MatrixView, error)
}

// BoardState is a snapshot of a board's view model.
type BoardState struct {
	QuoteID    string      `json:"quoteId"`
	Generation uint64      `json:"generation"`
	Loading    bool        `json:"loading"`
	Error      string      `json:"error,omitempty"`
	LoadedAt   *time.Time  `json:"loadedAt,omitempty"`
	Matrix     *MatrixView `json:"matrix,omitempty"`
}

// Board holds the approval matrix view model of one quote. Each reload takes
// a new generation; a result is committed only while its generation is the
// latest, so overlapping loads never overwrite a newer view with an older one.
// A failed load leaves the committed matrix in place and records the error.
type Board struct {
	quoteID string
	loader  MatrixLoader
	log     *logger.Logger

	mu        sync.Mutex
	gen       uint64
	committed uint64
	loading   bool
	lastErr   error
	matrix    *MatrixView
}

// NewBoard creates an empty board for quoteID.
func NewBoard(quoteID string, loader MatrixLoader, log *logger.Logger) *Board {
	return &Board{quoteID: quoteID, loader: loader, log: log}
}

// Reload loads the matrix and commits it if no newer reload has started.
func (b *Board) Reload(ctx context.Context) (BoardState, error) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.loading = true
	b.mu.Unlock()

	view, err := b.loader.LoadMatrix(ctx, b.quoteID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		b.log.Debug().
			Str("quote_id", b.quoteID).
			Uint64("generation", gen).
			Uint64("latest", b.gen).
			Msg("Discarding superseded approval matrix load")
		return b.stateLocked(), ErrSuperseded
	}

	b.loading = false
	if err != nil {
		b.lastErr = err
		return b.stateLocked(), err
	}

	b.lastErr = nil
	b.matrix = view
	b.committed = gen
	return b.stateLocked(), nil
}

// State returns the current view model.
func (b *Board) State() BoardState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Board) stateLocked() BoardState {
	st := BoardState{
		QuoteID:    b.quoteID,
		Generation: b.committed,
		Loading:    b.loading,
		Matrix:     b.matrix,
	}
	if b.lastErr != nil {
		st.Error = b.lastErr.Error()
	}
	if b.matrix != nil {
		loadedAt := b.matrix.LoadedAt
		st.LoadedAt = &loadedAt
	}
	return st
}

func (b *Board) hasView() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.matrix != nil
}

// BoardsConfig bounds the board registry. Zero values disable the bound.
type BoardsConfig struct {
	MaxBoards int
	IdleTTL   time.Duration
}

type boardEntry struct {
	board    *Board
	lastUsed time.Time
	active   int
}

// Boards keeps one Board per quote. A board is kept only once it has
// committed a matrix; boards idle past IdleTTL are dropped and, above
// MaxBoards, the least recently used idle board goes first.
type Boards struct {
	loader MatrixLoader
	cfg    BoardsConfig
	log    *logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	boards map[string]*boardEntry
}

// NewBoards creates an empty registry.
func NewBoards(loader MatrixLoader, cfg BoardsConfig, log *logger.Logger) *Boards {
	return &Boards{
		loader: loader,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		boards: make(map[string]*boardEntry),
	}
}

// Reload reloads the board of quoteID, creating it for the duration of the
// load when it does not exist yet.
func (r *Boards) Reload(ctx context.Context, quoteID string) (BoardState, error) {
	e := r.acquire(quoteID)
	st, err := e.board.Reload(ctx)
	r.release(quoteID, e)
	return st, err
}

// Lookup returns the board of quoteID if one is kept.
func (r *Boards) Lookup(quoteID string) (*Board, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.boards[quoteID]
	if !ok {
		return nil, false
	}
	now := r.now()
	if e.active == 0 && r.expired(e, now) {
		delete(r.boards, quoteID)
		return nil, false
	}
	e.lastUsed = now
	return e.board, true
}

// Len returns the number of boards held.
func (r *Boards) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

func (r *Boards) acquire(quoteID string) *boardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.boards[quoteID]
	if !ok {
		e = &boardEntry{board: NewBoard(quoteID, r.loader, r.log)}
		r.boards[quoteID] = e
	}
	e.active++
	e.lastUsed = r.now()
	return e
}

func (r *Boards) release(quoteID string, e *boardEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.active--
	if e.active == 0 && !e.board.hasView() && r.boards[quoteID] == e {
		delete(r.boards, quoteID)
	}
	r.evictLocked()
}

func (r *Boards) expired(e *boardEntry, now time.Time) bool {
	return r.cfg.IdleTTL > 0 && now.Sub(e.lastUsed) > r.cfg.IdleTTL
}

func (r *Boards) evictLocked() {
	now := r.now()
	for id, e := range r.boards {
		if e.active == 0 && r.expired(e, now) {
			delete(r.boards, id)
		}
	}

	for r.cfg.MaxBoards > 0 && len(r.boards) > r.cfg.MaxBoards {
		var (
			oldest   string
			oldestAt time.Time
			found    bool
		)
		for id, e := range r.boards {
			if e.active > 0 {
				continue
			}
			if !found || e.lastUsed.Before(oldestAt) {
				oldest, oldestAt, found = id, e.lastUsed, true
			}
		}
		if !found {
			return
		}
		delete(r.boards, oldest)
		r.log.Debug().Str("quote_id", oldest).Msg("Evicted approval matrix board")
	}
}
