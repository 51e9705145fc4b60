package navigation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"tree_nav/internal/domain/session"
	"tree_nav/internal/domain/tree"
	errs "tree_nav/internal/errors"
	"tree_nav/internal/navigator"
	"tree_nav/internal/report"
)

type TreeStore interface {
	SaveTree(ctx context.Context, upload tree.Upload) error
	GetTree(ctx context.Context, treeID string) (tree.Upload, error)
}

type SessionStore interface {
	StoreSession(ctx context.Context, s session.Session) error
	GetSession(ctx context.Context, sessionID string) (session.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// TreeParser returns the parsed tree and the name of the format it used.
type TreeParser interface {
	Parse(ctx context.Context, source, format string) (*tree.Tree, string, error)
}

type UseCase struct {
	log      *zap.SugaredLogger
	trees    TreeStore
	sessions SessionStore
	parser   TreeParser
	format   string
	now      func() time.Time

	// parsed trees by id, without their source text
	cache *lru.Cache[string, *tree.Upload]

	locks sessionLocks
}

const defaultTreeCacheSize = 256

type Option func(*UseCase)

// WithTreeCacheSize bounds how many parsed trees stay in memory. Non-positive
// sizes keep the default.
func WithTreeCacheSize(size int) Option {
	return func(u *UseCase) {
		if size > 0 {
			u.cache, _ = lru.New[string, *tree.Upload](size)
		}
	}
}

func NewUseCase(log *zap.SugaredLogger, trees TreeStore, sessions SessionStore, parser TreeParser, format string, opts ...Option) *UseCase {
	cache, _ := lru.New[string, *tree.Upload](defaultTreeCacheSize)
	u := &UseCase{
		log:      log,
		trees:    trees,
		sessions: sessions,
		parser:   parser,
		format:   format,
		now:      time.Now,
		cache:    cache,
		locks:    sessionLocks{held: make(map[string]*sessionLock)},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload parses source, stores the tree and opens a session on it.
func (u *UseCase) Upload(ctx context.Context, fileName, source string) (View, error) {
	upload, err := u.storeTree(ctx, fileName, source)
	if err != nil {
		return View{}, err
	}

	now := u.now()
	s := session.Session{
		ID:        uuid.New().String(),
		TreeID:    upload.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.sessions.StoreSession(ctx, s); err != nil {
		return View{}, err
	}

	u.log.Infof("session %s opened on uploaded tree %s (%s)", s.ID, upload.ID, upload.Format)
	return newView(s, upload, navigator.Load(upload.Tree())), nil
}

// StartSession opens a fresh session on a stored tree.
func (u *UseCase) StartSession(ctx context.Context, treeID string) (View, error) {
	upload, err := u.Tree(ctx, treeID)
	if err != nil {
		return View{}, err
	}

	now := u.now()
	s := session.Session{
		ID:        uuid.New().String(),
		TreeID:    upload.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.sessions.StoreSession(ctx, s); err != nil {
		return View{}, err
	}

	u.log.Infof("session %s opened on tree %s", s.ID, upload.ID)
	return newView(s, upload, navigator.Load(upload.Tree())), nil
}

func (u *UseCase) State(ctx context.Context, sessionID string) (View, error) {
	s, upload, state, err := u.restore(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return newView(s, upload, state), nil
}

func (u *UseCase) Choose(ctx context.Context, sessionID string, req session.ChooseRequest) (View, error) {
	unlock := u.locks.lock(sessionID)
	defer unlock()

	s, upload, state, err := u.restore(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	var (
		next  navigator.State
		index int
	)
	if req.Option != nil {
		index = *req.Option
		next, err = state.ChooseIndex(index)
	} else {
		index = valueIndex(state, req.Value)
		next, err = state.ChooseValue(req.Value)
	}
	if errors.Is(err, navigator.ErrInvalidChoice) {
		return View{}, fmt.Errorf("%w: %v", errs.ErrInvalidChoice, err)
	} else if err != nil {
		return View{}, err
	}

	s.Choices = append(s.Choices, index)
	s.UpdatedAt = u.now()
	if err := u.sessions.StoreSession(ctx, s); err != nil {
		return View{}, err
	}
	return newView(s, upload, next), nil
}

func (u *UseCase) Reset(ctx context.Context, sessionID string) (View, error) {
	unlock := u.locks.lock(sessionID)
	defer unlock()

	s, upload, state, err := u.restore(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	s.Choices = nil
	s.UpdatedAt = u.now()
	if err := u.sessions.StoreSession(ctx, s); err != nil {
		return View{}, err
	}
	return newView(s, upload, state.Reset()), nil
}

// ReplaceTree loads a newly uploaded tree into an existing session. On any
// failure the session keeps its previous tree and path.
func (u *UseCase) ReplaceTree(ctx context.Context, sessionID, fileName, source string) (View, error) {
	unlock := u.locks.lock(sessionID)
	defer unlock()

	s, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	upload, err := u.storeTree(ctx, fileName, source)
	if err != nil {
		return View{}, err
	}

	s.TreeID = upload.ID
	s.Choices = nil
	s.UpdatedAt = u.now()
	if err := u.sessions.StoreSession(ctx, s); err != nil {
		return View{}, err
	}

	u.log.Infof("session %s now navigates tree %s", s.ID, upload.ID)
	return newView(s, upload, navigator.Load(upload.Tree())), nil
}

func (u *UseCase) CloseSession(ctx context.Context, sessionID string) error {
	unlock := u.locks.lock(sessionID)
	defer unlock()
	return u.sessions.DeleteSession(ctx, sessionID)
}

// Tree returns a stored upload without its source text, caching it for later
// replays.
func (u *UseCase) Tree(ctx context.Context, treeID string) (*tree.Upload, error) {
	if cached, ok := u.cache.Get(treeID); ok {
		return cached, nil
	}

	upload, err := u.trees.GetTree(ctx, treeID)
	if err != nil {
		return nil, err
	}
	return u.remember(upload), nil
}

func (u *UseCase) remember(upload tree.Upload) *tree.Upload {
	upload.Source = ""
	u.cache.Add(upload.ID, &upload)
	return &upload
}

func (u *UseCase) Report(ctx context.Context, sessionID string, w io.Writer) error {
	s, upload, state, err := u.restore(ctx, sessionID)
	if err != nil {
		return err
	}
	return report.Write(w, report.Meta{
		Title:     "Decision tree path",
		SessionID: s.ID,
		FileName:  upload.FileName,
	}, state)
}

func (u *UseCase) storeTree(ctx context.Context, fileName, source string) (*tree.Upload, error) {
	parsed, format, err := u.parser.Parse(ctx, source, u.format)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", fileName, err)
	}

	upload := tree.Upload{
		ID:        uuid.New().String(),
		FileName:  fileName,
		Format:    format,
		Source:    source,
		Root:      parsed.Root,
		Stats:     parsed.Stats(),
		CreatedAt: u.now(),
	}
	if err := u.trees.SaveTree(ctx, upload); err != nil {
		return nil, err
	}
	return u.remember(upload), nil
}

func (u *UseCase) restore(ctx context.Context, sessionID string) (session.Session, *tree.Upload, navigator.State, error) {
	s, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return session.Session{}, nil, navigator.State{}, err
	}
	upload, err := u.Tree(ctx, s.TreeID)
	if err != nil {
		return session.Session{}, nil, navigator.State{}, err
	}
	state, err := navigator.Replay(upload.Tree(), s.Choices)
	if err != nil {
		u.log.Errorf("session %s does not replay on tree %s: %v", s.ID, s.TreeID, err)
		return session.Session{}, nil, navigator.State{}, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}
	return s, upload, state, nil
}

func valueIndex(state navigator.State, value string) int {
	if n := state.Current(); n != nil {
		for i, b := range n.Options {
			if b.Value == value {
				return i
			}
		}
	}
	return -1
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks serializes mutations of one session and forgets idle ones.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.held[id]
	if !ok {
		sl = &sessionLock{}
		l.held[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
