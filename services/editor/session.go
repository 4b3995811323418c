package editor

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"localeditor/jsondoc"
	"localeditor/mutate"
	"localeditor/reconcile"
	"localeditor/types"
	"localeditor/utils"
	"localeditor/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the load state of a session.
type State string

const (
	StateLoading     State = "loading"
	StateNoReference State = "no_reference"
	StateReady       State = "ready"
)

// Fetcher returns a locale document. It never fails; missing or broken
// files come back as an empty Object.
type Fetcher interface {
	FetchDocument(ctx context.Context, repoPath, filePath string) *jsondoc.Object
}

// Events receives session notifications. *websocket.Publisher implements it.
type Events interface {
	PublishSessionEvent(ctx context.Context, sessionID uuid.UUID, action websocket.SessionAction, metadata map[string]any) error
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID        uuid.UUID        `json:"id"`
	State     State            `json:"state"`
	Selection types.Selections `json:"selection"`
	Settings  types.Settings   `json:"settings"`
	Stats     reconcile.Stats  `json:"stats"`
	Filename  string           `json:"filename"`
	Export    string           `json:"export,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Session owns one translation document and the selection it was loaded
// for. All methods are safe for concurrent use; the documents themselves are
// immutable and replaced on every change.
type Session struct {
	id      uuid.UUID
	fetcher Fetcher
	events  Events

	mu          sync.Mutex
	settings    types.Settings
	selection   types.Selections
	loaded      types.Selections
	state       State
	reference   *jsondoc.Object
	translation *jsondoc.Object
	collapsed   map[string]bool
	loadToken   uint64
	exportKey   string
	updatedAt   time.Time
}

func newSession(id uuid.UUID, fetcher Fetcher, events Events) *Session {
	return &Session{
		id:          id,
		fetcher:     fetcher,
		events:      events,
		state:       StateLoading,
		reference:   jsondoc.NewObject(),
		translation: jsondoc.NewObject(),
		collapsed:   make(map[string]bool),
		updatedAt:   time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// localePath is <langPath>/<locale>/<file>.
func localePath(settings types.Settings, locale, file string) string {
	return path.Join(settings.LangPath, locale, file)
}

func isNewLocale(locale string) bool {
	return locale == "" || locale == types.NewLocaleID
}

// Select loads the reference and translation documents for sel. Both are
// fetched concurrently. When a newer Select starts before this one
// finishes, this result is dropped and the newer one wins. It reports
// whether this load was committed.
func (s *Session) Select(ctx context.Context, settings types.Settings, sel types.Selections) bool {
	s.mu.Lock()
	s.loadToken++
	token := s.loadToken
	s.settings = settings
	s.selection = sel
	s.state = StateLoading
	s.touch()
	s.mu.Unlock()

	s.publish(ctx, websocket.SessionActionLoading, map[string]any{
		"file":               sel.File,
		"ref_locale":         sel.RefLocale,
		"translation_locale": sel.TranslationLocale,
	})

	reference := jsondoc.NewObject()
	translation := jsondoc.NewObject()

	// A load outlives the request that started it so an abandoned request
	// cannot leave the session stuck in loading.
	loadCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	if sel.RefLocale != "" && sel.File != "" {
		g.Go(func() error {
			reference = s.fetcher.FetchDocument(loadCtx, settings.RepoPath, localePath(settings, sel.RefLocale, sel.File))
			return nil
		})
	}
	if !isNewLocale(sel.TranslationLocale) && sel.File != "" {
		g.Go(func() error {
			translation = s.fetcher.FetchDocument(loadCtx, settings.RepoPath, localePath(settings, sel.TranslationLocale, sel.File))
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	if token != s.loadToken {
		s.mu.Unlock()
		utils.Logger.Debug("Dropping superseded load",
			zap.String("session_id", s.id.String()),
			zap.String("file", sel.File),
			zap.Uint64("token", token))
		return false
	}
	if reference == nil {
		reference = jsondoc.NewObject()
	}
	if translation == nil {
		translation = jsondoc.NewObject()
	}
	s.reference = reference
	s.translation = translation
	s.loaded = sel
	s.collapsed = make(map[string]bool)
	if reference.Len() == 0 {
		s.state = StateNoReference
	} else {
		s.state = StateReady
	}
	state := s.state
	s.touch()
	s.mu.Unlock()

	utils.Logger.Info("Session loaded",
		zap.String("session_id", s.id.String()),
		zap.String("file", sel.File),
		zap.String("ref_locale", sel.RefLocale),
		zap.String("translation_locale", sel.TranslationLocale),
		zap.String("state", string(state)),
	)
	s.publish(ctx, websocket.SessionActionLoaded, map[string]any{"state": string(state)})
	return true
}

// Rows returns the flattened editor rows.
func (s *Session) Rows() ([]reconcile.FlatRow, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	reference, translation := s.reference, s.translation
	collapsed := make(map[string]bool, len(s.collapsed))
	for k, v := range s.collapsed {
		collapsed[k] = v
	}
	s.mu.Unlock()

	return reconcile.Flatten(reconcile.Documents(reference, translation), collapsed), nil
}

// SetValue stores text at the dotted key of the translation document.
func (s *Session) SetValue(ctx context.Context, dotted, text string) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.translation = mutate.SetString(s.translation, dotted, text)
	s.touch()
	s.mu.Unlock()

	s.publish(ctx, websocket.SessionActionValueChanged, map[string]any{"path": dotted})
	return nil
}

// Toggle flips the collapsed state of the group at dotted and returns
// whether it is now expanded.
func (s *Session) Toggle(ctx context.Context, dotted string) bool {
	s.mu.Lock()
	expanded := s.collapsed[dotted]
	if expanded {
		delete(s.collapsed, dotted)
	} else {
		s.collapsed[dotted] = true
	}
	s.touch()
	s.mu.Unlock()

	s.publish(ctx, websocket.SessionActionToggled, map[string]any{"path": dotted, "expanded": expanded})
	return expanded
}

// Export renders the translation document with four-space indentation.
func (s *Session) Export() string {
	return jsondoc.PrettyObject(s.Document())
}

// Import replaces the translation document with text. On a parse error or a
// non-object root the current document is kept. While a load is in flight it
// returns ErrNotReady, since the load would overwrite the import.
func (s *Session) Import(ctx context.Context, text string) error {
	doc, err := jsondoc.ParseObject(text)
	if err != nil {
		return fmt.Errorf("import document: %w", err)
	}

	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.translation = doc
	s.touch()
	s.mu.Unlock()

	s.publish(ctx, websocket.SessionActionDocumentReplaced, map[string]any{"keys": doc.Len()})
	return nil
}

// Published records an upload of the exported document under key.
func (s *Session) Published(ctx context.Context, key string) {
	s.mu.Lock()
	s.exportKey = key
	s.touch()
	s.mu.Unlock()

	s.publish(ctx, websocket.SessionActionPublished, map[string]any{"key": key})
}

// LastExport returns the key of the last published export, "" if none.
func (s *Session) LastExport() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportKey
}

// Withdrawn forgets the export stored under key.
func (s *Session) Withdrawn(ctx context.Context, key string) {
	s.mu.Lock()
	if s.exportKey == key {
		s.exportKey = ""
	}
	s.touch()
	s.mu.Unlock()

	s.publish(ctx, websocket.SessionActionWithdrawn, map[string]any{"key": key})
}

// Document returns the current translation document. Callers must not
// mutate it.
func (s *Session) Document() *jsondoc.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translation
}

// Filename is the download name: the base name of the file whose document
// is loaded. A pending selection does not rename the current document.
func (s *Session) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filename(s.loaded.File)
}

func filename(file string) string {
	if file == "" {
		return types.DefaultFile
	}
	return path.Base(file)
}

// Stats counts translated leaves against the reference.
func (s *Session) Stats() reconcile.Stats {
	s.mu.Lock()
	reference, translation := s.reference, s.translation
	s.mu.Unlock()
	return reconcile.Summarize(reconcile.Documents(reference, translation))
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	info := Info{
		ID:        s.id,
		State:     s.state,
		Selection: s.selection,
		Settings:  s.settings,
		Filename:  filename(s.loaded.File),
		Export:    s.exportKey,
		UpdatedAt: s.updatedAt,
	}
	reference, translation := s.reference, s.translation
	s.mu.Unlock()

	info.Stats = reconcile.Summarize(reconcile.Documents(reference, translation))
	return info
}

// Selection returns the current selection.
func (s *Session) Selection() types.Selections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Loaded returns the selection of the documents currently held. It lags
// Selection while a load is in flight.
func (s *Session) Loaded() types.Selections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Settings returns the settings the session was last loaded with.
func (s *Session) Settings() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// State returns the load state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) lastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// touch must be called with mu held.
func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func (s *Session) publish(ctx context.Context, action websocket.SessionAction, metadata map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSessionEvent(ctx, s.id, action, metadata); err != nil {
		utils.Logger.Warn("Failed to publish session event",
			zap.String("session_id", s.id.String()),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
