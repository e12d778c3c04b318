// Package state implements the single authoritative in-memory view of all
// collections. The manager is the only component that calls the store's
// mutation methods; every successful mutation follows the same ordering:
// persist, then cache, then notify subscribers.
package state

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/application/services"
	"mirror-backend/domain/config"
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/observability"
)

// Manager owns the in-memory cache and the ephemeral UI flags. One instance
// is constructed at startup and shared through dependency injection.
type Manager struct {
	store   ports.Store
	scanner *services.CrisisScanner
	limits  *config.Limits
	logger  *zap.Logger
	metrics *observability.Collector

	// mu guards the cache, the ephemeral flags, and the status. Mutations
	// hold it across the durable write so persist-then-cache is atomic with
	// respect to readers.
	mu          sync.RWMutex
	status      Status
	degradedMsg string
	reflections map[string]*entities.Reflection
	threads     map[string]*entities.Thread
	axes        map[string]*entities.IdentityAxis
	settings    *entities.Settings

	currentLayer  valueobjects.Layer
	currentThread valueobjects.ThreadID
	currentAxis   valueobjects.AxisID
	crisisMode    bool

	// subscribers are guarded separately so a callback can unsubscribe
	// itself mid-notification without deadlocking
	subMu       sync.Mutex
	subscribers map[int]Subscriber
	nextSubID   int

	// snapSeq orders snapshots; notifyMu serializes delivery so two
	// concurrent mutations cannot hand subscribers their snapshots out of
	// commit order
	snapSeq      atomic.Uint64
	notifyMu     sync.Mutex
	deliveredSeq uint64
}

// NewManager creates a manager in the Loading state. Initialize must be
// called before mutations are accepted.
func NewManager(
	store ports.Store,
	scanner *services.CrisisScanner,
	limits *config.Limits,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Manager {
	if limits == nil {
		limits = config.NewLimits(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:        store,
		scanner:      scanner,
		limits:       limits,
		logger:       logger,
		metrics:      metrics,
		status:       StatusLoading,
		reflections:  map[string]*entities.Reflection{},
		threads:      map[string]*entities.Thread{},
		axes:         map[string]*entities.IdentityAxis{},
		settings:     entities.DefaultSettings(),
		currentLayer: valueobjects.DefaultLayer,
		subscribers:  map[int]Subscriber{},
	}
}

// Initialize loads every collection into the cache. Idempotent: calling it
// on a Ready manager is a no-op; calling it on a Degraded manager retries
// the load. On failure the manager enters Degraded with an empty cache and
// reports the reason instead of presenting loss as an empty account.
func (m *Manager) Initialize(ctx context.Context) Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusReady {
		return Health{Status: StatusReady}
	}

	reflections, err := m.store.Reflections(ctx)
	if err != nil {
		return m.degradeLocked("load reflections", err)
	}
	threads, err := m.store.Threads(ctx)
	if err != nil {
		return m.degradeLocked("load threads", err)
	}
	axes, err := m.store.Axes(ctx)
	if err != nil {
		return m.degradeLocked("load axes", err)
	}
	settings, err := m.store.Settings(ctx)
	if err != nil {
		return m.degradeLocked("load settings", err)
	}

	m.reflections = make(map[string]*entities.Reflection, len(reflections))
	for _, r := range reflections {
		m.reflections[r.ID().String()] = r
	}
	m.threads = make(map[string]*entities.Thread, len(threads))
	for _, t := range threads {
		m.threads[t.ID().String()] = t
	}
	m.axes = make(map[string]*entities.IdentityAxis, len(axes))
	for _, a := range axes {
		m.axes[a.ID().String()] = a
	}
	m.settings = settings
	m.currentLayer = settings.DefaultLayer()

	m.status = StatusReady
	m.degradedMsg = ""

	m.logger.Info("State manager initialized",
		zap.Int("reflections", len(reflections)),
		zap.Int("threads", len(threads)),
		zap.Int("axes", len(axes)),
	)

	return Health{Status: StatusReady}
}

// degradeLocked records a failed load. Caller holds mu.
func (m *Manager) degradeLocked(operation string, err error) Health {
	m.status = StatusDegraded
	m.degradedMsg = operation + ": " + err.Error()
	m.reflections = map[string]*entities.Reflection{}
	m.threads = map[string]*entities.Thread{}
	m.axes = map[string]*entities.IdentityAxis{}
	m.settings = entities.DefaultSettings()

	m.logger.Error("State manager degraded",
		zap.String("operation", operation),
		zap.Error(err),
	)

	return Health{Status: StatusDegraded, Reason: m.degradedMsg}
}

// Health returns the current lifecycle state
func (m *Manager) Health() Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Health{Status: m.status, Reason: m.degradedMsg}
}

// guardMutationLocked rejects mutations before Initialize completes.
// Caller holds mu.
func (m *Manager) guardMutationLocked(operation string) error {
	if m.status == StatusLoading {
		return pkgerrors.NewUnavailableError(operation)
	}
	return nil
}

// Subscribe registers a callback invoked synchronously after every
// successful mutation. The returned function unsubscribes; it is safe to
// call from within the callback itself. The callback must not invoke
// mutation methods, since it runs while the delivery lock is held.
func (m *Manager) Subscribe(fn Subscriber) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	count := len(m.subscribers)
	m.subMu.Unlock()

	if m.metrics != nil {
		m.metrics.Subscribers.Set(float64(count))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subscribers, id)
			count := len(m.subscribers)
			m.subMu.Unlock()
			if m.metrics != nil {
				m.metrics.Subscribers.Set(float64(count))
			}
		})
	}
}

// notify delivers the snapshot to every subscriber registered at call time.
// Runs outside mu so a subscriber can call back into queries. Delivery is
// serialized in commit order; a snapshot that lost the race to a newer one
// is dropped, the newer snapshot already carries the full state.
func (m *Manager) notify(snap Snapshot) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	if snap.seq <= m.deliveredSeq {
		return
	}
	m.deliveredSeq = snap.seq

	m.subMu.Lock()
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	m.subMu.Unlock()

	for _, id := range ids {
		m.subMu.Lock()
		fn, ok := m.subscribers[id]
		m.subMu.Unlock()
		if !ok {
			// Unsubscribed by an earlier callback in this round
			continue
		}
		fn(snap)
		if m.metrics != nil {
			m.metrics.NotificationsSent.Inc()
		}
	}
}

// snapshotLocked builds a deep snapshot. Caller holds mu (read or write).
func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Reflections:   make([]*entities.Reflection, 0, len(m.reflections)),
		Threads:       make([]*entities.Thread, 0, len(m.threads)),
		Axes:          make([]*entities.IdentityAxis, 0, len(m.axes)),
		Settings:      m.settings.Clone(),
		CurrentLayer:  m.currentLayer,
		CurrentThread: m.currentThread,
		CurrentAxis:   m.currentAxis,
		CrisisMode:    m.crisisMode,
		Health:        Health{Status: m.status, Reason: m.degradedMsg},
		seq:           m.snapSeq.Add(1),
	}
	for _, r := range m.reflections {
		snap.Reflections = append(snap.Reflections, r.Clone())
	}
	for _, t := range m.threads {
		snap.Threads = append(snap.Threads, t.Clone())
	}
	for _, a := range m.axes {
		snap.Axes = append(snap.Axes, a.Clone())
	}

	sort.Slice(snap.Reflections, func(i, j int) bool {
		if !snap.Reflections[i].CreatedAt().Equal(snap.Reflections[j].CreatedAt()) {
			return snap.Reflections[i].CreatedAt().Before(snap.Reflections[j].CreatedAt())
		}
		return snap.Reflections[i].ID().String() < snap.Reflections[j].ID().String()
	})
	sort.Slice(snap.Threads, func(i, j int) bool {
		if !snap.Threads[i].CreatedAt().Equal(snap.Threads[j].CreatedAt()) {
			return snap.Threads[i].CreatedAt().Before(snap.Threads[j].CreatedAt())
		}
		return snap.Threads[i].ID().String() < snap.Threads[j].ID().String()
	})
	sort.Slice(snap.Axes, func(i, j int) bool {
		if !snap.Axes[i].CreatedAt().Equal(snap.Axes[j].CreatedAt()) {
			return snap.Axes[i].CreatedAt().Before(snap.Axes[j].CreatedAt())
		}
		return snap.Axes[i].ID().String() < snap.Axes[j].ID().String()
	})

	return snap
}

// GetState returns a deep snapshot of the current state
func (m *Manager) GetState() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// CreateReflectionOptions override the defaults taken from the current UI
// context. Zero values mean "use the context default".
type CreateReflectionOptions struct {
	Layer    valueobjects.Layer
	Modality valueobjects.Modality
	ThreadID valueobjects.ThreadID
	AxisID   valueobjects.AxisID
	Tags     []string

	// IsPublic overrides the layer-derived default when non-nil
	IsPublic *bool
}

// CreateReflection builds a new reflection defaulted from the current UI
// context, persists it, updates the cache, and notifies. A crisis-language
// scan runs asynchronously; its outcome never delays or fails the create.
func (m *Manager) CreateReflection(ctx context.Context, text string, opts CreateReflectionOptions) (*entities.Reflection, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("create reflection"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	cfg := m.limits.Current()

	content, err := valueobjects.NewReflectionContentWithConfig(text, cfg)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	layer := opts.Layer
	if layer == "" {
		layer = m.currentLayer
	}
	modality := opts.Modality
	if modality == "" {
		modality = m.settings.DefaultModality()
	}
	threadID := opts.ThreadID
	if threadID.IsZero() {
		threadID = m.currentThread
	}
	axisID := opts.AxisID
	if axisID.IsZero() {
		axisID = m.currentAxis
	}

	reflection, err := entities.NewReflection(content, layer, modality)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if !threadID.IsZero() {
		reflection.AssignToThread(threadID)
	}
	if !axisID.IsZero() {
		reflection.AssignAxis(axisID)
	}
	for _, tag := range opts.Tags {
		if err := reflection.AddTagWithConfig(tag, cfg); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.IsPublic != nil {
		reflection.SetPublic(*opts.IsPublic)
	}

	if err := m.store.AddReflection(ctx, reflection); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	reflection.MarkEventsAsCommitted()
	m.reflections[reflection.ID().String()] = reflection
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ReflectionsCreated.Inc()
	}
	m.notify(snap)
	m.scanForCrisis(reflection.ID(), text)

	return reflection.Clone(), nil
}

// scanForCrisis runs the crisis-language scan in a goroutine. A panic or
// slow scan never reaches the caller.
func (m *Manager) scanForCrisis(id valueobjects.ReflectionID, text string) {
	if m.scanner == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("Crisis scan panicked", zap.Any("panic", r))
			}
		}()

		result := m.scanner.Scan(text)
		if !result.Detected {
			return
		}
		if m.metrics != nil {
			m.metrics.CrisisDetections.Inc()
		}
		m.logger.Warn("Crisis mode activated",
			zap.String("reflection_id", id.String()),
		)
		m.SetCrisisMode(true)
	}()
}

// UpdateReflectionOptions carries partial updates; nil fields are unchanged
type UpdateReflectionOptions struct {
	Content  *string
	Layer    *valueobjects.Layer
	Modality *valueobjects.Modality
	AxisID   *valueobjects.AxisID
	Tags     *[]string
	IsPublic *bool
}

// UpdateReflection applies partial updates to an existing reflection.
// A missing id is a NotFound error, never a silent no-op.
func (m *Manager) UpdateReflection(ctx context.Context, id valueobjects.ReflectionID, opts UpdateReflectionOptions) (*entities.Reflection, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("update reflection"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	cached, ok := m.reflections[id.String()]
	if !ok {
		m.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError("reflection")
	}

	// Work on a clone so a failed persist leaves the cache untouched
	reflection := cached.Clone()
	cfg := m.limits.Current()

	if opts.Content != nil {
		content, err := valueobjects.NewReflectionContentWithConfig(*opts.Content, cfg)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		if err := reflection.UpdateContent(content); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.Layer != nil {
		if err := reflection.SetLayer(*opts.Layer); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.Modality != nil {
		if err := reflection.SetModality(*opts.Modality); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.AxisID != nil {
		reflection.AssignAxis(*opts.AxisID)
	}
	if opts.Tags != nil {
		for _, tag := range reflection.GetTags() {
			if err := reflection.RemoveTag(tag); err != nil {
				m.mu.Unlock()
				return nil, err
			}
		}
		for _, tag := range *opts.Tags {
			if err := reflection.AddTagWithConfig(tag, cfg); err != nil {
				m.mu.Unlock()
				return nil, err
			}
		}
	}
	if opts.IsPublic != nil {
		reflection.SetPublic(*opts.IsPublic)
	}

	if err := m.store.UpdateReflection(ctx, reflection); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	reflection.MarkEventsAsCommitted()
	m.reflections[id.String()] = reflection
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return reflection.Clone(), nil
}

// DeleteReflection removes a reflection. Thread references to it are not
// cascaded; a dangling id in a thread list is tolerated.
func (m *Manager) DeleteReflection(ctx context.Context, id valueobjects.ReflectionID) error {
	m.mu.Lock()

	if err := m.guardMutationLocked("delete reflection"); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.store.DeleteReflection(ctx, id); err != nil {
		m.mu.Unlock()
		return err
	}

	delete(m.reflections, id.String())
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ReflectionsDeleted.Inc()
	}
	m.notify(snap)
	return nil
}

// CreateThread creates a new empty thread
func (m *Manager) CreateThread(ctx context.Context, title string) (*entities.Thread, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("create thread"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	thread, err := entities.NewThreadWithConfig(title, m.limits.Current())
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	if err := m.store.AddThread(ctx, thread); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	thread.MarkEventsAsCommitted()
	m.threads[thread.ID().String()] = thread
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ThreadsCreated.Inc()
	}
	m.notify(snap)
	return thread.Clone(), nil
}

// RenameThread changes a thread's title
func (m *Manager) RenameThread(ctx context.Context, id valueobjects.ThreadID, title string) (*entities.Thread, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("rename thread"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	cached, ok := m.threads[id.String()]
	if !ok {
		m.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError("thread")
	}

	thread := cached.Clone()
	if err := thread.Rename(title); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	if err := m.store.UpdateThread(ctx, thread); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	thread.MarkEventsAsCommitted()
	m.threads[id.String()] = thread
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return thread.Clone(), nil
}

// DeleteThread removes a thread. Reflections referencing it keep their
// dangling thread id; they become unthreaded only from the thread's side.
func (m *Manager) DeleteThread(ctx context.Context, id valueobjects.ThreadID) error {
	m.mu.Lock()

	if err := m.guardMutationLocked("delete thread"); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.store.DeleteThread(ctx, id); err != nil {
		m.mu.Unlock()
		return err
	}

	delete(m.threads, id.String())
	if m.currentThread.Equals(id) {
		m.currentThread = valueobjects.ThreadID{}
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// AddReflectionToThread links a reflection into a thread's ordered list and
// stamps the back-reference on the reflection. The two writes commit in one
// transaction; after it, the reflection appears exactly once in the list.
func (m *Manager) AddReflectionToThread(ctx context.Context, reflectionID valueobjects.ReflectionID, threadID valueobjects.ThreadID) error {
	m.mu.Lock()

	if err := m.guardMutationLocked("add reflection to thread"); err != nil {
		m.mu.Unlock()
		return err
	}

	cachedReflection, ok := m.reflections[reflectionID.String()]
	if !ok {
		m.mu.Unlock()
		return pkgerrors.NewNotFoundError("reflection")
	}
	cachedThread, ok := m.threads[threadID.String()]
	if !ok {
		m.mu.Unlock()
		return pkgerrors.NewNotFoundError("thread")
	}

	reflection := cachedReflection.Clone()
	thread := cachedThread.Clone()

	if err := thread.AddReflectionWithConfig(reflectionID, m.limits.Current()); err != nil {
		m.mu.Unlock()
		return err
	}
	reflection.AssignToThread(threadID)

	uow, err := m.store.BeginUnitOfWork(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	defer func() { _ = uow.Rollback() }()

	if err := uow.StageReflection(reflection); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := uow.StageThread(thread); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		m.mu.Unlock()
		return err
	}

	reflection.MarkEventsAsCommitted()
	thread.MarkEventsAsCommitted()
	m.reflections[reflectionID.String()] = reflection
	m.threads[threadID.String()] = thread
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// CreateIdentityAxis creates a new identity axis
func (m *Manager) CreateIdentityAxis(ctx context.Context, name, color string) (*entities.IdentityAxis, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("create identity axis"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	axis, err := entities.NewIdentityAxisWithConfig(name, color, m.limits.Current())
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	if err := m.store.AddAxis(ctx, axis); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	axis.MarkEventsAsCommitted()
	m.axes[axis.ID().String()] = axis
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return axis.Clone(), nil
}

// UpdateAxisOptions carries partial updates; nil fields are unchanged
type UpdateAxisOptions struct {
	Name  *string
	Color *string
}

// UpdateIdentityAxis applies partial updates to an identity axis
func (m *Manager) UpdateIdentityAxis(ctx context.Context, id valueobjects.AxisID, opts UpdateAxisOptions) (*entities.IdentityAxis, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("update identity axis"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	cached, ok := m.axes[id.String()]
	if !ok {
		m.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError("identity axis")
	}

	axis := cached.Clone()
	if opts.Name != nil {
		if err := axis.Rename(*opts.Name); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.Color != nil {
		if err := axis.SetColor(*opts.Color); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}

	if err := m.store.UpdateAxis(ctx, axis); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	axis.MarkEventsAsCommitted()
	m.axes[id.String()] = axis
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return axis.Clone(), nil
}

// DeleteIdentityAxis removes an identity axis. Reflections referencing it
// keep their dangling axis id.
func (m *Manager) DeleteIdentityAxis(ctx context.Context, id valueobjects.AxisID) error {
	m.mu.Lock()

	if err := m.guardMutationLocked("delete identity axis"); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.store.DeleteAxis(ctx, id); err != nil {
		m.mu.Unlock()
		return err
	}

	delete(m.axes, id.String())
	if m.currentAxis.Equals(id) {
		m.currentAxis = valueobjects.AxisID{}
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// UpdateSettingsOptions carries partial updates; nil fields are unchanged
type UpdateSettingsOptions struct {
	Theme           *entities.Theme
	ReducedMotion   *bool
	HighContrast    *bool
	DefaultLayer    *valueobjects.Layer
	DefaultModality *valueobjects.Modality
}

// UpdateSettings applies partial updates to the settings singleton
func (m *Manager) UpdateSettings(ctx context.Context, opts UpdateSettingsOptions) (*entities.Settings, error) {
	m.mu.Lock()

	if err := m.guardMutationLocked("update settings"); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	settings := m.settings.Clone()
	if opts.Theme != nil {
		if err := settings.SetTheme(*opts.Theme); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.ReducedMotion != nil || opts.HighContrast != nil {
		reduced := settings.ReducedMotion()
		contrast := settings.HighContrast()
		if opts.ReducedMotion != nil {
			reduced = *opts.ReducedMotion
		}
		if opts.HighContrast != nil {
			contrast = *opts.HighContrast
		}
		settings.SetAccessibility(reduced, contrast)
	}
	if opts.DefaultLayer != nil {
		if err := settings.SetDefaultLayer(*opts.DefaultLayer); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	if opts.DefaultModality != nil {
		if err := settings.SetDefaultModality(*opts.DefaultModality); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}

	if err := m.store.UpdateSettings(ctx, settings); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	settings.MarkEventsAsCommitted()
	m.settings = settings
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return settings.Clone(), nil
}

// Ephemeral flags. These never touch the store but still notify, so the UI
// layer sees a single stream of state changes.

// SetCurrentLayer sets the layer applied to new reflections by default
func (m *Manager) SetCurrentLayer(layer valueobjects.Layer) error {
	if !layer.IsValid() {
		return pkgerrors.NewValidationError("layer must be one of: private, shared, experimental")
	}

	m.mu.Lock()
	m.currentLayer = layer
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// SetCurrentThread selects the thread new reflections attach to by default.
// A zero id clears the selection.
func (m *Manager) SetCurrentThread(id valueobjects.ThreadID) error {
	m.mu.Lock()
	if !id.IsZero() {
		if _, ok := m.threads[id.String()]; !ok {
			m.mu.Unlock()
			return pkgerrors.NewNotFoundError("thread")
		}
	}
	m.currentThread = id
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// SetCurrentAxis selects the identity axis new reflections carry by
// default. A zero id clears the selection.
func (m *Manager) SetCurrentAxis(id valueobjects.AxisID) error {
	m.mu.Lock()
	if !id.IsZero() {
		if _, ok := m.axes[id.String()]; !ok {
			m.mu.Unlock()
			return pkgerrors.NewNotFoundError("identity axis")
		}
	}
	m.currentAxis = id
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// SetCrisisMode flips the crisis flag and notifies
func (m *Manager) SetCrisisMode(active bool) {
	m.mu.Lock()
	if m.crisisMode == active {
		m.mu.Unlock()
		return
	}
	m.crisisMode = active
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// Queries. All return deep copies.

// GetReflection returns a reflection from the cache
func (m *Manager) GetReflection(id valueobjects.ReflectionID) (*entities.Reflection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cached, ok := m.reflections[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("reflection")
	}
	return cached.Clone(), nil
}

// GetThread returns a thread from the cache
func (m *Manager) GetThread(id valueobjects.ThreadID) (*entities.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cached, ok := m.threads[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("thread")
	}
	return cached.Clone(), nil
}

// GetAxis returns an identity axis from the cache
func (m *Manager) GetAxis(id valueobjects.AxisID) (*entities.IdentityAxis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cached, ok := m.axes[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("identity axis")
	}
	return cached.Clone(), nil
}

// GetReflectionsByThread returns the reflections attached to a thread in
// the thread's insertion order. A zero thread id returns the unthreaded
// reflections in creation order.
func (m *Manager) GetReflectionsByThread(threadID valueobjects.ThreadID) ([]*entities.Reflection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if threadID.IsZero() {
		unthreaded := []*entities.Reflection{}
		for _, r := range m.reflections {
			if r.ThreadID().IsZero() {
				unthreaded = append(unthreaded, r.Clone())
			}
		}
		sort.Slice(unthreaded, func(i, j int) bool {
			if !unthreaded[i].CreatedAt().Equal(unthreaded[j].CreatedAt()) {
				return unthreaded[i].CreatedAt().Before(unthreaded[j].CreatedAt())
			}
			return unthreaded[i].ID().String() < unthreaded[j].ID().String()
		})
		return unthreaded, nil
	}

	thread, ok := m.threads[threadID.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("thread")
	}

	reflections := []*entities.Reflection{}
	for _, id := range thread.ReflectionIDs() {
		if r, ok := m.reflections[id.String()]; ok {
			reflections = append(reflections, r.Clone())
		}
		// Dangling ids are skipped, not errors; deletes do not cascade
	}
	return reflections, nil
}

// Data lifecycle

// ExportAllData serializes the full store into one transferable document
func (m *Manager) ExportAllData(ctx context.Context) (*ports.ExportDocument, error) {
	return m.store.ExportAll(ctx)
}

// ImportData atomically replaces the store contents and reloads the cache
func (m *Manager) ImportData(ctx context.Context, doc *ports.ExportDocument) error {
	m.mu.Lock()
	if err := m.guardMutationLocked("import data"); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if err := m.store.ImportAll(ctx, doc); err != nil {
		return err
	}

	m.mu.Lock()
	m.status = StatusLoading
	m.mu.Unlock()

	health := m.Initialize(ctx)
	if !health.Ready() {
		return pkgerrors.NewStorageUnavailableError("reload after import: "+health.Reason, nil)
	}

	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()
	m.notify(snap)
	return nil
}

// ClearAllData irreversibly empties every collection. Confirmation is the
// interface layer's responsibility.
func (m *Manager) ClearAllData(ctx context.Context) error {
	m.mu.Lock()

	if err := m.guardMutationLocked("clear all data"); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.store.ClearAll(ctx); err != nil {
		m.mu.Unlock()
		return err
	}

	m.reflections = map[string]*entities.Reflection{}
	m.threads = map[string]*entities.Thread{}
	m.axes = map[string]*entities.IdentityAxis{}
	m.settings = entities.DefaultSettings()
	m.currentThread = valueobjects.ThreadID{}
	m.currentAxis = valueobjects.AxisID{}
	m.currentLayer = valueobjects.DefaultLayer
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Warn("All data cleared", zap.Time("at", time.Now()))
	m.notify(snap)
	return nil
}
