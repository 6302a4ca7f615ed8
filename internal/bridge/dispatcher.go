package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wiselab/pmsshell/internal/infrastructure/monitoring"
	"github.com/wiselab/pmsshell/internal/providers/location"
	"github.com/wiselab/pmsshell/internal/providers/permissions"
	"github.com/wiselab/pmsshell/internal/providers/token"
	"github.com/wiselab/pmsshell/internal/shared/id"
)

// Poster delivers a serialized message to the content surface.
type Poster interface {
	PostMessage(data string) error
}

// Config wires a Dispatcher to its collaborators.
type Config struct {
	Poster      Poster
	Tokens      token.Store
	Permissions permissions.Coordinator
	Locator     location.Provider
	Logger      *zap.Logger
	Metrics     *monitoring.Metrics
}

// Dispatcher routes inbound bridge messages to their handler and posts the
// replies. Handlers run concurrently, except that token store steps apply in
// arrival order. Replies triggered by one message are posted in order,
// after that message's own work completes.
type Dispatcher struct {
	poster  Poster
	tokens  token.Store
	perms   permissions.Coordinator
	locator location.Provider
	logger  *zap.Logger
	metrics *monitoring.Metrics

	// tail is closed when the most recently queued token step finishes.
	seqMu sync.Mutex
	tail  chan struct{}

	wg sync.WaitGroup
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetricsWith(prometheus.NewRegistry())
	}
	tail := make(chan struct{})
	close(tail)
	return &Dispatcher{
		poster:  cfg.Poster,
		tokens:  cfg.Tokens,
		perms:   cfg.Permissions,
		locator: cfg.Locator,
		logger:  logger,
		metrics: metrics,
		tail:    tail,
	}
}

// Dispatch parses raw and starts its handler without waiting for it.
// Malformed and unknown messages are logged and dropped. The handler keeps
// running after ctx is canceled; only ctx's values are carried over.
// Token messages are queued behind earlier token messages, so a
// WEBVIEW_READY always observes every SAVE_TOKEN and LOGOUT_TOKEN
// dispatched before it.
func (d *Dispatcher) Dispatch(ctx context.Context, raw string) {
	msg, err := Parse(raw)
	switch {
	case errors.Is(err, ErrUnknownKind):
		d.logger.Debug("Ignoring unknown bridge message", zap.String("kind", string(msg.Kind)))
		d.metrics.RecordInbound(string(msg.Kind), "ignored")
		return
	case err != nil:
		d.logger.Warn("Dropping malformed bridge message", zap.Error(err), zap.Int("size", len(raw)))
		d.metrics.RecordInbound("malformed", "dropped")
		return
	}

	handler := d.handlerFor(msg.Kind)
	if handler == nil {
		d.logger.Debug("No handler for bridge message", zap.String("kind", string(msg.Kind)))
		d.metrics.RecordInbound(string(msg.Kind), "noop")
		return
	}

	d.metrics.RecordInbound(string(msg.Kind), "dispatched")
	log := d.logger.With(
		zap.Stringer("message_id", id.NewMessageID()),
		zap.String("kind", string(msg.Kind)))
	log.Debug("Dispatching bridge message")
	hctx := context.WithoutCancel(ctx)
	var prev <-chan struct{}
	var done chan struct{}
	if touchesTokens(msg.Kind) {
		prev, done = d.enqueue()
	}

	d.wg.Add(1)
	d.metrics.HandlerStarted()
	go func() {
		defer d.wg.Done()
		defer d.metrics.HandlerFinished()
		if done != nil {
			defer close(done)
			<-prev
		}
		defer func() {
			if r := recover(); r != nil {
				log.Error("Bridge handler panicked", zap.Any("panic", r))
			}
		}()
		handler(hctx, log, msg)
	}()
}

// enqueue appends a token step to the chain and returns the channel to wait
// on and the channel to close when the step is done.
func (d *Dispatcher) enqueue() (prev <-chan struct{}, done chan struct{}) {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	prev, done = d.tail, make(chan struct{})
	d.tail = done
	return prev, done
}

func touchesTokens(kind Kind) bool {
	switch kind {
	case KindSaveToken, KindLogoutToken, KindWebviewReady:
		return true
	}
	return false
}

// Wait blocks until every dispatched handler has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) handlerFor(kind Kind) func(context.Context, *zap.Logger, Inbound) {
	switch kind {
	case KindSaveToken:
		return d.saveToken
	case KindLogoutToken:
		return d.logoutToken
	case KindWebviewReady:
		return d.webviewReady
	case KindRequestLocation:
		return d.requestLocation
	default:
		// CALL_TEL belongs to the link policy, not the bridge.
		return nil
	}
}

func (d *Dispatcher) saveToken(ctx context.Context, log *zap.Logger, msg Inbound) {
	if err := d.tokens.Save(ctx, *msg.Token); err != nil {
		log.Error("Failed to save auth token", zap.Error(err))
		d.metrics.RecordTokenError("save")
		return
	}
	log.Info("Auth token saved")
}

func (d *Dispatcher) logoutToken(ctx context.Context, log *zap.Logger, _ Inbound) {
	if err := d.tokens.Clear(ctx); err != nil {
		log.Error("Failed to clear auth token", zap.Error(err))
		d.metrics.RecordTokenError("clear")
		return
	}
	log.Info("Auth token cleared")
}

func (d *Dispatcher) webviewReady(ctx context.Context, log *zap.Logger, _ Inbound) {
	tok, ok, err := d.tokens.Read(ctx)
	if err != nil {
		log.Error("Failed to read auth token", zap.Error(err))
		d.metrics.RecordTokenError("read")
		return
	}
	if !ok {
		log.Debug("No auth token to restore")
		return
	}
	d.post(log, NewAuthToken(tok))
}

func (d *Dispatcher) requestLocation(ctx context.Context, log *zap.Logger, _ Inbound) {
	res, err := d.perms.Request(ctx)
	if err != nil {
		log.Error("Permission request failed", zap.Error(err))
		res = permissions.Result{Decision: permissions.Denied, Status: "denied"}
	}
	d.metrics.RecordPermission(d.perms.Platform(), res.Decision.String())
	log.Info("Location permission decided",
		zap.String("platform", d.perms.Platform()),
		zap.Stringer("decision", res.Decision),
		zap.String("status", res.Status))

	d.post(log, NewPermissionResult(res.Status, res.Results))
	if !res.Granted() {
		d.post(log, NewPermissionDenied(res.Status))
		if res.Recovery != nil {
			if err := res.Recovery(ctx); err != nil {
				log.Warn("Permission recovery failed", zap.Error(err))
			}
		}
		return
	}

	timer := monitoring.NewTimer(d.metrics)
	fix, err := d.locator.CurrentFix(ctx)
	if err != nil {
		code := location.Classify(err)
		timer.StopLocation(code)
		log.Warn("Position fix failed", zap.String("code", code), zap.Error(err))
		d.post(log, NewLocationError(code, err.Error()))
		return
	}
	timer.StopLocation("ok")
	d.post(log, NewCurrentPosition(fix.Latitude, fix.Longitude))
}

func (d *Dispatcher) post(log *zap.Logger, msg Outbound) {
	data, err := Encode(msg)
	if err != nil {
		log.Error("Failed to encode bridge message", zap.Error(err))
		return
	}
	if err := d.poster.PostMessage(data); err != nil {
		log.Warn("Failed to post bridge message", zap.String("type", msg.MessageType()), zap.Error(err))
		return
	}
	d.metrics.RecordOutbound(msg.MessageType())
}
