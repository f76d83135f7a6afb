package engine

import (
	"context"
	"strconv"
	"sync"

	"bet-engine-go/internal/assistant"
	"bet-engine-go/internal/betting"
	"bet-engine-go/internal/common"
	"bet-engine-go/internal/models"
	"bet-engine-go/internal/monitoring"
	"bet-engine-go/internal/ratelimit"
	"bet-engine-go/internal/session"
	"bet-engine-go/internal/store"

	"go.uber.org/zap"
)

// Transport delivers user actions and renders replies. Implementations
// adapt a chat surface (or the local console) to the engine.
type Transport interface {
	Actions() <-chan models.UserAction
	Render(ctx context.Context, view models.View) error
}

// Dispatcher routes user actions to flow handlers. Actions from the
// same user process in arrival order on a dedicated worker; different
// users proceed in parallel.
type Dispatcher struct {
	store       store.Store
	sessions    *session.Tracker
	bets        *betting.Engine
	odds        *betting.OddsService
	assistant   *assistant.Service
	transport   Transport
	currencies  []common.CurrencyConfig
	bettingCfg  models.BettingConfig
	flowLimiter *ratelimit.Limiter
	betLimiter  *ratelimit.Limiter

	mu      sync.Mutex
	workers map[int64]chan models.UserAction
	wg      sync.WaitGroup

	stopChan chan struct{}
	doneChan chan struct{}
}

type Config struct {
	Store      store.Store
	Sessions   *session.Tracker
	Bets       *betting.Engine
	Odds       *betting.OddsService
	Assistant  *assistant.Service
	Transport  Transport
	Currencies []common.CurrencyConfig
	Betting    models.BettingConfig
	RateLimit  models.RateLimitConfig
}

func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		store:       cfg.Store,
		sessions:    cfg.Sessions,
		bets:        cfg.Bets,
		odds:        cfg.Odds,
		assistant:   cfg.Assistant,
		transport:   cfg.Transport,
		currencies:  cfg.Currencies,
		bettingCfg:  cfg.Betting,
		flowLimiter: ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.FlowLimit),
		betLimiter:  ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.BetLimit),
		workers:     make(map[int64]chan models.UserAction),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start consumes the transport's action channel until Stop is called
// or the channel closes.
func (d *Dispatcher) Start(ctx context.Context) {
	zap.L().Info("Starting dispatcher")

	go func() {
		defer close(d.doneChan)

		for {
			select {
			case action, ok := <-d.transport.Actions():
				if !ok {
					d.drainWorkers()
					return
				}
				d.submit(ctx, action)
			case <-d.stopChan:
				d.drainWorkers()
				return
			case <-ctx.Done():
				d.drainWorkers()
				return
			}
		}
	}()
}

func (d *Dispatcher) Stop() {
	close(d.stopChan)
	<-d.doneChan
	zap.L().Info("Dispatcher stopped")
}

// submit enqueues an action on the user's serial worker, creating the
// worker on first contact. Program order per user is the queue order.
func (d *Dispatcher) submit(ctx context.Context, action models.UserAction) {
	d.mu.Lock()
	queue, ok := d.workers[action.UserId]
	if !ok {
		queue = make(chan models.UserAction, 16)
		d.workers[action.UserId] = queue
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for queued := range queue {
				d.handle(ctx, queued)
			}
		}()
	}
	d.mu.Unlock()

	select {
	case queue <- action:
	default:
		// Queue full: shed rather than block the intake loop
		zap.L().Warn("Dropping action for saturated user queue", zap.Int64("user_id", action.UserId))
	}
}

func (d *Dispatcher) drainWorkers() {
	d.mu.Lock()
	for _, queue := range d.workers {
		close(queue)
	}
	d.workers = make(map[int64]chan models.UserAction)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, action models.UserAction) {
	monitoring.ActionsProcessed.WithLabelValues(string(action.Kind)).Inc()

	user, err := d.store.GetOrCreateUser(ctx, action.UserId, action.Username, action.DisplayName)
	if err != nil {
		zap.L().Error("Failed to resolve user", zap.Int64("user_id", action.UserId), zap.Error(err))
		return
	}

	limiter, class := d.classify(action)
	if ok, retryAfter := limiter.Allow(limiterKey(user.Id, class)); !ok {
		monitoring.ActionsRateLimited.Inc()
		d.render(ctx, rateLimitedView(user.Id, retryAfter))
		return
	}

	var view models.View
	switch action.Kind {
	case models.ActionButton:
		view = d.handleButton(ctx, user, action)
	case models.ActionText:
		view = d.handleText(ctx, user, action)
	case models.ActionPhoto:
		view = d.handlePhoto(ctx, user, action)
	default:
		zap.L().Warn("Unknown action kind", zap.String("kind", string(action.Kind)))
		return
	}

	d.render(ctx, view)
}

// classify picks the rate-limit bucket: free-text bets and bet-flow
// stake entries burn the tighter bet budget, everything else the flow
// budget.
func (d *Dispatcher) classify(action models.UserAction) (*ratelimit.Limiter, string) {
	if action.Kind == models.ActionText {
		if _, err := betting.ParseBet(action.Text); err == nil {
			return d.betLimiter, "bet"
		}
		if flow, ok := d.sessions.Active(action.UserId); ok && flow.Kind == session.FlowBet && flow.Step == session.StepAwaitStake {
			return d.betLimiter, "bet"
		}
	}
	return d.flowLimiter, "flow"
}

func limiterKey(userId int64, class string) string {
	return class + ":" + strconv.FormatInt(userId, 10)
}

func (d *Dispatcher) render(ctx context.Context, view models.View) {
	if view.UserId == 0 && view.Text == "" {
		return
	}
	if err := d.transport.Render(ctx, view); err != nil {
		zap.L().Warn("Failed to render view", zap.Int64("user_id", view.UserId), zap.Error(err))
	}
}
