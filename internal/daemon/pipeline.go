package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/internal/alpaca"
	"github.com/exchangetower/tower/internal/dedupe"
	"github.com/exchangetower/tower/internal/jsonfile"
	"github.com/exchangetower/tower/internal/lock"
	"github.com/exchangetower/tower/internal/model"
	"github.com/exchangetower/tower/internal/order"
	"github.com/exchangetower/tower/internal/ratelimit"
	"github.com/exchangetower/tower/internal/response"
	"github.com/exchangetower/tower/internal/schema"
)

// writeSettleWindow bounds how long an empty intake file is presumed to be
// mid-write before it is treated as a malformed order.
const writeSettleWindow = 2 * time.Second

// Upstream is the brokerage surface the pipeline needs, satisfied by
// *alpaca.Client. Narrowed for tests.
type Upstream interface {
	Execute(ctx context.Context, job *model.Job) (*alpaca.Result, error)
}

// Pipeline carries one claimed order file from intake to its terminal state:
// parse, validate, suppress duplicates, admit through the rate limiter,
// dispatch upstream, record the response, archive the job file.
type Pipeline struct {
	layout  Layout
	logger  *slog.Logger
	limiter *ratelimit.Limiter
	cache   *dedupe.RecencyCache
	chains  map[model.Mode]*dedupe.Chain
	clients map[model.Mode]Upstream
	writer  *response.Writer
	lockMap *lock.MutexMap
	stats   *Stats

	// One tripped breaker per mode. Credential failures are a session
	// problem, not a per-job problem: once tripped, jobs for that mode
	// fail fast without spending upstream budget.
	breakers map[model.Mode]*atomic.Bool
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(
	layout Layout,
	logger *slog.Logger,
	limiter *ratelimit.Limiter,
	cache *dedupe.RecencyCache,
	chains map[model.Mode]*dedupe.Chain,
	clients map[model.Mode]Upstream,
	writer *response.Writer,
	lockMap *lock.MutexMap,
	stats *Stats,
) *Pipeline {
	breakers := make(map[model.Mode]*atomic.Bool, len(clients))
	for mode := range clients {
		breakers[mode] = &atomic.Bool{}
	}
	return &Pipeline{
		layout:   layout,
		logger:   logger,
		limiter:  limiter,
		cache:    cache,
		chains:   chains,
		clients:  clients,
		writer:   writer,
		lockMap:  lockMap,
		stats:    stats,
		breakers: breakers,
	}
}

// unknownIdentity is the best-effort identity used to record a response for a
// file whose name could not be parsed. The zero timestamp keeps the date
// partition well-formed.
func unknownIdentity() model.Identity {
	return model.Identity{
		Mode:      model.Mode("unknown"),
		AgentID:   "unknown",
		OrderType: model.OrderType("unknown"),
		Timestamp: "00000000000000000000",
	}
}

// Process handles one file from the intake directory. The returned error is
// only for infrastructure faults; order-level failures terminate in a
// response record and a failed archive, not an error.
func (p *Pipeline) Process(ctx context.Context, path string) error {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") {
		return p.quarantine(path)
	}

	// An empty file modified moments ago is an agent mid-write; leave it
	// for a later scan. An empty file that stayed empty gets processed and
	// fails validation like any other malformed order.
	if info, err := os.Stat(path); err == nil &&
		info.Size() == 0 && time.Since(info.ModTime()) < writeSettleWindow {
		return nil
	}

	// Claiming is an atomic rename into processing/. Losing the race to
	// another worker is normal: the winner owns the file.
	claimed := filepath.Join(p.layout.ProcessingDir(), base)
	if err := os.Rename(path, claimed); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "claim %s", base)
	}
	p.stats.Claimed.Add(1)

	job := &model.Job{State: model.StateClaimed}

	id, err := order.ParseFilename(base)
	if err != nil {
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			return p.fail(claimed, unknownIdentity(), job, model.ErrorInfo{
				Type:    model.ErrTypeValidation,
				Code:    verr.Code,
				Message: verr.Message,
				Details: map[string]any{"filename": base, "field": verr.Field},
			})
		}
		return err
	}
	job.Identity = id
	logger := p.logger.With("client_order_id", id.ClientOrderID())

	body, err := os.ReadFile(claimed)
	if err != nil {
		return errors.Wrapf(err, "read %s", base)
	}

	env, err := order.DecodeEnvelope(id, body)
	if err != nil {
		return p.failValidation(claimed, id, job, err)
	}
	job.Envelope = env

	payload, err := schema.ValidatePayload(id.OrderType, env.Payload)
	if err != nil {
		return p.failValidation(claimed, id, job, err)
	}
	job.Payload = payload
	if err := job.Transition(model.StateValidated); err != nil {
		return err
	}

	client, ok := p.clients[id.Mode]
	if !ok {
		return p.fail(claimed, id, job, model.ErrorInfo{
			Type:    model.ErrTypeAuth,
			Message: "no credentials configured for mode " + string(id.Mode),
		})
	}
	if p.breakers[id.Mode].Load() {
		return p.fail(claimed, id, job, model.ErrorInfo{
			Type:    model.ErrTypeAuth,
			Message: "dispatch disabled for mode " + string(id.Mode) + " after credential failure",
		})
	}

	// Duplicate suppression and admission recording are serialized per
	// client order id so two copies of the same order cannot both pass.
	clientID := id.ClientOrderID()
	chain := p.chains[id.Mode]
	p.lockMap.Lock(clientID)
	var layer string
	var dup bool
	if chain != nil {
		layer, dup = chain.Detect(ctx, clientID)
	}
	if dup {
		p.lockMap.Unlock(clientID)
		p.stats.Duplicates.Add(1)
		logger.Info("duplicate_suppressed", "layer", layer)
		return p.fail(claimed, id, job, model.ErrorInfo{
			Type:    model.ErrTypeDuplicate,
			Message: "order with this client_order_id was already accepted",
			Details: map[string]any{"layer": layer},
		})
	}
	p.cache.Record(clientID)
	p.lockMap.Unlock(clientID)

	lane := ratelimit.LaneNormal
	if id.OrderType.IsCancel() {
		lane = ratelimit.LaneCancel
	}
	if err := p.limiter.Admit(ctx, lane); err != nil {
		// Shutdown or cancellation while queued: leave the file in
		// processing/; the startup reconciler re-queues it.
		logger.Info("admission_aborted", "error", err)
		return nil
	}
	if err := job.Transition(model.StateAdmitted); err != nil {
		return err
	}

	if err := job.Transition(model.StateDispatched); err != nil {
		return err
	}
	result, err := client.Execute(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("dispatch_aborted", "error", ctx.Err())
			return nil
		}
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) {
			errType := apiErr.ErrorType()
			if errType == model.ErrTypeAuth {
				p.breakers[id.Mode].Store(true)
				logger.Error("dispatch_breaker_tripped", "mode", id.Mode, "status", apiErr.StatusCode)
			}
			return p.fail(claimed, id, job, model.ErrorInfo{
				Type:    errType,
				Code:    strconv.Itoa(apiErr.StatusCode),
				Message: apiErr.Message,
			})
		}
		return p.fail(claimed, id, job, model.ErrorInfo{
			Type:    model.ErrTypeUnknown,
			Message: err.Error(),
		})
	}

	if err := job.Transition(model.StateSucceeded); err != nil {
		return err
	}
	respPath, err := p.writer.WriteSuccess(id, result.Data, result.OrderID)
	if err != nil {
		return errors.Wrap(err, "write success response")
	}
	if err := os.Rename(claimed, filepath.Join(p.layout.CompletedDir(), base)); err != nil {
		return errors.Wrapf(err, "archive %s", base)
	}
	p.stats.Succeeded.Add(1)
	logger.Info("order_succeeded", "response", filepath.Base(respPath))
	return nil
}

// failValidation maps parser and schema violations onto validation_error
// responses.
func (p *Pipeline) failValidation(claimed string, id model.Identity, job *model.Job, err error) error {
	info := model.ErrorInfo{Type: model.ErrTypeValidation, Message: err.Error()}
	var verr *order.ValidationError
	var serr *schema.Error
	switch {
	case errors.As(err, &verr):
		info.Code = verr.Code
		info.Message = verr.Message
		info.Details = map[string]any{"field": verr.Field}
	case errors.As(err, &serr):
		info.Message = serr.Message
		info.Details = map[string]any{"field": serr.Field}
	}
	return p.fail(claimed, id, job, info)
}

// fail records the terminal error response and archives the job file under
// failed/. The response is written first: a crash between the two steps
// leaves the file for the reconciler rather than losing the outcome.
func (p *Pipeline) fail(claimed string, id model.Identity, job *model.Job, info model.ErrorInfo) error {
	if !model.IsTerminal(job.State) {
		if err := job.Transition(model.StateFailed); err != nil {
			p.logger.Warn("state_transition_failed", "from", job.State, "error", err)
		}
	}
	if _, err := p.writer.WriteError(id, info); err != nil {
		return errors.Wrap(err, "write error response")
	}
	base := filepath.Base(claimed)
	if err := os.Rename(claimed, filepath.Join(p.layout.FailedDir(), base)); err != nil {
		return errors.Wrapf(err, "archive failed %s", base)
	}
	p.stats.Failed.Add(1)
	p.logger.Info("order_failed",
		"client_order_id", id.ClientOrderID(),
		"error_type", info.Type,
		"message", info.Message)
	return nil
}

func (p *Pipeline) quarantine(path string) error {
	dest, err := jsonfile.Quarantine(p.layout.Base, path)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil
		}
		return err
	}
	p.stats.Quarantined.Add(1)
	p.logger.Warn("file_quarantined", "file", filepath.Base(path), "dest", filepath.Base(dest))
	return nil
}
