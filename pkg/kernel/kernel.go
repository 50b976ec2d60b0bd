// Package kernel wires the Kernel's subsystems (event log, artifact store,
// gate, structural linters) into a single session-scoped facade: the
// record* operations a caller drives a session's lifecycle through. Each
// record* operation first writes its artifact to the artifact store and then
// appends the corresponding event; the two writes are separate, not one
// transaction, so a failed append leaves the already-written artifact in the
// store.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clawforge/kernel/pkg/artifactstore"
	"github.com/clawforge/kernel/pkg/eventstore"
	"github.com/clawforge/kernel/pkg/gate"
	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/linters"
	"github.com/clawforge/kernel/pkg/schema"
	"github.com/google/uuid"
)

// Status is a session's derived lifecycle stage.
type Status string

const (
	StatusExploring Status = "exploring"
	StatusLocked    Status = "locked"
	StatusEligible  Status = "eligible"
	StatusSealed    Status = "sealed"
)

// Kernel wires the event log and artifact store subsystems a Session needs.
type Kernel struct {
	Events    eventstore.Store
	Artifacts *artifactstore.Store
	Logger    *slog.Logger
}

// New constructs a Kernel from its subsystems. A nil logger falls back to
// slog.Default().
func New(events eventstore.Store, artifacts *artifactstore.Store, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kernel{Events: events, Artifacts: artifacts, Logger: logger}
}

// Session tracks one governed run's recorded artifacts and derived status.
type Session struct {
	kernel *Kernel
	runID  string

	dod  *schema.DefinitionOfDone
	lock *schema.DecisionLock
	plan *schema.ExecutionPlan

	status Status
}

// StartSession creates a new run in the event log and returns a Session in
// the "exploring" status.
func (k *Kernel) StartSession(runID string, actor schema.Actor) (*Session, error) {
	if err := k.Events.CreateRun(runID, map[string]interface{}{"actorId": actor.ActorID}); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	s := &Session{kernel: k, runID: runID, status: StatusExploring}
	if _, err := s.appendEvent(eventstore.RunStartedType, actor, nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Status reports the session's current derived lifecycle stage.
func (s *Session) Status() Status { return s.status }

func (s *Session) appendEvent(eventType string, actor schema.Actor, payload map[string]interface{}) (*eventstore.Event, error) {
	actorMap := map[string]interface{}{"actorId": actor.ActorID, "actorType": string(actor.ActorType)}
	draft := eventstore.EventDraft{
		EventID:       uuid.NewString(),
		Type:          eventType,
		SchemaVersion: "1.0.0",
		Actor:         actorMap,
		Payload:       payload,
	}
	event, err := s.kernel.Events.AppendEvent(s.runID, draft)
	if err != nil {
		return nil, fmt.Errorf("append %s event: %w", eventType, err)
	}
	return event, nil
}

// persist validates artifact, stores its canonical JSON in the artifact
// store, and returns the store descriptor. Validation failure aborts
// before anything is persisted.
func (s *Session) persist(ctx context.Context, artifact interface {
	Validate() error
}, mime, label string) (*artifactstore.PutResult, error) {
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", label, err)
	}
	result, err := s.kernel.Artifacts.Put(ctx, data, mime, label)
	if err != nil {
		return nil, fmt.Errorf("persist %s: %w", label, err)
	}
	return result, nil
}

// RecordDoD validates and persists a session's DefinitionOfDone. Only
// callable while the session is "exploring".
func (s *Session) RecordDoD(ctx context.Context, dod *schema.DefinitionOfDone, actor schema.Actor) error {
	if s.status != StatusExploring {
		return kernelerrors.Newf(kernelerrors.CodeModeViolation, "cannot record a DoD once a session has left exploring (current status %s)", s.status)
	}
	if _, err := s.persist(ctx, dod, "application/json", "DefinitionOfDone"); err != nil {
		return err
	}
	s.dod = dod
	_, err := s.appendEvent("DoDRecorded", actor, map[string]interface{}{"dodHash": dod.Hash})
	return err
}

// RecordLock validates and persists a session's DecisionLock, binding it to
// the already-recorded DoD. Transitions the session to "locked" once the
// lock's status is "approved".
func (s *Session) RecordLock(ctx context.Context, lock *schema.DecisionLock, actor schema.Actor) error {
	if s.dod == nil {
		return kernelerrors.New(kernelerrors.CodeDoDMissing, "cannot record a lock before a DoD has been recorded")
	}
	if lock.DoDID != s.dod.ID {
		return kernelerrors.New(kernelerrors.CodeIDMismatch, "lock.dodId does not match the session's recorded dod")
	}
	if _, err := s.persist(ctx, lock, "application/json", "DecisionLock"); err != nil {
		return err
	}
	s.lock = lock
	if _, err := s.appendEvent("LockRecorded", actor, map[string]interface{}{"lockHash": lock.Hash}); err != nil {
		return err
	}
	if lock.Status == schema.LockApproved {
		s.status = StatusLocked
	}
	return nil
}

// RecordPlan validates and persists a session's ExecutionPlan, and runs the
// structural linters (C8) against it before accepting it.
func (s *Session) RecordPlan(ctx context.Context, plan *schema.ExecutionPlan, actor schema.Actor) error {
	if s.status != StatusLocked {
		return kernelerrors.Newf(kernelerrors.CodeLockNotApproved, "cannot record a plan before the session's lock is approved (current status %s)", s.status)
	}
	goalReport := linters.LintPlanAgainstLock(plan, s.lock)
	refReport := linters.LintPlanReferences(plan, s.dod)
	if !goalReport.Clean() {
		return goalReport.AsError()
	}
	if !refReport.Clean() {
		return refReport.AsError()
	}
	if _, err := s.persist(ctx, plan, "application/json", "ExecutionPlan"); err != nil {
		return err
	}
	s.plan = plan
	_, err := s.appendEvent("PlanRecorded", actor, map[string]interface{}{"planHash": plan.Hash})
	return err
}

// EvaluateGate runs the execution gate (C7) against the session's recorded
// DoD and lock, transitioning to "eligible" on a pass.
func (s *Session) EvaluateGate(actor schema.Actor) (gate.Result, error) {
	result := gate.Evaluate(s.dod, s.lock)
	payload := map[string]interface{}{"passed": result.Passed}
	if _, err := s.appendEvent("GateEvaluated", actor, payload); err != nil {
		return result, err
	}
	if !result.Passed {
		return result, kernelerrors.New(kernelerrors.CodeGateFailed, "execution gate did not pass")
	}
	s.status = StatusEligible
	return result, nil
}

// Seal persists scp and transitions the session to "sealed".
func (s *Session) Seal(ctx context.Context, scp *schema.SealedChangePackage, actor schema.Actor) error {
	if s.status != StatusEligible {
		return kernelerrors.Newf(kernelerrors.CodeModeViolation, "cannot seal a session that has not passed the execution gate (current status %s)", s.status)
	}
	if _, err := s.persist(ctx, scp, "application/json", "SealedChangePackage"); err != nil {
		return err
	}
	if _, err := s.appendEvent("SessionSealed", actor, map[string]interface{}{"packageHash": scp.Hash}); err != nil {
		return err
	}
	s.status = StatusSealed
	return nil
}

// VerifyChain delegates to the event store's chain verifier for this
// session's run.
func (s *Session) VerifyChain() (*eventstore.ChainVerification, error) {
	return s.kernel.Events.VerifyRunChain(s.runID)
}
