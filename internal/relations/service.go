package relations

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"moodiary/backend/internal/apperr"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
)

// Options carries the optional collaborators of a Service.
type Options struct {
	Logger   *logger.Logger
	Metrics  *Metrics
	Notifier Notifier
	// Timeout bounds every operation's transaction. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// Service is the entry point of the engine. It is safe for concurrent use.
type Service struct {
	db         *gorm.DB
	users      UserDirectory
	journal    JournalReader
	edges      *EdgeStore
	ledgers    map[models.RelationshipType]*Ledger
	guard      *Guard
	reconciler *Reconciler
	cascade    *Cascade
	audit      *Auditor
	metrics    *Metrics
	notifier   Notifier
	log        *logger.Logger
	timeout    time.Duration
}

func NewService(db *gorm.DB, users UserDirectory, journal JournalReader, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "relations")
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	mentor, _ := NewLedger(db, models.TypeMentor)
	counsellor, _ := NewLedger(db, models.TypeCounsellor)
	ledgers := map[models.RelationshipType]*Ledger{
		models.TypeMentor:     mentor,
		models.TypeCounsellor: counsellor,
	}
	edges := NewEdgeStore(db)

	return &Service{
		db:         db,
		users:      users,
		journal:    journal,
		edges:      edges,
		ledgers:    ledgers,
		guard:      NewGuard(db),
		reconciler: NewReconciler(edges, ledgers, users),
		cascade:    NewCascade(),
		audit:      NewAuditor(db, log, metrics),
		metrics:    metrics,
		notifier:   notifier,
		log:        log,
		timeout:    opts.Timeout,
	}
}

// inTx runs fn in one transaction bounded by the service timeout.
// Cancellation of ctx rolls the transaction back.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
	return apperr.Storage(err)
}

func (s *Service) ledger(kind models.RelationshipType) (*Ledger, error) {
	l, ok := s.ledgers[kind]
	if !ok {
		return nil, apperr.Validation("relationship type %q has no ledger", kind)
	}
	return l, nil
}

func (s *Service) requireUser(ctx context.Context, tx *gorm.DB, id uint) error {
	exists, err := s.users.UserExists(ctx, tx, id)
	if err != nil {
		return apperr.Storage(err)
	}
	if !exists {
		return apperr.NotFound("user not found")
	}
	return nil
}

// RequestEdge creates a pending edge from the actor to recipient.
func (s *Service) RequestEdge(ctx context.Context, actor Principal, recipient uint, t models.RelationshipType) (edge *Edge, err error) {
	defer s.metrics.track("request_edge", time.Now(), &err)
	if t == "" {
		t = models.TypeFriend
	}

	var created *models.Relationship
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if actor.UserID == recipient {
			return apperr.Validation("cannot create a relationship with yourself")
		}
		if err := s.requireUser(ctx, tx, recipient); err != nil {
			return err
		}
		r, err := s.edges.CreatePending(ctx, tx, actor.UserID, recipient, t)
		created = r
		return err
	})
	if err != nil {
		return nil, err
	}

	view := edgeOf(created)
	s.audit.Record(ctx, actor.UserID, ActivityRequestSent, fmt.Sprintf("sent a %s request", t), ref(recipient))
	s.notifier.Publish(recipient, "relationship.requested", view)
	return &view, nil
}

// AcceptEdge accepts the pending request requester sent to the actor, optionally retyping it.
// Accepting an elevated edge materializes its ledger entry.
func (s *Service) AcceptEdge(ctx context.Context, actor Principal, requester uint, newType *models.RelationshipType) (edge *Edge, err error) {
	defer s.metrics.track("accept_edge", time.Now(), &err)

	var accepted *models.Relationship
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		r, err := s.edges.Accept(ctx, tx, requester, actor.UserID, newType)
		if err != nil {
			return err
		}
		accepted = r
		return s.reconciler.OnAccepted(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}

	view := edgeOf(accepted)
	s.audit.Record(ctx, actor.UserID, ActivityRequestAccepted, fmt.Sprintf("accepted a %s request", accepted.Type), ref(requester))
	s.notifier.Publish(requester, "relationship.accepted", view)
	return &view, nil
}

// RejectEdge drops the pending request requester sent to the actor. Rejecting nothing succeeds.
func (s *Service) RejectEdge(ctx context.Context, actor Principal, requester uint) (err error) {
	defer s.metrics.track("reject_edge", time.Now(), &err)
	return s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		_, err := s.edges.Reject(ctx, tx, requester, actor.UserID)
		return err
	})
}

// RemoveEdge deletes the actor's edge with other at any status. Removing nothing succeeds.
func (s *Service) RemoveEdge(ctx context.Context, actor Principal, other uint) (err error) {
	defer s.metrics.track("remove_edge", time.Now(), &err)
	var removed bool
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		removed, err = s.edges.Remove(ctx, tx, actor.UserID, other)
		return err
	})
	if err == nil && removed {
		s.notifier.Publish(other, "relationship.removed", map[string]uint{"user_id": actor.UserID})
	}
	return err
}

// ListEdges returns every edge userID takes part in.
func (s *Service) ListEdges(ctx context.Context, userID uint, filter EdgeFilter) (edges []Edge, err error) {
	defer s.metrics.track("list_edges", time.Now(), &err)
	var rows []models.Relationship
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		rows, err = s.edges.List(ctx, tx, userID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	edges = make([]Edge, 0, len(rows))
	for i := range rows {
		edges = append(edges, edgeOf(&rows[i]))
	}
	return edges, nil
}

// PendingRequests splits userID's pending edges into received and sent.
func (s *Service) PendingRequests(ctx context.Context, userID uint) (*Pending, error) {
	edges, err := s.ListEdges(ctx, userID, EdgeFilter{Status: models.StatusPending})
	if err != nil {
		return nil, err
	}
	pending := &Pending{Received: []Edge{}, Sent: []Edge{}}
	for _, e := range edges {
		if e.RequesterID == userID {
			pending.Sent = append(pending.Sent, e)
		} else {
			pending.Received = append(pending.Received, e)
		}
	}
	return pending, nil
}
