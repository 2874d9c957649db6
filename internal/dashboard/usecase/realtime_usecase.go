package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/metrics"
	"office-dashboard/internal/shared/utils"
)

// Live message types sent to listeners. Change messages use the
// model.ChangeType values as their type.
const (
	MessageSnapshot     = "snapshot"
	MessageUnsubscribed = "unsubscribed"
	MessagePong         = "pong"
	MessageError        = "error"
)

// maxPending bounds the events buffered while a snapshot is computed.
const maxPending = 256

// LiveMessage is one frame pushed to a listener.
type LiveMessage struct {
	Type           string            `json:"type"`
	SubscriptionID string            `json:"subscriptionId,omitempty"`
	Documents      []*model.Document `json:"documents,omitempty"`
	Document       *model.Document   `json:"document,omitempty"`
	DocumentID     string            `json:"documentId,omitempty"`
	ResumeToken    string            `json:"resumeToken,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// SubscribeRequest opens a live query for one connection.
type SubscribeRequest struct {
	ConnectionID   string
	SubscriptionID string
	Kind           string
	DocumentID     string
	Query          model.Query
	ResumeToken    string
	Out            chan<- LiveMessage
}

// RealtimeUsecase manages live queries.
type RealtimeUsecase interface {
	Subscribe(ctx context.Context, req SubscribeRequest) error
	Unsubscribe(connectionID, subscriptionID string) bool
	UnsubscribeAll(connectionID string)
	HandleChange(ctx context.Context, change model.ChangeEvent) error
	SubscriptionCount() int
}

type liveSubscription struct {
	connID     string
	id         string
	principal  utils.Principal
	kind       *model.EntityKind
	documentID string
	query      model.Query
	out        chan<- LiveMessage

	mu      sync.Mutex
	ready   bool
	pending []LiveMessage
}

// RealtimeService fans change events out to live subscriptions. Sends
// never block: a listener whose buffer is full loses the event.
type RealtimeService struct {
	docs    DocumentUsecase
	catalog *catalog.Catalog
	store   repository.EventStore

	mu     sync.RWMutex
	routes map[string]map[string]*liveSubscription
	byConn map[string]map[string]string

	logger logger.Logger
}

var _ RealtimeUsecase = (*RealtimeService)(nil)

// NewRealtimeService creates the hub. store may be nil, which disables
// resume tokens.
func NewRealtimeService(docs DocumentUsecase, store repository.EventStore, log logger.Logger) *RealtimeService {
	return &RealtimeService{
		docs:    docs,
		catalog: docs.Catalog(),
		store:   store,
		routes:  make(map[string]map[string]*liveSubscription),
		byConn:  make(map[string]map[string]string),
		logger:  log.WithComponent("realtime"),
	}
}

// Register subscribes the hub to document change events.
func (s *RealtimeService) Register(bus *eventbus.EventBus) {
	bus.SubscribeMany([]string{
		eventbus.EventTypeDocumentCreated,
		eventbus.EventTypeDocumentUpdated,
		eventbus.EventTypeDocumentDeleted,
	}, "realtime-fanout", func(ctx context.Context, ev eventbus.Event) error {
		change, ok := ev.Data().(model.ChangeEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T", ev.Data())
		}
		return s.HandleChange(ctx, change)
	})
}

func routeKey(tenantID, kind string) string { return tenantID + "|" + kind }

func subKey(connID, subID string) string { return connID + "/" + subID }

func (s *RealtimeService) Subscribe(ctx context.Context, req SubscribeRequest) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.SubscriptionID) == "" {
		return fmt.Errorf("%w: subscriptionId is required", apperrors.ErrInvalidInput)
	}
	k, ok := s.catalog.Kind(req.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownKind, req.Kind)
	}
	q, err := PrepareQuery(k, req.Query)
	if err != nil {
		return err
	}

	sub := &liveSubscription{
		connID:     req.ConnectionID,
		id:         req.SubscriptionID,
		principal:  p,
		kind:       k,
		documentID: req.DocumentID,
		query:      q,
		out:        req.Out,
	}
	s.add(sub)

	initial, err := s.initialMessages(ctx, sub, req.ResumeToken)
	if err != nil {
		s.Unsubscribe(req.ConnectionID, req.SubscriptionID)
		return err
	}

	// Changes arriving meanwhile queue in pending, so writers never wait
	// on this listener.
	for _, msg := range initial {
		select {
		case sub.out <- msg:
		case <-ctx.Done():
			s.Unsubscribe(req.ConnectionID, req.SubscriptionID)
			return ctx.Err()
		}
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	for _, msg := range sub.pending {
		s.send(sub, msg)
	}
	sub.pending = nil
	sub.ready = true
	return nil
}

// initialMessages is the snapshot, or the replayed changes when the
// client resumes and the event store still holds everything after its
// token.
func (s *RealtimeService) initialMessages(ctx context.Context, sub *liveSubscription, token string) ([]LiveMessage, error) {
	if token != "" && s.store != nil {
		events, err := s.store.Since(ctx, sub.principal.TenantID, sub.kind.Name, token)
		if err == nil {
			var msgs []LiveMessage
			for _, ev := range events {
				if msg, ok := s.classify(sub, ev); ok {
					msgs = append(msgs, msg)
				}
			}
			return msgs, nil
		}
		fields := map[string]interface{}{"error": err.Error(), "subscription_id": sub.id}
		if errors.Is(err, repository.ErrResumeExpired) {
			s.logger.WithContext(ctx).WithFields(fields).Info("resume token expired, sending snapshot")
		} else {
			s.logger.WithContext(ctx).WithFields(fields).Warn("resume failed, sending snapshot")
		}
	}

	snap := LiveMessage{Type: MessageSnapshot, SubscriptionID: sub.id, Documents: []*model.Document{}}
	if sub.documentID != "" {
		doc, err := s.docs.Get(ctx, sub.kind.Name, sub.documentID)
		switch {
		case err == nil:
			snap.Documents = append(snap.Documents, doc)
		case apperrors.IsNotFound(err):
		default:
			return nil, err
		}
		return []LiveMessage{snap}, nil
	}
	res, err := s.docs.List(ctx, sub.kind.Name, sub.query, false)
	if err != nil {
		return nil, err
	}
	snap.Documents = res.Documents
	return []LiveMessage{snap}, nil
}

func (s *RealtimeService) add(sub *liveSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(sub.connID, sub.id)

	rk := routeKey(sub.principal.TenantID, sub.kind.Name)
	if s.routes[rk] == nil {
		s.routes[rk] = make(map[string]*liveSubscription)
	}
	s.routes[rk][subKey(sub.connID, sub.id)] = sub
	if s.byConn[sub.connID] == nil {
		s.byConn[sub.connID] = make(map[string]string)
	}
	s.byConn[sub.connID][sub.id] = rk
	metrics.SubscriptionOpened()
}

func (s *RealtimeService) removeLocked(connID, subID string) bool {
	rk, ok := s.byConn[connID][subID]
	if !ok {
		return false
	}
	delete(s.byConn[connID], subID)
	if len(s.byConn[connID]) == 0 {
		delete(s.byConn, connID)
	}
	delete(s.routes[rk], subKey(connID, subID))
	if len(s.routes[rk]) == 0 {
		delete(s.routes, rk)
	}
	metrics.SubscriptionClosed()
	return true
}

func (s *RealtimeService) Unsubscribe(connectionID, subscriptionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(connectionID, subscriptionID)
}

func (s *RealtimeService) UnsubscribeAll(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for subID := range s.byConn[connectionID] {
		s.removeLocked(connectionID, subID)
	}
}

func (s *RealtimeService) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, subs := range s.byConn {
		n += len(subs)
	}
	return n
}

// HandleChange records the change for resume and fans it out.
func (s *RealtimeService) HandleChange(ctx context.Context, change model.ChangeEvent) error {
	if s.store != nil {
		token, err := s.store.Append(ctx, change)
		if err != nil {
			s.logger.WithContext(ctx).WithFields(map[string]interface{}{"error": err.Error()}).Warn("change not recorded for resume")
		} else {
			change.ResumeToken = token
		}
	}

	s.mu.RLock()
	subs := make([]*liveSubscription, 0, len(s.routes[routeKey(change.TenantID, change.Kind)]))
	for _, sub := range s.routes[routeKey(change.TenantID, change.Kind)] {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		msg, ok := s.classify(sub, change)
		if !ok {
			continue
		}
		sub.mu.Lock()
		if sub.ready {
			s.send(sub, msg)
		} else if len(sub.pending) < maxPending {
			sub.pending = append(sub.pending, msg)
		} else {
			metrics.EventDropped()
		}
		sub.mu.Unlock()
	}
	return nil
}

// classify decides how a change looks to sub: a document entering the
// result set is added, one leaving it is removed.
func (s *RealtimeService) classify(sub *liveSubscription, change model.ChangeEvent) (LiveMessage, bool) {
	if sub.documentID != "" && change.DocumentID != sub.documentID {
		return LiveMessage{}, false
	}
	wasIn := s.visible(sub, change.Previous)
	isIn := s.visible(sub, change.Document)

	msg := LiveMessage{SubscriptionID: sub.id, DocumentID: change.DocumentID, ResumeToken: change.ResumeToken}
	switch {
	case isIn && wasIn:
		msg.Type, msg.Document = string(model.ChangeModified), change.Document
	case isIn:
		msg.Type, msg.Document = string(model.ChangeAdded), change.Document
	case wasIn:
		msg.Type = string(model.ChangeRemoved)
		msg.Document = change.Previous
	default:
		return LiveMessage{}, false
	}
	return msg, true
}

func (s *RealtimeService) visible(sub *liveSubscription, doc *model.Document) bool {
	if doc == nil {
		return false
	}
	if sub.documentID == "" && !sub.query.Matches(doc, sub.kind.SearchFields) {
		return false
	}
	ok, _ := s.catalog.Allowed(sub.principal, sub.kind.Name, catalog.ActionRead, doc.Data)
	return ok
}

// send must be called with sub.mu held.
func (s *RealtimeService) send(sub *liveSubscription, msg LiveMessage) {
	select {
	case sub.out <- msg:
	default:
		metrics.EventDropped()
		s.logger.WithFields(map[string]interface{}{
			"connection_id":   sub.connID,
			"subscription_id": sub.id,
			"document_id":     msg.DocumentID,
		}).Warn("listener buffer full, change dropped")
	}
}
