package repository

import (
	"context"
	"sync"

	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

// InMemoryRepository keeps incidents for the lifetime of the process.
type InMemoryRepository struct {
	mu        sync.RWMutex
	incidents map[string]*models.Incident
	order     []string
	acks      map[string][]*models.Acknowledgement
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		incidents: make(map[string]*models.Incident),
		acks:      make(map[string][]*models.Acknowledgement),
	}
}

func (r *InMemoryRepository) CreateIncident(_ context.Context, incident *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.incidents[incident.IncidentID]; exists {
		return ErrIncidentExists
	}
	r.incidents[incident.IncidentID] = incident
	r.order = append(r.order, incident.IncidentID)
	return nil
}

func (r *InMemoryRepository) GetIncident(_ context.Context, id string) (*models.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, ok := r.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	return incident, nil
}

func (r *InMemoryRepository) ListIncidents(_ context.Context) ([]*models.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Incident, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.incidents[id])
	}
	return out, nil
}

func (r *InMemoryRepository) RecordAcknowledgement(_ context.Context, ack *models.Acknowledgement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.incidents[ack.IncidentID]; !ok {
		return ErrIncidentNotFound
	}
	r.acks[ack.IncidentID] = append(r.acks[ack.IncidentID], ack)
	return nil
}

func (r *InMemoryRepository) ListAcknowledgements(_ context.Context, incidentID string) ([]*models.Acknowledgement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.incidents[incidentID]; !ok {
		return nil, ErrIncidentNotFound
	}
	out := make([]*models.Acknowledgement, len(r.acks[incidentID]))
	copy(out, r.acks[incidentID])
	return out, nil
}

func (r *InMemoryRepository) Ping(context.Context) error { return nil }

func (r *InMemoryRepository) Close() error { return nil }
