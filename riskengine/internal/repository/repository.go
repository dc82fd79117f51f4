// Package repository stores incidents and their acknowledgements.
package repository

import (
	"context"
	"errors"

	"github.com/sentinelvnc/sentinel/riskengine/internal/models"
)

var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrIncidentExists   = errors.New("incident already exists")
)

// Repository is the Incident Registry. Incidents are immutable once created
// and listed in insertion order.
type Repository interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	ListIncidents(ctx context.Context) ([]*models.Incident, error)
	RecordAcknowledgement(ctx context.Context, ack *models.Acknowledgement) error
	ListAcknowledgements(ctx context.Context, incidentID string) ([]*models.Acknowledgement, error)

	Ping(ctx context.Context) error
	Close() error
}
