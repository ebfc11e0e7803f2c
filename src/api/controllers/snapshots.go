package controllers

import (
	"context"
	"time"

	"ledger/src/models"
	"ledger/src/schemas"
	"ledger/src/services"
	"ledger/src/utils"
)

type SnapshotsController struct {
	SnapshotService services.SnapshotServiceI
}

func NewSnapshotsController(snapshotService services.SnapshotServiceI) *SnapshotsController {
	return &SnapshotsController{SnapshotService: snapshotService}
}

func (c *SnapshotsController) GetSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time, aggregate bool) ([]models.PerformanceSnapshot, error) {
	if endDate.Before(startDate) {
		return nil, utils.BadRequest("endDate must not be before startDate")
	}
	var (
		snapshots []models.PerformanceSnapshot
		err       error
	)
	if aggregate {
		snapshots, err = c.SnapshotService.GetAggregatedSnapshots(ctx, portfolioID, startDate, endDate)
	} else {
		snapshots, err = c.SnapshotService.GetSnapshots(ctx, portfolioID, startDate, endDate)
	}
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []models.PerformanceSnapshot{}
	}
	return snapshots, nil
}

func (c *SnapshotsController) GetLatestSnapshot(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error) {
	return c.SnapshotService.GetLatestSnapshot(ctx, portfolioID)
}

func (c *SnapshotsController) ComputeSnapshots(ctx context.Context, portfolioID string, req schemas.ComputeSnapshotsRequest) (*schemas.ComputeSnapshotsResponse, error) {
	var from, to time.Time
	var err error
	if req.FromDate != "" {
		if from, err = utils.ParseDay(req.FromDate); err != nil {
			return nil, err
		}
	}
	if req.ToDate != "" {
		if to, err = utils.ParseDay(req.ToDate); err != nil {
			return nil, err
		}
	}
	count, err := c.SnapshotService.ComputeSnapshots(ctx, portfolioID, from, to, nil)
	if err != nil {
		return nil, err
	}
	return &schemas.ComputeSnapshotsResponse{PortfolioID: portfolioID, Computed: count}, nil
}

func (c *SnapshotsController) RecomputeSnapshots(ctx context.Context, portfolioID string) (*schemas.ComputeSnapshotsResponse, error) {
	count, err := c.SnapshotService.RecomputeAll(ctx, portfolioID, nil)
	if err != nil {
		return nil, err
	}
	return &schemas.ComputeSnapshotsResponse{PortfolioID: portfolioID, Computed: count}, nil
}

func (c *SnapshotsController) DeleteSnapshots(ctx context.Context, portfolioID string) error {
	return c.SnapshotService.DeleteSnapshots(ctx, portfolioID)
}

func (c *SnapshotsController) HandleEvent(ctx context.Context, req schemas.TriggerEventRequest) error {
	event, err := req.ToModel()
	if err != nil {
		return err
	}
	return c.SnapshotService.HandleEvent(ctx, event)
}
