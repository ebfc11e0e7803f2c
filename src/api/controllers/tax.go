package controllers

import (
	"context"
	"time"

	"ledger/src/models"
	"ledger/src/schemas"
	"ledger/src/services"
	"ledger/src/utils"
)

type TaxController struct {
	TaxLotService services.TaxLotServiceI
}

func NewTaxController(taxLotService services.TaxLotServiceI) *TaxController {
	return &TaxController{TaxLotService: taxLotService}
}

func (c *TaxController) EstimateTax(ctx context.Context, portfolioID string, req schemas.TaxEstimateRequest) (*models.PortfolioTaxEstimate, error) {
	var refDate time.Time
	if req.ReferenceDate != "" {
		var err error
		if refDate, err = utils.ParseDay(req.ReferenceDate); err != nil {
			return nil, err
		}
	}
	estimate, err := c.TaxLotService.EstimatePortfolio(ctx, portfolioID, req.Settings(), refDate)
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}
