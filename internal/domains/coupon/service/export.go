package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"bikeshop-backend/internal/domains/coupon/model"
)

const usageSheet = "Usages"

// ExportUsages builds a workbook listing every ledger row of a coupon.
func (s *couponService) ExportUsages(ctx context.Context, id uuid.UUID) (*excelize.File, *model.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, wrapRepoErr("find coupon", err)
	}

	usages, err := s.ledger.ListByCoupon(ctx, id)
	if err != nil {
		return nil, nil, wrapRepoErr("list coupon usages", err)
	}

	f, err := buildUsagesExcelFile(coupon, usages)
	if err != nil {
		return nil, nil, wrapRepoErr("build usage export", err)
	}
	return f, coupon, nil
}

func buildUsagesExcelFile(coupon *model.Coupon, usages []*model.CouponUsage) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", usageSheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Coupon Code",
		"User ID",
		"Request Type",
		"Request ID",
		"Discount Amount",
		"Slot",
		"Used At",
	}
	for colIdx, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		if err := f.SetCellValue(usageSheet, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(usageSheet, "A1", "G1", headerStyle)
	}

	for i, u := range usages {
		rowNum := i + 2
		values := []interface{}{
			coupon.Code,
			u.UserID.String(),
			u.RequestType.String(),
			u.RequestID.String(),
			u.DiscountAmount.InexactFloat64(),
			u.Slot,
			u.UsedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(usageSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(usageSheet, "A", "G", 20)
	return f, nil
}
