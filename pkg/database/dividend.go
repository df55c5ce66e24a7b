// pkg/database/dividend.go
package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DividendRadar/pkg/model"
)

type DividendDB struct {
	db *gorm.DB
}

// SaveBatch 批量插入配息，(company_id, date) 已存在的记录直接跳过
func (d *DividendDB) SaveBatch(ctx context.Context, companyID uint64, dividends []model.Dividend) error {
	rows := dedupeByDate(companyID, dividends)
	if len(rows) == 0 {
		return nil
	}

	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, createBatchSize).Error
	if err != nil {
		return errors.Wrap(err, "批量保存配息失败")
	}
	return nil
}

// GetByCompanyID 按日期升序返回公司全部配息
func (d *DividendDB) GetByCompanyID(ctx context.Context, companyID uint64) ([]model.Dividend, error) {
	dividends := []model.Dividend{}
	err := d.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("date ASC").
		Find(&dividends).Error
	if err != nil {
		return nil, errors.Wrap(err, "查询公司配息失败")
	}

	for i := range dividends {
		dividends[i].Date = dividends[i].Date.UTC()
	}
	return dividends, nil
}

func (d *DividendDB) DeleteByCompanyID(ctx context.Context, companyID uint64) (int64, error) {
	result := d.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&model.Dividend{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "删除公司配息失败")
	}
	return result.RowsAffected, nil
}

func (d *DividendDB) CountByCompanyID(ctx context.Context, companyID uint64) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.Dividend{}).Where("company_id = ?", companyID).Count(&count).Error
	return count, err
}

// dedupeByDate 同一批次内相同日期只保留第一条
func dedupeByDate(companyID uint64, dividends []model.Dividend) []model.Dividend {
	seen := make(map[time.Time]bool, len(dividends))
	rows := make([]model.Dividend, 0, len(dividends))

	for _, dv := range dividends {
		date := dv.Date.UTC()
		if seen[date] {
			continue
		}
		seen[date] = true
		rows = append(rows, model.Dividend{
			CompanyID: companyID,
			Date:      date,
			Amount:    dv.Amount,
		})
	}
	return rows
}
