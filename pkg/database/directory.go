package database

import (
	"context"

	"DividendRadar/pkg/model"
)

// 以下方法组合 CompanyDB 与 DividendDB，对上层提供公司目录的完整读写

func (d *DB) ExistsByTicker(ctx context.Context, ticker string) (bool, error) {
	return d.Company().ExistsByTicker(ctx, ticker)
}

func (d *DB) ExistsByName(ctx context.Context, name string) (bool, error) {
	return d.Company().ExistsByName(ctx, name)
}

// SaveCompanyWithDividends 在同一事务中写入公司及其配息，失败整体回滚
func (d *DB) SaveCompanyWithDividends(ctx context.Context, company *model.Company, dividends []model.Dividend) error {
	return d.Transaction(ctx, func(tx *DB) error {
		if err := tx.Company().Create(ctx, company); err != nil {
			return err
		}
		return tx.Dividend().SaveBatch(ctx, company.ID, dividends)
	})
}

func (d *DB) FindByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	return d.Company().GetByTicker(ctx, ticker)
}

func (d *DB) FindByName(ctx context.Context, name string) (*model.Company, error) {
	return d.Company().GetByName(ctx, name)
}

func (d *DB) FindDividends(ctx context.Context, companyID uint64) ([]model.Dividend, error) {
	return d.Dividend().GetByCompanyID(ctx, companyID)
}

func (d *DB) FindPage(ctx context.Context, pageable model.Pageable) (*model.Page[model.Company], error) {
	return d.Company().FindPage(ctx, pageable)
}

func (d *DB) FindNamesStartingWith(ctx context.Context, prefix string, limit int) ([]string, error) {
	return d.Company().FindNamesStartingWith(ctx, prefix, limit)
}

func (d *DB) AllNames(ctx context.Context) ([]string, error) {
	return d.Company().AllNames(ctx)
}

// DeleteCompanyAndDividends 先删配息再删公司，同一事务
func (d *DB) DeleteCompanyAndDividends(ctx context.Context, companyID uint64) error {
	return d.Transaction(ctx, func(tx *DB) error {
		if _, err := tx.Dividend().DeleteByCompanyID(ctx, companyID); err != nil {
			return err
		}
		return tx.Company().Delete(ctx, companyID)
	})
}
