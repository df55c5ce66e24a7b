// pkg/database/company.go
package database

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/model"
)

type CompanyDB struct {
	db *gorm.DB
}

func (c *CompanyDB) ExistsByTicker(ctx context.Context, ticker string) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&model.Company{}).Where("ticker = ?", ticker).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "查询公司是否存在失败")
	}
	return count > 0, nil
}

// ExistsByName 按名称精确判断是否存在，名称不唯一
func (c *CompanyDB) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&model.Company{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "查询同名公司失败")
	}
	return count > 0, nil
}

// Create 插入公司，ticker 冲突返回 DuplicateTicker
func (c *CompanyDB) Create(ctx context.Context, company *model.Company) error {
	err := c.db.WithContext(ctx).Omit("Dividends").Create(company).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Newf(apperror.KindDuplicateTicker, "ticker已存在: %s", company.Ticker)
	}
	if err != nil {
		return errors.Wrap(err, "保存公司失败")
	}
	return nil
}

func (c *CompanyDB) GetByTicker(ctx context.Context, ticker string) (*model.Company, error) {
	var company model.Company
	err := c.db.WithContext(ctx).First(&company, "ticker = ?", ticker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Newf(apperror.KindCompanyNotFound, "公司不存在: ticker=%s", ticker)
		}
		return nil, errors.Wrap(err, "获取公司信息失败")
	}
	return &company, nil
}

// GetByName 按名称精确查询
func (c *CompanyDB) GetByName(ctx context.Context, name string) (*model.Company, error) {
	var company model.Company
	err := c.db.WithContext(ctx).First(&company, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Newf(apperror.KindCompanyNotFound, "公司不存在: name=%s", name)
		}
		return nil, errors.Wrap(err, "根据名称获取公司信息失败")
	}
	return &company, nil
}

func (c *CompanyDB) FindPage(ctx context.Context, pageable model.Pageable) (*model.Page[model.Company], error) {
	p := pageable.Normalize()

	var total int64
	if err := c.db.WithContext(ctx).Model(&model.Company{}).Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "统计公司数量失败")
	}

	var companies []model.Company
	err := c.db.WithContext(ctx).
		Order(p.OrderClause()).
		Limit(p.Size).
		Offset(p.Offset()).
		Find(&companies).Error
	if err != nil {
		return nil, errors.Wrap(err, "分页查询公司失败")
	}

	return model.NewPage(companies, p, total), nil
}

// FindNamesStartingWith 忽略大小写的名称前缀查询
func (c *CompanyDB) FindNamesStartingWith(ctx context.Context, prefix string, limit int) ([]string, error) {
	names := []string{}
	err := c.db.WithContext(ctx).Model(&model.Company{}).
		Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%").
		Order("name ASC").
		Limit(limit).
		Pluck("name", &names).Error
	if err != nil {
		return nil, errors.Wrap(err, "按前缀查询公司名称失败")
	}
	return names, nil
}

// AllNames 全部公司名称，用于回填前缀索引
func (c *CompanyDB) AllNames(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := c.db.WithContext(ctx).Model(&model.Company{}).Order("name ASC").Pluck("name", &names).Error; err != nil {
		return nil, errors.Wrap(err, "查询全部公司名称失败")
	}
	return names, nil
}

func (c *CompanyDB) Delete(ctx context.Context, companyID uint64) error {
	result := c.db.WithContext(ctx).Delete(&model.Company{}, companyID)
	if result.Error != nil {
		return errors.Wrap(result.Error, "删除公司失败")
	}
	if result.RowsAffected == 0 {
		return apperror.Newf(apperror.KindCompanyNotFound, "公司不存在: id=%d", companyID)
	}
	return nil
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
