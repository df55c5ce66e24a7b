// pkg/model/company.go
package model

import (
	"time"
)

// Company 公司信息，ticker 唯一
type Company struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Ticker    string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"ticker"`
	Name      string    `gorm:"type:varchar(255);not null;index" json:"name"`
	CreatedAt time.Time `json:"-"`

	// 关联，仅用于建立外键
	Dividends []Dividend `gorm:"foreignKey:CompanyID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Company) TableName() string {
	return "company"
}

// Dividend 配息事件，(company_id, date) 唯一
type Dividend struct {
	ID        uint64    `gorm:"primaryKey" json:"-"`
	CompanyID uint64    `gorm:"not null;uniqueIndex:idx_dividend_company_date" json:"-"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_dividend_company_date" json:"date"`
	Amount    string    `gorm:"column:dividend;type:varchar(32);not null" json:"dividend"`
}

func (Dividend) TableName() string {
	return "dividend"
}

// ScrapedResult 公司及其按日期排序的配息列表，不单独落库
type ScrapedResult struct {
	Company   Company    `json:"company"`
	Dividends []Dividend `json:"dividends"`
}
