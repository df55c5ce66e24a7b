package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	gormDB, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "dividend.db")), false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db, err := New(gormDB)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestSaveCompanyWithDividends(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	company := &model.Company{Ticker: "AAPL", Name: "Apple Inc."}
	dividends := []model.Dividend{
		{Date: day("2024-03-01"), Amount: "0.24"},
		{Date: day("2023-11-10"), Amount: "0.24"},
		{Date: day("2024-03-01"), Amount: "0.99"}, // 同日期重复
	}
	if err := db.SaveCompanyWithDividends(ctx, company, dividends); err != nil {
		t.Fatalf("SaveCompanyWithDividends: %v", err)
	}
	if company.ID == 0 {
		t.Fatal("保存后应回填ID")
	}

	exists, err := db.ExistsByTicker(ctx, "AAPL")
	if err != nil || !exists {
		t.Fatalf("ExistsByTicker = %v, %v", exists, err)
	}

	got, err := db.FindDividends(ctx, company.ID)
	if err != nil {
		t.Fatalf("FindDividends: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(day("2023-11-10")) || !got[1].Date.Equal(day("2024-03-01")) {
		t.Fatalf("配息应按日期升序: %+v", got)
	}
	if got[1].Amount != "0.24" {
		t.Fatalf("重复日期应保留第一条, amount = %s", got[1].Amount)
	}
	if got[0].Date.Location() != time.UTC {
		t.Fatalf("日期应为UTC: %v", got[0].Date.Location())
	}
}

func TestSaveBatchSkipsExistingRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	company := &model.Company{Ticker: "KO", Name: "Coca-Cola"}
	if err := db.SaveCompanyWithDividends(ctx, company, []model.Dividend{{Date: day("2024-01-01"), Amount: "0.46"}}); err != nil {
		t.Fatal(err)
	}

	more := []model.Dividend{
		{Date: day("2024-01-01"), Amount: "0.46"},
		{Date: day("2024-04-01"), Amount: "0.49"},
	}
	if err := db.Dividend().SaveBatch(ctx, company.ID, more); err != nil {
		t.Fatalf("重复插入应跳过而非报错: %v", err)
	}

	count, err := db.Dividend().CountByCompanyID(ctx, company.ID)
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}
}

func TestDuplicateTicker(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveCompanyWithDividends(ctx, &model.Company{Ticker: "AAPL", Name: "Apple Inc."}, nil); err != nil {
		t.Fatal(err)
	}

	err := db.SaveCompanyWithDividends(ctx, &model.Company{Ticker: "AAPL", Name: "Apple Again"},
		[]model.Dividend{{Date: day("2024-01-01"), Amount: "1.00"}})
	if !errors.Is(err, apperror.ErrDuplicateTicker) {
		t.Fatalf("err = %v, want DuplicateTicker", err)
	}

	// 事务回滚，不应留下第二家公司
	if _, err := db.FindByName(ctx, "Apple Again"); !errors.Is(err, apperror.ErrCompanyNotFound) {
		t.Fatalf("FindByName err = %v", err)
	}
}

func TestSaveRollsBackCompanyWhenDividendsFail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.db.Callback().Create().Before("gorm:create").Register("test:fail_dividend", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "Dividend" {
			tx.AddError(errors.New("dividend insert failed"))
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	company := &model.Company{Ticker: "KO", Name: "Coca-Cola"}
	err = db.SaveCompanyWithDividends(ctx, company, []model.Dividend{{Date: day("2024-01-01"), Amount: "0.46"}})
	if err == nil {
		t.Fatal("配息写入失败应返回错误")
	}

	exists, err := db.ExistsByTicker(ctx, "KO")
	if err != nil || exists {
		t.Fatalf("公司行应回滚, exists = %v, err = %v", exists, err)
	}
	if names, _ := db.AllNames(ctx); len(names) != 0 {
		t.Fatalf("names = %v", names)
	}
}

func TestExistsByName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, c := range []*model.Company{
		{Ticker: "GOOG", Name: "Alphabet Inc."},
		{Ticker: "GOOGL", Name: "Alphabet Inc."},
	} {
		if err := db.SaveCompanyWithDividends(ctx, c, nil); err != nil {
			t.Fatal(err)
		}
	}

	goog, err := db.FindByTicker(ctx, "GOOG")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteCompanyAndDividends(ctx, goog.ID); err != nil {
		t.Fatal(err)
	}

	if exists, err := db.ExistsByName(ctx, "Alphabet Inc."); err != nil || !exists {
		t.Fatalf("同名公司仍存在, exists = %v, err = %v", exists, err)
	}
	if exists, _ := db.ExistsByName(ctx, "alphabet inc."); exists {
		t.Fatal("名称应区分大小写")
	}
}

func TestFindByTickerAndName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveCompanyWithDividends(ctx, &model.Company{Ticker: "MSFT", Name: "Microsoft Corporation"}, nil); err != nil {
		t.Fatal(err)
	}

	c, err := db.FindByTicker(ctx, "MSFT")
	if err != nil || c.Name != "Microsoft Corporation" {
		t.Fatalf("FindByTicker = %+v, %v", c, err)
	}
	if _, err := db.FindByTicker(ctx, "NOPE"); !errors.Is(err, apperror.ErrCompanyNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := db.FindByName(ctx, "microsoft corporation"); !errors.Is(err, apperror.ErrCompanyNotFound) {
		t.Fatalf("名称查询应精确匹配, err = %v", err)
	}
}

func TestFindPage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, c := range []model.Company{
		{Ticker: "C", Name: "Citigroup"},
		{Ticker: "A", Name: "Agilent"},
		{Ticker: "B", Name: "Boeing"},
	} {
		if err := db.SaveCompanyWithDividends(ctx, &c, nil); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.FindPage(ctx, model.Pageable{Page: 0, Size: 2, Sort: "name,desc"})
	if err != nil {
		t.Fatalf("FindPage: %v", err)
	}
	if page.TotalElements != 3 || page.TotalPages != 2 || len(page.Content) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Content[0].Name != "Citigroup" || page.Content[1].Name != "Boeing" {
		t.Fatalf("排序错误: %+v", page.Content)
	}

	last, err := db.FindPage(ctx, model.Pageable{Page: 1, Size: 2})
	if err != nil || len(last.Content) != 1 || last.Content[0].Ticker != "B" {
		t.Fatalf("last = %+v, %v", last, err)
	}
}

func TestFindNamesStartingWith(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, c := range []model.Company{
		{Ticker: "AAPL", Name: "Apple Inc."},
		{Ticker: "APLE", Name: "Apple Hospitality"},
		{Ticker: "AMZN", Name: "Amazon"},
		{Ticker: "PCT", Name: "100% Pure"},
	} {
		if err := db.SaveCompanyWithDividends(ctx, &c, nil); err != nil {
			t.Fatal(err)
		}
	}

	names, err := db.FindNamesStartingWith(ctx, "aPP", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Apple Hospitality" || names[1] != "Apple Inc." {
		t.Fatalf("names = %v", names)
	}

	names, _ = db.FindNamesStartingWith(ctx, "a", 1)
	if len(names) != 1 || names[0] != "Amazon" {
		t.Fatalf("limit 未生效: %v", names)
	}

	// 通配符按字面匹配
	names, _ = db.FindNamesStartingWith(ctx, "%", 10)
	if len(names) != 0 {
		t.Fatalf("names = %v", names)
	}
	names, _ = db.FindNamesStartingWith(ctx, "100%", 10)
	if len(names) != 1 {
		t.Fatalf("names = %v", names)
	}

	all, err := db.AllNames(ctx)
	if err != nil || len(all) != 4 {
		t.Fatalf("AllNames = %v, %v", all, err)
	}
}

func TestDeleteCompanyAndDividends(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	company := &model.Company{Ticker: "T", Name: "AT&T"}
	if err := db.SaveCompanyWithDividends(ctx, company, []model.Dividend{
		{Date: day("2024-01-01"), Amount: "0.28"},
		{Date: day("2024-04-01"), Amount: "0.28"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteCompanyAndDividends(ctx, company.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if exists, _ := db.ExistsByTicker(ctx, "T"); exists {
		t.Fatal("公司应已删除")
	}
	if count, _ := db.Dividend().CountByCompanyID(ctx, company.ID); count != 0 {
		t.Fatalf("配息残留 %d 条", count)
	}

	if err := db.DeleteCompanyAndDividends(ctx, company.ID); !errors.Is(err, apperror.ErrCompanyNotFound) {
		t.Fatalf("重复删除 err = %v", err)
	}
}

func TestPreparePoolClosesOnPingFailure(t *testing.T) {
	gormDB, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "ping.db")), false)
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := preparePool(ctx, gormDB, 2, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if err := sqlDB.Ping(); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("Ping 失败后连接池应已关闭, err = %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`a_b%c\d`); got != `a\_b\%c\\d` {
		t.Fatalf("escapeLike = %s", got)
	}
}
