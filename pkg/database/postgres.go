package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"DividendRadar/pkg/config"
	"DividendRadar/pkg/model"
)

const createBatchSize = 500

// 需要自动迁移的实体
var entities = []interface{}{
	&model.Company{},
	&model.Dividend{},
}

// DB 关系库连接
type DB struct {
	db *gorm.DB
}

// NewPostgres 连接 Postgres 并完成自动迁移，任一步失败都会关闭已创建的连接池
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*DB, error) {
	gormDB, err := Open(postgres.Open(cfg.DSN()), cfg.LogQueries)
	if err != nil {
		return nil, err
	}

	if err := preparePool(ctx, gormDB, cfg.MaxOpenConns, cfg.MaxIdleConns); err != nil {
		return nil, err
	}

	db, err := New(gormDB)
	if err != nil {
		closePool(gormDB)
		return nil, err
	}
	return db, nil
}

// preparePool 设置连接池参数并测试连接，失败时关闭连接池
func preparePool(ctx context.Context, gormDB *gorm.DB, maxOpen, maxIdle int) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return errors.Wrap(err, "获取连接池失败")
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return errors.Wrap(err, "测试数据库连接失败")
	}
	return nil
}

func closePool(gormDB *gorm.DB) {
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
}

// Open 使用任意方言打开连接，测试中用 sqlite
func Open(dialector gorm.Dialector, logQueries bool) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if logQueries {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:          gormlogger.Default.LogMode(logLevel),
		NamingStrategy:  schema.NamingStrategy{SingularTable: true},
		CreateBatchSize: createBatchSize,
		TranslateError:  true,
	})
	if err != nil {
		// gorm.Open 自带的 Ping 失败时连接池已创建
		if db != nil {
			closePool(db)
		}
		return nil, errors.Wrap(err, "连接数据库失败")
	}

	return db, nil
}

// New 包装已有连接并自动迁移表结构
func New(gormDB *gorm.DB) (*DB, error) {
	if err := gormDB.AutoMigrate(entities...); err != nil {
		return nil, errors.Wrap(err, "自动迁移失败")
	}
	return &DB{db: gormDB}, nil
}

// Company 公司表
func (d *DB) Company() *CompanyDB {
	return &CompanyDB{db: d.db}
}

// Dividend 配息表
func (d *DB) Dividend() *DividendDB {
	return &DividendDB{db: d.db}
}

// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
func (d *DB) Transaction(ctx context.Context, fn func(tx *DB) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{db: tx})
	})
}

// Ping 健康检查
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
