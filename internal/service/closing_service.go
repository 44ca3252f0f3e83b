package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/infrastructure/lock"
	"barbershop/internal/model"
	"barbershop/internal/repository"
	"barbershop/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidDate = errors.New("日期格式不合法")

// ClosingService 日结对账引擎
//
// 【关键点】日结是整个系统最核心的操作，需要保证：
// 1. 唯一性：每个营业日至多一条日结记录（business_date 唯一索引 + upsert）
// 2. 幂等性：同一天重复日结是覆盖重算，不产生新记录
// 3. 一致性：汇总金额、记录写入、流水认领在同一个事务内完成
// 4. 并发安全：按营业日加分布式锁，防止两个请求同时"查无记录后各自创建"
type ClosingService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	entryRepo   *repository.CashEntryRepository
	closingRepo *repository.ClosingRepository
	outboxRepo  *repository.OutboxRepository
}

func NewClosingService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ClosingService {
	return &ClosingService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		entryRepo:   repository.NewCashEntryRepository(db),
		closingRepo: repository.NewClosingRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// EntryCounts 日结涉及的流水条数，供前端展示
type EntryCounts struct {
	Total   int `json:"total"`
	Inflow  int `json:"inflow"`
	Outflow int `json:"outflow"`
}

// ParseBusinessDate 解析营业日参数（yyyy-MM-dd）
func ParseBusinessDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return t, nil
}

// DayBounds 计算营业日边界：[当天 00:00:00.000, 当天 23:59:59.999]
// 两端闭区间，23:59:59.999 的流水算当天，次日 00:00:00.000 的不算
func DayBounds(businessDate time.Time) (time.Time, time.Time) {
	start := time.Date(businessDate.Year(), businessDate.Month(), businessDate.Day(), 0, 0, 0, 0, businessDate.Location())
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// CloseDay 对指定营业日执行日结
//
// 流程：
// 1. 圈定当天的全部现金流水（发生时间闭区间）
// 2. 按方向汇总：入账合计、出账合计、净额 = 入账 - 出账（可为负）
// 3. 按 business_date upsert 日结记录（存在即覆盖，不存在即创建）
// 4. 把范围内流水认领到该日结记录
// 5. 写入日结完成事件（事务消息）
//
// 重复调用是幂等的：流水不变则结果不变，记录ID不变。
func (s *ClosingService) CloseDay(ctx context.Context, businessDate time.Time) (*model.CashClosing, *EntryCounts, error) {
	start, end := DayBounds(businessDate)

	// 获取分布式锁（按营业日维度）
	// 单机部署没有 Redis 时退化为仅靠唯一索引 + upsert 兜底
	if s.redisClient != nil {
		closingLock := lock.NewClosingLock(s.redisClient, start, idgen.GenerateClosingNo())
		if err := closingLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer closingLock.Unlock(ctx)
	}

	var result *model.CashClosing
	counts := &EntryCounts{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		entries, err := s.entryRepo.ListByOccurredRange(ctx, tx, start, end)
		if err != nil {
			return fmt.Errorf("查询流水失败: %w", err)
		}

		totalInflow := decimal.Zero
		totalOutflow := decimal.Zero
		for _, entry := range entries {
			switch entry.Kind {
			case model.EntryKindInflow:
				totalInflow = totalInflow.Add(entry.Amount)
				counts.Inflow++
			case model.EntryKindOutflow:
				totalOutflow = totalOutflow.Add(entry.Amount)
				counts.Outflow++
			}
		}
		counts.Total = len(entries)
		netBalance := totalInflow.Sub(totalOutflow)

		closing := &model.CashClosing{
			ClosingNo:    idgen.GenerateClosingNo(),
			BusinessDate: start,
			TotalInflow:  totalInflow,
			TotalOutflow: totalOutflow,
			NetBalance:   netBalance,
		}
		if err := s.closingRepo.Upsert(ctx, tx, closing); err != nil {
			return fmt.Errorf("写入日结记录失败: %w", err)
		}

		// upsert 命中已有记录时，入参里的 ID/ClosingNo 不是库里那一条的，
		// 重新按日期取一次持久化结果
		stored, err := s.closingRepo.GetByDate(ctx, tx, start)
		if err != nil {
			return fmt.Errorf("查询日结记录失败: %w", err)
		}
		if stored == nil {
			return errors.New("日结记录写入后未找到")
		}
		result = stored

		// 认领当天流水：后补的流水要等下一次日结才会被认领
		if err := s.entryRepo.ClaimByOccurredRange(ctx, tx, stored.ID, start, end); err != nil {
			return fmt.Errorf("认领流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"closing_no":    stored.ClosingNo,
			"business_date": start.Format("2006-01-02"),
			"total_inflow":  totalInflow.StringFixed(2),
			"total_outflow": totalOutflow.StringFixed(2),
			"net_balance":   netBalance.StringFixed(2),
			"entry_count":   counts.Total,
			"closed_at":     time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: stored.ClosingNo,
			Topic:      s.cfg.Kafka.Topic.ClosingClosed,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	log.Printf("日结完成: closingNo=%s, date=%s, inflow=%s, outflow=%s, net=%s",
		result.ClosingNo, start.Format("2006-01-02"),
		result.TotalInflow.StringFixed(2), result.TotalOutflow.StringFixed(2), result.NetBalance.StringFixed(2))

	return result, counts, nil
}

// DeleteClosing 删除日结记录
//
// 【关键点】引用检查和删除在同一个事务内执行。
// 先查计数再另起请求删除是竞态的：两步之间可能有新流水被认领。
func (s *ClosingService) DeleteClosing(ctx context.Context, id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var closing model.CashClosing
		if err := tx.WithContext(ctx).First(&closing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrClosingNotFound
			}
			return err
		}

		count, err := s.entryRepo.CountByClosingID(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("查询关联流水失败: %w", err)
		}
		if count > 0 {
			return repository.ErrClosingHasEntries
		}

		return s.closingRepo.Delete(ctx, tx, id)
	})
}

func (s *ClosingService) GetClosing(ctx context.Context, id int64) (*model.CashClosing, error) {
	return s.closingRepo.GetByID(ctx, id)
}

func (s *ClosingService) ListClosings(ctx context.Context) ([]*model.CashClosing, error) {
	return s.closingRepo.List(ctx)
}
