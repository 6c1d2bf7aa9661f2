// Package repository хранит историю заказов в Redis.
//
// Раскладка ключей:
//
//	orderhistory:customer:{id}         hash  name, money_limit
//	orderhistory:customer:{id}:orders  set   id заказов клиента
//	orderhistory:order:{id}            hash  customer_id, order_total, state, rejection_reason
//
// Каждое изменение - один Lua-скрипт, поэтому повторная доставка события
// не меняет документ второй раз.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"example.com/credit-saga/services/orderhistory/internal/domain"
)

const keyPrefix = "orderhistory:"

func customerKey(id int64) string { return fmt.Sprintf("%scustomer:%d", keyPrefix, id) }
func ordersKey(id int64) string   { return fmt.Sprintf("%scustomer:%d:orders", keyPrefix, id) }
func orderKey(id int64) string    { return fmt.Sprintf("%sorder:%d", keyPrefix, id) }

// Коды возврата скриптов.
const (
	resultSkipped         = 0
	resultApplied         = 1
	resultOrderMissing    = -1
	resultCustomerMissing = -2
)

// createCustomerScript создаёт документ клиента, только если его нет.
var createCustomerScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "name", ARGV[1], "money_limit", ARGV[2])
return 1
`)

// upsertOrderScript добавляет заказ клиенту. Статус существующего заказа не трогает.
var upsertOrderScript = redis.NewScript(`
local created = 0
if redis.call("EXISTS", KEYS[1]) == 0 then
	redis.call("HSET", KEYS[1], "state", "PENDING", "rejection_reason", "")
	created = 1
end
redis.call("HSET", KEYS[1], "customer_id", ARGV[1], "order_total", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
return created
`)

// approveOrderScript одобряет заказ в PENDING и списывает его сумму с лимита.
var approveOrderScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if redis.call("EXISTS", KEYS[2]) == 0 then
	return -2
end
if redis.call("HGET", KEYS[1], "state") ~= "PENDING" then
	return 0
end
local total = tonumber(redis.call("HGET", KEYS[1], "order_total"))
redis.call("HSET", KEYS[1], "state", "APPROVED", "rejection_reason", "")
redis.call("HINCRBY", KEYS[2], "money_limit", -total)
return 1
`)

// rejectOrderScript отклоняет заказ в PENDING.
var rejectOrderScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if redis.call("HGET", KEYS[1], "state") ~= "PENDING" then
	return 0
end
redis.call("HSET", KEYS[1], "state", "REJECTED", "rejection_reason", ARGV[1])
return 1
`)

// cancelOrderScript отменяет заказ. Лимит клиента не меняется:
// Customer Service тоже не возвращает зарезервированную сумму.
var cancelOrderScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if redis.call("HGET", KEYS[1], "state") == "CANCELLED" then
	return 0
end
redis.call("HSET", KEYS[1], "state", "CANCELLED")
return 1
`)

// HistoryStore - хранилище истории заказов.
// Методы изменения возвращают false, если событие уже применено.
type HistoryStore interface {
	CreateCustomer(ctx context.Context, customerID int64, name string, moneyLimit int64) (bool, error)
	UpsertOrder(ctx context.Context, orderID, customerID, orderTotal int64) (bool, error)
	ApproveOrder(ctx context.Context, customerID, orderID int64) (bool, error)
	RejectOrder(ctx context.Context, orderID int64, reason domain.RejectionReason) (bool, error)
	CancelOrder(ctx context.Context, customerID, orderID int64) (bool, error)
	GetHistory(ctx context.Context, customerID int64) (*domain.CustomerHistory, error)
}

// redisHistoryStore - реализация HistoryStore на Redis.
type redisHistoryStore struct {
	rdb redis.UniversalClient
}

// NewHistoryStore создаёт хранилище истории.
func NewHistoryStore(rdb redis.UniversalClient) HistoryStore {
	return &redisHistoryStore{rdb: rdb}
}

func (s *redisHistoryStore) CreateCustomer(ctx context.Context, customerID int64, name string, moneyLimit int64) (bool, error) {
	res, err := createCustomerScript.Run(ctx, s.rdb, []string{customerKey(customerID)}, name, moneyLimit).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка записи клиента %d: %w", customerID, err)
	}
	return res == resultApplied, nil
}

func (s *redisHistoryStore) UpsertOrder(ctx context.Context, orderID, customerID, orderTotal int64) (bool, error) {
	res, err := upsertOrderScript.Run(ctx, s.rdb,
		[]string{orderKey(orderID), ordersKey(customerID)},
		customerID, orderTotal, orderID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка записи заказа %d: %w", orderID, err)
	}
	return res == resultApplied, nil
}

func (s *redisHistoryStore) ApproveOrder(ctx context.Context, customerID, orderID int64) (bool, error) {
	res, err := approveOrderScript.Run(ctx, s.rdb, []string{orderKey(orderID), customerKey(customerID)}).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка одобрения заказа %d: %w", orderID, err)
	}
	return scriptResult(res)
}

func (s *redisHistoryStore) RejectOrder(ctx context.Context, orderID int64, reason domain.RejectionReason) (bool, error) {
	res, err := rejectOrderScript.Run(ctx, s.rdb, []string{orderKey(orderID)}, string(reason)).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка отклонения заказа %d: %w", orderID, err)
	}
	return scriptResult(res)
}

func (s *redisHistoryStore) CancelOrder(ctx context.Context, customerID, orderID int64) (bool, error) {
	res, err := cancelOrderScript.Run(ctx, s.rdb, []string{orderKey(orderID)}).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка отмены заказа %d клиента %d: %w", orderID, customerID, err)
	}
	return scriptResult(res)
}

func scriptResult(res int) (bool, error) {
	switch res {
	case resultApplied:
		return true, nil
	case resultSkipped:
		return false, nil
	case resultOrderMissing:
		return false, domain.ErrOrderNotProjected
	case resultCustomerMissing:
		return false, domain.ErrCustomerNotProjected
	default:
		return false, fmt.Errorf("неожиданный результат скрипта: %d", res)
	}
}

// GetHistory собирает документ клиента. Заказы отсортированы по id.
func (s *redisHistoryStore) GetHistory(ctx context.Context, customerID int64) (*domain.CustomerHistory, error) {
	fields, err := s.rdb.HGetAll(ctx, customerKey(customerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения клиента %d: %w", customerID, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrCustomerNotFound
	}

	moneyLimit, err := strconv.ParseInt(fields["money_limit"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("некорректный money_limit клиента %d: %w", customerID, err)
	}
	history := &domain.CustomerHistory{
		ID:         customerID,
		Name:       fields["name"],
		MoneyLimit: moneyLimit,
		Orders:     []domain.OrderEntry{},
	}

	members, err := s.rdb.SMembers(ctx, ordersKey(customerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заказов клиента %d: %w", customerID, err)
	}
	if len(members) == 0 {
		return history, nil
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный id заказа %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, orderKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("ошибка чтения заказов клиента %d: %w", customerID, err)
	}

	for i, cmd := range cmds {
		entry, err := parseOrder(ids[i], cmd.Val())
		if err != nil {
			return nil, err
		}
		history.Orders = append(history.Orders, entry)
	}

	return history, nil
}

func parseOrder(id int64, fields map[string]string) (domain.OrderEntry, error) {
	total, err := strconv.ParseInt(fields["order_total"], 10, 64)
	if err != nil {
		return domain.OrderEntry{}, fmt.Errorf("некорректный order_total заказа %d: %w", id, err)
	}

	entry := domain.OrderEntry{
		ID:         id,
		OrderTotal: total,
		State:      domain.State(fields["state"]),
	}
	if r := fields["rejection_reason"]; r != "" {
		reason := domain.RejectionReason(r)
		entry.RejectionReason = &reason
	}
	return entry, nil
}
