package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CandleVault/internal/domain/models"
	"CandleVault/internal/domain/repository"
	pkgkafka "CandleVault/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, rec *models.CandleRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (id, session_id, seq, ts, open, high, low, close, volume, spread) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, candleArgs(rec)...)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, recs []*models.CandleRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips; manual entry batches are small
	// but imports can run to a few thousand rows.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, rec := range recs[start:end] {
			if rec == nil || rec.ID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, candleArgs(rec)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, session_id, seq, ts, open, high, low, close, volume, spread) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, sessionID string, from, to time.Time, limit int) ([]*models.CandleRecord, error) {
	q := fmt.Sprintf("SELECT id, session_id, seq, ts, open, high, low, close, volume FROM %s WHERE session_id = ? AND ts >= ? AND ts <= ? ORDER BY seq LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, sessionID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.CandleRecord
	for rows.Next() {
		var rec models.CandleRecord
		var open, high, low, clos, volume float64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SeqIndex, &rec.Timestamp, &open, &high, &low, &clos, &volume); err != nil {
			return nil, err
		}
		rec.Open = decimal.NewFromFloat(open)
		rec.High = decimal.NewFromFloat(high)
		rec.Low = decimal.NewFromFloat(low)
		rec.Close = decimal.NewFromFloat(clos)
		rec.Volume = decimal.NewFromFloat(volume)
		rec.Spread = rec.High.Sub(rec.Low)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

func candleArgs(rec *models.CandleRecord) []interface{} {
	return []interface{}{
		rec.ID,
		rec.SessionID,
		uint64(rec.SeqIndex),
		rec.Timestamp,
		rec.Open.InexactFloat64(),
		rec.High.InexactFloat64(),
		rec.Low.InexactFloat64(),
		rec.Close.InexactFloat64(),
		rec.Volume.InexactFloat64(),
		rec.Spread.InexactFloat64(),
	}
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec *models.CandleRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.SessionID), candlePayload(rec))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, recs []*models.CandleRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(rec.SessionID),
			Value: candlePayload(rec),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func candlePayload(rec *models.CandleRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":         rec.ID,
		"session_id": rec.SessionID,
		"seq":        rec.SeqIndex,
		"ts":         rec.Timestamp.Unix(),
		"o":          rec.Open,
		"h":          rec.High,
		"l":          rec.Low,
		"c":          rec.Close,
		"v":          rec.Volume,
	}
}
