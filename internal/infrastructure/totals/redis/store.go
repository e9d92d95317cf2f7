// Package redis implements the totals store on Redis. One sorted set per
// period carries the point totals; ZINCRBY is the atomic increment-or-create
// contract, so concurrent events for the same user serialize inside Redis and
// no read-modify-write race can lose an update.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/domain"
)

const keyPrefix = "deeds:"

// Store holds per-period totals. Key layout, with k = "<kind>:<key>":
//
//	deeds:lb:<k>           ZSET  user -> total points
//	deeds:fq:<k>           HASH  user -> first qualifying OccurredAt (unix micros)
//	deeds:lu:<k>           HASH  user -> last update (unix micros)
//	deeds:fin:<k>          STRING finalized marker
//	deeds:applied:<id>:<k> STRING per-period event dedupe marker
type Store struct {
	rdb *redis.Client
}

func New(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Store{rdb: rdb}, nil
}

// NewFromClient wraps an existing client; used by tests and shared wiring.
func NewFromClient(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) Close() error          { return s.rdb.Close() }
func (s *Store) Client() *redis.Client { return s.rdb }

func lbKey(p domain.Period) string  { return keyPrefix + "lb:" + p.String() }
func fqKey(p domain.Period) string  { return keyPrefix + "fq:" + p.String() }
func luKey(p domain.Period) string  { return keyPrefix + "lu:" + p.String() }
func finKey(p domain.Period) string { return keyPrefix + "fin:" + p.String() }

func appliedKey(eventID string, p domain.Period) string {
	return keyPrefix + "applied:" + eventID + ":" + p.String()
}

// addScript performs one increment atomically, guarded by the per-(event,
// period) dedupe marker: when the marker already exists the script is a no-op
// reporting the standing total, so a replayed event can never bump a period
// twice. Otherwise it sets the marker, bumps the total, keeps the minimum
// first-qualifying time (timestamps are unix micros so they stay inside Lua
// number precision), stamps the last update, and reports whether the period
// was finalized.
var addScript = redis.NewScript(`
if not redis.call('SET', KEYS[5], '1', 'NX') then
  local cur = redis.call('ZSCORE', KEYS[1], ARGV[1])
  if not cur then cur = '0' end
  return {cur, redis.call('EXISTS', KEYS[4]), 0}
end
local total = redis.call('ZINCRBY', KEYS[1], ARGV[2], ARGV[1])
local fq = redis.call('HGET', KEYS[2], ARGV[1])
if (not fq) or (tonumber(ARGV[3]) < tonumber(fq)) then
  redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
end
redis.call('HSET', KEYS[3], ARGV[1], ARGV[4])
return {tostring(total), redis.call('EXISTS', KEYS[4]), 1}
`)

func (s *Store) AddPoints(ctx context.Context, eventID, userID string, p domain.Period, points int64, occurredAt, now time.Time) (aggregate.AddResult, error) {
	res, err := addScript.Run(ctx, s.rdb,
		[]string{lbKey(p), fqKey(p), luKey(p), finKey(p), appliedKey(eventID, p)},
		userID, points, occurredAt.UnixMicro(), now.UnixMicro(),
	).Slice()
	if err != nil {
		return aggregate.AddResult{}, err
	}
	if len(res) != 3 {
		return aggregate.AddResult{}, domain.ErrStoreUnavailable("unexpected increment reply")
	}

	total, err := strconv.ParseFloat(res[0].(string), 64)
	if err != nil {
		return aggregate.AddResult{}, err
	}
	fin, _ := res[1].(int64)
	applied, _ := res[2].(int64)
	return aggregate.AddResult{Total: int64(total), Applied: applied == 1, WasFinalized: fin == 1}, nil
}

func (s *Store) UserTotal(ctx context.Context, userID string, p domain.Period) (domain.UserPeriodTotal, error) {
	t := domain.UserPeriodTotal{UserID: userID, Period: p}

	score, err := s.rdb.ZScore(ctx, lbKey(p), userID).Result()
	if err == redis.Nil {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	t.TotalPoints = int64(score)

	if v, err := s.rdb.HGet(ctx, fqKey(p), userID).Result(); err == nil {
		t.FirstQualifyingAt = microsToTime(v)
	}
	if v, err := s.rdb.HGet(ctx, luKey(p), userID).Result(); err == nil {
		t.LastUpdatedAt = microsToTime(v)
	}
	return t, nil
}

func (s *Store) Snapshot(ctx context.Context, p domain.Period) ([]domain.UserPeriodTotal, error) {
	members, err := s.rdb.ZRangeWithScores(ctx, lbKey(p), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	fq, err := s.rdb.HGetAll(ctx, fqKey(p)).Result()
	if err != nil {
		return nil, err
	}
	lu, err := s.rdb.HGetAll(ctx, luKey(p)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserPeriodTotal, 0, len(members))
	for _, m := range members {
		user, _ := m.Member.(string)
		t := domain.UserPeriodTotal{
			UserID:      user,
			Period:      p,
			TotalPoints: int64(m.Score),
		}
		if v, ok := fq[user]; ok {
			t.FirstQualifyingAt = microsToTime(v)
		}
		if v, ok := lu[user]; ok {
			t.LastUpdatedAt = microsToTime(v)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) Finalize(ctx context.Context, p domain.Period) (bool, error) {
	return s.rdb.SetNX(ctx, finKey(p), "1", 0).Result()
}

func (s *Store) Reopen(ctx context.Context, p domain.Period) error {
	return s.rdb.Del(ctx, finKey(p)).Err()
}

// ReplaceTotals writes the rebuilt totals to shadow keys and swaps them over
// the live ones in a single transaction. A half-finished write is never
// visible: on any failure the shadow keys are dropped and the live snapshot
// stays as it was.
func (s *Store) ReplaceTotals(ctx context.Context, p domain.Period, totals []domain.UserPeriodTotal) error {
	token := uuid.NewString()
	shadowLB := lbKey(p) + ":shadow:" + token
	shadowFQ := fqKey(p) + ":shadow:" + token
	shadowLU := luKey(p) + ":shadow:" + token

	discard := func() {
		s.rdb.Del(context.WithoutCancel(ctx), shadowLB, shadowFQ, shadowLU)
	}

	pipe := s.rdb.Pipeline()
	for _, t := range totals {
		pipe.ZAdd(ctx, shadowLB, redis.Z{Score: float64(t.TotalPoints), Member: t.UserID})
		pipe.HSet(ctx, shadowFQ, t.UserID, t.FirstQualifyingAt.UnixMicro())
		pipe.HSet(ctx, shadowLU, t.UserID, t.LastUpdatedAt.UnixMicro())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		discard()
		return err
	}
	if err := ctx.Err(); err != nil {
		discard()
		return err
	}

	swap := s.rdb.TxPipeline()
	if len(totals) == 0 {
		swap.Del(ctx, lbKey(p), fqKey(p), luKey(p))
	} else {
		swap.Rename(ctx, shadowLB, lbKey(p))
		swap.Rename(ctx, shadowFQ, fqKey(p))
		swap.Rename(ctx, shadowLU, luKey(p))
	}
	if _, err := swap.Exec(ctx); err != nil {
		discard()
		return err
	}
	return nil
}

func microsToTime(v string) time.Time {
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}
