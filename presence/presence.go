package presence

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Member is a collaborator with an alive presence entry for a document.
type Member struct {
	ClientID string
	Name     string
}

// Cache tracks which collaborators are alive on each document and the last
// known cursor position for each, backed by Redis. Membership is TTL'd: a
// collaborator who stops refreshing their presence drops out of
// GetAliveMembers without any explicit leave call.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func roomKey(docID string) string      { return "presence:room:" + docID }
func namesKey(docID string) string     { return "presence:room:names:" + docID }
func cursorKey(docID, id string) string { return "presence:cursor:" + docID + ":" + id }

// Join records a collaborator as alive on a document for ttl, refreshing
// the TTL if already present.
func (c *Cache) Join(ctx context.Context, docID, clientID, name string, ttl time.Duration) error {
	tx := c.rdb.TxPipeline()
	expireAt := time.Now().Add(ttl).Unix()
	tx.ZAdd(ctx, roomKey(docID), redis.Z{Score: float64(expireAt), Member: clientID})
	tx.HSet(ctx, namesKey(docID), clientID, name)
	_, err := tx.Exec(ctx)
	return err
}

// Leave removes a collaborator's presence entry immediately, for the
// explicit-disconnect path (TTL expiry handles the implicit one).
func (c *Cache) Leave(ctx context.Context, docID, clientID string) error {
	tx := c.rdb.TxPipeline()
	tx.ZRem(ctx, roomKey(docID), clientID)
	tx.HDel(ctx, namesKey(docID), clientID)
	tx.Del(ctx, cursorKey(docID, clientID))
	_, err := tx.Exec(ctx)
	return err
}

// SetCursor records the last-known caret position for a collaborator.
func (c *Cache) SetCursor(ctx context.Context, docID, clientID string, pos int, ttl time.Duration) error {
	return c.rdb.Set(ctx, cursorKey(docID, clientID), strconv.Itoa(pos), ttl).Err()
}

// GetCursor returns the last-known caret position for a collaborator, or
// ok=false if none is cached (never joined, or expired).
func (c *Cache) GetCursor(ctx context.Context, docID, clientID string) (pos int, ok bool, err error) {
	s, err := c.rdb.Get(ctx, cursorKey(docID, clientID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	pos, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, err
	}
	return pos, true, nil
}

// GetAliveMembers evicts expired entries and returns the collaborators
// still alive on a document.
func (c *Cache) GetAliveMembers(ctx context.Context, docID string) ([]Member, error) {
	now := time.Now().Unix()

	expired, err := c.rdb.ZRangeByScore(ctx, roomKey(docID), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(expired) > 0 {
		tx := c.rdb.TxPipeline()
		tx.ZRemRangeByScore(ctx, roomKey(docID), "-inf", strconv.FormatInt(now, 10))
		tx.HDel(ctx, namesKey(docID), expired...)
		if _, err := tx.Exec(ctx); err != nil {
			return nil, err
		}
	}

	aliveIDs, err := c.rdb.ZRangeByScore(ctx, roomKey(docID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10),
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	names, err := c.rdb.HMGet(ctx, namesKey(docID), aliveIDs...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	members := make([]Member, 0, len(aliveIDs))
	for i, id := range aliveIDs {
		name := ""
		if v := names[i]; v != nil {
			name, _ = v.(string)
		}
		members = append(members, Member{ClientID: id, Name: name})
	}
	return members, nil
}
