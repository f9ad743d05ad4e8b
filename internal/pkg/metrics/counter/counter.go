package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/choosemypower/ziproute/internal/pkg/cache"
	"github.com/choosemypower/ziproute/internal/pkg/database"
)

const zipLookupsKey = "zip:counters:lookups"

// AddZipLookup increments the pending lookup counter for a ZIP code in Redis.
// The hot path only touches Redis; the job queue flushes the counters to the
// mapping table in batches.
func AddZipLookup(zipCode string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, zipLookupsKey, zipCode, 1).Err()
}

// FlushAll flushes pending ZIP lookup counters to the database
func FlushAll() error {
	return flushLookupsToTable(zipLookupsKey, "zip_mappings", "lookup_count")
}

// flushLookupsToTable drains a Redis hash atomically and applies batched
// increments to the mapping table. Uses RENAME to a temporary key for atomic
// drain without losing in-flight increments.
func flushLookupsToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		// Some Redis libs return redis.Nil; treat as empty
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	// Collect ZIP codes and increments; sort for stable SQL
	type pair struct {
		zip string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		if len(k) != 5 {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{zip: k, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].zip < pairs[j].zip })

	// Compose SQL
	// UPDATE zip_mappings SET <column> = <column> + CASE zip_code WHEN ? THEN ? ... END WHERE zip_code IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE zip_code ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.zip, p.inc)
	}
	builder.WriteString(" END WHERE zip_code IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.zip)
	}
	builder.WriteString(")")

	sql := builder.String()
	db := database.GetDB()
	if err := db.Exec(sql, args...).Error; err != nil {
		return err
	}
	return nil
}
