package collection

import "github.com/mongtap/mongtap/internal/bsonx"

// UpdateOptions carries multi/upsert flags for Update.
type UpdateOptions struct {
	Multi  bool
	Upsert bool
}

// UpdateResult reports spec §4.8's matched/modified/upserted counts.
type UpdateResult struct {
	MatchedCount  int
	ModifiedCount int
	UpsertedID    interface{}
}

// Update implements spec §4.8's update: runs find, applies the update
// operators to each matched document in the cache, optionally inserts an
// upsert doc built by applying the update to an empty object.
func (c *Collection) Update(query bsonx.D, update bsonx.D, opts UpdateOptions) (UpdateResult, error) {
	limit := 1
	if opts.Multi {
		limit = DefaultFindLimit
	}
	matched, err := c.Find(query, FindOptions{Limit: limit})
	if err != nil {
		return UpdateResult{}, err
	}

	var result UpdateResult
	result.MatchedCount = len(matched)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range matched {
		id, ok := fieldOf(doc, "_id")
		if !ok {
			continue
		}
		key := idString(id)
		updated, changed := ApplyUpdate(doc, update)
		if changed {
			result.ModifiedCount++
		}
		if key != "" {
			if _, exists := c.cache[key]; !exists {
				c.cacheOrder = append(c.cacheOrder, key)
			}
			c.cache[key] = updated
		}
	}

	if result.MatchedCount == 0 && opts.Upsert {
		upsertDoc := ApplyUpdateToEmpty(update)
		hasID := false
		for _, e := range upsertDoc {
			if e.Key == "_id" {
				hasID = true
				result.UpsertedID = e.Value
				break
			}
		}
		if !hasID {
			oid := bsonx.NewObjectID()
			upsertDoc = append(bsonx.D{{Key: "_id", Value: oid}}, upsertDoc...)
			result.UpsertedID = oid
		}
		key := idString(result.UpsertedID)
		if key != "" {
			c.cache[key] = upsertDoc
			c.cacheOrder = append(c.cacheOrder, key)
		}
		c.documentCount++
	}

	return result, nil
}

// DeleteOptions carries Delete's limit flag.
type DeleteOptions struct {
	Limit int // 0 = up to DefaultFindLimit, 1 = single remove
}

// Delete implements spec §4.8's delete: runs find, evicts matches from
// the cache only, decrements documentCount.
func (c *Collection) Delete(query bsonx.D, opts DeleteOptions) (int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFindLimit
	}
	matched, err := c.Find(query, FindOptions{Limit: limit})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for _, doc := range matched {
		id, ok := fieldOf(doc, "_id")
		if !ok {
			continue
		}
		key := idString(id)
		if key == "" {
			continue
		}
		if _, exists := c.cache[key]; exists {
			delete(c.cache, key)
			deleted++
			if c.documentCount > 0 {
				c.documentCount--
			}
		}
	}
	return deleted, nil
}
