package server

import (
	"time"

	"github.com/mongtap/mongtap/internal/aggregation"
	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/collection"
	"github.com/mongtap/mongtap/internal/logging"
)

// firstKey returns a command document's first element, which names the
// command and (for collection-scoped commands) carries the collection name
// as its value.
func firstKey(cmd bsonx.D) (string, interface{}) {
	if len(cmd) == 0 {
		return "", nil
	}
	return cmd[0].Key, cmd[0].Value
}

func fieldString(cmd bsonx.D, key string) (string, bool) {
	for _, e := range cmd {
		if e.Key == key {
			s, ok := e.Value.(string)
			return s, ok
		}
	}
	return "", false
}

func fieldDoc(cmd bsonx.D, key string) (bsonx.D, bool) {
	for _, e := range cmd {
		if e.Key == key {
			d, ok := e.Value.(bsonx.D)
			return d, ok
		}
	}
	return nil, false
}

func fieldInt(cmd bsonx.D, key string, def int) int {
	for _, e := range cmd {
		if e.Key == key {
			if f, ok := toFloatLooseLocal(e.Value); ok {
				return int(f)
			}
		}
	}
	return def
}

func fieldInt64(cmd bsonx.D, key string, def int64) int64 {
	for _, e := range cmd {
		if e.Key == key {
			if f, ok := toFloatLooseLocal(e.Value); ok {
				return int64(f)
			}
		}
	}
	return def
}

func fieldArray(cmd bsonx.D, key string) (bsonx.A, bool) {
	for _, e := range cmd {
		if e.Key == key {
			switch a := e.Value.(type) {
			case bsonx.A:
				return a, true
			case []interface{}:
				return bsonx.A(a), true
			}
		}
	}
	return nil, false
}

func toFloatLooseLocal(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// HandleCommand dispatches one command document (spec §6.6) and returns its
// reply body, never an error: command-level failures are folded into the
// {ok:0, errmsg, code} shape here (see errReply), matching what a real
// driver expects back over OP_MSG rather than a transport-level error.
func (s *Server) HandleCommand(db string, cmd bsonx.D, clientID string) bsonx.D {
	name, _ := firstKey(cmd)
	switch name {
	case "hello", "ismaster", "isMaster":
		return s.cmdHello()
	case "ping":
		return okReply(nil)
	case "insert":
		return s.cmdInsert(db, cmd)
	case "find":
		return s.cmdFind(db, cmd, clientID)
	case "getMore":
		return s.cmdGetMore(db, cmd)
	case "killCursors":
		return s.cmdKillCursors(cmd)
	case "update":
		return s.cmdUpdate(db, cmd)
	case "delete":
		return s.cmdDelete(db, cmd)
	case "count":
		return s.cmdCount(db, cmd)
	case "aggregate":
		return s.cmdAggregate(db, cmd, clientID)
	case "listCollections":
		return s.cmdListCollections(db)
	case "listDatabases":
		return s.cmdListDatabases()
	case "createIndexes":
		return s.cmdCreateIndexes(db, cmd)
	case "dropIndexes":
		return s.cmdDropIndexes(db, cmd)
	case "drop":
		return s.cmdDrop(db, cmd)
	case "listIndexes":
		return s.cmdListIndexes(db, cmd)
	case "explain":
		return s.cmdExplain()
	default:
		return errReply(errCommandNotFound(name))
	}
}

func okReply(extra bsonx.D) bsonx.D {
	out := bsonx.D{{Key: "ok", Value: 1.0}}
	return append(out, extra...)
}

func errReply(err error) bsonx.D {
	if ce, ok := err.(*CommandError); ok {
		return bsonx.D{
			{Key: "ok", Value: 0.0},
			{Key: "errmsg", Value: ce.Message},
			{Key: "code", Value: ce.Code},
			{Key: "codeName", Value: ce.Name},
		}
	}
	return bsonx.D{
		{Key: "ok", Value: 0.0},
		{Key: "errmsg", Value: err.Error()},
	}
}

// cmdHello answers the hello/isMaster handshake real drivers send before
// issuing any other command, spec SPEC_FULL.md §5's supplemented fields.
func (s *Server) cmdHello() bsonx.D {
	return okReply(bsonx.D{
		{Key: "ismaster", Value: true},
		{Key: "maxBsonObjectSize", Value: int32(16 * 1024 * 1024)},
		{Key: "maxMessageSizeBytes", Value: int32(48 * 1024 * 1024)},
		{Key: "maxWriteBatchSize", Value: int32(100000)},
		{Key: "localTime", Value: bsonx.DateTime(time.Now().UnixMilli())},
		{Key: "connectionId", Value: int32(1)},
		{Key: "readOnly", Value: false},
		{Key: "logicalSessionTimeoutMinutes", Value: int32(30)},
		{Key: "minWireVersion", Value: int32(0)},
		{Key: "maxWireVersion", Value: int32(17)},
	})
}

func (s *Server) cmdInsert(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "insert")
	docsArr, _ := fieldArray(cmd, "documents")
	docs := make([]bsonx.D, 0, len(docsArr))
	for _, v := range docsArr {
		if d, ok := v.(bsonx.D); ok {
			docs = append(docs, d)
		}
	}
	c := s.registry.Get(db, name)
	n, _, err := c.Insert(docs)
	if err != nil {
		return errReply(err)
	}
	if perr := s.registry.Persist(db, name); perr != nil {
		s.logger.Logf(logging.Info, "insert: persisting %s.%s: %v", db, name, perr)
	}
	return okReply(bsonx.D{{Key: "n", Value: int32(n)}})
}

func (s *Server) cmdFind(db string, cmd bsonx.D, clientID string) bsonx.D {
	name, _ := fieldString(cmd, "find")
	query, _ := fieldDoc(cmd, "filter")
	projection, _ := fieldDoc(cmd, "projection")
	sortSpec, _ := fieldDoc(cmd, "sort")
	skip := fieldInt(cmd, "skip", 0)
	limit := fieldInt(cmd, "limit", 0)
	batchSize := fieldInt(cmd, "batchSize", 101)

	c := s.registry.Get(db, name)
	results, err := c.Find(query, collection.FindOptions{
		Skip:       skip,
		Limit:      limit,
		Sort:       sortSpec,
		Projection: projection,
	})
	if err != nil {
		return errReply(err)
	}

	firstBatchN := batchSize
	if firstBatchN <= 0 || firstBatchN > len(results) {
		firstBatchN = len(results)
	}
	firstBatch := results[:firstBatchN]

	var cursorID int64
	if firstBatchN < len(results) || limit == 0 {
		if src, filterQuery, ok := c.NewSource(query); ok {
			cur := s.cursors.Admit(db, name, src, nil, s.opts.CursorBufferSize, limit, time.Now())
			_ = filterQuery
			cursorID = cur.ID
		}
	}

	return okReply(bsonx.D{
		{Key: "cursor", Value: bsonx.D{
			{Key: "firstBatch", Value: toArray(firstBatch)},
			{Key: "id", Value: cursorID},
			{Key: "ns", Value: db + "." + name},
		}},
	})
}

func (s *Server) cmdGetMore(db string, cmd bsonx.D) bsonx.D {
	id := fieldInt64(cmd, "getMore", 0)
	name, _ := fieldString(cmd, "collection")
	batchSize := fieldInt(cmd, "batchSize", 101)

	cur, ok := s.cursors.Get(id)
	if !ok {
		return errReply(errCursorNotFound(id))
	}
	batch, exhausted, err := cur.GetNextBatch(batchSize, time.Now())
	if err != nil {
		return errReply(err)
	}
	nextID := id
	if exhausted {
		nextID = 0
	}
	return okReply(bsonx.D{
		{Key: "cursor", Value: bsonx.D{
			{Key: "nextBatch", Value: toArray(batch)},
			{Key: "id", Value: nextID},
			{Key: "ns", Value: db + "." + name},
		}},
	})
}

func (s *Server) cmdKillCursors(cmd bsonx.D) bsonx.D {
	arr, _ := fieldArray(cmd, "cursors")
	ids := make([]int64, 0, len(arr))
	for _, v := range arr {
		if f, ok := toFloatLooseLocal(v); ok {
			ids = append(ids, int64(f))
		}
	}
	killed := s.cursors.Kill(ids)
	killedArr := make(bsonx.A, len(killed))
	for i, id := range killed {
		killedArr[i] = id
	}
	return okReply(bsonx.D{
		{Key: "cursorsKilled", Value: killedArr},
		{Key: "cursorsNotFound", Value: bsonx.A{}},
		{Key: "cursorsAlive", Value: bsonx.A{}},
		{Key: "cursorsUnknown", Value: bsonx.A{}},
	})
}

func (s *Server) cmdUpdate(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "update")
	updatesArr, _ := fieldArray(cmd, "updates")

	var matched, modified int64
	var upserted bsonx.A
	c := s.registry.Get(db, name)
	for _, v := range updatesArr {
		spec, ok := v.(bsonx.D)
		if !ok {
			continue
		}
		query, _ := fieldDoc(spec, "q")
		upd, _ := fieldDoc(spec, "u")
		multi := boolField(spec, "multi")
		upsert := boolField(spec, "upsert")
		res, err := c.Update(query, upd, collection.UpdateOptions{Multi: multi, Upsert: upsert})
		if err != nil {
			return errReply(err)
		}
		matched += int64(res.MatchedCount)
		modified += int64(res.ModifiedCount)
		if res.UpsertedID != nil {
			upserted = append(upserted, bsonx.D{{Key: "index", Value: int32(0)}, {Key: "_id", Value: res.UpsertedID}})
		}
	}
	reply := bsonx.D{{Key: "n", Value: matched}, {Key: "nModified", Value: modified}}
	if len(upserted) > 0 {
		reply = append(reply, bsonx.E{Key: "upserted", Value: upserted})
	}
	return okReply(reply)
}

func (s *Server) cmdDelete(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "delete")
	deletesArr, _ := fieldArray(cmd, "deletes")

	var total int
	c := s.registry.Get(db, name)
	for _, v := range deletesArr {
		spec, ok := v.(bsonx.D)
		if !ok {
			continue
		}
		query, _ := fieldDoc(spec, "q")
		limit := fieldInt(spec, "limit", 0)
		n, err := c.Delete(query, collection.DeleteOptions{Limit: limit})
		if err != nil {
			return errReply(err)
		}
		total += n
	}
	return okReply(bsonx.D{{Key: "n", Value: int32(total)}})
}

func (s *Server) cmdCount(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "count")
	query, _ := fieldDoc(cmd, "query")
	c := s.registry.Get(db, name)
	return okReply(bsonx.D{{Key: "n", Value: int32(c.Count(query))}})
}

func (s *Server) cmdAggregate(db string, cmd bsonx.D, clientID string) bsonx.D {
	name, _ := fieldString(cmd, "aggregate")
	pipelineArr, _ := fieldArray(cmd, "pipeline")
	pipeline := make([]bsonx.D, 0, len(pipelineArr))
	for _, v := range pipelineArr {
		if d, ok := v.(bsonx.D); ok {
			pipeline = append(pipeline, d)
		}
	}

	c := s.registry.Get(db, name)
	source, err := aggregationSourceDocs(c)
	if err != nil {
		return errReply(err)
	}

	out, err := aggregation.Execute(source, pipeline, s.opts.AggregationLimit)
	if err != nil {
		return errReply(errFailedToParse("%v", err))
	}

	return okReply(bsonx.D{
		{Key: "cursor", Value: bsonx.D{
			{Key: "firstBatch", Value: toArray(out)},
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: db + "." + name},
		}},
	})
}

// aggregationSourceDocs materializes a bounded sample of the collection's
// synthetic documents for the pipeline to run over, since there is no
// persisted document set to stream (spec §4.8's generation-on-demand
// model extends to the aggregation input set).
func aggregationSourceDocs(c *collection.Collection) ([]bsonx.D, error) {
	return c.Find(bsonx.D{}, collection.FindOptions{Limit: 1000})
}

func (s *Server) cmdListCollections(db string) bsonx.D {
	names, err := s.registry.ListCollections(db)
	if err != nil {
		return errReply(err)
	}
	arr := make(bsonx.A, len(names))
	for i, n := range names {
		arr[i] = bsonx.D{
			{Key: "name", Value: n},
			{Key: "type", Value: "collection"},
		}
	}
	return okReply(bsonx.D{
		{Key: "cursor", Value: bsonx.D{
			{Key: "firstBatch", Value: arr},
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: db + ".$cmd.listCollections"},
		}},
	})
}

func (s *Server) cmdListDatabases() bsonx.D {
	names, err := s.registry.ListDatabases()
	if err != nil {
		return errReply(err)
	}
	arr := make(bsonx.A, len(names))
	for i, n := range names {
		arr[i] = bsonx.D{{Key: "name", Value: n}}
	}
	return okReply(bsonx.D{{Key: "databases", Value: arr}})
}

func (s *Server) cmdCreateIndexes(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "createIndexes")
	indexesArr, _ := fieldArray(cmd, "indexes")
	c := s.registry.Get(db, name)
	created := 0
	for _, v := range indexesArr {
		spec, ok := v.(bsonx.D)
		if !ok {
			continue
		}
		keys, _ := fieldDoc(spec, "key")
		idxName, _ := fieldString(spec, "name")
		unique := boolField(spec, "unique")
		c.CreateIndex(collection.IndexSpec{Name: idxName, Keys: keys, Unique: unique})
		created++
	}
	return okReply(bsonx.D{{Key: "numIndexesBefore", Value: int32(len(c.Indexes()) - created)}, {Key: "numIndexesAfter", Value: int32(len(c.Indexes()))}})
}

func (s *Server) cmdDropIndexes(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "dropIndexes")
	indexName, _ := fieldString(cmd, "index")
	c := s.registry.Get(db, name)
	if indexName == "" || indexName == "*" {
		for _, idx := range c.Indexes() {
			if idx.Name != "_id_" {
				c.DropIndex(idx.Name)
			}
		}
		return okReply(nil)
	}
	if !c.DropIndex(indexName) {
		return errReply(newCommandError(CodeIndexNotFound, "IndexNotFound", "can't find index with name %q", indexName))
	}
	return okReply(nil)
}

func (s *Server) cmdDrop(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "drop")
	if err := s.registry.Drop(db, name); err != nil {
		return errReply(err)
	}
	return okReply(bsonx.D{{Key: "ns", Value: db + "." + name}})
}

// cmdListIndexes reports the metadata-only index set tracked by
// createIndexes/dropIndexes (SPEC_FULL.md §5: "name, key, v, unique" shape).
func (s *Server) cmdListIndexes(db string, cmd bsonx.D) bsonx.D {
	name, _ := fieldString(cmd, "listIndexes")
	c := s.registry.Get(db, name)
	arr := make(bsonx.A, 0, len(c.Indexes()))
	for _, idx := range c.Indexes() {
		doc := bsonx.D{
			{Key: "v", Value: int32(2)},
			{Key: "key", Value: idx.Keys},
			{Key: "name", Value: idx.Name},
		}
		if idx.Unique {
			doc = append(doc, bsonx.E{Key: "unique", Value: true})
		}
		arr = append(arr, doc)
	}
	return okReply(bsonx.D{
		{Key: "cursor", Value: bsonx.D{
			{Key: "firstBatch", Value: arr},
			{Key: "id", Value: int64(0)},
			{Key: "ns", Value: db + "." + name},
		}},
	})
}

// cmdExplain is a compatibility stub: it returns a minimal queryPlanner
// shape rather than a real plan, since there is no query plan to explain
// (spec §6: no secondary indexes for query acceleration).
func (s *Server) cmdExplain() bsonx.D {
	return okReply(bsonx.D{
		{Key: "queryPlanner", Value: bsonx.D{
			{Key: "plannerVersion", Value: int32(1)},
			{Key: "winningPlan", Value: bsonx.D{{Key: "stage", Value: "MONGTAP_SYNTHETIC"}}},
		}},
	})
}

func boolField(d bsonx.D, key string) bool {
	for _, e := range d {
		if e.Key == key {
			if b, ok := e.Value.(bool); ok {
				return b
			}
		}
	}
	return false
}

func toArray(docs []bsonx.D) bsonx.A {
	arr := make(bsonx.A, len(docs))
	for i, d := range docs {
		arr[i] = d
	}
	return arr
}
