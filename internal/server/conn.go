package server

import (
	"io"
	"net"
	"strings"
	"time"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/collection"
	"github.com/mongtap/mongtap/internal/logging"
	"github.com/mongtap/mongtap/internal/wire"
)

// handleConn owns one client connection end to end: it reads frames until
// the connection closes or errors, dispatching each to the command layer,
// then kills any cursors the connection opened (spec §5's cancellation
// rule: "closing a connection kills every cursor it opened").
func (s *Server) handleConn(raw net.Conn) {
	conn := wire.NewConn(raw)
	defer conn.Close()

	var openCursors []int64
	defer func() {
		if len(openCursors) > 0 {
			s.cursors.KillAllFor(openCursors)
		}
	}()

	replyIDs := &wire.RequestIDAllocator{}

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if err != io.EOF {
				s.logger.Logf(logging.DebugLow, "server: connection %s: %v", conn.ID(), err)
			}
			return
		}

		switch frame.Header.OpCode {
		case wire.OpCodeMsg:
			s.handleOpMsg(conn, replyIDs, frame, &openCursors)
		case wire.OpCodeQuery:
			s.handleOpQuery(conn, replyIDs, frame, &openCursors)
		case wire.OpCodeInsert:
			s.handleOpInsert(frame)
		case wire.OpCodeUpdate:
			s.handleOpUpdate(frame)
		case wire.OpCodeDelete:
			s.handleOpDelete(frame)
		case wire.OpCodeGetMore:
			s.handleOpGetMore(conn, replyIDs, frame)
		case wire.OpCodeKillCursors:
			s.handleOpKillCursors(frame)
		default:
			s.logger.Logf(logging.Info, "server: connection %s: unsupported %s", conn.ID(), frame.Header.OpCode)
		}
	}
}

func splitNamespace(ns string) (db, collection string) {
	i := strings.IndexByte(ns, '.')
	if i < 0 {
		return ns, ""
	}
	return ns[:i], ns[i+1:]
}

// mergeDocSequences folds OP_MSG kind-1 sections (e.g. "documents",
// "updates", "deletes" sent out-of-line) back into the kind-0 command
// document under their identifier key, so HandleCommand's field lookups
// see one uniform document regardless of how the driver packed it.
func mergeDocSequences(m wire.Msg) bsonx.D {
	var cmd bsonx.D
	for _, sec := range m.Sections {
		if sec.Kind == wire.SectionKindBody && len(sec.Documents) == 1 {
			cmd = sec.Documents[0]
		}
	}
	for _, sec := range m.Sections {
		if sec.Kind == wire.SectionKindDocSequence {
			arr := make(bsonx.A, len(sec.Documents))
			for i, d := range sec.Documents {
				arr[i] = d
			}
			cmd = append(cmd, bsonx.E{Key: sec.Identifier, Value: arr})
		}
	}
	return cmd
}

func dbFromCommand(cmd bsonx.D) string {
	for _, e := range cmd {
		if e.Key == "$db" {
			if s, ok := e.Value.(string); ok {
				return s
			}
		}
	}
	return "test"
}

func (s *Server) handleOpMsg(conn *wire.Conn, ids *wire.RequestIDAllocator, frame wire.Frame, openCursors *[]int64) {
	msg, err := wire.DecodeMsg(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_MSG: %v", err)
		return
	}
	cmd := mergeDocSequences(msg)
	db := dbFromCommand(cmd)

	reply := s.HandleCommand(db, cmd, conn.ID())
	trackCursorFromReply(reply, openCursors)

	if msg.FlagBits&wire.FlagMoreToCome != 0 {
		return // no reply expected
	}

	body, err := wire.NewReplyMsg(reply)
	if err != nil {
		s.logger.Logf(logging.Info, "server: encoding OP_MSG reply: %v", err)
		return
	}
	header := wire.Header{RequestID: ids.Next(), ResponseTo: frame.Header.RequestID, OpCode: wire.OpCodeMsg}
	if err := conn.WriteFrame(header, body); err != nil {
		s.logger.Logf(logging.Info, "server: writing OP_MSG reply: %v", err)
	}
}

func trackCursorFromReply(reply bsonx.D, openCursors *[]int64) {
	for _, e := range reply {
		if e.Key != "cursor" {
			continue
		}
		cd, ok := e.Value.(bsonx.D)
		if !ok {
			return
		}
		for _, ce := range cd {
			if ce.Key == "id" {
				if id, ok := ce.Value.(int64); ok && id != 0 {
					*openCursors = append(*openCursors, id)
				}
			}
		}
	}
}

func (s *Server) handleOpQuery(conn *wire.Conn, ids *wire.RequestIDAllocator, frame wire.Frame, openCursors *[]int64) {
	op, err := wire.DecodeQueryOp(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_QUERY: %v", err)
		return
	}

	var reply bsonx.D
	if strings.HasSuffix(op.Collection, ".$cmd") {
		db := strings.TrimSuffix(op.Collection, ".$cmd")
		reply = s.HandleCommand(db, op.Query, conn.ID())
		trackCursorFromReply(reply, openCursors)
	} else {
		db, collName := splitNamespace(op.Collection)
		c := s.registry.Get(db, collName)
		results, err := c.Find(op.Query, collection.FindOptions{Skip: int(op.Skip), Limit: int(op.Limit), Projection: op.Selector})
		if err != nil {
			reply = errReply(err)
		} else {
			reply = okReply(nil)
		}
		body, err := wire.EncodeReplyOp(wire.ReplyOp{
			NumberReturned: int32(len(results)),
			Documents:      results,
		})
		if err == nil {
			header := wire.Header{RequestID: ids.Next(), ResponseTo: frame.Header.RequestID, OpCode: wire.OpCodeReply}
			_ = conn.WriteFrame(header, body)
		}
		return
	}

	body, err := wire.EncodeReplyOp(wire.ReplyOp{NumberReturned: 1, Documents: []bsonx.D{reply}})
	if err != nil {
		s.logger.Logf(logging.Info, "server: encoding OP_REPLY: %v", err)
		return
	}
	header := wire.Header{RequestID: ids.Next(), ResponseTo: frame.Header.RequestID, OpCode: wire.OpCodeReply}
	if err := conn.WriteFrame(header, body); err != nil {
		s.logger.Logf(logging.Info, "server: writing OP_REPLY: %v", err)
	}
}

func (s *Server) handleOpInsert(frame wire.Frame) {
	op, err := wire.DecodeInsertOp(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_INSERT: %v", err)
		return
	}
	db, name := splitNamespace(op.Collection)
	c := s.registry.Get(db, name)
	if _, _, err := c.Insert(op.Documents); err != nil {
		s.logger.Logf(logging.Info, "server: OP_INSERT into %s: %v", op.Collection, err)
		return
	}
	if err := s.registry.Persist(db, name); err != nil {
		s.logger.Logf(logging.Info, "server: persisting %s: %v", op.Collection, err)
	}
}

func (s *Server) handleOpUpdate(frame wire.Frame) {
	op, err := wire.DecodeUpdateOp(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_UPDATE: %v", err)
		return
	}
	db, name := splitNamespace(op.Collection)
	c := s.registry.Get(db, name)
	_, _ = c.Update(op.Selector, op.Update, collection.UpdateOptions{
		Multi:  op.Flags&wire.UpdateFlagMulti != 0,
		Upsert: op.Flags&wire.UpdateFlagUpsert != 0,
	})
}

func (s *Server) handleOpDelete(frame wire.Frame) {
	op, err := wire.DecodeDeleteOp(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_DELETE: %v", err)
		return
	}
	db, name := splitNamespace(op.Collection)
	c := s.registry.Get(db, name)
	limit := 0
	if op.Flags&wire.DeleteFlagSingleRemove != 0 {
		limit = 1
	}
	_, _ = c.Delete(op.Selector, collection.DeleteOptions{Limit: limit})
}

func (s *Server) handleOpGetMore(conn *wire.Conn, ids *wire.RequestIDAllocator, frame wire.Frame) {
	op, err := wire.DecodeGetMoreOp(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_GET_MORE: %v", err)
		return
	}
	cur, ok := s.cursors.Get(op.CursorID)
	if !ok {
		body, _ := wire.EncodeReplyOp(wire.ReplyOp{Flags: wire.ReplyFlagCursorNotFound, CursorID: op.CursorID})
		header := wire.Header{RequestID: ids.Next(), ResponseTo: frame.Header.RequestID, OpCode: wire.OpCodeReply}
		_ = conn.WriteFrame(header, body)
		return
	}
	batch, exhausted, err := cur.GetNextBatch(int(op.NumToReturn), time.Now())
	if err != nil {
		s.logger.Logf(logging.Info, "server: OP_GET_MORE: %v", err)
		return
	}
	cursorID := op.CursorID
	if exhausted {
		cursorID = 0
	}
	body, err := wire.EncodeReplyOp(wire.ReplyOp{CursorID: cursorID, NumberReturned: int32(len(batch)), Documents: batch})
	if err != nil {
		return
	}
	header := wire.Header{RequestID: ids.Next(), ResponseTo: frame.Header.RequestID, OpCode: wire.OpCodeReply}
	_ = conn.WriteFrame(header, body)
}

func (s *Server) handleOpKillCursors(frame wire.Frame) {
	op, err := wire.DecodeKillCursorsOp(frame.Body)
	if err != nil {
		s.logger.Logf(logging.Info, "server: decoding OP_KILL_CURSORS: %v", err)
		return
	}
	s.cursors.Kill(op.CursorIDs)
}
