// Package server exposes the optimizer over a line-oriented TCP protocol.
//
// Every request line holds the selectivities of one query. Every response is
// a single JSON object on its own line. QUIT or EXIT ends the session.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/yashagw/selopt/internal/optimizer"
	"github.com/yashagw/selopt/internal/query"
	"github.com/yashagw/selopt/internal/render"
)

const goodbye = "Goodbye!\n"

// Response is the reply to one request line.
type Response struct {
	Type     string   `json:"type"`
	Report   string   `json:"report,omitempty"`
	Code     string   `json:"code,omitempty"`
	Cost     float64  `json:"cost"`
	Terms    []string `json:"terms,omitempty"`
	NoBranch bool     `json:"no_branch"`
	Error    string   `json:"error,omitempty"`
}

type Server struct {
	optimizer *optimizer.Optimizer
	logger    *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func New(o *optimizer.Optimizer, logger *slog.Logger) *Server {
	return &Server{
		optimizer: o,
		logger:    logger,
		conns:     make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on l until ctx is done, then closes the open
// connections and waits for their handlers to return.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		l.Close()
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})
	defer stop()

	s.logger.Info("listening", "addr", l.Addr().String())
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.logger.Error("accepting connection", "err", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		if ctx.Err() != nil {
			conn.Close()
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	logger := s.logger.With("remote", conn.RemoteAddr().String())
	logger.Debug("connection opened")

	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		if upper == "QUIT" || upper == "EXIT" {
			writer.WriteString(goodbye)
			writer.Flush()
			break
		}

		response := s.Execute(line)
		jsonData, err := json.Marshal(response)
		if err != nil {
			jsonData, _ = json.Marshal(Response{
				Type:  "error",
				Error: fmt.Sprintf("failed to serialize response: %v", err),
			})
		}
		writer.Write(jsonData)
		writer.WriteString("\n")
		if err := writer.Flush(); err != nil {
			logger.Debug("writing response", "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("reading from client", "err", err)
	}
	logger.Debug("connection closed")
}

// Execute optimizes the query on line.
func (s *Server) Execute(line string) Response {
	q, err := query.Parse(line)
	if err != nil {
		return Response{Type: "error", Error: err.Error()}
	}
	res, err := s.optimizer.Optimize(q.Selectivities)
	if err != nil {
		return Response{Type: "error", Error: err.Error()}
	}
	code := render.Code(res.Space, res.Root)
	return Response{
		Type:     "plan",
		Report:   render.Statistics(res.Selectivities, code, res.Cost()),
		Code:     code,
		Cost:     res.Cost(),
		Terms:    render.Terms(res.Space, res.Root),
		NoBranch: res.Root.NoBranch(),
	}
}
